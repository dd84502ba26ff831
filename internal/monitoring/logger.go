// Package monitoring holds the diagnostic logger shared by all packages.
package monitoring

import (
	"fmt"
	"log"
	"sync"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Once logs each distinct message a single time until Reset. The per-frame
// path uses it so a condition that persists across frames is reported once.
type Once struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// Logf formats the message and logs it unless it was already logged.
// It reports whether the message was logged.
func (o *Once) Logf(format string, v ...interface{}) bool {
	msg := fmt.Sprintf(format, v...)

	o.mu.Lock()
	if o.seen == nil {
		o.seen = make(map[string]struct{})
	}
	if _, ok := o.seen[msg]; ok {
		o.mu.Unlock()
		return false
	}
	o.seen[msg] = struct{}{}
	o.mu.Unlock()

	Logf("%s", msg)
	return true
}

// Reset forgets every logged message.
func (o *Once) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = nil
}
