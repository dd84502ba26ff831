// Package settings holds the live, user-editable pipeline configuration.
package settings

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ayusman/safedistance/internal/units"
)

// ErrInvalidSafeDistance is returned when the threshold is not positive.
var ErrInvalidSafeDistance = errors.New("safe distance must be positive")

// SafeDistance is the alert threshold and the unit it was entered in.
type SafeDistance struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Settings is the configuration read by the pipeline at the start of every
// frame.
type Settings struct {
	SafeDistance SafeDistance `json:"safe_distance"`
	ShowDistance bool         `json:"show_distance"`
	VisualizeZ   bool         `json:"visualize_z"`
	RescaleZ     bool         `json:"rescale_z"`
}

// Default returns the settings a fresh install starts with.
func Default() Settings {
	return Settings{
		SafeDistance: SafeDistance{Value: 2.0, Unit: units.Meter},
		ShowDistance: true,
		VisualizeZ:   true,
		RescaleZ:     true,
	}
}

// Validate checks the threshold and unit.
func (s Settings) Validate() error {
	if !(s.SafeDistance.Value > 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSafeDistance, s.SafeDistance.Value)
	}
	if _, err := units.Parse(s.SafeDistance.Unit); err != nil {
		return err
	}
	return nil
}

// Live holds the current Settings. Writers replace the whole value, so a
// reader always sees one consistent snapshot.
type Live struct {
	current  atomic.Pointer[Settings]
	onChange atomic.Pointer[func(Settings)]
}

// NewLive creates a Live holder starting at initial.
func NewLive(initial Settings) *Live {
	l := &Live{}
	l.current.Store(&initial)
	return l
}

// Snapshot returns the current settings.
func (l *Live) Snapshot() Settings {
	return *l.current.Load()
}

// Update validates and publishes s. Invalid settings leave the current value
// untouched.
func (l *Live) Update(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	l.current.Store(&s)
	if fn := l.onChange.Load(); fn != nil {
		(*fn)(s)
	}
	return nil
}

// OnChange registers a callback invoked after every successful Update.
func (l *Live) OnChange(fn func(Settings)) {
	l.onChange.Store(&fn)
}
