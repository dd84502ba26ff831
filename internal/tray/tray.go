// Package tray provides the system tray interface for the safe-distance
// monitor.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/safedistance/internal/alert"
	"github.com/ayusman/safedistance/internal/app"
)

// Tray represents the system tray application. It is an app.Sink: every
// published frame updates the status line.
type Tray struct {
	onToggle       func(enabled bool)
	onSwitchCamera func()
	onSettings     func()
	onQuit         func()
	enabled        bool
	status         string
	mu             sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuStatus *systray.MenuItem
}

// New creates a new Tray instance with the given initial enabled state.
func New(enabled bool) *Tray {
	return &Tray{
		enabled: enabled,
		status:  "Status: waiting",
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnSwitchCamera sets the callback for the switch camera menu item.
func (t *Tray) OnSwitchCamera(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSwitchCamera = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray, making Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("SafeDistance")
	systray.SetTooltip("SafeDistance monitor")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle distance monitoring")
	systray.AddSeparator()

	t.menuStatus = systray.AddMenuItem(t.status, "Current alert state")
	t.menuStatus.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuCamera := systray.AddMenuItem("Switch Camera", "Switch between front and back camera")
	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit SafeDistance")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuCamera.ClickedCh:
				t.call(func() func() { return t.onSwitchCamera })
			case <-menuSettings.ClickedCh:
				t.call(func() func() { return t.onSettings })
			case <-menuQuit.ClickedCh:
				t.call(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// call invokes the callback returned by get outside the lock.
func (t *Tray) call(get func() func()) {
	t.mu.RLock()
	callback := get()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// Publish implements app.Sink.
func (t *Tray) Publish(f *app.Frame) {
	status := StatusText(f)

	t.mu.Lock()
	defer t.mu.Unlock()
	if status == t.status {
		return
	}
	t.status = status

	// Menu items exist only once the tray is running.
	if t.menuStatus == nil {
		return
	}
	t.menuStatus.SetTitle(status)
	if f.Result.State == alert.Alert {
		systray.SetTitle("SafeDistance ⚠")
	} else {
		systray.SetTitle("SafeDistance")
	}
}

// Status returns the current status line.
func (t *Tray) Status() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// StatusText renders the status line for a frame.
func StatusText(f *app.Frame) string {
	if f == nil || f.Result.Skipped {
		return "Status: no frame"
	}
	switch f.Result.State {
	case alert.Alert:
		return fmt.Sprintf("Status: too close (limit %.2fm)", f.Result.ThresholdMeters)
	case alert.Clear:
		return "Status: clear"
	default:
		return "Status: nobody in view"
	}
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}
