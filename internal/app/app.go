// Package app runs the safe-distance session: it reads camera frames, detects
// poses, drives the frame pipeline and publishes annotated results.
package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/ayusman/safedistance/internal/capture"
	"github.com/ayusman/safedistance/internal/detector"
	"github.com/ayusman/safedistance/internal/geometry"
	"github.com/ayusman/safedistance/internal/monitoring"
	"github.com/ayusman/safedistance/internal/pipeline"
	"github.com/ayusman/safedistance/internal/plugin"
	"github.com/ayusman/safedistance/internal/settings"
	"github.com/ayusman/safedistance/internal/store"
)

// Config holds configuration options for the application.
type Config struct {
	Store     *store.Store
	Settings  *settings.Live
	PluginDir string
	CameraID  int
	Rotation  int
	Facing    capture.Facing
	FPS       int
	Pipeline  pipeline.Options
	Detector  detector.Config
	// NewCamera opens a frame source for a device. Defaults to
	// capture.NewCamera.
	NewCamera func(deviceID int) capture.Camera
}

// Frame is one processed camera frame as published to sinks.
type Frame struct {
	Seq       uint64          `json:"seq"`
	Timestamp time.Time       `json:"timestamp"`
	Result    pipeline.Result `json:"result"`
	// Settings is the snapshot the frame was evaluated with.
	Settings settings.Settings `json:"settings"`
	// JPEG is the annotated frame. It is nil when the frame was skipped.
	JPEG []byte `json:"-"`
}

// Sink receives every published frame. Publish is called from the session
// goroutine and must not block.
type Sink interface {
	Publish(f *Frame)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(f *Frame)

// Publish calls fn(f).
func (fn SinkFunc) Publish(f *Frame) { fn(f) }

// App is the main application that orchestrates capture, detection and the
// frame pipeline.
type App struct {
	config     Config
	camera     capture.Camera
	detector   detector.Detector
	settings   *settings.Live
	pluginMgr  *plugin.Manager
	pluginExec *plugin.Executor
	alerts     *alertTracker
	logOnce    monitoring.Once

	mu       sync.RWMutex
	enabled  bool
	rotation int
	facing   capture.Facing
	sinks    []Sink
	latest   *Frame
	seq      uint64
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.FPS <= 0 {
		config.FPS = capture.DefaultFPS
	}
	if config.Facing == "" {
		config.Facing = capture.FacingBack
	}
	if config.Settings == nil {
		config.Settings = settings.NewLive(settings.Default())
	}
	if config.NewCamera == nil {
		config.NewCamera = capture.NewCamera
	}
	if config.Pipeline.Measurer == nil {
		opts := pipeline.DefaultOptions()
		if config.Pipeline.OverlayWidth > 0 && config.Pipeline.OverlayHeight > 0 {
			opts.OverlayWidth = config.Pipeline.OverlayWidth
			opts.OverlayHeight = config.Pipeline.OverlayHeight
		}
		if config.Pipeline.MinConfidence > 0 {
			opts.MinConfidence = config.Pipeline.MinConfidence
		}
		if config.Pipeline.DepthWeight > 0 {
			opts.DepthWeight = config.Pipeline.DepthWeight
		}
		opts.Calibrate = config.Pipeline.Calibrate
		config.Pipeline = opts
	}

	pluginMgr := plugin.NewManager(config.PluginDir)
	pluginExec := plugin.NewExecutor(plugin.DefaultTimeout)

	a := &App{
		config:     config,
		camera:     config.NewCamera(config.CameraID),
		settings:   config.Settings,
		pluginMgr:  pluginMgr,
		pluginExec: pluginExec,
		alerts:     newAlertTracker(config.Store, pluginMgr, pluginExec),
		rotation:   config.Rotation,
		facing:     config.Facing,
	}

	// Try MediaPipe first, fall back to mock detector
	if mp, err := detector.NewMediaPipeDetector(config.Detector); err == nil {
		a.detector = mp
		monitoring.Logf("Using MediaPipe pose detection")
	} else {
		monitoring.Logf("MediaPipe not available (%v), using mock detector", err)
		a.detector = detector.NewMockDetector()
	}

	return a
}

// SetEnabled enables or disables frame processing. A disabled session keeps
// the camera open but skips every frame.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether frame processing is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// IsRunning reports whether a session is active.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// SetDetector sets the pose detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the pose detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// AddSink registers s to receive every published frame.
func (a *App) AddSink(s Sink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sinks = append(a.sinks, s)
}

// Latest returns the most recently published frame, or nil.
func (a *App) Latest() *Frame {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest
}

// ActiveAlert returns the open alert event, or nil when no alert is active.
func (a *App) ActiveAlert() *store.AlertEvent {
	return a.alerts.current()
}

// Settings returns the live settings holder.
func (a *App) Settings() *settings.Live {
	return a.settings
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// DiscoverPlugins scans the plugin directory and loads available hooks.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// Orientation returns the current sensor rotation and camera facing.
func (a *App) Orientation() (int, capture.Facing) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.rotation, a.facing
}

// SetRotation changes the reported sensor rotation. The pipeline picks the
// new geometry up on the next frame.
func (a *App) SetRotation(rotation int) error {
	if err := (geometry.FrameGeometry{Width: 1, Height: 1, Rotation: rotation}).Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rotation = rotation
	return nil
}

// SetFacing switches the camera facing. A running session is restarted,
// so the new camera starts with fresh pipeline state.
func (a *App) SetFacing(f capture.Facing) error {
	if _, err := capture.ParseFacing(string(f)); err != nil {
		return err
	}

	a.mu.Lock()
	if a.facing == f {
		a.mu.Unlock()
		return nil
	}
	a.facing = f
	running := a.stopCh != nil
	a.mu.Unlock()

	monitoring.Logf("Camera facing switched to %s", f)
	if !running {
		return nil
	}
	a.Stop()
	return a.Start()
}

// ToggleFacing switches between the front and back camera.
func (a *App) ToggleFacing() (capture.Facing, error) {
	_, current := a.Orientation()
	next := current.Toggle()
	return next, a.SetFacing(next)
}

// Start opens the camera and begins a new session. Each session gets a fresh
// pipeline driver, so no geometry or depth state carries over.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	a.camera.SetFPS(a.config.FPS)

	driver := pipeline.NewDriver(a.config.Pipeline)
	a.logOnce.Reset()

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	a.stopCh = stopCh
	a.doneCh = doneCh
	go a.runPipeline(stopCh, doneCh, driver)

	monitoring.Logf("Detection session started (camera %d, %s, rotation %d)", a.camera.Device(), a.facing, a.rotation)
	return nil
}

// Stop ends the session. A frame being processed completes but its result is
// discarded. The latest frame is dropped and any open alert event is closed.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}

	close(stopCh)
	<-doneCh

	a.mu.Lock()
	a.latest = nil
	a.mu.Unlock()

	if err := a.camera.Close(); err != nil {
		monitoring.Logf("Error closing camera: %v", err)
	}

	a.alerts.reset(time.Now())

	monitoring.Logf("Detection session stopped")
}

// Close stops the session, waits for running hooks and releases the
// detector.
func (a *App) Close() error {
	a.Stop()
	a.alerts.wait()

	if d := a.Detector(); d != nil {
		if err := d.Close(); err != nil {
			return fmt.Errorf("close detector: %w", err)
		}
	}
	return nil
}
