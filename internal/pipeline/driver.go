// Package pipeline sequences the per-frame work: geometry bookkeeping, body
// span estimation, alert evaluation and overlay rendering.
package pipeline

import (
	"fmt"
	"sync"

	"github.com/ayusman/safedistance/internal/alert"
	"github.com/ayusman/safedistance/internal/detector"
	"github.com/ayusman/safedistance/internal/distance"
	"github.com/ayusman/safedistance/internal/geometry"
	"github.com/ayusman/safedistance/internal/overlay"
	"github.com/ayusman/safedistance/internal/settings"
)

// Default overlay size.
const (
	DefaultOverlayWidth  = 1280
	DefaultOverlayHeight = 720
)

// Options configures a Driver.
type Options struct {
	OverlayWidth  float64
	OverlayHeight float64
	MinConfidence float64
	DepthWeight   float64
	// Calibrate converts raw body span. Nil means identity.
	Calibrate func(span float64) float64
	Measurer  overlay.TextMeasurer
}

// DefaultOptions returns the options used by the application.
func DefaultOptions() Options {
	return Options{
		OverlayWidth:  DefaultOverlayWidth,
		OverlayHeight: DefaultOverlayHeight,
		MinConfidence: distance.DefaultMinConfidence,
		DepthWeight:   distance.DefaultDepthWeight,
		Measurer:      overlay.HersheyMeasurer{},
	}
}

// Input is everything the driver needs for one frame.
type Input struct {
	Bodies      []detector.LandmarkSet
	Width       int
	Height      int
	Rotation    int
	FrontFacing bool
}

// BodyResult is the outcome for one detected body.
type BodyResult struct {
	Span    float64     `json:"span"`
	HasSpan bool        `json:"has_span"`
	State   alert.State `json:"state"`
	Error   string      `json:"error,omitempty"`
}

// Result is the outcome for one frame.
type Result struct {
	Commands        []overlay.Command      `json:"commands"`
	State           alert.State            `json:"state"`
	Bodies          []BodyResult           `json:"bodies"`
	Errors          []string               `json:"errors,omitempty"`
	Geometry        geometry.FrameGeometry `json:"geometry"`
	GeometryChanged bool                   `json:"geometry_changed"`
	// ThresholdMeters is the safe distance this frame was evaluated against.
	ThresholdMeters float64 `json:"threshold_meters"`

	// Mapper is the mapping the commands were produced with. It is only
	// valid when Skipped is false.
	Mapper  geometry.Mapper `json:"-"`
	Skipped bool            `json:"skipped"`
}

// Driver runs the frame pipeline. Process must not be called concurrently;
// SetOverlaySize and Reset may be called from any goroutine and take effect
// on the next frame.
type Driver struct {
	estimator distance.Estimator
	renderer  *overlay.Renderer
	floor     float64

	mu            sync.Mutex
	overlayWidth  float64
	overlayHeight float64
	cached        *geometry.FrameGeometry
	mapper        geometry.Mapper
}

// NewDriver creates a Driver with no cached geometry. Zero-valued options
// take the defaults of DefaultOptions.
func NewDriver(opts Options) *Driver {
	if opts.Measurer == nil {
		opts.Measurer = overlay.HersheyMeasurer{}
	}
	if opts.OverlayWidth <= 0 || opts.OverlayHeight <= 0 {
		opts.OverlayWidth, opts.OverlayHeight = DefaultOverlayWidth, DefaultOverlayHeight
	}
	if opts.DepthWeight <= 0 {
		opts.DepthWeight = distance.DefaultDepthWeight
	}
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = distance.DefaultMinConfidence
	}

	est := distance.NewEstimator()
	est.DepthWeight = opts.DepthWeight
	est.MinConfidence = opts.MinConfidence
	est.Calibrate = opts.Calibrate

	return &Driver{
		estimator:     est,
		renderer:      overlay.NewRenderer(opts.Measurer, opts.MinConfidence),
		floor:         opts.MinConfidence,
		overlayWidth:  opts.OverlayWidth,
		overlayHeight: opts.OverlayHeight,
	}
}

// SetOverlaySize changes the overlay dimensions. The mapping is rebuilt on
// the next frame.
func (d *Driver) SetOverlaySize(width, height float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if width == d.overlayWidth && height == d.overlayHeight {
		return
	}
	d.overlayWidth, d.overlayHeight = width, height
	d.cached = nil
}

// Reset forgets the cached geometry, as on a session restart.
func (d *Driver) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cached = nil
	d.mapper = geometry.Mapper{}
}

// updateGeometry rebuilds the mapper when g differs from the cached
// geometry. It reports whether a rebuild happened.
func (d *Driver) updateGeometry(g geometry.FrameGeometry) (geometry.Mapper, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cached != nil && *d.cached == g {
		return d.mapper, false, nil
	}

	m, err := geometry.NewMapper(d.overlayWidth, d.overlayHeight, g)
	if err != nil {
		d.cached = nil
		return geometry.Mapper{}, true, err
	}
	d.cached = &g
	d.mapper = m
	return m, true, nil
}

// Process runs one frame. It never fails: problems are reported in
// Result.Errors and degrade the overlay instead.
func (d *Driver) Process(in Input, cfg settings.Settings) Result {
	g := geometry.FrameGeometry{
		Width:    in.Width,
		Height:   in.Height,
		Rotation: in.Rotation,
		Mirrored: in.FrontFacing,
	}

	res := Result{State: alert.Unknown, Geometry: g}

	mapper, changed, err := d.updateGeometry(g)
	res.GeometryChanged = changed
	if err != nil {
		res.Skipped = true
		res.Errors = append(res.Errors, fmt.Sprintf("frame skipped: %v", err))
		return res
	}
	res.Mapper = mapper

	threshold, unitErr := alert.Threshold(cfg.SafeDistance)
	res.ThresholdMeters = threshold
	if unitErr != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("%v; using raw value %g as meters", unitErr, cfg.SafeDistance.Value))
	}

	opts := overlay.Options{
		ShowDistance: cfg.ShowDistance,
		VisualizeZ:   cfg.VisualizeZ,
		RescaleZ:     cfg.RescaleZ,
	}

	var z overlay.ZRange
	if opts.VisualizeZ && opts.RescaleZ {
		z = overlay.CollectZRange(in.Bodies, d.floor)
	}

	bodies := make([]overlay.Body, len(in.Bodies))
	states := make([]alert.State, 0, len(in.Bodies))
	res.Bodies = make([]BodyResult, len(in.Bodies))

	for i, set := range in.Bodies {
		bodies[i] = overlay.Body{Landmarks: set}
		br := &res.Bodies[i]

		if err := set.Require(d.floor, detector.TrackedLandmarks...); err != nil {
			br.Error = err.Error()
			res.Errors = append(res.Errors, fmt.Sprintf("body %d: %v", i, err))
			continue
		}

		span, err := d.estimator.BodySpan(set)
		if err != nil {
			br.Error = err.Error()
			res.Errors = append(res.Errors, fmt.Sprintf("body %d: %v", i, err))
			continue
		}

		state, _ := alert.Evaluate(span, cfg.SafeDistance)
		br.Span, br.HasSpan, br.State = span, true, state
		bodies[i].Span, bodies[i].HasSpan = span, true
		states = append(states, state)
	}

	res.State = alert.Combine(states...)

	cmds, err := d.renderer.Render(bodies, res.State, mapper, z, opts)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("depth rescaling disabled: %v", err))
	}
	res.Commands = cmds
	return res
}
