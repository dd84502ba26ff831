package overlay

import (
	"image/color"
	"strconv"

	"github.com/ayusman/safedistance/internal/alert"
	"github.com/ayusman/safedistance/internal/detector"
	"github.com/ayusman/safedistance/internal/geometry"
)

// TextMeasurer reports the rendered width and height of text at a size.
type TextMeasurer interface {
	Measure(text string, size float64) (width, height float64)
}

// Options are the per-frame display toggles.
type Options struct {
	ShowDistance bool
	VisualizeZ   bool
	RescaleZ     bool
}

// Body is one detected body and, when it could be measured, its span.
type Body struct {
	Landmarks detector.LandmarkSet
	Span      float64
	HasSpan   bool
}

// segment is a skeleton line and its base color.
type segment struct {
	from, to detector.Name
	color    color.RGBA
}

// pointOrder is the order point markers are emitted in.
var pointOrder = []detector.Name{
	detector.Nose,
	detector.RightShoulder,
	detector.LeftShoulder,
	detector.RightHip,
	detector.LeftHip,
}

var skeleton = []segment{
	{detector.LeftShoulder, detector.RightShoulder, White},
	{detector.LeftHip, detector.RightHip, White},
	{detector.LeftShoulder, detector.LeftHip, Green},
	{detector.RightShoulder, detector.RightHip, Yellow},
}

// Renderer produces draw commands.
type Renderer struct {
	Measurer      TextMeasurer
	MinConfidence float64
}

// NewRenderer creates a Renderer measuring text with m.
func NewRenderer(m TextMeasurer, minConfidence float64) *Renderer {
	return &Renderer{Measurer: m, MinConfidence: minConfidence}
}

// Render emits commands for every body followed by the alert banner when
// state is Alert. ErrDegenerateDepthRange is returned, with commands drawn in
// DepthFallback, when depth rescaling was requested over an unusable range.
func (r *Renderer) Render(bodies []Body, state alert.State, m geometry.Mapper, z ZRange, opts Options) ([]Command, error) {
	var cmds []Command
	var depthErr error

	for _, body := range bodies {
		bodyCmds, err := r.RenderBody(body, m, z, opts)
		if err != nil {
			depthErr = err
		}
		cmds = append(cmds, bodyCmds...)
	}

	if state == alert.Alert {
		cmds = append(cmds, r.Banner(m))
	}
	return cmds, depthErr
}

// RenderBody emits point markers, skeleton lines and the optional distance
// label for one body. Landmarks that are absent or below MinConfidence are
// skipped along with any line touching them.
func (r *Renderer) RenderBody(body Body, m geometry.Mapper, z ZRange, opts Options) ([]Command, error) {
	var cmds []Command
	var depthErr error

	paint := func(base color.RGBA, depth float64) color.RGBA {
		c, err := depthColor(base, depth, z, opts)
		if err != nil {
			depthErr = err
		}
		return c
	}

	for _, name := range pointOrder {
		lm, ok := body.Landmarks.Confident(name, r.MinConfidence)
		if !ok {
			continue
		}
		x, y := m.MapToOverlay(lm.X, lm.Y)
		cmds = append(cmds, Command{
			Kind:   KindPoint,
			At:     Point{X: x, Y: y},
			Radius: DotRadius,
			Color:  paint(White, lm.Z),
		})
	}

	for _, seg := range skeleton {
		start, ok := body.Landmarks.Confident(seg.from, r.MinConfidence)
		if !ok {
			continue
		}
		end, ok := body.Landmarks.Confident(seg.to, r.MinConfidence)
		if !ok {
			continue
		}
		x1, y1 := m.MapToOverlay(start.X, start.Y)
		x2, y2 := m.MapToOverlay(end.X, end.Y)
		cmds = append(cmds, Command{
			Kind:   KindLine,
			At:     Point{X: x1, Y: y1},
			To:     Point{X: x2, Y: y2},
			Stroke: StrokeWidth,
			Color:  paint(seg.color, (start.Z+end.Z)/2),
		})
	}

	if opts.ShowDistance && body.HasSpan {
		if nose, ok := body.Landmarks.Confident(detector.Nose, r.MinConfidence); ok {
			x, y := m.MapToOverlay(nose.X, nose.Y)
			cmds = append(cmds, Command{
				Kind:     KindText,
				At:       Point{X: x, Y: y},
				Text:     FormatSpan(body.Span),
				TextSize: LabelTextSize,
				Color:    White,
			})
		}
	}

	return cmds, depthErr
}

// Banner returns the filled "Alert" banner near the top centre of the
// overlay, sized from the measured text plus fixed padding.
func (r *Renderer) Banner(m geometry.Mapper) Command {
	ow, oh := m.OverlaySize()
	x := ow/2 - BannerOffsetX
	y := oh / BannerHeightDiv

	w, h := r.Measurer.Measure(BannerText, BannerTextSize)

	return Command{
		Kind:     KindBanner,
		At:       Point{X: x, Y: y},
		Text:     BannerText,
		TextSize: BannerTextSize,
		Color:    White,
		Fill:     Red,
		Rect: Rect{
			Min: Point{X: x - BannerPadLeft, Y: y - h - BannerPadTop},
			Max: Point{X: x + w + BannerPadRight, Y: y + BannerPadBottom},
		},
	}
}

// FormatSpan formats a span for the on-screen label.
func FormatSpan(span float64) string {
	return strconv.FormatFloat(span, 'f', 1, 64)
}

// depthColor modulates base by depth when both depth toggles are on.
func depthColor(base color.RGBA, depth float64, z ZRange, opts Options) (color.RGBA, error) {
	if !opts.VisualizeZ || !opts.RescaleZ {
		return base, nil
	}
	t, err := z.Normalize(depth)
	if err != nil {
		return DepthFallback, err
	}
	return lerp(DepthNear, DepthFar, t), nil
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5)
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}
