package overlay

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ayusman/safedistance/internal/alert"
	"github.com/ayusman/safedistance/internal/detector"
	"github.com/ayusman/safedistance/internal/geometry"
)

// fixedMeasurer reports every string as 40px per character and 70px tall.
type fixedMeasurer struct{}

func (fixedMeasurer) Measure(text string, size float64) (float64, float64) {
	return float64(len(text)) * 40, 70
}

func identityMapper(t *testing.T, mirrored bool) geometry.Mapper {
	t.Helper()
	m, err := geometry.NewMapper(640, 480, geometry.FrameGeometry{Width: 640, Height: 480, Mirrored: mirrored})
	if err != nil {
		t.Fatalf("NewMapper: %v", err)
	}
	return m
}

func TestZRange(t *testing.T) {
	t.Run("empty is degenerate", func(t *testing.T) {
		var r ZRange
		if !r.Empty() {
			t.Error("zero value should be empty")
		}
		if _, err := r.Normalize(0); !errors.Is(err, ErrDegenerateDepthRange) {
			t.Errorf("expected ErrDegenerateDepthRange, got %v", err)
		}
	})

	t.Run("single value is degenerate", func(t *testing.T) {
		var r ZRange
		r.Include(0.3)
		if _, err := r.Normalize(0.3); !errors.Is(err, ErrDegenerateDepthRange) {
			t.Errorf("expected ErrDegenerateDepthRange, got %v", err)
		}
	})

	t.Run("normalizes across range", func(t *testing.T) {
		var r ZRange
		for _, z := range []float64{-2, 0, 2} {
			r.Include(z)
		}
		if r.Min != -2 || r.Max != 2 {
			t.Fatalf("unexpected range %+v", r)
		}
		got, err := r.Normalize(1)
		if err != nil || math.Abs(got-0.75) > 1e-9 {
			t.Errorf("Normalize(1) = %f, %v; want 0.75", got, err)
		}
	})

	t.Run("negative values are not lost", func(t *testing.T) {
		var r ZRange
		r.Include(-5)
		r.Include(-1)
		if r.Max != -1 {
			t.Errorf("expected max -1, got %f", r.Max)
		}
	})

	t.Run("collect uses tracked landmarks only", func(t *testing.T) {
		set := detector.MustLandmarkSet(
			detector.Landmark{Name: detector.Nose, Z: -3, Confidence: 1},
			detector.Landmark{Name: detector.LeftKnee, Z: 50, Confidence: 1},
			detector.Landmark{Name: detector.LeftHip, Z: 1, Confidence: 1},
			detector.Landmark{Name: detector.RightHip, Z: 9, Confidence: 0.1},
		)
		r := CollectZRange([]detector.LandmarkSet{set}, 0.5)
		if r.Min != -3 || r.Max != 1 {
			t.Errorf("expected [-3, 1], got [%f, %f]", r.Min, r.Max)
		}
	})
}

func TestRenderer_RenderBody(t *testing.T) {
	r := NewRenderer(fixedMeasurer{}, 0.5)
	m := identityMapper(t, false)

	t.Run("full body with label", func(t *testing.T) {
		body := Body{Landmarks: detector.NearPoseLandmarks(), Span: 200, HasSpan: true}

		got, err := r.RenderBody(body, m, ZRange{}, Options{ShowDistance: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []Command{
			{Kind: KindPoint, At: Point{150, 50}, Radius: DotRadius, Color: White},
			{Kind: KindPoint, At: Point{200, 100}, Radius: DotRadius, Color: White},
			{Kind: KindPoint, At: Point{100, 100}, Radius: DotRadius, Color: White},
			{Kind: KindPoint, At: Point{200, 300}, Radius: DotRadius, Color: White},
			{Kind: KindPoint, At: Point{100, 300}, Radius: DotRadius, Color: White},
			{Kind: KindLine, At: Point{100, 100}, To: Point{200, 100}, Stroke: StrokeWidth, Color: White},
			{Kind: KindLine, At: Point{100, 300}, To: Point{200, 300}, Stroke: StrokeWidth, Color: White},
			{Kind: KindLine, At: Point{100, 100}, To: Point{100, 300}, Stroke: StrokeWidth, Color: Green},
			{Kind: KindLine, At: Point{200, 100}, To: Point{200, 300}, Stroke: StrokeWidth, Color: Yellow},
			{Kind: KindText, At: Point{150, 50}, Text: "200.0", TextSize: LabelTextSize, Color: White},
		}
		if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Errorf("commands mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("label hidden when disabled", func(t *testing.T) {
		body := Body{Landmarks: detector.NearPoseLandmarks(), Span: 200, HasSpan: true}
		got, _ := r.RenderBody(body, m, ZRange{}, Options{})
		for _, c := range got {
			if c.Kind == KindText {
				t.Fatal("unexpected distance label")
			}
		}
	})

	t.Run("skeleton only when landmark missing", func(t *testing.T) {
		body := Body{Landmarks: detector.PartialPoseLandmarks()}
		got, err := r.RenderBody(body, m, ZRange{}, Options{ShowDistance: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var points, lines, texts int
		for _, c := range got {
			switch c.Kind {
			case KindPoint:
				points++
			case KindLine:
				lines++
			case KindText:
				texts++
			}
		}
		// Left hip missing: 4 points, only shoulder line and right side remain.
		if points != 4 || lines != 2 || texts != 0 {
			t.Errorf("got %d points, %d lines, %d labels; want 4, 2, 0", points, lines, texts)
		}
	})

	t.Run("mirrored positions", func(t *testing.T) {
		mirrored := identityMapper(t, true)
		body := Body{Landmarks: detector.NearPoseLandmarks()}
		got, _ := r.RenderBody(body, mirrored, ZRange{}, Options{})
		if math.Abs(got[0].At.X-490) > 1e-9 {
			t.Errorf("expected mirrored nose x 490, got %f", got[0].At.X)
		}
	})
}

func TestRenderer_DepthColors(t *testing.T) {
	r := NewRenderer(fixedMeasurer{}, 0.5)
	m := identityMapper(t, false)
	body := Body{Landmarks: detector.NearPoseLandmarks()}
	opts := Options{VisualizeZ: true, RescaleZ: true}

	t.Run("nearest landmark gets near color", func(t *testing.T) {
		z := CollectZRange([]detector.LandmarkSet{body.Landmarks}, 0.5)
		got, err := r.RenderBody(body, m, z, opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// Nose is at z=-0.2, the minimum; the torso is at z=0, the maximum.
		if got[0].Color != DepthNear {
			t.Errorf("nose color = %v, want %v", got[0].Color, DepthNear)
		}
		if got[1].Color != DepthFar {
			t.Errorf("shoulder color = %v, want %v", got[1].Color, DepthFar)
		}
	})

	t.Run("degenerate range falls back", func(t *testing.T) {
		flat := Body{Landmarks: detector.FarPoseLandmarks()}
		z := CollectZRange([]detector.LandmarkSet{flat.Landmarks}, 0.5)

		got, err := r.RenderBody(flat, m, z, opts)
		if !errors.Is(err, ErrDegenerateDepthRange) {
			t.Fatalf("expected ErrDegenerateDepthRange, got %v", err)
		}
		for _, c := range got {
			if c.Color != DepthFallback {
				t.Fatalf("expected fallback color, got %v on %s", c.Color, c.Kind)
			}
		}
	})

	t.Run("no modulation without rescale", func(t *testing.T) {
		got, err := r.RenderBody(body, m, ZRange{}, Options{VisualizeZ: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got[0].Color != White {
			t.Errorf("expected base color, got %v", got[0].Color)
		}
	})
}

func TestRenderer_Banner(t *testing.T) {
	r := NewRenderer(fixedMeasurer{}, 0.5)
	m, _ := geometry.NewMapper(1500, 900, geometry.FrameGeometry{Width: 1500, Height: 900})

	got := r.Banner(m)

	want := Command{
		Kind:     KindBanner,
		At:       Point{X: 700, Y: 60},
		Text:     "Alert",
		TextSize: BannerTextSize,
		Color:    White,
		Fill:     Red,
		Rect: Rect{
			Min: Point{X: 690, Y: -30},
			Max: Point{X: 920, Y: 70},
		},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("banner mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderer_Render(t *testing.T) {
	r := NewRenderer(fixedMeasurer{}, 0.5)
	m := identityMapper(t, false)
	bodies := []Body{
		{Landmarks: detector.NearPoseLandmarks(), Span: 200, HasSpan: true},
		{Landmarks: detector.FarPoseLandmarks(), Span: 1.5, HasSpan: true},
	}

	t.Run("one banner on alert", func(t *testing.T) {
		got, _ := r.Render(bodies, alert.Alert, m, ZRange{}, Options{})
		banners := 0
		for _, c := range got {
			if c.Kind == KindBanner {
				banners++
			}
		}
		if banners != 1 {
			t.Errorf("expected 1 banner, got %d", banners)
		}
		if got[len(got)-1].Kind != KindBanner {
			t.Error("banner should be drawn last")
		}
	})

	t.Run("no banner when clear or unknown", func(t *testing.T) {
		for _, state := range []alert.State{alert.Clear, alert.Unknown} {
			got, _ := r.Render(bodies, state, m, ZRange{}, Options{})
			for _, c := range got {
				if c.Kind == KindBanner {
					t.Errorf("%s: unexpected banner", state)
				}
			}
		}
	})
}
