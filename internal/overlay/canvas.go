package overlay

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/ayusman/safedistance/internal/geometry"
)

// hersheyBaseHeight is the cap height in pixels of FontHersheySimplex at
// scale 1. Text sizes are converted to font scales with it.
const hersheyBaseHeight = 22.0

// textThickness is the stroke thickness used for all text.
const textThickness = 2

// HersheyMeasurer measures text the way Rasterize draws it.
type HersheyMeasurer struct{}

// Measure implements TextMeasurer using gocv.GetTextSize.
func (HersheyMeasurer) Measure(text string, size float64) (float64, float64) {
	sz := gocv.GetTextSize(text, gocv.FontHersheySimplex, fontScale(size), textThickness)
	return float64(sz.X), float64(sz.Y)
}

func fontScale(size float64) float64 {
	return size / hersheyBaseHeight
}

func pt(p Point) image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

// Rasterize draws cmds onto dst in order.
func Rasterize(dst *gocv.Mat, cmds []Command) {
	for _, c := range cmds {
		switch c.Kind {
		case KindPoint:
			gocv.Circle(dst, pt(c.At), int(math.Round(c.Radius)), c.Color, -1)
		case KindLine:
			gocv.Line(dst, pt(c.At), pt(c.To), c.Color, int(math.Round(c.Stroke)))
		case KindText:
			gocv.PutText(dst, c.Text, pt(c.At), gocv.FontHersheySimplex, fontScale(c.TextSize), c.Color, textThickness)
		case KindBanner:
			gocv.Rectangle(dst, image.Rectangle{Min: pt(c.Rect.Min), Max: pt(c.Rect.Max)}, c.Fill, -1)
			gocv.PutText(dst, c.Text, pt(c.At), gocv.FontHersheySimplex, fontScale(c.TextSize), c.Color, textThickness)
		}
	}
}

// Compose scales the upright frame into overlay space the same way the
// mapper does (uniform fill scale, excess cropped from the right and
// bottom), mirrors it when required and draws cmds on top.
// The caller is responsible for closing the returned Mat.
func Compose(upright gocv.Mat, m geometry.Mapper, cmds []Command) gocv.Mat {
	scaled := gocv.NewMat()
	defer scaled.Close()
	gocv.Resize(upright, &scaled, image.Point{}, m.Scale(), m.Scale(), gocv.InterpolationLinear)

	ow, oh := m.OverlaySize()
	w := min(int(math.Round(ow)), scaled.Cols())
	h := min(int(math.Round(oh)), scaled.Rows())

	region := scaled.Region(image.Rect(0, 0, w, h))
	defer region.Close()

	out := gocv.NewMat()
	if m.Geometry().Mirrored {
		gocv.Flip(region, &out, 1)
	} else {
		region.CopyTo(&out)
	}

	Rasterize(&out, cmds)
	return out
}
