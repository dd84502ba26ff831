// Package overlay turns landmarks, body span and alert state into an ordered
// list of draw commands, and rasterizes those commands onto frames.
package overlay

import "image/color"

// Kind identifies a draw command.
type Kind string

const (
	KindPoint  Kind = "point"
	KindLine   Kind = "line"
	KindText   Kind = "text"
	KindBanner Kind = "banner"
)

// Point is a position in overlay space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle in overlay space.
type Rect struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// Command is one drawable element. Which fields are meaningful depends on
// Kind:
//
//	point:  At, Radius, Color
//	line:   At (start), To (end), Stroke, Color
//	text:   At (baseline origin), Text, TextSize, Color
//	banner: Rect, Fill, At, Text, TextSize, Color
type Command struct {
	Kind     Kind       `json:"kind"`
	At       Point      `json:"at"`
	To       Point      `json:"to"`
	Radius   float64    `json:"radius,omitempty"`
	Stroke   float64    `json:"stroke,omitempty"`
	Color    color.RGBA `json:"color"`
	Text     string     `json:"text,omitempty"`
	TextSize float64    `json:"text_size,omitempty"`
	Rect     Rect       `json:"rect"`
	Fill     color.RGBA `json:"fill"`
}

// Drawing constants.
const (
	DotRadius      = 8.0
	StrokeWidth    = 10.0
	LabelTextSize  = 30.0
	BannerTextSize = 100.0
	BannerText     = "Alert"

	// Banner anchor: left of centre by BannerOffsetX, at 1/BannerHeightDiv of
	// the overlay height.
	BannerOffsetX   = 50.0
	BannerHeightDiv = 15.0

	// Padding around the measured banner text.
	BannerPadLeft   = 10.0
	BannerPadTop    = 20.0
	BannerPadRight  = 20.0
	BannerPadBottom = 10.0
)

// Colors.
var (
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Green  = color.RGBA{G: 255, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, A: 255}
	Red    = color.RGBA{R: 255, A: 255}

	// DepthNear and DepthFar are the ends of the depth color ramp.
	DepthNear = color.RGBA{R: 255, G: 64, B: 64, A: 255}
	DepthFar  = color.RGBA{R: 64, G: 64, B: 255, A: 255}
	// DepthFallback is used when the depth range is degenerate.
	DepthFallback = color.RGBA{R: 200, G: 200, B: 200, A: 255}
)
