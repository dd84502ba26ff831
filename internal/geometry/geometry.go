// Package geometry maps landmark positions from source-image space to overlay
// space, accounting for sensor rotation and horizontal mirroring.
package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidRotation is returned for rotations other than 0, 90, 180 or 270.
var ErrInvalidRotation = errors.New("invalid rotation")

// ErrEmptyGeometry is returned when a width or height is not positive.
var ErrEmptyGeometry = errors.New("empty geometry")

// FrameGeometry describes the raw camera frame and how it must be oriented.
// Width and Height are the sensor dimensions as delivered, before rotation.
type FrameGeometry struct {
	Width    int  `json:"width"`
	Height   int  `json:"height"`
	Rotation int  `json:"rotation"`
	Mirrored bool `json:"mirrored"`
}

// Validate checks the rotation and dimensions.
func (g FrameGeometry) Validate() error {
	switch g.Rotation {
	case 0, 90, 180, 270:
	default:
		return fmt.Errorf("%w: %d", ErrInvalidRotation, g.Rotation)
	}
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrEmptyGeometry, g.Width, g.Height)
	}
	return nil
}

// ImageWidth is the width of the upright image. Sensor dimensions are swapped
// for 90 and 270 degree rotations.
func (g FrameGeometry) ImageWidth() int {
	if g.Rotation == 90 || g.Rotation == 270 {
		return g.Height
	}
	return g.Width
}

// ImageHeight is the height of the upright image.
func (g FrameGeometry) ImageHeight() int {
	if g.Rotation == 90 || g.Rotation == 270 {
		return g.Width
	}
	return g.Height
}

// Mapper converts upright image coordinates to overlay coordinates using a
// uniform fill/crop scale: the overlay always covers the camera feed and the
// excess is cropped.
type Mapper struct {
	overlayWidth  float64
	overlayHeight float64
	geometry      FrameGeometry
	scale         float64
}

// NewMapper computes the scale for the given overlay size and geometry.
func NewMapper(overlayWidth, overlayHeight float64, g FrameGeometry) (Mapper, error) {
	if err := g.Validate(); err != nil {
		return Mapper{}, err
	}
	if overlayWidth <= 0 || overlayHeight <= 0 {
		return Mapper{}, fmt.Errorf("%w: overlay %.0fx%.0f", ErrEmptyGeometry, overlayWidth, overlayHeight)
	}

	scale := math.Max(
		overlayWidth/float64(g.ImageWidth()),
		overlayHeight/float64(g.ImageHeight()),
	)

	return Mapper{
		overlayWidth:  overlayWidth,
		overlayHeight: overlayHeight,
		geometry:      g,
		scale:         scale,
	}, nil
}

// MapToOverlay converts an image point to overlay space.
func (m Mapper) MapToOverlay(x, y float64) (float64, float64) {
	return m.TranslateX(x), m.TranslateY(y)
}

// TranslateX maps a horizontal image coordinate, mirroring when required.
func (m Mapper) TranslateX(x float64) float64 {
	if m.geometry.Mirrored {
		return m.overlayWidth - x*m.scale
	}
	return x * m.scale
}

// TranslateY maps a vertical image coordinate.
func (m Mapper) TranslateY(y float64) float64 {
	return y * m.scale
}

// Scale returns the image-to-overlay scale factor.
func (m Mapper) Scale() float64 { return m.scale }

// Geometry returns the frame geometry the mapper was built for.
func (m Mapper) Geometry() FrameGeometry { return m.geometry }

// OverlaySize returns the overlay width and height.
func (m Mapper) OverlaySize() (float64, float64) {
	return m.overlayWidth, m.overlayHeight
}
