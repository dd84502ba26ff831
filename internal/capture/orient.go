package capture

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/safedistance/internal/geometry"
)

// Facing is the direction a camera points.
type Facing string

const (
	FacingBack  Facing = "back"
	FacingFront Facing = "front"
)

// ParseFacing validates a facing name.
func ParseFacing(s string) (Facing, error) {
	switch Facing(s) {
	case FacingBack, FacingFront:
		return Facing(s), nil
	default:
		return "", fmt.Errorf("unknown camera facing %q", s)
	}
}

// Mirrored reports whether frames from this facing are shown mirrored.
func (f Facing) Mirrored() bool {
	return f == FacingFront
}

// Toggle returns the opposite facing.
func (f Facing) Toggle() Facing {
	if f == FacingFront {
		return FacingBack
	}
	return FacingFront
}

// Orient rotates a raw sensor frame clockwise by rotation degrees so that it
// is upright. Mirroring is not applied: landmarks are detected on the
// unmirrored image and mirrored at display time.
// The caller is responsible for closing the returned Mat.
func Orient(src gocv.Mat, rotation int) (gocv.Mat, error) {
	dst := gocv.NewMat()
	switch rotation {
	case 0:
		src.CopyTo(&dst)
	case 90:
		gocv.Rotate(src, &dst, gocv.Rotate90Clockwise)
	case 180:
		gocv.Rotate(src, &dst, gocv.Rotate180Clockwise)
	case 270:
		gocv.Rotate(src, &dst, gocv.Rotate90CounterClockwise)
	default:
		dst.Close()
		return gocv.Mat{}, fmt.Errorf("%w: %d", geometry.ErrInvalidRotation, rotation)
	}
	return dst, nil
}
