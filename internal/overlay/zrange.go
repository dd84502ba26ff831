package overlay

import (
	"errors"

	"github.com/ayusman/safedistance/internal/detector"
)

// ErrDegenerateDepthRange is returned when depth rescaling is requested but
// the frame's z range is empty or has Max <= Min.
var ErrDegenerateDepthRange = errors.New("degenerate depth range")

// ZRange is the depth extent of the landmarks drawn in one frame. The zero
// value is empty. It is built fresh for every frame.
type ZRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	n   int
}

// Include widens the range to contain z.
func (r *ZRange) Include(z float64) {
	if r.n == 0 || z < r.Min {
		r.Min = z
	}
	if r.n == 0 || z > r.Max {
		r.Max = z
	}
	r.n++
}

// Empty reports whether no value has been included.
func (r ZRange) Empty() bool {
	return r.n == 0
}

// Normalize maps z to [0, 1] across the range.
func (r ZRange) Normalize(z float64) (float64, error) {
	if r.n == 0 || r.Max <= r.Min {
		return 0, ErrDegenerateDepthRange
	}
	t := (z - r.Min) / (r.Max - r.Min)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return t, nil
}

// CollectZRange gathers the depth extent of the tracked landmarks at or
// above floor across all bodies.
func CollectZRange(bodies []detector.LandmarkSet, floor float64) ZRange {
	var r ZRange
	for _, body := range bodies {
		for _, name := range detector.TrackedLandmarks {
			if lm, ok := body.Confident(name, floor); ok {
				r.Include(lm.Z)
			}
		}
	}
	return r
}
