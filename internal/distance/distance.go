// Package distance estimates the body-span proximity proxy from pose
// landmarks.
//
// Body span is not a metric distance between two people. It is the average
// 3-D length of the two shoulder-to-hip segments of one body: a person
// closer to the camera appears larger, so a larger span means nearer. Alerts
// therefore fire when the span exceeds the threshold. Calibrate is the hook
// for converting span to a real-world distance once a calibration exists.
package distance

import (
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/safedistance/internal/detector"
)

// DefaultDepthWeight scales the z difference between shoulder and hip pairs.
const DefaultDepthWeight = 0.5

// DefaultMinConfidence is the landmark confidence floor.
const DefaultMinConfidence = 0.5

// SpanLandmarks are the landmarks BodySpan needs.
var SpanLandmarks = []detector.Name{
	detector.LeftShoulder, detector.RightShoulder,
	detector.LeftHip, detector.RightHip,
}

// Estimator computes body span.
type Estimator struct {
	// DepthWeight multiplies the z difference in PairDistance3D.
	DepthWeight float64
	// MinConfidence is the floor below which a landmark counts as missing.
	MinConfidence float64
	// Calibrate converts the raw span. Nil means identity.
	Calibrate func(span float64) float64
}

// NewEstimator returns an Estimator with the default weight and floor.
func NewEstimator() Estimator {
	return Estimator{
		DepthWeight:   DefaultDepthWeight,
		MinConfidence: DefaultMinConfidence,
	}
}

// PairDistance3D is the Euclidean distance between a and b with the z term
// weighted by DepthWeight.
func (e Estimator) PairDistance3D(a, b detector.Landmark) float64 {
	return r3.Norm(r3.Vec{
		X: a.X - b.X,
		Y: a.Y - b.Y,
		Z: e.DepthWeight * (a.Z - b.Z),
	})
}

// BodySpan averages the left and right shoulder-to-hip distances and applies
// Calibrate. It returns an *detector.InsufficientLandmarksError when any of
// the four landmarks is absent or below MinConfidence.
func (e Estimator) BodySpan(landmarks detector.LandmarkSet) (float64, error) {
	if err := landmarks.Require(e.MinConfidence, SpanLandmarks...); err != nil {
		return 0, err
	}

	leftShoulder, _ := landmarks.Get(detector.LeftShoulder)
	rightShoulder, _ := landmarks.Get(detector.RightShoulder)
	leftHip, _ := landmarks.Get(detector.LeftHip)
	rightHip, _ := landmarks.Get(detector.RightHip)

	span := stat.Mean([]float64{
		e.PairDistance3D(leftShoulder, leftHip),
		e.PairDistance3D(rightShoulder, rightHip),
	}, nil)

	if e.Calibrate != nil {
		span = e.Calibrate(span)
	}
	return span, nil
}
