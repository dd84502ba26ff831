package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	poses []LandmarkSet
	err   error
	calls int
	mu    sync.Mutex
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetPoses sets the bodies that will be returned by Detect.
func (m *MockDetector) SetPoses(poses []LandmarkSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poses = poses
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured poses or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]LandmarkSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.poses, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// NearPoseLandmarks returns a front-facing torso whose shoulder-to-hip span is
// 200 pixels on both sides.
func NearPoseLandmarks() LandmarkSet {
	return MustLandmarkSet(
		Landmark{Name: Nose, X: 150, Y: 50, Z: -0.2, Confidence: 0.99},
		Landmark{Name: LeftShoulder, X: 100, Y: 100, Z: 0, Confidence: 0.98},
		Landmark{Name: RightShoulder, X: 200, Y: 100, Z: 0, Confidence: 0.98},
		Landmark{Name: LeftHip, X: 100, Y: 300, Z: 0, Confidence: 0.95},
		Landmark{Name: RightHip, X: 200, Y: 300, Z: 0, Confidence: 0.95},
	)
}

// FarPoseLandmarks returns a small torso, as seen from far away, with a span
// of 1.5 pixels.
func FarPoseLandmarks() LandmarkSet {
	return MustLandmarkSet(
		Landmark{Name: Nose, X: 320, Y: 200, Z: 0, Confidence: 0.9},
		Landmark{Name: LeftShoulder, X: 319, Y: 201, Z: 0, Confidence: 0.9},
		Landmark{Name: RightShoulder, X: 321, Y: 201, Z: 0, Confidence: 0.9},
		Landmark{Name: LeftHip, X: 319, Y: 202.5, Z: 0, Confidence: 0.9},
		Landmark{Name: RightHip, X: 321, Y: 202.5, Z: 0, Confidence: 0.9},
	)
}

// PartialPoseLandmarks returns NearPoseLandmarks with the left hip dropped,
// as happens when the body is cut off by the frame edge.
func PartialPoseLandmarks() LandmarkSet {
	var kept []Landmark
	for _, lm := range NearPoseLandmarks().All() {
		if lm.Name != LeftHip {
			kept = append(kept, lm)
		}
	}
	return MustLandmarkSet(kept...)
}
