// Package detector provides pose detection interfaces and the landmark types
// consumed by the safe-distance pipeline.
package detector

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Name identifies a body keypoint. Names follow the MediaPipe / ML Kit pose
// topology.
type Name string

// Pose landmark names in MediaPipe index order.
const (
	Nose           Name = "NOSE"
	LeftEyeInner   Name = "LEFT_EYE_INNER"
	LeftEye        Name = "LEFT_EYE"
	LeftEyeOuter   Name = "LEFT_EYE_OUTER"
	RightEyeInner  Name = "RIGHT_EYE_INNER"
	RightEye       Name = "RIGHT_EYE"
	RightEyeOuter  Name = "RIGHT_EYE_OUTER"
	LeftEar        Name = "LEFT_EAR"
	RightEar       Name = "RIGHT_EAR"
	LeftMouth      Name = "LEFT_MOUTH"
	RightMouth     Name = "RIGHT_MOUTH"
	LeftShoulder   Name = "LEFT_SHOULDER"
	RightShoulder  Name = "RIGHT_SHOULDER"
	LeftElbow      Name = "LEFT_ELBOW"
	RightElbow     Name = "RIGHT_ELBOW"
	LeftWrist      Name = "LEFT_WRIST"
	RightWrist     Name = "RIGHT_WRIST"
	LeftPinky      Name = "LEFT_PINKY"
	RightPinky     Name = "RIGHT_PINKY"
	LeftIndex      Name = "LEFT_INDEX"
	RightIndex     Name = "RIGHT_INDEX"
	LeftThumb      Name = "LEFT_THUMB"
	RightThumb     Name = "RIGHT_THUMB"
	LeftHip        Name = "LEFT_HIP"
	RightHip       Name = "RIGHT_HIP"
	LeftKnee       Name = "LEFT_KNEE"
	RightKnee      Name = "RIGHT_KNEE"
	LeftAnkle      Name = "LEFT_ANKLE"
	RightAnkle     Name = "RIGHT_ANKLE"
	LeftHeel       Name = "LEFT_HEEL"
	RightHeel      Name = "RIGHT_HEEL"
	LeftFootIndex  Name = "LEFT_FOOT_INDEX"
	RightFootIndex Name = "RIGHT_FOOT_INDEX"
)

// NumPoseLandmarks is the size of the pose landmark schema.
const NumPoseLandmarks = 33

// PoseLandmarkNames maps a MediaPipe pose landmark index to its name.
var PoseLandmarkNames = [NumPoseLandmarks]Name{
	Nose, LeftEyeInner, LeftEye, LeftEyeOuter, RightEyeInner, RightEye,
	RightEyeOuter, LeftEar, RightEar, LeftMouth, RightMouth, LeftShoulder,
	RightShoulder, LeftElbow, RightElbow, LeftWrist, RightWrist, LeftPinky,
	RightPinky, LeftIndex, RightIndex, LeftThumb, RightThumb, LeftHip,
	RightHip, LeftKnee, RightKnee, LeftAnkle, RightAnkle, LeftHeel,
	RightHeel, LeftFootIndex, RightFootIndex,
}

// TrackedLandmarks are the keypoints drawn and measured by the pipeline.
var TrackedLandmarks = []Name{Nose, LeftShoulder, RightShoulder, LeftHip, RightHip}

// ErrDuplicateLandmark is returned when a LandmarkSet would hold two
// landmarks with the same name.
var ErrDuplicateLandmark = errors.New("duplicate landmark")

// Landmark is a detected body keypoint.
// X and Y are image pixels; Z is a relative depth in the same scale,
// negative values are closer to the camera.
type Landmark struct {
	Name       Name    `json:"name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Confidence float64 `json:"confidence"`
}

// InsufficientLandmarksError reports landmarks that are absent or below the
// confidence floor for the current frame.
type InsufficientLandmarksError struct {
	Missing []Name
}

func (e *InsufficientLandmarksError) Error() string {
	names := make([]string, len(e.Missing))
	for i, n := range e.Missing {
		names[i] = string(n)
	}
	return "insufficient landmarks: missing " + strings.Join(names, ", ")
}

// LandmarkSet is an ordered, immutable set of landmarks for one detected body
// in one frame. The zero value is an empty set.
type LandmarkSet struct {
	landmarks []Landmark
	index     map[Name]int
}

// NewLandmarkSet builds a LandmarkSet preserving argument order.
func NewLandmarkSet(landmarks ...Landmark) (LandmarkSet, error) {
	set := LandmarkSet{
		landmarks: make([]Landmark, 0, len(landmarks)),
		index:     make(map[Name]int, len(landmarks)),
	}
	for _, lm := range landmarks {
		if _, ok := set.index[lm.Name]; ok {
			return LandmarkSet{}, fmt.Errorf("%w: %s", ErrDuplicateLandmark, lm.Name)
		}
		set.index[lm.Name] = len(set.landmarks)
		set.landmarks = append(set.landmarks, lm)
	}
	return set, nil
}

// MustLandmarkSet is like NewLandmarkSet but panics on duplicates.
// Intended for fixtures.
func MustLandmarkSet(landmarks ...Landmark) LandmarkSet {
	set, err := NewLandmarkSet(landmarks...)
	if err != nil {
		panic(err)
	}
	return set
}

// Len returns the number of landmarks in the set.
func (s LandmarkSet) Len() int {
	return len(s.landmarks)
}

// Get returns the landmark with the given name.
func (s LandmarkSet) Get(name Name) (Landmark, bool) {
	i, ok := s.index[name]
	if !ok {
		return Landmark{}, false
	}
	return s.landmarks[i], true
}

// Confident returns the landmark only if its confidence reaches floor.
func (s LandmarkSet) Confident(name Name, floor float64) (Landmark, bool) {
	lm, ok := s.Get(name)
	if !ok || lm.Confidence < floor {
		return Landmark{}, false
	}
	return lm, true
}

// Require checks that every name is present at or above floor.
// It returns an *InsufficientLandmarksError listing what is missing.
func (s LandmarkSet) Require(floor float64, names ...Name) error {
	var missing []Name
	for _, n := range names {
		if _, ok := s.Confident(n, floor); !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return &InsufficientLandmarksError{Missing: missing}
	}
	return nil
}

// All returns a copy of the landmarks in insertion order.
func (s LandmarkSet) All() []Landmark {
	out := make([]Landmark, len(s.landmarks))
	copy(out, s.landmarks)
	return out
}

// Names returns landmark names sorted alphabetically.
func (s LandmarkSet) Names() []Name {
	names := make([]Name, 0, len(s.landmarks))
	for _, lm := range s.landmarks {
		names = append(names, lm.Name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Scale returns a new set with X, Y and Z multiplied by factor.
func (s LandmarkSet) Scale(factor float64) LandmarkSet {
	scaled := LandmarkSet{
		landmarks: make([]Landmark, len(s.landmarks)),
		index:     make(map[Name]int, len(s.landmarks)),
	}
	for i, lm := range s.landmarks {
		lm.X *= factor
		lm.Y *= factor
		lm.Z *= factor
		scaled.landmarks[i] = lm
		scaled.index[lm.Name] = i
	}
	return scaled
}

// MarshalJSON encodes the set as its ordered landmark list.
func (s LandmarkSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.landmarks)
}
