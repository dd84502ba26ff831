package detector

import (
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-9

func TestNewLandmarkSet(t *testing.T) {
	t.Run("preserves insertion order", func(t *testing.T) {
		set, err := NewLandmarkSet(
			Landmark{Name: RightHip, X: 1},
			Landmark{Name: Nose, X: 2},
			Landmark{Name: LeftShoulder, X: 3},
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		all := set.All()
		want := []Name{RightHip, Nose, LeftShoulder}
		if len(all) != len(want) {
			t.Fatalf("expected %d landmarks, got %d", len(want), len(all))
		}
		for i, n := range want {
			if all[i].Name != n {
				t.Errorf("position %d: expected %s, got %s", i, n, all[i].Name)
			}
		}
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		_, err := NewLandmarkSet(
			Landmark{Name: Nose},
			Landmark{Name: Nose},
		)
		if !errors.Is(err, ErrDuplicateLandmark) {
			t.Errorf("expected ErrDuplicateLandmark, got %v", err)
		}
	})

	t.Run("All returns a copy", func(t *testing.T) {
		set := NearPoseLandmarks()
		all := set.All()
		all[0].X = -1

		nose, _ := set.Get(Nose)
		if nose.X == -1 {
			t.Error("mutating All() result changed the set")
		}
	})

	t.Run("zero value is empty", func(t *testing.T) {
		var set LandmarkSet
		if set.Len() != 0 {
			t.Errorf("expected empty set, got %d", set.Len())
		}
		if _, ok := set.Get(Nose); ok {
			t.Error("expected Get on empty set to fail")
		}
	})
}

func TestLandmarkSet_Require(t *testing.T) {
	t.Run("all present", func(t *testing.T) {
		set := NearPoseLandmarks()
		if err := set.Require(0.5, TrackedLandmarks...); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("missing landmark is reported", func(t *testing.T) {
		set := PartialPoseLandmarks()
		err := set.Require(0.5, TrackedLandmarks...)

		var insufficient *InsufficientLandmarksError
		if !errors.As(err, &insufficient) {
			t.Fatalf("expected InsufficientLandmarksError, got %v", err)
		}
		if len(insufficient.Missing) != 1 || insufficient.Missing[0] != LeftHip {
			t.Errorf("expected missing [LEFT_HIP], got %v", insufficient.Missing)
		}
	})

	t.Run("low confidence counts as missing", func(t *testing.T) {
		set := MustLandmarkSet(
			Landmark{Name: Nose, Confidence: 0.9},
			Landmark{Name: LeftShoulder, Confidence: 0.2},
		)
		err := set.Require(0.5, Nose, LeftShoulder)

		var insufficient *InsufficientLandmarksError
		if !errors.As(err, &insufficient) {
			t.Fatalf("expected InsufficientLandmarksError, got %v", err)
		}
		if insufficient.Missing[0] != LeftShoulder {
			t.Errorf("expected LEFT_SHOULDER missing, got %v", insufficient.Missing)
		}
	})

	t.Run("confidence equal to floor is accepted", func(t *testing.T) {
		set := MustLandmarkSet(Landmark{Name: Nose, Confidence: 0.5})
		if err := set.Require(0.5, Nose); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestLandmarkSet_Scale(t *testing.T) {
	set := NearPoseLandmarks()
	scaled := set.Scale(2)

	for _, lm := range set.All() {
		got, ok := scaled.Get(lm.Name)
		if !ok {
			t.Fatalf("scaled set lost %s", lm.Name)
		}
		if math.Abs(got.X-2*lm.X) > epsilon || math.Abs(got.Y-2*lm.Y) > epsilon || math.Abs(got.Z-2*lm.Z) > epsilon {
			t.Errorf("%s: expected doubled coordinates, got %+v from %+v", lm.Name, got, lm)
		}
		if got.Confidence != lm.Confidence {
			t.Errorf("%s: confidence changed", lm.Name)
		}
	}
}

func TestParsePoseResponse(t *testing.T) {
	t.Run("scales normalized coordinates", func(t *testing.T) {
		line := []byte(`{"poses":[{"landmarks":[{"x":0.5,"y":0.25,"z":-0.1,"visibility":0.9}]}]}`)

		poses, err := parsePoseResponse(line, 640, 480)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(poses) != 1 {
			t.Fatalf("expected 1 pose, got %d", len(poses))
		}

		nose, ok := poses[0].Get(Nose)
		if !ok {
			t.Fatal("expected index 0 to map to NOSE")
		}
		if math.Abs(nose.X-320) > epsilon || math.Abs(nose.Y-120) > epsilon || math.Abs(nose.Z+64) > epsilon {
			t.Errorf("unexpected pixel coordinates: %+v", nose)
		}
		if nose.Confidence != 0.9 {
			t.Errorf("expected confidence 0.9, got %f", nose.Confidence)
		}
	})

	t.Run("names follow index order", func(t *testing.T) {
		points := make([]byte, 0)
		points = append(points, `{"poses":[{"landmarks":[`...)
		for i := 0; i < NumPoseLandmarks; i++ {
			if i > 0 {
				points = append(points, ',')
			}
			points = append(points, `{"x":0,"y":0,"z":0,"visibility":1}`...)
		}
		points = append(points, `]}]}`...)

		poses, err := parsePoseResponse(points, 100, 100)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if poses[0].Len() != NumPoseLandmarks {
			t.Fatalf("expected %d landmarks, got %d", NumPoseLandmarks, poses[0].Len())
		}
		for _, n := range TrackedLandmarks {
			if _, ok := poses[0].Get(n); !ok {
				t.Errorf("expected %s in parsed pose", n)
			}
		}
	})

	t.Run("no poses", func(t *testing.T) {
		poses, err := parsePoseResponse([]byte(`{"poses":[]}`), 640, 480)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(poses) != 0 {
			t.Errorf("expected no poses, got %d", len(poses))
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		if _, err := parsePoseResponse([]byte(`not json`), 640, 480); err == nil {
			t.Error("expected error for invalid JSON")
		}
	})
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty poses by default", func(t *testing.T) {
		mock := NewMockDetector()

		poses, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if poses != nil {
			t.Errorf("expected nil poses, got %v", poses)
		}
	})

	t.Run("returns configured poses", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetPoses([]LandmarkSet{NearPoseLandmarks(), FarPoseLandmarks()})

		poses, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(poses) != 2 {
			t.Errorf("expected 2 poses, got %d", len(poses))
		}
		if mock.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		poses, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if poses != nil {
			t.Errorf("expected nil poses when error is set, got %v", poses)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestFixtures(t *testing.T) {
	t.Run("near pose has every tracked landmark", func(t *testing.T) {
		if err := NearPoseLandmarks().Require(0.5, TrackedLandmarks...); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("shoulders above hips", func(t *testing.T) {
		for _, set := range []LandmarkSet{NearPoseLandmarks(), FarPoseLandmarks()} {
			ls, _ := set.Get(LeftShoulder)
			lh, _ := set.Get(LeftHip)
			if ls.Y >= lh.Y {
				t.Error("shoulder should be above hip (lower Y value)")
			}
		}
	})

	t.Run("partial pose lacks left hip", func(t *testing.T) {
		if _, ok := PartialPoseLandmarks().Get(LeftHip); ok {
			t.Error("expected LEFT_HIP to be absent")
		}
	})
}
