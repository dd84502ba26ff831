// Package alert decides, frame by frame, whether an observed body span is
// above the configured safe distance.
package alert

import (
	"github.com/ayusman/safedistance/internal/settings"
	"github.com/ayusman/safedistance/internal/units"
)

// State is the per-frame alert decision.
type State int

const (
	// Unknown means no body could be evaluated this frame.
	Unknown State = iota
	// Clear means every evaluated body is at or under the threshold.
	Clear
	// Alert means at least one body is over the threshold.
	Alert
)

func (s State) String() string {
	switch s {
	case Clear:
		return "CLEAR"
	case Alert:
		return "ALERT"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Threshold returns the safe distance in meters. An unrecognized unit yields
// the raw value and an *units.InvalidUnitError.
func Threshold(cfg settings.SafeDistance) (float64, error) {
	return units.ToMeters(cfg.Value, cfg.Unit)
}

// Evaluate compares span against the configured threshold. The comparison
// is strict: span equal to the threshold is Clear. There is no smoothing;
// each call depends on its arguments only.
//
// If the unit is invalid the error is returned alongside a state computed
// against the raw value.
func Evaluate(span float64, cfg settings.SafeDistance) (State, error) {
	threshold, err := Threshold(cfg)
	if span > threshold {
		return Alert, err
	}
	return Clear, err
}

// Combine folds per-body states into the frame state.
func Combine(states ...State) State {
	combined := Unknown
	for _, s := range states {
		if s > combined {
			combined = s
		}
	}
	return combined
}
