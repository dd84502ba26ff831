// Package units provides the safe-distance length units and conversion to
// the base unit (meters).
package units

import (
	"fmt"
	"strings"
)

// Unit constants
const (
	Meter = "Meter"
	Feet  = "Feet"

	// legacyFeet is the spelling older preference stores wrote for Feet.
	legacyFeet = "Feat"
)

// FeetPerMeter is the feet-to-meters conversion divisor.
const FeetPerMeter = 3.28084

// ValidUnits contains all valid unit values
var ValidUnits = []string{Meter, Feet}

// InvalidUnitError is returned for an unrecognized unit string.
type InvalidUnitError struct {
	Unit string
}

func (e *InvalidUnitError) Error() string {
	return fmt.Sprintf("invalid unit %q (valid: %s)", e.Unit, GetValidUnitsString())
}

// Parse returns the canonical unit for s. An empty string is the default
// unit.
func Parse(s string) (string, error) {
	switch s {
	case Meter, "":
		return Meter, nil
	case Feet, legacyFeet:
		return Feet, nil
	default:
		return s, &InvalidUnitError{Unit: s}
	}
}

// IsValid checks if the given unit is recognized.
func IsValid(unit string) bool {
	_, err := Parse(unit)
	return err == nil
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ToMeters converts value in unit to meters. For an unrecognized unit the
// raw value is returned together with an *InvalidUnitError, so callers can
// fall back to treating it as meters.
func ToMeters(value float64, unit string) (float64, error) {
	canonical, err := Parse(unit)
	if err != nil {
		return value, err
	}
	if canonical == Feet {
		return value / FeetPerMeter, nil
	}
	return value, nil
}

// FromMeters converts meters to unit.
func FromMeters(meters float64, unit string) (float64, error) {
	canonical, err := Parse(unit)
	if err != nil {
		return meters, err
	}
	if canonical == Feet {
		return meters * FeetPerMeter, nil
	}
	return meters, nil
}
