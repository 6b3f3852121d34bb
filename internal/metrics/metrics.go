// Package metrics derives display quantities from the current vehicle
// state: the estimated gear, shift/temperature indicators and the
// backlight level. Everything here is a pure function of its inputs.
package metrics

import (
	"math"

	"github.com/Nobody-OS/OBDII-Gauge/internal/types"
)

// Indicator classifies a threshold-based display hint.
type Indicator int

const (
	IndicatorNone Indicator = iota
	IndicatorShiftWarning   // red: short-shift now
	IndicatorUpshiftHint    // blue: economy upshift suggestion
)

func (i Indicator) String() string {
	switch i {
	case IndicatorShiftWarning:
		return "shift-warning"
	case IndicatorUpshiftHint:
		return "upshift-hint"
	default:
		return "none"
	}
}

// Mode-dependent shift thresholds.
const (
	sportShiftRPM    = 6000
	ecoShiftRPM      = 2500
	ecoUpshiftRPM    = 1500
	ecoUpshiftSpeed  = 5
)

// Derived bundles the recomputed quantities for one snapshot and mode.
type Derived struct {
	Gear      int
	Indicator Indicator
	TempRamp  float64 // 0 cold .. 1 overheating, for the coolant readout colour
}

// Compute derives gear, indicator and temperature ramp from a snapshot.
func Compute(s types.VehicleState, mode types.DisplayMode) Derived {
	return Derived{
		Gear:      EstimateGear(s.RPM, s.Speed),
		Indicator: IndicatorFor(s.RPM, s.Speed, mode),
		TempRamp:  TempRamp(s.CoolantTemp),
	}
}

// EstimateGear guesses the engaged gear from the rpm/speed ratio.
// This is a coarse single-ratio heuristic, not a per-transmission
// lookup: speed is floored to 1 km/h to guard the division and the
// result is clamped to 1..6.
func EstimateGear(rpm, speed float64) int {
	if speed < 1.0 {
		speed = 1.0
	}
	gear := int(math.Round((rpm / speed) / 10.0))
	if gear < 1 {
		gear = 1
	}
	if gear > 6 {
		gear = 6
	}
	return gear
}

// IndicatorFor maps rpm, speed and mode to the active display hint.
func IndicatorFor(rpm, speed float64, mode types.DisplayMode) Indicator {
	switch mode {
	case types.ModeSport:
		if rpm > sportShiftRPM {
			return IndicatorShiftWarning
		}
	case types.ModeEco:
		if rpm > ecoShiftRPM {
			return IndicatorShiftWarning
		}
		if rpm < ecoUpshiftRPM && speed > ecoUpshiftSpeed {
			return IndicatorUpshiftHint
		}
	}
	return IndicatorNone
}

// TempRamp maps coolant temperature onto a 0..1 colour ramp: 0 at or
// below 60 °C, 1 at or above 110 °C, linear in between.
func TempRamp(coolant float64) float64 {
	const lo, hi = 60.0, 110.0
	if coolant <= lo {
		return 0
	}
	if coolant >= hi {
		return 1
	}
	return (coolant - lo) / (hi - lo)
}
