package types

import "time"

// ConnectionState mirrors the BLE link state machine state for consumers.
type ConnectionState string

const (
	StateIdle                ConnectionState = "idle"
	StateScanning            ConnectionState = "scanning"
	StateConnecting          ConnectionState = "connecting"
	StateDiscoveringServices ConnectionState = "discovering-services"
	StateSubscribing         ConnectionState = "subscribing"
	StateConnected           ConnectionState = "connected"
	StateDisconnected        ConnectionState = "disconnected"
)

// DisplayMode selects the active gauge screen. Only the derived-metric
// and backlight thresholds depend on it; rendering is external.
type DisplayMode string

const (
	ModeSport  DisplayMode = "sport"
	ModeEco    DisplayMode = "eco"
	ModeCruise DisplayMode = "cruise"
	ModeDyno   DisplayMode = "dyno"
)

// ValidMode reports whether s names a known display mode.
func ValidMode(s string) bool {
	switch DisplayMode(s) {
	case ModeSport, ModeEco, ModeCruise, ModeDyno:
		return true
	}
	return false
}

// Parameter identifies one polled OBD-II value.
type Parameter int

const (
	ParamRPM Parameter = iota
	ParamSpeed
	ParamCoolantTemp
	ParamMAF
	ParamFuelRate
	ParamCount // number of parameters, not a parameter itself
)

func (p Parameter) String() string {
	switch p {
	case ParamRPM:
		return "rpm"
	case ParamSpeed:
		return "speed"
	case ParamCoolantTemp:
		return "coolant-temp"
	case ParamMAF:
		return "maf"
	case ParamFuelRate:
		return "fuel-rate"
	default:
		return "unknown"
	}
}

// Reading is one decoded PID value. Immutable once produced; a newer
// reading of the same parameter supersedes it in the store.
type Reading struct {
	Param Parameter
	Value float64
	Stamp time.Time
}

// VehicleState is the read-only snapshot published to UI and web
// consumers. MAF and FuelRate stay at -1 until first decoded so a
// missing value is never mistaken for a valid zero; Seen marks which
// parameters have been decoded at least once.
type VehicleState struct {
	RPM         float64
	Speed       float64
	CoolantTemp float64
	MAF         float64
	FuelRate    float64
	DTCs        []string
	Seen        [ParamCount]bool
	Stamps      [ParamCount]time.Time
}
