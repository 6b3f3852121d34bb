package metrics

import "github.com/Nobody-OS/OBDII-Gauge/internal/types"

// BacklightLevel is the illumination state the policy resolves to.
type BacklightLevel int

const (
	BacklightOff BacklightLevel = iota
	BacklightDim
	BacklightFull
	BacklightBlink
)

func (b BacklightLevel) String() string {
	switch b {
	case BacklightOff:
		return "off"
	case BacklightDim:
		return "dim"
	case BacklightFull:
		return "full"
	case BacklightBlink:
		return "blink"
	default:
		return "unknown"
	}
}

// Sport-mode illumination thresholds.
const (
	blinkRPM = 6500
	fullRPM  = 5500
)

// BacklightFor maps rpm and mode to an illumination level. The blink
// phase itself is toggled by the caller's timer while the level stays
// at BacklightBlink; dropping below the threshold yields the steady
// level with no leftover blink.
func BacklightFor(rpm float64, mode types.DisplayMode) BacklightLevel {
	if mode != types.ModeSport {
		return BacklightDim
	}
	switch {
	case rpm >= blinkRPM:
		return BacklightBlink
	case rpm >= fullRPM:
		return BacklightFull
	default:
		return BacklightDim
	}
}
