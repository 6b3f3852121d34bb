// Package hardware drives the display backlight and the shift light.
// Both outputs are optional: when the sysfs attribute or GPIO line is
// absent the controller degrades to a no-op so the gauge still runs on
// development machines.
package hardware

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"

	"github.com/Nobody-OS/OBDII-Gauge/internal/logger"
	"github.com/Nobody-OS/OBDII-Gauge/internal/metrics"
)

type BacklightController struct {
	logger *logger.Logger

	brightnessPath string
	dimLevel       int
	fullLevel      int

	shiftChip string
	shiftLine int

	mu         sync.Mutex
	fd         int
	line       *gpiocdev.Line
	lastLevel  metrics.BacklightLevel
	blinkOn    bool
	hasLevel   bool
	warnedOnce bool
}

type BacklightConfig struct {
	BrightnessPath string
	DimLevel       int
	FullLevel      int
	ShiftLightChip string
	ShiftLightLine int
}

func NewBacklightController(cfg BacklightConfig, l *logger.Logger) *BacklightController {
	return &BacklightController{
		logger:         l.WithTag("backlight"),
		brightnessPath: cfg.BrightnessPath,
		dimLevel:       cfg.DimLevel,
		fullLevel:      cfg.FullLevel,
		shiftChip:      cfg.ShiftLightChip,
		shiftLine:      cfg.ShiftLightLine,
		fd:             -1,
	}
}

// Initialize opens the outputs that exist. Missing hardware is logged
// once and is not an error.
func (b *BacklightController) Initialize() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.brightnessPath != "" {
		fd, err := unix.Open(b.brightnessPath, unix.O_WRONLY, 0)
		if err != nil {
			b.logger.Warnf("Backlight unavailable at %s: %v", b.brightnessPath, err)
		} else {
			b.fd = fd
			b.logger.Infof("Backlight at %s (dim=%d full=%d)", b.brightnessPath, b.dimLevel, b.fullLevel)
		}
	}

	if b.shiftChip != "" {
		line, err := gpiocdev.RequestLine(b.shiftChip, b.shiftLine,
			gpiocdev.AsOutput(0),
			gpiocdev.WithConsumer("obdii-gauge"))
		if err != nil {
			b.logger.Warnf("Shift light unavailable on %s line %d: %v", b.shiftChip, b.shiftLine, err)
		} else {
			b.line = line
			b.logger.Infof("Shift light on %s line %d", b.shiftChip, b.shiftLine)
		}
	}
	return nil
}

// Apply drives the outputs for the given level. Blink is realized by
// the caller invoking Apply on each blink tick; the controller toggles
// the output phase itself.
func (b *BacklightController) Apply(level metrics.BacklightLevel) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if level == metrics.BacklightBlink {
		if b.hasLevel && b.lastLevel == metrics.BacklightBlink {
			b.blinkOn = !b.blinkOn
		} else {
			b.blinkOn = true
		}
	}
	b.lastLevel = level
	b.hasLevel = true

	brightness := b.dimLevel
	shiftOn := 0
	switch level {
	case metrics.BacklightOff:
		brightness = 0
	case metrics.BacklightDim:
		brightness = b.dimLevel
	case metrics.BacklightFull:
		brightness = b.fullLevel
	case metrics.BacklightBlink:
		if b.blinkOn {
			brightness = b.fullLevel
			shiftOn = 1
		} else {
			brightness = b.dimLevel
		}
	}

	if err := b.writeBrightness(brightness); err != nil {
		return err
	}
	return b.writeShiftLight(shiftOn)
}

func (b *BacklightController) writeBrightness(value int) error {
	if b.fd < 0 {
		return nil
	}
	buf := []byte(strconv.Itoa(value))
	if _, err := unix.Pwrite(b.fd, buf, 0); err != nil {
		if !b.warnedOnce {
			b.logger.Warnf("Failed to write brightness: %v", err)
			b.warnedOnce = true
		}
		return fmt.Errorf("brightness write failed: %w", err)
	}
	return nil
}

func (b *BacklightController) writeShiftLight(value int) error {
	if b.line == nil {
		return nil
	}
	if err := b.line.SetValue(value); err != nil {
		return fmt.Errorf("shift light write failed: %w", err)
	}
	return nil
}

func (b *BacklightController) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.line != nil {
		b.line.SetValue(0)
		b.line.Close()
		b.line = nil
	}
	if b.fd >= 0 {
		unix.Close(b.fd)
		b.fd = -1
	}
	return nil
}
