package hardware

import (
	"testing"

	"github.com/Nobody-OS/OBDII-Gauge/internal/logger"
	"github.com/Nobody-OS/OBDII-Gauge/internal/metrics"
)

func newTestController() *BacklightController {
	l := logger.NewLogger(nil, logger.LogLevelNone)
	return NewBacklightController(BacklightConfig{DimLevel: 60, FullLevel: 255}, l)
}

func TestInitializeWithoutHardware(t *testing.T) {
	c := newTestController()
	if err := c.Initialize(); err != nil {
		t.Fatalf("Initialize failed with no outputs configured: %v", err)
	}
	if err := c.Apply(metrics.BacklightFull); err != nil {
		t.Fatalf("Apply failed without hardware: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestInitializeMissingBrightnessPath(t *testing.T) {
	l := logger.NewLogger(nil, logger.LogLevelNone)
	c := NewBacklightController(BacklightConfig{
		BrightnessPath: "/nonexistent/brightness",
		DimLevel:       60,
		FullLevel:      255,
	}, l)
	if err := c.Initialize(); err != nil {
		t.Fatalf("Missing sysfs attribute should degrade, got %v", err)
	}
	defer c.Close()
	if err := c.Apply(metrics.BacklightDim); err != nil {
		t.Fatalf("Apply failed after degraded init: %v", err)
	}
}

func TestBlinkPhaseToggles(t *testing.T) {
	c := newTestController()

	c.Apply(metrics.BacklightBlink)
	if !c.blinkOn {
		t.Error("First blink apply should start in the on phase")
	}
	c.Apply(metrics.BacklightBlink)
	if c.blinkOn {
		t.Error("Second blink apply should toggle to the off phase")
	}
	c.Apply(metrics.BacklightBlink)
	if !c.blinkOn {
		t.Error("Third blink apply should toggle back on")
	}
}

func TestBlinkPhaseResetsAfterSteadyLevel(t *testing.T) {
	c := newTestController()

	c.Apply(metrics.BacklightBlink)
	c.Apply(metrics.BacklightBlink) // off phase
	c.Apply(metrics.BacklightDim)   // leaves blink

	c.Apply(metrics.BacklightBlink)
	if !c.blinkOn {
		t.Error("Re-entering blink should restart in the on phase")
	}
}
