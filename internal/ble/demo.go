package ble

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

// DemoTransport simulates an adapter for development without a radio.
// It answers each written command with a synthesized response line a
// few milliseconds later, driving the exact same decode path as the
// real transport.
type DemoTransport struct {
	mu        sync.Mutex
	connected bool
	notify    NotifyFunc
	onLost    func()
	start     time.Time
}

func NewDemoTransport() *DemoTransport {
	return &DemoTransport{start: time.Now()}
}

func (t *DemoTransport) Scan(ctx context.Context, window time.Duration, nameFilter string) (Peripheral, error) {
	select {
	case <-ctx.Done():
		return Peripheral{}, ctx.Err()
	case <-time.After(50 * time.Millisecond):
	}
	p := Peripheral{Name: "OBDII-DEMO", Address: "00:11:22:33:44:55"}
	if nameFilter != "" && !strings.Contains(p.Name, nameFilter) {
		return Peripheral{}, ErrNoDevice
	}
	return p, nil
}

func (t *DemoTransport) Connect(p Peripheral) error {
	t.mu.Lock()
	t.connected = true
	t.mu.Unlock()
	return nil
}

func (t *DemoTransport) DiscoverProfile() error { return nil }

func (t *DemoTransport) Subscribe(fn NotifyFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.connected {
		return ErrNotConnected
	}
	t.notify = fn
	return nil
}

func (t *DemoTransport) Write(payload []byte) error {
	t.mu.Lock()
	fn := t.notify
	connected := t.connected
	t.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}
	if fn == nil {
		return nil
	}

	line := t.respond(strings.TrimRight(string(payload), "\r\n"))
	if line == "" {
		return nil
	}
	// Replies arrive asynchronously, like real notifications.
	go func() {
		time.Sleep(15 * time.Millisecond)
		fn([]byte(line))
	}()
	return nil
}

// respond synthesizes a plausible response for a poll command: rpm and
// speed follow slow sine waves so the gauge moves, coolant warms up
// over the first minutes, and a fixed trouble code appears once warm.
func (t *DemoTransport) respond(cmd string) string {
	el := time.Since(t.start).Seconds()

	switch cmd {
	case "010C":
		rpm := 900 + 5800*math.Pow(math.Sin(el*0.25), 2)
		raw := int(rpm * 4)
		return fmt.Sprintf("41 0C %02X %02X", (raw>>8)&0xFF, raw&0xFF)
	case "010D":
		speed := 60 + 55*math.Sin(el*0.15)
		return fmt.Sprintf("41 0D %02X", int(speed)&0xFF)
	case "0105":
		coolant := math.Min(20+el/3, 92)
		return fmt.Sprintf("41 05 %02X", (int(coolant)+40)&0xFF)
	case "0110":
		maf := 3 + 20*math.Pow(math.Sin(el*0.25), 2)
		raw := int(maf * 100)
		return fmt.Sprintf("41 10 %02X %02X", (raw>>8)&0xFF, raw&0xFF)
	case "015E":
		rate := 1 + 9*math.Pow(math.Sin(el*0.25), 2)
		raw := int(rate * 20)
		return fmt.Sprintf("41 5E %02X %02X", (raw>>8)&0xFF, raw&0xFF)
	case "03":
		if el > 120 {
			return "43 01 71"
		}
		return "43 00 00"
	default:
		return ""
	}
}

func (t *DemoTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *DemoTransport) Disconnect() error {
	t.mu.Lock()
	t.connected = false
	t.notify = nil
	t.mu.Unlock()
	return nil
}

func (t *DemoTransport) OnLinkLost(fn func()) {
	t.mu.Lock()
	t.onLost = fn
	t.mu.Unlock()
}
