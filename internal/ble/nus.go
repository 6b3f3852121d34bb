package ble

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/Nobody-OS/OBDII-Gauge/internal/logger"
)

// Nordic UART Service profile exposed by the adapter: commands go out
// over the RX characteristic, responses come back as notifications on
// the TX characteristic.
const (
	serviceUUID = "6e400001-b5a3-f393-e0a9-e50e24dcca9e"
	rxCharUUID  = "6e400002-b5a3-f393-e0a9-e50e24dcca9e" // write
	txCharUUID  = "6e400003-b5a3-f393-e0a9-e50e24dcca9e" // notify
)

// NUSTransport is the production Transport on tinygo.org/x/bluetooth.
type NUSTransport struct {
	adapter *bluetooth.Adapter
	logger  *logger.Logger

	mu         sync.Mutex
	enabled    bool
	addrs      map[string]bluetooth.Address
	device     bluetooth.Device
	hasDevice  bool
	connected  bool
	writeChar  bluetooth.DeviceCharacteristic
	notifyChar bluetooth.DeviceCharacteristic
	buf        lineBuffer
	onLost     func()
}

// NewNUSTransport creates a transport on the platform default adapter.
func NewNUSTransport(l *logger.Logger) *NUSTransport {
	return &NUSTransport{
		adapter: bluetooth.DefaultAdapter,
		logger:  l.WithTag("ble"),
		addrs:   make(map[string]bluetooth.Address),
	}
}

// enable powers the adapter once and hooks the connect handler for
// link-loss detection.
func (t *NUSTransport) enable() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enabled {
		return nil
	}
	if err := t.adapter.Enable(); err != nil {
		return fmt.Errorf("ble: enable adapter: %w", err)
	}
	t.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		t.mu.Lock()
		wasConnected := t.connected
		t.connected = false
		cb := t.onLost
		t.mu.Unlock()
		if wasConnected {
			t.logger.Warnf("Link lost")
			if cb != nil {
				cb()
			}
		}
	})
	t.enabled = true
	return nil
}

func (t *NUSTransport) Scan(ctx context.Context, window time.Duration, nameFilter string) (Peripheral, error) {
	if err := t.enable(); err != nil {
		return Peripheral{}, err
	}

	var (
		found  Peripheral
		got    bool
		stopMu sync.Mutex
	)

	timer := time.AfterFunc(window, func() {
		t.adapter.StopScan()
	})
	defer timer.Stop()

	// Cancellation also ends the scan early.
	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-scanCtx.Done()
		t.adapter.StopScan()
	}()

	err := t.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		name := result.LocalName()

		// With a filter only a matching name is accepted; otherwise
		// the first discovered device wins.
		if nameFilter != "" && !strings.Contains(name, nameFilter) {
			return
		}

		stopMu.Lock()
		defer stopMu.Unlock()
		if got {
			return
		}
		got = true
		found = Peripheral{Name: name, Address: result.Address.String()}

		t.mu.Lock()
		t.addrs[found.Address] = result.Address
		t.mu.Unlock()

		adapter.StopScan()
	})
	if err != nil {
		return Peripheral{}, fmt.Errorf("ble: scan: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Peripheral{}, err
	}

	stopMu.Lock()
	defer stopMu.Unlock()
	if !got {
		return Peripheral{}, ErrNoDevice
	}
	t.logger.Infof("Found device %q (%s)", found.Name, found.Address)
	return found, nil
}

func (t *NUSTransport) Connect(p Peripheral) error {
	if err := t.enable(); err != nil {
		return err
	}

	t.mu.Lock()
	addr, ok := t.addrs[p.Address]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("ble: %s was not scanned", p.Address)
	}

	device, err := t.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("ble: connect %s: %w", p.Address, err)
	}

	t.mu.Lock()
	t.device = device
	t.hasDevice = true
	t.connected = true
	t.buf.reset()
	t.mu.Unlock()

	t.logger.Infof("Connected to %s", p.Address)
	return nil
}

func (t *NUSTransport) DiscoverProfile() error {
	t.mu.Lock()
	device := t.device
	ok := t.hasDevice && t.connected
	t.mu.Unlock()
	if !ok {
		return ErrNotConnected
	}

	svcUUID, err := bluetooth.ParseUUID(serviceUUID)
	if err != nil {
		return fmt.Errorf("ble: parse service uuid: %w", err)
	}
	svcs, err := device.DiscoverServices([]bluetooth.UUID{svcUUID})
	if err != nil || len(svcs) == 0 {
		return fmt.Errorf("%w: %v", ErrProfileMissing, err)
	}

	rxUUID, _ := bluetooth.ParseUUID(rxCharUUID)
	txUUID, _ := bluetooth.ParseUUID(txCharUUID)
	chars, err := svcs[0].DiscoverCharacteristics([]bluetooth.UUID{rxUUID, txUUID})
	if err != nil {
		return fmt.Errorf("%w: characteristics: %v", ErrProfileMissing, err)
	}

	var haveRx, haveTx bool
	for _, c := range chars {
		switch c.UUID().String() {
		case rxCharUUID:
			t.mu.Lock()
			t.writeChar = c
			t.mu.Unlock()
			haveRx = true
		case txCharUUID:
			t.mu.Lock()
			t.notifyChar = c
			t.mu.Unlock()
			haveTx = true
		}
	}
	if !haveRx || !haveTx {
		return fmt.Errorf("%w: rx=%v tx=%v", ErrProfileMissing, haveRx, haveTx)
	}

	t.logger.Debugf("Serial profile resolved")
	return nil
}

func (t *NUSTransport) Subscribe(fn NotifyFunc) error {
	t.mu.Lock()
	notifyChar := t.notifyChar
	ok := t.connected
	t.mu.Unlock()
	if !ok {
		return ErrNotConnected
	}

	// The callback runs on the adapter's event goroutine; it only
	// reassembles lines and hands them off, keeping it short.
	err := notifyChar.EnableNotifications(func(data []byte) {
		t.mu.Lock()
		lines := t.buf.feed(data)
		t.mu.Unlock()
		for _, line := range lines {
			fn(line)
		}
	})
	if err != nil {
		return fmt.Errorf("ble: subscribe: %w", err)
	}
	return nil
}

func (t *NUSTransport) Write(payload []byte) error {
	t.mu.Lock()
	writeChar := t.writeChar
	ok := t.connected
	t.mu.Unlock()
	if !ok {
		return ErrNotConnected
	}

	if _, err := writeChar.WriteWithoutResponse(payload); err != nil {
		return fmt.Errorf("ble: write: %w", err)
	}
	return nil
}

func (t *NUSTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *NUSTransport) Disconnect() error {
	t.mu.Lock()
	device := t.device
	hadDevice := t.hasDevice
	t.hasDevice = false
	t.connected = false
	t.addrs = make(map[string]bluetooth.Address)
	t.buf.reset()
	t.mu.Unlock()

	if !hadDevice {
		return nil
	}
	if err := device.Disconnect(); err != nil {
		return fmt.Errorf("ble: disconnect: %w", err)
	}
	return nil
}

func (t *NUSTransport) OnLinkLost(fn func()) {
	t.mu.Lock()
	t.onLost = fn
	t.mu.Unlock()
}
