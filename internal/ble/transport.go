// Package ble provides the transport boundary to the OBD-II adapter: a
// NUS-style serial-over-BLE profile with one write and one notify
// characteristic. The connection state machine consumes the Transport
// interface; the production implementation sits on tinygo.org/x/bluetooth
// and a demo implementation synthesizes adapter traffic for development.
package ble

import (
	"context"
	"errors"
	"time"
)

// Peripheral identifies a discovered candidate device.
type Peripheral struct {
	Name    string
	Address string
}

var (
	// ErrNoDevice means the scan window closed with no acceptable
	// candidate.
	ErrNoDevice = errors.New("ble: no device found")

	// ErrNotConnected means an operation needs an established link.
	ErrNotConnected = errors.New("ble: not connected")

	// ErrProfileMissing means the peer lacks the serial service or
	// one of its characteristics.
	ErrProfileMissing = errors.New("ble: serial profile not found")
)

// NotifyFunc receives one complete response line per call. Chunked or
// concatenated notification payloads are reassembled before delivery.
type NotifyFunc func(line []byte)

// Transport is the connection-oriented byte channel the state machine
// drives. Implementations hold at most one candidate/link at a time;
// Scan replaces the previous candidate.
type Transport interface {
	// Scan runs a bounded discovery. With a non-empty nameFilter only
	// a matching device is accepted; otherwise the first device found
	// is the candidate. Returns ErrNoDevice when the window closes
	// empty.
	Scan(ctx context.Context, window time.Duration, nameFilter string) (Peripheral, error)

	// Connect establishes the link to a scanned candidate.
	Connect(p Peripheral) error

	// DiscoverProfile resolves the serial service and its write and
	// notify characteristics. ErrProfileMissing is fatal for the
	// candidate.
	DiscoverProfile() error

	// Subscribe registers the notification handler and enables
	// notifications on the inbound characteristic.
	Subscribe(fn NotifyFunc) error

	// Write sends an encoded command over the outbound characteristic.
	Write(payload []byte) error

	// Connected reports whether the link is currently up.
	Connected() bool

	// Disconnect tears the link down and releases client resources.
	// Safe to call in any state.
	Disconnect() error

	// OnLinkLost registers the callback invoked when the peer drops
	// the link outside of an explicit Disconnect.
	OnLinkLost(fn func())
}
