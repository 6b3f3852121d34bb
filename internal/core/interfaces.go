package core

import (
	"github.com/Nobody-OS/OBDII-Gauge/internal/metrics"
	"github.com/Nobody-OS/OBDII-Gauge/internal/server"
	"github.com/Nobody-OS/OBDII-Gauge/internal/types"
)

// MessagingClient defines the Redis messaging operations needed by System
type MessagingClient interface {
	Connect() error
	StartListening() error
	Close() error

	PublishVehicleState(s types.VehicleState, gear int) error
	PublishConnectionState(state types.ConnectionState) error
	PublishMode(mode types.DisplayMode) error
	GetMode() (string, error)
}

// BacklightOutput defines the display output operations needed by System
type BacklightOutput interface {
	Initialize() error
	Apply(level metrics.BacklightLevel) error
	Close() error
}

// Broadcaster pushes dashboard frames to connected web clients
type Broadcaster interface {
	Broadcast(frame server.Frame)
}
