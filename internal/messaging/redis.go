// Package messaging publishes the gauge's vehicle state over Redis and
// listens for UI commands. State lives in the "vehicle" hash with a
// notification published on the "vehicle" channel per changed field
// group; commands arrive as LPUSHed values on the obd:mode and
// obd:scan lists.
package messaging

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Nobody-OS/OBDII-Gauge/internal/logger"
	"github.com/Nobody-OS/OBDII-Gauge/internal/types"
)

type Callbacks struct {
	ModeCallback   func(string) error // "sport", "eco", "cruise", "dyno"
	RescanCallback func() error
}

type RedisClient struct {
	client    *redis.Client
	callbacks Callbacks
	logger    *logger.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewRedisClient(host string, port int, l *logger.Logger, callbacks Callbacks) *RedisClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisClient{
		client: redis.NewClient(&redis.Options{
			Addr: fmt.Sprintf("%s:%d", host, port),
			DB:   0,
		}),
		callbacks: callbacks,
		logger:    l.WithTag("redis"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (r *RedisClient) Connect() error {
	r.logger.Infof("Connecting to Redis at %s", r.client.Options().Addr)
	if err := r.client.Ping(r.ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

// StartListening starts the command listeners. Call after the system
// is fully initialized so commands never race startup.
func (r *RedisClient) StartListening() error {
	r.logger.Infof("Starting command listeners")
	r.wg.Add(2)
	go r.listCommandListener("obd:mode", r.handleModeCommand)
	go r.listCommandListener("obd:scan", r.handleScanCommand)
	return nil
}

func (r *RedisClient) listCommandListener(key string, handler func(string) error) {
	defer r.wg.Done()
	r.logger.Debugf("Listening on %s", key)

	for {
		select {
		case <-r.ctx.Done():
			return
		default:
			// BRPOP with a short timeout so context cancellation is
			// observed periodically.
			result, err := r.client.BRPop(r.ctx, 5*time.Second, key).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if r.ctx.Err() != nil {
					return
				}
				r.logger.Warnf("Error reading from %s: %v", key, err)
				time.Sleep(time.Second)
				continue
			}
			if len(result) >= 2 { // BRPOP returns [key, value]
				value := result[1]
				r.logger.Debugf("Command from %s: %s", key, value)
				if err := handler(value); err != nil {
					r.logger.Warnf("Error handling %s command: %v", key, err)
				}
			}
		}
	}
}

func (r *RedisClient) handleModeCommand(value string) error {
	if r.callbacks.ModeCallback == nil {
		return nil
	}
	if !types.ValidMode(value) {
		return fmt.Errorf("invalid mode command: %s", value)
	}
	return r.callbacks.ModeCallback(value)
}

func (r *RedisClient) handleScanCommand(value string) error {
	if r.callbacks.RescanCallback == nil {
		return nil
	}
	switch value {
	case "trigger":
		return r.callbacks.RescanCallback()
	default:
		return fmt.Errorf("invalid scan command: %s", value)
	}
}

// publishHashSet atomically sets hash fields and publishes a
// notification.
func (r *RedisClient) publishHashSet(hash string, fields map[string]interface{}, channel, payload string) error {
	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, hash, fields)
	pipe.Publish(r.ctx, channel, payload)
	_, err := pipe.Exec(r.ctx)
	return err
}

// PublishVehicleState writes the readings, derived values and DTC set
// to the vehicle hash in one round trip. Sentinel values are written
// as-is; consumers treat negative MAF/fuel rate as unknown.
func (r *RedisClient) PublishVehicleState(s types.VehicleState, gear int) error {
	fields := map[string]interface{}{
		"rpm":          fmt.Sprintf("%.1f", s.RPM),
		"speed":        fmt.Sprintf("%.0f", s.Speed),
		"coolant-temp": fmt.Sprintf("%.0f", s.CoolantTemp),
		"maf":          fmt.Sprintf("%.2f", s.MAF),
		"fuel-rate":    fmt.Sprintf("%.2f", s.FuelRate),
		"gear":         gear,
		"dtc":          strings.Join(s.DTCs, " "),
		"timestamp":    time.Now().Format(time.RFC3339),
	}
	if err := r.publishHashSet("vehicle", fields, "vehicle", "readings"); err != nil {
		r.logger.Warnf("Failed to publish vehicle state: %v", err)
		return err
	}
	return nil
}

// PublishConnectionState mirrors the link state machine state.
func (r *RedisClient) PublishConnectionState(state types.ConnectionState) error {
	r.logger.Debugf("Publishing connection state: %s", state)
	fields := map[string]interface{}{
		"connection:state":     string(state),
		"connection:timestamp": time.Now().Format(time.RFC3339),
	}
	if err := r.publishHashSet("vehicle", fields, "vehicle", "connection:state"); err != nil {
		r.logger.Warnf("Failed to publish connection state: %v", err)
		return err
	}
	return nil
}

// PublishMode records the active display mode.
func (r *RedisClient) PublishMode(mode types.DisplayMode) error {
	if err := r.publishHashSet("vehicle",
		map[string]interface{}{"mode": string(mode)}, "vehicle", "mode"); err != nil {
		r.logger.Warnf("Failed to publish mode: %v", err)
		return err
	}
	return nil
}

// GetMode returns the persisted display mode, or empty when none was
// stored yet.
func (r *RedisClient) GetMode() (string, error) {
	mode, err := r.client.HGet(r.ctx, "vehicle", "mode").Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return mode, nil
}

func (r *RedisClient) Close() error {
	r.cancel()
	r.wg.Wait()
	return r.client.Close()
}
