// File: internal/core/system.go
package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/librescoot/librefsm"

	"github.com/Nobody-OS/OBDII-Gauge/internal/ble"
	"github.com/Nobody-OS/OBDII-Gauge/internal/config"
	"github.com/Nobody-OS/OBDII-Gauge/internal/fsm"
	"github.com/Nobody-OS/OBDII-Gauge/internal/logger"
	"github.com/Nobody-OS/OBDII-Gauge/internal/metrics"
	"github.com/Nobody-OS/OBDII-Gauge/internal/obd"
	"github.com/Nobody-OS/OBDII-Gauge/internal/server"
	"github.com/Nobody-OS/OBDII-Gauge/internal/store"
	"github.com/Nobody-OS/OBDII-Gauge/internal/types"
)

type System struct {
	cfg       *config.Config
	logger    *logger.Logger
	transport ble.Transport
	redis     MessagingClient
	backlight BacklightOutput
	store     *store.Store
	machine   *librefsm.Machine
	web       Broadcaster

	mu         sync.RWMutex
	mode       types.DisplayMode
	connState  types.ConnectionState
	peripheral ble.Peripheral

	pollMu     sync.Mutex
	pollCancel context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSystem(cfg *config.Config, transport ble.Transport, redis MessagingClient, backlight BacklightOutput, l *logger.Logger) *System {
	return &System{
		cfg:       cfg,
		logger:    l.WithTag("system"),
		transport: transport,
		redis:     redis,
		backlight: backlight,
		store:     store.New(),
		mode:      types.ModeEco,
		connState: types.StateIdle,
	}
}

// AttachWeb registers the frame broadcaster. Must be called before
// Start.
func (s *System) AttachWeb(b Broadcaster) {
	s.web = b
}

// SetMessaging registers the Redis client. Must be called before
// Start; the client's callbacks point back at this system.
func (s *System) SetMessaging(m MessagingClient) {
	s.redis = m
}

func (s *System) Start(ctx context.Context) error {
	s.logger.Infof("Starting gauge system")
	s.ctx, s.cancel = context.WithCancel(ctx)

	if s.redis != nil {
		if err := s.redis.Connect(); err != nil {
			// The gauge still works without Redis; publishing is
			// disabled for this run.
			s.logger.Warnf("Redis unavailable, publishing disabled: %v", err)
			s.redis = nil
		}
	}

	if s.redis != nil {
		if saved, err := s.redis.GetMode(); err != nil {
			s.logger.Warnf("Failed to read saved mode: %v", err)
		} else if types.ValidMode(saved) {
			s.logger.Infof("Restoring saved mode: %s", saved)
			s.mu.Lock()
			s.mode = types.DisplayMode(saved)
			s.mu.Unlock()
		}
	}

	if err := s.backlight.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize backlight: %w", err)
	}

	s.transport.OnLinkLost(func() {
		s.logger.Warnf("Link lost")
		s.machine.Send(librefsm.Event{ID: fsm.EvLinkLost})
	})

	if err := s.initFSM(s.ctx); err != nil {
		return fmt.Errorf("failed to initialize state machine: %w", err)
	}

	if s.redis != nil {
		if err := s.redis.StartListening(); err != nil {
			return fmt.Errorf("failed to start command listeners: %w", err)
		}
	}

	s.wg.Add(1)
	go s.blinkLoop()

	return s.machine.SendSync(librefsm.Event{ID: fsm.EvStartScan})
}

func (s *System) Stop() {
	s.logger.Infof("Stopping gauge system")
	s.stopPolling()
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.transport.Disconnect()
	s.backlight.Close()
	if s.redis != nil {
		s.redis.Close()
	}
}

// SetMode switches the display mode. Implements the web command
// surface and the Redis obd:mode list.
func (s *System) SetMode(mode string) error {
	if !types.ValidMode(mode) {
		return fmt.Errorf("invalid mode: %s", mode)
	}
	s.mu.Lock()
	s.mode = types.DisplayMode(mode)
	s.mu.Unlock()
	s.logger.Infof("Display mode set to %s", mode)

	if s.redis != nil {
		if err := s.redis.PublishMode(types.DisplayMode(mode)); err != nil {
			s.logger.Warnf("Failed to publish mode: %v", err)
		}
	}
	s.applyBacklight()
	s.publishFrame()
	return nil
}

// Rescan tears down any active link and starts a fresh scan.
func (s *System) Rescan() error {
	s.logger.Infof("Rescan requested")
	s.machine.Send(librefsm.Event{ID: fsm.EvRescan})
	return nil
}

func (s *System) currentMode() types.DisplayMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// CurrentFrame assembles the dashboard frame from the latest readings.
func (s *System) CurrentFrame() server.Frame {
	snap := s.store.Snapshot()
	mode := s.currentMode()
	derived := metrics.Compute(snap, mode)
	level := metrics.BacklightFor(snap.RPM, mode)

	s.mu.RLock()
	conn := s.connState
	s.mu.RUnlock()

	return server.Frame{
		Connection: string(conn),
		Mode:       string(mode),
		RPM:        snap.RPM,
		Speed:      snap.Speed,
		Coolant:    snap.CoolantTemp,
		MAF:        snap.MAF,
		FuelRate:   snap.FuelRate,
		Gear:       derived.Gear,
		Indicator:  derived.Indicator.String(),
		Backlight:  level.String(),
		DTC:        strings.Join(snap.DTCs, " "),
		Stamp:      time.Now().UnixMilli(),
	}
}

// handleLine processes one response line from the adapter. Malformed
// or empty lines are dropped without disturbing the poll loop.
func (s *System) handleLine(line []byte) {
	resp, err := obd.DecodeResponse(line)
	if err != nil {
		if err != obd.ErrEmptyFrame {
			s.logger.Debugf("Dropping frame %q: %v", line, err)
		}
		return
	}
	if resp.Reading != nil {
		s.store.Apply(*resp.Reading)
	}
	if resp.DTCs != nil {
		s.store.ApplyDTCs(resp.DTCs)
	}
}

// commandsForCycle returns the requests for one poll cycle. Every
// dtcEvery cycles the mode-03 trouble code request is appended.
func commandsForCycle(cycle, dtcEvery int) []string {
	cmds := make([]string, 0, len(obd.PollSequence)+1)
	cmds = append(cmds, obd.PollSequence...)
	if dtcEvery > 0 && cycle%dtcEvery == 0 {
		cmds = append(cmds, obd.CmdDTCs)
	}
	return cmds
}

// pollLoop drives one connection's request cadence. It exits when the
// connection context is cancelled.
func (s *System) pollLoop(ctx context.Context) {
	defer s.wg.Done()

	cadence := s.cfg.PollCadence()
	spacing := s.cfg.CommandSpacing()
	ticker := time.NewTicker(cadence)
	defer ticker.Stop()

	s.logger.Infof("Poll scheduler started (cadence %s, spacing %s)", cadence, spacing)
	cycle := 0

	for {
		select {
		case <-ctx.Done():
			s.logger.Infof("Poll scheduler stopped")
			return
		case <-ticker.C:
			cycle++
			if !s.runCycle(ctx, cycle, spacing) {
				return
			}
			s.publishFrame()
		}
	}
}

// runCycle sends one cycle's requests with inter-command spacing.
// Returns false when the loop should stop.
func (s *System) runCycle(ctx context.Context, cycle int, spacing time.Duration) bool {
	for i, cmd := range commandsForCycle(cycle, s.cfg.Poll.DTCEveryN) {
		if i > 0 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(spacing):
			}
		}
		frame, err := obd.EncodeRequest(cmd)
		if err != nil {
			s.logger.Errorf("Failed to encode request %s: %v", cmd, err)
			continue
		}
		if err := s.transport.Write(frame); err != nil {
			s.logger.Warnf("Write failed for %s: %v", cmd, err)
			s.machine.Send(librefsm.Event{ID: fsm.EvLinkLost})
			return false
		}
	}
	return true
}

func (s *System) startPolling() {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()
	if s.pollCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.pollCancel = cancel
	s.wg.Add(1)
	go s.pollLoop(ctx)
}

func (s *System) stopPolling() {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()
	if s.pollCancel != nil {
		s.pollCancel()
		s.pollCancel = nil
	}
}

// publishFrame pushes the current state to Redis and web clients.
func (s *System) publishFrame() {
	if s.web != nil {
		s.web.Broadcast(s.CurrentFrame())
	}
	if s.redis != nil {
		snap := s.store.Snapshot()
		derived := metrics.Compute(snap, s.currentMode())
		if err := s.redis.PublishVehicleState(snap, derived.Gear); err != nil {
			s.logger.Warnf("Failed to publish vehicle state: %v", err)
		}
	}
}

func (s *System) applyBacklight() {
	snap := s.store.Snapshot()
	level := metrics.BacklightFor(snap.RPM, s.currentMode())
	if err := s.backlight.Apply(level); err != nil {
		s.logger.Debugf("Backlight apply failed: %v", err)
	}
}

// blinkLoop re-applies the backlight at the blink interval so the
// blink level toggles its phase.
func (s *System) blinkLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.BlinkInterval())
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.applyBacklight()
		}
	}
}
