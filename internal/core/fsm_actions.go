package core

import (
	"context"
	"time"

	"github.com/librescoot/librefsm"

	"github.com/Nobody-OS/OBDII-Gauge/internal/ble"
	"github.com/Nobody-OS/OBDII-Gauge/internal/fsm"
	"github.com/Nobody-OS/OBDII-Gauge/internal/types"
)

// Ensure System implements fsm.Actions
var _ fsm.Actions = (*System)(nil)

// stateIDToConnectionState converts librefsm StateID to types.ConnectionState
func stateIDToConnectionState(id librefsm.StateID) types.ConnectionState {
	switch id {
	case fsm.StateIdle:
		return types.StateIdle
	case fsm.StateScanning:
		return types.StateScanning
	case fsm.StateConnecting:
		return types.StateConnecting
	case fsm.StateDiscoveringServices:
		return types.StateDiscoveringServices
	case fsm.StateSubscribing:
		return types.StateSubscribing
	case fsm.StateConnected:
		return types.StateConnected
	case fsm.StateDisconnected:
		return types.StateDisconnected
	default:
		return types.ConnectionState(string(id))
	}
}

// initFSM initializes and starts the librefsm machine
func (s *System) initFSM(ctx context.Context) error {
	def := fsm.NewDefinition(s)
	machine, err := def.Build()
	if err != nil {
		return err
	}
	s.machine = machine

	s.machine.OnStateChange(func(from, to librefsm.StateID) {
		newState := stateIDToConnectionState(to)
		oldState := stateIDToConnectionState(from)

		s.mu.Lock()
		s.connState = newState
		s.mu.Unlock()

		s.logger.Infof("Connection state: %s -> %s", oldState, newState)

		// Publish directly with the known new state; querying the
		// machine here would deadlock on its mutex.
		if s.redis != nil {
			if err := s.redis.PublishConnectionState(newState); err != nil {
				s.logger.Errorf("Failed to publish connection state: %v", err)
			}
		}
		if s.web != nil {
			s.web.Broadcast(s.CurrentFrame())
		}
	})

	if err := s.machine.Start(ctx); err != nil {
		return err
	}

	s.logger.Infof("Connection state machine started")
	return nil
}

// === State Entry Actions ===

// EnterIdle arms the retry timer so scanning resumes after a backoff.
func (s *System) EnterIdle(c *librefsm.Context) error {
	s.machine.StartTimer(fsm.TimerIdleRetry, fsm.IdleRetryDelay, librefsm.Event{ID: fsm.EvStartScan})
	return nil
}

// EnterScanning launches the scan window. The outcome comes back as an
// event from the goroutine so the action itself never blocks the
// machine.
func (s *System) EnterScanning(c *librefsm.Context) error {
	s.machine.StopTimer(fsm.TimerIdleRetry)
	go func() {
		p, err := s.transport.Scan(s.ctx, s.cfg.ScanWindow(), s.cfg.Adapter.NameFilter)
		if err != nil {
			s.logger.Infof("Scan found no adapter: %v", err)
			s.machine.Send(librefsm.Event{ID: fsm.EvScanEmpty})
			return
		}
		s.logger.Infof("Found adapter %q at %s", p.Name, p.Address)
		s.mu.Lock()
		s.peripheral = p
		s.mu.Unlock()
		s.machine.Send(librefsm.Event{ID: fsm.EvDeviceFound})
	}()
	return nil
}

// connectAttempts bounds connection tries per candidate before the
// candidate is discarded and a fresh scan starts; connectRetryDelay
// separates the attempts.
const (
	connectAttempts   = 2
	connectRetryDelay = 500 * time.Millisecond
)

func (s *System) EnterConnecting(c *librefsm.Context) error {
	s.mu.RLock()
	p := s.peripheral
	s.mu.RUnlock()
	go func() {
		for attempt := 1; attempt <= connectAttempts; attempt++ {
			if attempt > 1 {
				select {
				case <-s.ctx.Done():
					return
				case <-time.After(connectRetryDelay):
				}
			}
			err := s.transport.Connect(p)
			if err == nil {
				s.machine.Send(librefsm.Event{ID: fsm.EvLinkEstablished})
				return
			}
			s.logger.Warnf("Connect attempt %d/%d to %s failed: %v", attempt, connectAttempts, p.Address, err)
		}
		s.machine.Send(librefsm.Event{ID: fsm.EvConnectFailed})
	}()
	return nil
}

func (s *System) EnterDiscoveringServices(c *librefsm.Context) error {
	go func() {
		if err := s.transport.DiscoverProfile(); err != nil {
			s.logger.Warnf("Service discovery failed: %v", err)
			s.machine.Send(librefsm.Event{ID: fsm.EvProfileMissing})
			return
		}
		s.machine.Send(librefsm.Event{ID: fsm.EvProfileFound})
	}()
	return nil
}

func (s *System) EnterSubscribing(c *librefsm.Context) error {
	go func() {
		if err := s.transport.Subscribe(s.handleLine); err != nil {
			s.logger.Warnf("Subscribe failed: %v", err)
			s.machine.Send(librefsm.Event{ID: fsm.EvSubscribeFailed})
			return
		}
		s.machine.Send(librefsm.Event{ID: fsm.EvSubscribed})
	}()
	return nil
}

func (s *System) EnterConnected(c *librefsm.Context) error {
	s.logger.Infof("Adapter link established")
	s.startPolling()
	return nil
}

func (s *System) ExitConnected(c *librefsm.Context) error {
	s.stopPolling()
	return nil
}

// EnterDisconnected tears the link down, clears the candidate identity
// and reports completion so the machine can settle back to idle.
func (s *System) EnterDisconnected(c *librefsm.Context) error {
	go func() {
		s.stopPolling()
		s.mu.Lock()
		s.peripheral = ble.Peripheral{}
		s.mu.Unlock()
		if err := s.transport.Disconnect(); err != nil {
			s.logger.Debugf("Disconnect: %v", err)
		}
		s.machine.Send(librefsm.Event{ID: fsm.EvCleanupDone})
	}()
	return nil
}
