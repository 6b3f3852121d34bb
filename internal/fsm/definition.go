package fsm

import (
	"time"

	"github.com/librescoot/librefsm"
)

// Timing constants
const (
	// IdleRetryDelay is the pause before a fresh scan cycle starts
	// after an empty or failed cycle. Retries are bounded per step;
	// the cycle itself repeats indefinitely without backoff.
	IdleRetryDelay = 1 * time.Second
)

// NewDefinition creates the BLE connection FSM definition. The actions
// parameter provides the transport work for each state; transitions are
// driven by the outcome events those actions emit.
//
// Connected is reachable only through subscribing success; every
// failure path funnels through disconnected back to idle so a stalled
// candidate can never wedge the cycle.
func NewDefinition(actions Actions) *librefsm.Definition {
	return librefsm.NewDefinition().
		State(StateIdle,
			librefsm.WithOnEnter(actions.EnterIdle),
		).
		State(StateScanning,
			librefsm.WithOnEnter(actions.EnterScanning),
		).
		State(StateConnecting,
			librefsm.WithOnEnter(actions.EnterConnecting),
		).
		State(StateDiscoveringServices,
			librefsm.WithOnEnter(actions.EnterDiscoveringServices),
		).
		State(StateSubscribing,
			librefsm.WithOnEnter(actions.EnterSubscribing),
		).
		State(StateConnected,
			librefsm.WithOnEnter(actions.EnterConnected),
			librefsm.WithOnExit(actions.ExitConnected),
		).
		State(StateDisconnected,
			librefsm.WithOnEnter(actions.EnterDisconnected),
		).

		// === Transitions ===

		// From Idle: a scan starts on the retry timer or on demand.
		Transition(StateIdle, EvStartScan, StateScanning).
		Transition(StateIdle, EvRescan, StateScanning).

		// From Scanning: any candidate advances; none found retries
		// from idle.
		Transition(StateScanning, EvDeviceFound, StateConnecting).
		Transition(StateScanning, EvScanEmpty, StateIdle).

		// From Connecting: retry exhaustion discards the candidate and
		// forces a fresh scan via disconnected.
		Transition(StateConnecting, EvLinkEstablished, StateDiscoveringServices).
		Transition(StateConnecting, EvConnectFailed, StateDisconnected).

		// Missing service or failed subscription is fatal for this
		// candidate.
		Transition(StateDiscoveringServices, EvProfileFound, StateSubscribing).
		Transition(StateDiscoveringServices, EvProfileMissing, StateDisconnected).
		Transition(StateSubscribing, EvSubscribed, StateConnected).
		Transition(StateSubscribing, EvSubscribeFailed, StateDisconnected).

		// Connected exits only on link loss (or a forced rescan, which
		// takes the same teardown path).
		Transition(StateConnected, EvLinkLost, StateDisconnected).
		Transition(StateConnected, EvRescan, StateDisconnected).

		// Mid-cycle link loss from any in-between step.
		Transition(StateDiscoveringServices, EvLinkLost, StateDisconnected).
		Transition(StateSubscribing, EvLinkLost, StateDisconnected).

		// Disconnected cleans up and hands back to idle.
		Transition(StateDisconnected, EvCleanupDone, StateIdle).

		// Initial state
		Initial(StateIdle)
}
