package fsm

import "github.com/librescoot/librefsm"

// Connection lifecycle states
const (
	StateIdle                librefsm.StateID = "idle"
	StateScanning            librefsm.StateID = "scanning"
	StateConnecting          librefsm.StateID = "connecting"
	StateDiscoveringServices librefsm.StateID = "discovering-services"
	StateSubscribing         librefsm.StateID = "subscribing"
	StateConnected           librefsm.StateID = "connected"
	StateDisconnected        librefsm.StateID = "disconnected"
)

// Connection lifecycle events
const (
	// Cycle control
	EvStartScan librefsm.EventID = "start-scan"
	EvRescan    librefsm.EventID = "rescan" // external command (UI/web)

	// Scanning outcomes
	EvDeviceFound librefsm.EventID = "device-found"
	EvScanEmpty   librefsm.EventID = "scan-empty"

	// Connecting outcomes
	EvLinkEstablished librefsm.EventID = "link-established"
	EvConnectFailed   librefsm.EventID = "connect-failed" // retries exhausted

	// Service discovery / subscription outcomes
	EvProfileFound    librefsm.EventID = "profile-found"
	EvProfileMissing  librefsm.EventID = "profile-missing"
	EvSubscribed      librefsm.EventID = "subscribed"
	EvSubscribeFailed librefsm.EventID = "subscribe-failed"

	// Session teardown
	EvLinkLost    librefsm.EventID = "link-lost"
	EvCleanupDone librefsm.EventID = "cleanup-done"
)

// Timer names for imperative timers
const (
	TimerIdleRetry = "idle-retry"
)
