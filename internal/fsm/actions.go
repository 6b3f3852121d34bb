package fsm

import "github.com/librescoot/librefsm"

// Actions defines the work performed on connection lifecycle state
// entry. The gauge system implements this interface; each entry action
// kicks off the corresponding transport step and reports its outcome
// back as an event.
type Actions interface {
	// State entry actions
	EnterIdle(c *librefsm.Context) error
	EnterScanning(c *librefsm.Context) error
	EnterConnecting(c *librefsm.Context) error
	EnterDiscoveringServices(c *librefsm.Context) error
	EnterSubscribing(c *librefsm.Context) error
	EnterConnected(c *librefsm.Context) error
	EnterDisconnected(c *librefsm.Context) error

	// State exit actions
	ExitConnected(c *librefsm.Context) error
}
