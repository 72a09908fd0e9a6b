package client

import "fmt"

// State is the lifecycle of a Client connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateClosing:
		return "Closing"
	case StateClosed:
		return "Closed"
	default:
		return "InvalidState"
	}
}

func (s State) validateTransitionTo(next State) error {
	switch s {
	case StateDisconnected:
		switch next {
		case StateConnecting, StateClosing:
			return nil
		}
	case StateConnecting:
		switch next {
		case StateConnected, StateDisconnected, StateClosing:
			return nil
		}
	case StateConnected:
		// Connected to Connecting happens when the transport drops.
		switch next {
		case StateConnecting, StateDisconnected, StateClosing:
			return nil
		}
	case StateClosing:
		if next == StateClosed {
			return nil
		}
	}
	return fmt.Errorf("invalid state transition from %v to %v", s, next)
}
