package session

// State is the connection lifecycle of a session.
type State int32

const (
	// StateUninitialized: created but not yet accepting a viewer.
	StateUninitialized State = iota
	// StateListening: waiting for a viewer to attach.
	StateListening
	// StateHandshaking: viewer attached, negotiating geometry and format.
	StateHandshaking
	// StateScanning: viewer is actively receiving updates. The only state
	// in which device-interface operations succeed.
	StateScanning
	// StateDisconnecting: teardown requested, transport draining.
	StateDisconnecting
	// StateClosed: fully torn down. Terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateListening:
		return "listening"
	case StateHandshaking:
		return "handshaking"
	case StateScanning:
		return "scanning"
	case StateDisconnecting:
		return "disconnecting"
	case StateClosed:
		return "closed"
	default:
		return "invalid"
	}
}

// Terminal reports whether the session can no longer reach Scanning.
func (s State) Terminal() bool {
	return s == StateDisconnecting || s == StateClosed
}

// transitions maps each state to the states it may move to.
var transitions = map[State][]State{
	StateUninitialized: {StateListening, StateClosed},
	StateListening:     {StateHandshaking, StateDisconnecting, StateClosed},
	StateHandshaking:   {StateScanning, StateDisconnecting, StateClosed},
	StateScanning:      {StateDisconnecting, StateClosed},
	StateDisconnecting: {StateClosed},
	StateClosed:        {},
}

func legalTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
