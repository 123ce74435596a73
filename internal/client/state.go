package client

// State is the session's position in its lifecycle.
type State int

const (
	// StateDisconnected means no connection is open. Nothing can be sent.
	StateDisconnected State = iota
	// StateConnected means a connection is open but no login pin is
	// accepted yet.
	StateConnected
	// StateAuthenticated means the active login pin was accepted.
	StateAuthenticated
)

// String returns a human-readable state name
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// CanSend reports whether a frame may be written in this state.
func (s State) CanSend() bool {
	return s != StateDisconnected
}

// connected is the transition taken when a connection opens.
func (s State) connected() State {
	if s == StateDisconnected {
		return StateConnected
	}
	return s
}

// authenticated is the transition taken when a login tier succeeds.
// Authentication requires a connection.
func (s State) authenticated() State {
	if s == StateDisconnected {
		return StateDisconnected
	}
	return StateAuthenticated
}

// unauthenticated drops back to connected when the pin is rejected.
func (s State) unauthenticated() State {
	if s == StateAuthenticated {
		return StateConnected
	}
	return s
}

// dropped is the transition taken on disconnect or transport failure.
func (s State) dropped() State {
	return StateDisconnected
}
