package session

// State is a tagged value for the three states an instance traverses:
// Idle, Waiting (dialing/waiting for exactly one peer), Connected.
// Keeping state explicit, rather than encoded in nested loop calls,
// lets tests drive every transition without sockets.
type State int

const (
	StateIdle State = iota
	StateWaiting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateWaiting:
		return "Waiting"
	case StateConnected:
		return "Connected"
	default:
		return "Unknown"
	}
}

// Event is a transition trigger fed to Step. Each event corresponds to
// something that happened outside the pure state machine -- a user
// command, a completed handshake, an inbound Close -- and is reported in
// after the fact, so Step itself never touches a socket.
type Event int

const (
	// EventDial: the user issued dial/DialAlias from Idle.
	EventDial Event = iota
	// EventHandshakeSucceeded: the handshake (either role) completed.
	EventHandshakeSucceeded
	// EventHandshakeFailed: dial's TCP connect failed, or the handshake
	// was rejected/errored.
	EventHandshakeFailed
	// EventExit: the user issued exit/--exit.
	EventExit
	// EventPeerClose: a Close frame with a matching session nonce
	// arrived from the current peer.
	EventPeerClose
)

func (e Event) String() string {
	switch e {
	case EventDial:
		return "Dial"
	case EventHandshakeSucceeded:
		return "HandshakeSucceeded"
	case EventHandshakeFailed:
		return "HandshakeFailed"
	case EventExit:
		return "Exit"
	case EventPeerClose:
		return "PeerClose"
	default:
		return "Unknown"
	}
}

// Step computes the next state given the current state and an event.
// ok is false if the event has no effect
// in the current state (the state is returned unchanged); this is not an
// error, merely "nothing to do".
func Step(current State, ev Event) (next State, ok bool) {
	switch current {
	case StateIdle:
		if ev == EventDial {
			return StateWaiting, true
		}
	case StateWaiting:
		switch ev {
		case EventHandshakeSucceeded:
			return StateConnected, true
		case EventExit:
			return StateIdle, true
		case EventHandshakeFailed:
			// A rejected handshake or an offline peer leaves this
			// instance waiting for an incoming connection from the
			// same address: no state change.
		}
	case StateConnected:
		switch ev {
		case EventExit:
			return StateIdle, true
		case EventPeerClose:
			return StateWaiting, true
		}
	}
	return current, false
}
