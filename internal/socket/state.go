package socket

// State is the session lifecycle. Terminated is absorbing: reconnecting
// means constructing a new session.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
