package session

// State is the lifecycle position of a scoped session.
//
//	Disconnected -> Connecting -> Connected -> Committing  -> Closed
//	                    |                  \-> RollingBack -> Closed
//	                    \-> Failed
//
// Closed and Failed are terminal.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Committing
	RollingBack
	Closed
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Committing:
		return "committing"
	case RollingBack:
		return "rolling_back"
	case Closed:
		return "closed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can leave s.
func (s State) Terminal() bool {
	return s == Closed || s == Failed
}
