package voice

// State is the session controller's lifecycle state. Standby is the initial
// state; Error and Closed are terminal for a controller instance. A new
// conversation constructs a fresh controller.
type State int

const (
	Standby State = iota
	Initializing
	Live
	Error
	Closed
)

// String returns the human-readable state name.
func (s State) String() string {
	switch s {
	case Standby:
		return "Standby"
	case Initializing:
		return "Initializing"
	case Live:
		return "Live"
	case Error:
		return "Error"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// terminal reports whether no further transitions are possible.
func (s State) terminal() bool {
	return s == Error || s == Closed
}
