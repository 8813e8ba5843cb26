package lpn

// State is one of the nine LPN friendship states named in spec §3/§4.1.
type State uint8

// The nine LPN states.
const (
	Disabled State = iota
	Timer
	Enabled
	ReqWait
	WaitOffer
	Established
	RecvDelay
	WaitUpdate
	Clear
)

// String renders the state for logging, matching the teacher's convention
// of Stringer-backed zap.Stringer log fields instead of raw ints.
func (s State) String() string {
	switch s {
	case Disabled:
		return "Disabled"
	case Timer:
		return "Timer"
	case Enabled:
		return "Enabled"
	case ReqWait:
		return "ReqWait"
	case WaitOffer:
		return "WaitOffer"
	case Established:
		return "Established"
	case RecvDelay:
		return "RecvDelay"
	case WaitUpdate:
		return "WaitUpdate"
	case Clear:
		return "Clear"
	default:
		return "Unknown"
	}
}

// hasFriend reports whether a state requires a non-Unassigned frnd address,
// the invariant checked by TestableProperty in spec §8.
func (s State) hasFriend() bool {
	switch s {
	case Established, WaitUpdate, RecvDelay:
		return true
	default:
		return false
	}
}
