package flight

// State is the flight phase. Exactly one is active; the tick loop
// dispatches on it once per tick, and the takeoff/land triggers are the
// only writers besides the loop itself.
type State int32

const (
	Idle State = iota
	TakingOff
	Automatic
	Landing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case TakingOff:
		return "taking_off"
	case Automatic:
		return "automatic"
	case Landing:
		return "landing"
	default:
		return "unknown"
	}
}
