package player

// State is the transport state of a source.
//
//	Stopped ──play──▶ Playing ◀──play── Paused
//	                     │                 ▲
//	                     └──────pause──────┘
//
// A source starts Stopped, and returns to Stopped when closed or ended.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

// String names the state in logs and test failures.
func (s State) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	default:
		return "Unknown"
	}
}
