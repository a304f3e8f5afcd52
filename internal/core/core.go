package core

// State is the coarse outcome of a game as reported by the API.
type State int

const (
	StateOngoing State = iota
	StatePaused        // Waiting for a promotion piece or a draw decision
	StateWhiteWins
	StateBlackWins
	StateDraw
)

func (s State) String() string {
	switch s {
	case StatePaused:
		return "paused"
	case StateWhiteWins:
		return "white wins"
	case StateBlackWins:
		return "black wins"
	case StateDraw:
		return "draw"
	case StateOngoing:
		return "ongoing"
	default:
		return "unknown"
	}
}

// IsOver reports whether no further actions except undo and rematch apply.
func (s State) IsOver() bool {
	return s == StateWhiteWins || s == StateBlackWins || s == StateDraw
}
