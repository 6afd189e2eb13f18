package game

// RuleError is a rejected move. Reason is a stable machine-readable code for
// the wire protocol; the engine guarantees state is untouched whenever one is
// returned.
type RuleError struct {
	Reason  string
	Message string
}

func (e *RuleError) Error() string { return e.Message }

var (
	ErrWrongPhase          = &RuleError{"wrong_phase", "not allowed in this phase"}
	ErrWrongTurn           = &RuleError{"wrong_turn", "not your turn"}
	ErrOutOfRange          = &RuleError{"out_of_range", "position outside the board"}
	ErrOccupied            = &RuleError{"occupied", "position already occupied"}
	ErrDestinationNotEmpty = &RuleError{"destination_not_empty", "destination not empty"}
	ErrNotAdjacent         = &RuleError{"not_adjacent", "destination is not adjacent"}
	ErrNoCaptureLine       = &RuleError{"no_capture_line", "no goat to jump on a straight line"}
	ErrRepeatedPosition    = &RuleError{"repeated_position", "move would repeat a previous board state"}
	ErrNoPieceAtSource     = &RuleError{"no_piece_at_source", "no piece of yours at the source position"}
)
