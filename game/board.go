package game

// Cell is the occupant of a single board intersection.
type Cell int

const (
	Empty Cell = 0
	Goat  Cell = 1
	Tiger Cell = 2
)

const (
	BoardSize  = 25
	TotalGoats = 20

	// CaptureGoal is the number of captured goats that wins for the tigers.
	CaptureGoal = 5
)

// Turn owners and match roles share the same two values.
const (
	TurnGoat  = "goat"
	TurnTiger = "tiger"
)

// Board phases. The engine moves 1 -> 2 on the 20th placement; 3 is set by
// the session layer once a winner is declared.
const (
	PhasePlacement = 1
	PhaseManeuver  = 2
	PhaseFinished  = 3
)

// adjacency is the fixed graph of the physical board. Index mapping:
//
//	 0  1  2  3  4
//	 5  6  7  8  9
//	10 11 12 13 14
//	15 16 17 18 19
//	20 21 22 23 24
//
// Orthogonal neighbors always connect; diagonals connect only along the
// drawn lines of the board.
var adjacency = [BoardSize][]int{
	0:  {1, 5, 6},
	1:  {0, 2, 6},
	2:  {1, 3, 6, 7, 8},
	3:  {2, 4, 8},
	4:  {3, 8, 9},
	5:  {0, 6, 10},
	6:  {0, 1, 2, 5, 7, 10, 11, 12},
	7:  {2, 6, 8, 12},
	8:  {2, 3, 4, 7, 9, 12, 13, 14},
	9:  {4, 8, 14},
	10: {5, 6, 11, 15, 16},
	11: {6, 10, 12, 16},
	12: {6, 7, 8, 11, 13, 16, 17, 18},
	13: {8, 12, 14, 18},
	14: {8, 9, 13, 18, 19},
	15: {10, 16, 20},
	16: {10, 11, 12, 15, 17, 20, 21, 22},
	17: {12, 16, 18, 22},
	18: {12, 13, 14, 17, 19, 22, 23, 24},
	19: {14, 18, 24},
	20: {15, 16, 21},
	21: {16, 20, 22},
	22: {16, 17, 18, 21, 23},
	23: {18, 22, 24},
	24: {18, 19, 23},
}

// ValidPosition reports whether pos indexes a board cell.
func ValidPosition(pos int) bool {
	return pos >= 0 && pos < BoardSize
}

// AdjacentPositions returns the neighbors of pos in the board graph.
func AdjacentPositions(pos int) []int {
	if !ValidPosition(pos) {
		return nil
	}
	return adjacency[pos]
}

// areAdjacent reports whether a and b connect in the board graph.
func areAdjacent(a, b int) bool {
	for _, n := range AdjacentPositions(a) {
		if n == b {
			return true
		}
	}
	return false
}

// InLine reports whether b lies exactly midway between a and c on a straight
// row, column, or diagonal of the grid. Combined with graph adjacency on both
// sides this is the capture-line test: origin, jumped goat and landing cell
// collinear with equal spacing.
func InLine(a, b, c int) bool {
	if a == b || b == c || a == c {
		return false
	}
	ar, ac := a/5, a%5
	br, bc := b/5, b%5
	cr, cc := c/5, c%5
	return br-ar == cr-br && bc-ac == cc-bc
}
