// Package game implements the Bagh-Chal (Tigers and Goats) rules as a pure
// state machine. It performs no I/O and knows nothing about connections,
// matches or persistence.
package game

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
)

// Game is the authoritative state of one match. All mutating methods either
// apply the move fully and flip the turn, or return a *RuleError and leave
// every field unchanged.
type Game struct {
	Board         [BoardSize]Cell
	Turn          string
	Phase         int
	GoatsPlaced   int
	GoatsCaptured int

	// history holds the canonical signatures of board states already seen
	// after an accepted goat move. Used by the repetition rule only.
	history map[string]struct{}
}

// New returns a fresh game: four tigers on the corners, goat to place first.
func New() *Game {
	g := &Game{
		Turn:    TurnGoat,
		Phase:   PhasePlacement,
		history: make(map[string]struct{}),
	}
	g.Board[0] = Tiger
	g.Board[4] = Tiger
	g.Board[20] = Tiger
	g.Board[24] = Tiger
	return g
}

// Signature returns the canonical signature of the current board: the MD5
// hex digest of the JSON-encoded cell array.
func (g *Game) Signature() string {
	cells := make([]int, BoardSize)
	for i, c := range g.Board {
		cells[i] = int(c)
	}
	raw, _ := json.Marshal(cells)
	sum := md5.Sum(raw)
	return hex.EncodeToString(sum[:])
}

// HistorySize returns how many board signatures the repetition rule has
// recorded so far.
func (g *Game) HistorySize() int { return len(g.history) }

// PlaceGoat puts a goat on an empty cell during the placement phase.
func (g *Game) PlaceGoat(pos int) error {
	if g.Phase != PhasePlacement {
		return ErrWrongPhase
	}
	if g.Turn != TurnGoat {
		return ErrWrongTurn
	}
	if !ValidPosition(pos) {
		return ErrOutOfRange
	}
	if g.Board[pos] != Empty {
		return ErrOccupied
	}

	g.Board[pos] = Goat
	g.GoatsPlaced++
	if g.GoatsPlaced >= TotalGoats {
		g.Phase = PhaseManeuver
	}
	g.Turn = TurnTiger
	return nil
}

// MoveTiger moves a tiger to an adjacent empty cell, or performs a capture
// jump over a goat. It returns the position of the captured goat, or -1 for
// a plain move.
func (g *Game) MoveTiger(from, to int) (int, error) {
	if g.Turn != TurnTiger {
		return -1, ErrWrongTurn
	}
	if !ValidPosition(from) || !ValidPosition(to) {
		return -1, ErrOutOfRange
	}
	if g.Board[from] != Tiger {
		return -1, ErrNoPieceAtSource
	}
	if g.Board[to] != Empty {
		return -1, ErrDestinationNotEmpty
	}

	if areAdjacent(from, to) {
		g.Board[from] = Empty
		g.Board[to] = Tiger
		g.Turn = TurnGoat
		return -1, nil
	}

	// Not adjacent: only legal as a capture jump. The jumped goat must sit
	// between from and to on a straight line and connect to both.
	goatPos, ok := g.captureTarget(from, to)
	if !ok {
		return -1, ErrNoCaptureLine
	}
	g.Board[goatPos] = Empty
	g.Board[from] = Empty
	g.Board[to] = Tiger
	g.GoatsCaptured++
	g.Turn = TurnGoat
	return goatPos, nil
}

// captureTarget finds the goat a tiger at from would capture by landing on
// to. Requires to to be empty.
func (g *Game) captureTarget(from, to int) (int, bool) {
	for _, adj := range AdjacentPositions(from) {
		if g.Board[adj] != Goat {
			continue
		}
		if areAdjacent(adj, to) && InLine(from, adj, to) {
			return adj, true
		}
	}
	return -1, false
}

// MoveGoat moves a goat to an adjacent empty cell during the maneuver phase,
// subject to the repetition rule: the resulting board must not match any
// signature already in this session's history.
func (g *Game) MoveGoat(from, to int) error {
	if g.Phase != PhaseManeuver {
		return ErrWrongPhase
	}
	if g.Turn != TurnGoat {
		return ErrWrongTurn
	}
	if !ValidPosition(from) || !ValidPosition(to) {
		return ErrOutOfRange
	}
	if g.Board[from] != Goat {
		return ErrNoPieceAtSource
	}
	if g.Board[to] != Empty {
		return ErrDestinationNotEmpty
	}
	if !areAdjacent(from, to) {
		return ErrNotAdjacent
	}

	// Apply tentatively, then check the resulting signature.
	g.Board[from] = Empty
	g.Board[to] = Goat
	sig := g.Signature()
	if _, seen := g.history[sig]; seen {
		g.Board[from] = Goat
		g.Board[to] = Empty
		return ErrRepeatedPosition
	}

	g.history[sig] = struct{}{}
	g.Turn = TurnTiger
	return nil
}

// TigerLegalMoves returns every destination the tiger at pos can reach,
// adjacent steps and capture jumps alike. Empty if pos holds no tiger.
func (g *Game) TigerLegalMoves(pos int) []int {
	if !ValidPosition(pos) || g.Board[pos] != Tiger {
		return nil
	}

	var moves []int
	for _, adj := range AdjacentPositions(pos) {
		if g.Board[adj] == Empty {
			moves = append(moves, adj)
		}
	}
	for _, adj := range AdjacentPositions(pos) {
		if g.Board[adj] != Goat {
			continue
		}
		for _, landing := range AdjacentPositions(adj) {
			if landing != pos && g.Board[landing] == Empty && InLine(pos, adj, landing) {
				moves = append(moves, landing)
			}
		}
	}
	return moves
}

// HasTigerLegalMoves reports whether any tiger on the board can move.
func (g *Game) HasTigerLegalMoves() bool {
	for i := 0; i < BoardSize; i++ {
		if g.Board[i] == Tiger && len(g.TigerLegalMoves(i)) > 0 {
			return true
		}
	}
	return false
}

// Winner outcome reasons.
const (
	ReasonCaptures = "tigers_captured_5_goats"
	ReasonBlocked  = "tigers_blocked"
)

// CheckWinner returns the winning side and the reason, or "" if the game is
// still open. It never mutates state, so repeated calls agree.
func (g *Game) CheckWinner() (winner, reason string) {
	if g.GoatsCaptured >= CaptureGoal {
		return TurnTiger, ReasonCaptures
	}
	if g.Phase >= PhaseManeuver && !g.HasTigerLegalMoves() {
		return TurnGoat, ReasonBlocked
	}
	return "", ""
}

// BoardSlice returns the board as a plain int slice for serialization.
func (g *Game) BoardSlice() []int {
	cells := make([]int, BoardSize)
	for i, c := range g.Board {
		cells[i] = int(c)
	}
	return cells
}
