package game

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stateOf returns a comparable snapshot. History order is not defined, so it
// is sorted before comparison.
func stateOf(g *Game) Snapshot {
	s := g.Snapshot()
	sort.Strings(s.History)
	return s
}

func countCells(g *Game, c Cell) int {
	n := 0
	for i := 0; i < BoardSize; i++ {
		if g.Board[i] == c {
			n++
		}
	}
	return n
}

func checkInvariants(t *testing.T, g *Game) {
	t.Helper()
	require.Equal(t, 4, countCells(g, Tiger), "tiger count must stay four")
	require.Equal(t, g.GoatsPlaced, countCells(g, Goat)+g.GoatsCaptured,
		"goats on board plus captured must equal goats placed")
	require.LessOrEqual(t, g.GoatsPlaced, TotalGoats)
}

func TestNewGame(t *testing.T) {
	g := New()

	require.Equal(t, TurnGoat, g.Turn)
	require.Equal(t, PhasePlacement, g.Phase)
	require.Equal(t, 0, g.GoatsPlaced)
	require.Equal(t, 0, g.GoatsCaptured)
	for _, pos := range []int{0, 4, 20, 24} {
		assert.Equal(t, Tiger, g.Board[pos], "corner %d", pos)
	}
	require.Equal(t, 4, countCells(g, Tiger))
	require.Equal(t, 0, countCells(g, Goat))

	winner, reason := g.CheckWinner()
	require.Empty(t, winner)
	require.Empty(t, reason)
}

func TestPlaceGoatRejectionsLeaveStateUntouched(t *testing.T) {
	g := New()
	before := stateOf(g)

	cases := []struct {
		name string
		pos  int
		want error
	}{
		{"occupied by tiger", 0, ErrOccupied},
		{"negative", -1, ErrOutOfRange},
		{"past end", 25, ErrOutOfRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := g.PlaceGoat(tc.pos)
			require.ErrorIs(t, err, tc.want)
			require.Equal(t, before, stateOf(g))
		})
	}

	// Out of turn: goat just placed, tiger to move.
	require.NoError(t, g.PlaceGoat(2))
	after := stateOf(g)
	require.ErrorIs(t, g.PlaceGoat(3), ErrWrongTurn)
	require.Equal(t, after, stateOf(g))
}

func TestMoveGoatRejectedDuringPlacement(t *testing.T) {
	g := New()
	require.NoError(t, g.PlaceGoat(6))
	_, err := g.MoveTiger(0, 1)
	require.NoError(t, err)

	require.ErrorIs(t, g.MoveGoat(6, 7), ErrWrongPhase)
}

func TestPlacementPhaseTransition(t *testing.T) {
	g := New()

	// The twenty cells the goat side fills, leaving 0 and 1 free so the
	// tiger can shuffle between them.
	spots := []int{2, 3, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 21, 22, 23}
	require.Len(t, spots, TotalGoats)

	tigerAt := 0
	for i, pos := range spots {
		require.NoError(t, g.PlaceGoat(pos), "placement %d at %d", i+1, pos)
		require.Equal(t, i+1, g.GoatsPlaced)
		checkInvariants(t, g)

		if i < len(spots)-1 {
			require.Equal(t, PhasePlacement, g.Phase)
			dst := 1 - tigerAt
			captured, err := g.MoveTiger(tigerAt, dst)
			require.NoError(t, err)
			require.Equal(t, -1, captured)
			tigerAt = dst
		}
	}

	require.Equal(t, PhaseManeuver, g.Phase)
	require.Equal(t, TurnTiger, g.Turn)
	require.ErrorIs(t, g.PlaceGoat(1), ErrWrongPhase)
}

func TestTigerCaptureJump(t *testing.T) {
	g := New()
	require.NoError(t, g.PlaceGoat(6))

	captured, err := g.MoveTiger(0, 12)
	require.NoError(t, err)
	require.Equal(t, 6, captured)
	require.Equal(t, Empty, g.Board[0])
	require.Equal(t, Empty, g.Board[6])
	require.Equal(t, Tiger, g.Board[12])
	require.Equal(t, 1, g.GoatsCaptured)
	require.Equal(t, TurnGoat, g.Turn)
	checkInvariants(t, g)
}

func TestTigerJumpWithoutLineRejected(t *testing.T) {
	g := New()
	require.NoError(t, g.PlaceGoat(6))
	before := stateOf(g)

	_, err := g.MoveTiger(0, 7) // bent path over the goat at 6
	require.ErrorIs(t, err, ErrNoCaptureLine)
	require.Equal(t, before, stateOf(g))

	_, err = g.MoveTiger(0, 12)
	require.NoError(t, err)
}

func TestMoveTigerRejections(t *testing.T) {
	g := New()
	before := stateOf(g)

	_, err := g.MoveTiger(0, 1)
	require.ErrorIs(t, err, ErrWrongTurn)
	require.Equal(t, before, stateOf(g))

	require.NoError(t, g.PlaceGoat(6))
	before = stateOf(g)

	_, err = g.MoveTiger(1, 2) // no tiger at source
	require.ErrorIs(t, err, ErrNoPieceAtSource)
	_, err = g.MoveTiger(0, 6) // goat sits there
	require.ErrorIs(t, err, ErrDestinationNotEmpty)
	_, err = g.MoveTiger(0, 30)
	require.ErrorIs(t, err, ErrOutOfRange)
	require.Equal(t, before, stateOf(g))
}

// maneuverBoard builds a mid-maneuver position: tigers on their corners,
// the given goats on the board, goat to move.
func maneuverBoard(goats []int, captured int) *Game {
	board := make([]int, BoardSize)
	for _, pos := range []int{0, 4, 20, 24} {
		board[pos] = int(Tiger)
	}
	for _, pos := range goats {
		board[pos] = int(Goat)
	}
	return FromSnapshot(Snapshot{
		Board:         board,
		Turn:          TurnGoat,
		GoatsPlaced:   TotalGoats,
		GoatsCaptured: captured,
		Phase:         PhaseManeuver,
	})
}

func TestRepetitionRule(t *testing.T) {
	g := maneuverBoard([]int{2, 3, 5, 7, 8, 9, 10, 11, 13, 14, 15, 16, 19, 21, 22, 23}, 4)
	checkInvariants(t, g)

	require.NoError(t, g.MoveGoat(7, 6))
	_, err := g.MoveTiger(0, 1)
	require.NoError(t, err)
	require.NoError(t, g.MoveGoat(6, 7))
	_, err = g.MoveTiger(1, 0)
	require.NoError(t, err)
	require.Equal(t, 2, g.HistorySize())

	// Moving the goat back would reproduce the first recorded position.
	before := stateOf(g)
	require.ErrorIs(t, g.MoveGoat(7, 6), ErrRepeatedPosition)
	require.Equal(t, before, stateOf(g))
	require.Equal(t, TurnGoat, g.Turn)
	require.Equal(t, 2, g.HistorySize())

	// A different retreat is still available.
	require.NoError(t, g.MoveGoat(7, 12))
	require.Equal(t, 3, g.HistorySize())
}

func TestMoveGoatRejections(t *testing.T) {
	g := maneuverBoard([]int{6, 7}, 0)
	before := stateOf(g)

	require.ErrorIs(t, g.MoveGoat(6, 7), ErrDestinationNotEmpty)
	require.ErrorIs(t, g.MoveGoat(1, 2), ErrNoPieceAtSource)
	require.ErrorIs(t, g.MoveGoat(6, 18), ErrNotAdjacent)
	require.ErrorIs(t, g.MoveGoat(6, 25), ErrOutOfRange)
	require.Equal(t, before, stateOf(g))
}

func TestTigerWinAtFiveCaptures(t *testing.T) {
	g := maneuverBoard([]int{6, 7, 8, 9, 10, 11, 13, 14, 15, 16, 17, 18, 19, 21, 22, 23}, 4)
	g.Turn = TurnTiger

	captured, err := g.MoveTiger(0, 12)
	require.NoError(t, err)
	require.Equal(t, 6, captured)
	require.Equal(t, CaptureGoal, g.GoatsCaptured)

	winner, reason := g.CheckWinner()
	require.Equal(t, TurnTiger, winner)
	require.Equal(t, ReasonCaptures, reason)

	// CheckWinner is pure: asking again gives the same answer.
	winner2, reason2 := g.CheckWinner()
	require.Equal(t, winner, winner2)
	require.Equal(t, reason, reason2)
	checkInvariants(t, g)
}

func TestGoatWinWhenTigersBlocked(t *testing.T) {
	g := maneuverBoard([]int{1, 2, 3, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 18, 19, 21, 22, 23}, 0)

	require.False(t, g.HasTigerLegalMoves())
	winner, reason := g.CheckWinner()
	require.Equal(t, TurnGoat, winner)
	require.Equal(t, ReasonBlocked, reason)
}

func TestPlacementSequenceEndsInTigersBlocked(t *testing.T) {
	g := New()

	// Full game from the opening: the corner tiger walks the 0-1-6 triangle
	// once (an odd cycle, so 19 moves return it to 0), freeing cells 6 and
	// finally 1 for the goats. The 20th placement, at 1, seals the board
	// with only cell 17 open, out of every tiger's reach.
	placements := []int{
		2, 3, 5, 6, 7, 8, 9, 10, 11, 12,
		13, 14, 15, 16, 18, 19, 21, 22, 23, 1,
	}
	require.Len(t, placements, TotalGoats)

	tigerMoves := [][2]int{{0, 1}, {1, 6}, {6, 0}}
	for len(tigerMoves) < TotalGoats-1 {
		tigerMoves = append(tigerMoves, [2]int{0, 1}, [2]int{1, 0})
	}

	for i, pos := range placements {
		require.NoError(t, g.PlaceGoat(pos), "placement %d at %d", i+1, pos)
		checkInvariants(t, g)
		if i < len(tigerMoves) {
			captured, err := g.MoveTiger(tigerMoves[i][0], tigerMoves[i][1])
			require.NoError(t, err, "tiger move %d", i+1)
			require.Equal(t, -1, captured)
		}
	}

	require.Equal(t, PhaseManeuver, g.Phase)
	require.Equal(t, TurnTiger, g.Turn)
	require.False(t, g.HasTigerLegalMoves())

	winner, reason := g.CheckWinner()
	require.Equal(t, TurnGoat, winner)
	require.Equal(t, ReasonBlocked, reason)
}

func TestBlockedTigersIgnoredDuringPlacement(t *testing.T) {
	// Same hemmed-in board, but still in the placement phase: the blocked
	// condition must not fire before all goats are down.
	board := make([]int, BoardSize)
	for _, pos := range []int{0, 4, 20, 24} {
		board[pos] = int(Tiger)
	}
	for _, pos := range []int{1, 2, 3, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 18, 19, 21, 22, 23} {
		board[pos] = int(Goat)
	}
	g := FromSnapshot(Snapshot{
		Board:       board,
		Turn:        TurnGoat,
		GoatsPlaced: 19,
		Phase:       PhasePlacement,
	})

	winner, reason := g.CheckWinner()
	require.Empty(t, winner)
	require.Empty(t, reason)
}

func TestTigerLegalMoves(t *testing.T) {
	g := New()
	require.NoError(t, g.PlaceGoat(6))

	moves := g.TigerLegalMoves(0)
	assert.ElementsMatch(t, []int{1, 5, 12}, moves)
	assert.Nil(t, g.TigerLegalMoves(2), "no tiger at 2")
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := New()
	require.NoError(t, g.PlaceGoat(6))
	_, err := g.MoveTiger(0, 12)
	require.NoError(t, err)
	require.NoError(t, g.PlaceGoat(7))

	restored := FromSnapshot(g.Snapshot())
	require.Equal(t, stateOf(g), stateOf(restored))
	require.Equal(t, g.Signature(), restored.Signature())

	// The restored game keeps playing from where the original stopped.
	_, err = restored.MoveTiger(12, 2)
	require.NoError(t, err)
	require.Equal(t, 2, restored.GoatsCaptured)
}

func TestFromSnapshotEmptyDefaults(t *testing.T) {
	g := FromSnapshot(Snapshot{})
	fresh := New()
	require.Equal(t, stateOf(fresh), stateOf(g))
}
