package game

// Snapshot is the durable form of a game's mutable state. It round-trips
// through the session store field-for-field.
type Snapshot struct {
	Board         []int    `json:"board"`
	Turn          string   `json:"turn"`
	GoatsPlaced   int      `json:"goats_placed"`
	GoatsCaptured int      `json:"goats_captured"`
	Phase         int      `json:"phase"`
	History       []string `json:"history"`
}

// Snapshot captures the current state.
func (g *Game) Snapshot() Snapshot {
	history := make([]string, 0, len(g.history))
	for sig := range g.history {
		history = append(history, sig)
	}
	return Snapshot{
		Board:         g.BoardSlice(),
		Turn:          g.Turn,
		GoatsPlaced:   g.GoatsPlaced,
		GoatsCaptured: g.GoatsCaptured,
		Phase:         g.Phase,
		History:       history,
	}
}

// FromSnapshot rebuilds a game from a stored snapshot. Missing fields fall
// back to fresh-game defaults.
func FromSnapshot(s Snapshot) *Game {
	g := New()
	if len(s.Board) == BoardSize {
		for i, c := range s.Board {
			g.Board[i] = Cell(c)
		}
	}
	if s.Turn != "" {
		g.Turn = s.Turn
	}
	if s.Phase != 0 {
		g.Phase = s.Phase
	}
	g.GoatsPlaced = s.GoatsPlaced
	g.GoatsCaptured = s.GoatsCaptured
	for _, sig := range s.History {
		g.history[sig] = struct{}{}
	}
	return g
}
