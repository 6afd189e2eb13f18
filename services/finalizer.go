package services

import (
	"context"
	"log"
	"time"

	"baghchal-server/game"
	"baghchal-server/models"
)

// Finalizer settles a terminal game session: ratings, outcome log, replay,
// then teardown of every queue binding and durable trace of the match. It
// is invoked only by the session registry.
type Finalizer struct {
	Elo     *EloService
	Logs    *GameLogService
	Replays *ReplayService
	Store   *MatchStore
}

func NewFinalizer(elo *EloService, logs *GameLogService, replays *ReplayService, store *MatchStore) *Finalizer {
	return &Finalizer{Elo: elo, Logs: logs, Replays: replays, Store: store}
}

// Finalize runs the full settlement. Collaborator failures are logged and do
// not stop teardown: the match must be released regardless.
func (f *Finalizer) Finalize(ctx context.Context, rec *MatchRecord, winner string, goatsCaptured, totalMoves int, duration time.Duration) {
	goatID, tigerID := rec.Player1, rec.Player2
	winnerID, loserID := goatID, tigerID
	if winner == game.TurnTiger {
		winnerID, loserID = tigerID, goatID
	}

	elo, err := f.Elo.UpdateRatings(winnerID, loserID, false)
	if err != nil {
		log.Printf("[FINALIZER] rating update failed for match %s: %v", rec.ID, err)
	}

	entry := &models.GameLog{
		MatchID:         rec.ID,
		TigerPlayerID:   tigerID,
		GoatPlayerID:    goatID,
		WinnerID:        &winnerID,
		Result:          winner + "_win",
		GoatsCaptured:   goatsCaptured,
		TotalMoves:      totalMoves,
		GameDurationSec: int(duration.Seconds()),
	}
	if elo != nil {
		if winner == game.TurnTiger {
			entry.TigerEloBefore, entry.TigerEloAfter = elo.Winner.Before, elo.Winner.After
			entry.GoatEloBefore, entry.GoatEloAfter = elo.Loser.Before, elo.Loser.After
		} else {
			entry.GoatEloBefore, entry.GoatEloAfter = elo.Winner.Before, elo.Winner.After
			entry.TigerEloBefore, entry.TigerEloAfter = elo.Loser.Before, elo.Loser.After
		}
	}
	if err := f.Logs.LogGame(entry); err != nil {
		log.Printf("[FINALIZER] game log failed for match %s: %v", rec.ID, err)
	}

	moves, err := f.Store.Moves(ctx, rec.ID)
	if err != nil {
		log.Printf("[FINALIZER] fetching move list failed for match %s: %v", rec.ID, err)
	}
	if err := f.Replays.SaveReplay(rec.ID, goatID, tigerID, winnerID, moves); err != nil {
		log.Printf("[FINALIZER] replay save failed for match %s: %v", rec.ID, err)
	}

	for _, uid := range []uint{rec.Player1, rec.Player2} {
		f.Store.ClearUserMatch(ctx, uid)
		f.Store.ClearConnected(ctx, rec.ID, uid)
		f.Store.DropHeartbeat(ctx, uid)
	}
	f.Store.DeleteMatchState(ctx, rec.ID)
	log.Printf("[FINALIZER] match %s settled: winner=%d loser=%d", rec.ID, winnerID, loserID)
}
