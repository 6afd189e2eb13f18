package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"baghchal-server/game"
)

// Channel is the outbound half of a player connection. The registry only
// ever writes JSON messages; send failures are logged and non-fatal.
type Channel interface {
	WriteJSON(v interface{}) error
}

// MoveIntent is an inbound place/move request from a channel.
type MoveIntent struct {
	Type     string `json:"type"`
	Position *int   `json:"position,omitempty"`
	From     *int   `json:"from,omitempty"`
	To       *int   `json:"to,omitempty"`
}

// MoveApplied describes one accepted move for broadcasts and the replay list.
type MoveApplied struct {
	Type     string `json:"type"`
	Position *int   `json:"position,omitempty"`
	From     *int   `json:"from,omitempty"`
	To       *int   `json:"to,omitempty"`
	Captured *int   `json:"captured,omitempty"`
}

var (
	ErrMatchNotFound  = errors.New("match not found")
	ErrNotParticipant = errors.New("user not in match")
)

// liveSession is one match's in-memory state. Its mutex is the per-match
// serialization boundary: every mutation (moves, hydration, eviction) runs
// with it held.
type liveSession struct {
	mu        sync.Mutex
	matchID   string
	rec       *MatchRecord
	game      *game.Game
	channels  map[Channel]uint // channel -> user id
	startedAt time.Time
	moveCount int
	finished  bool
}

// SessionRegistry owns the live sessions and their connections, keyed by
// match id. It is the only component that mutates a game.
type SessionRegistry struct {
	mu        sync.Mutex
	sessions  map[string]*liveSession
	store     *MatchStore
	finalizer *Finalizer
}

func NewSessionRegistry(store *MatchStore, finalizer *Finalizer) *SessionRegistry {
	return &SessionRegistry{
		sessions:  make(map[string]*liveSession),
		store:     store,
		finalizer: finalizer,
	}
}

// getOrCreateSession returns the live session for a match, creating the
// shell if needed. The session lock is acquired before the registry lock is
// released, so a concurrent last-channel eviction can never drop the session
// between the map lookup and the caller's channel registration. Lock order:
// registry before session; the caller unlocks sess.mu.
func (r *SessionRegistry) getOrCreateSession(matchID string, rec *MatchRecord) *liveSession {
	r.mu.Lock()
	sess, ok := r.sessions[matchID]
	if !ok {
		sess = &liveSession{
			matchID:   matchID,
			rec:       rec,
			channels:  make(map[Channel]uint),
			startedAt: time.Now(),
		}
		r.sessions[matchID] = sess
	}
	sess.mu.Lock()
	r.mu.Unlock()
	return sess
}

func (r *SessionRegistry) lookupSession(matchID string) *liveSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[matchID]
}

// Connect verifies the user belongs to the match, hydrates or creates the
// game, registers the channel and sends the full starting snapshot. Returns
// the user's role.
func (r *SessionRegistry) Connect(ctx context.Context, matchID string, userID uint, ch Channel) (string, error) {
	rec, err := r.store.Match(ctx, matchID)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", ErrMatchNotFound
	}
	role := rec.RoleOf(userID)
	if role == "" {
		return "", ErrNotParticipant
	}

	sess := r.getOrCreateSession(matchID, rec) // returns with sess.mu held
	if sess.game == nil {
		if err := r.hydrate(ctx, sess); err != nil {
			sess.mu.Unlock()
			return "", err
		}
	}
	sess.channels[ch] = userID
	if err := r.store.MarkConnected(ctx, matchID, userID); err != nil {
		log.Printf("[REGISTRY] failed to mark %d connected on %s: %v", userID, matchID, err)
	}

	both := r.store.Connected(ctx, matchID, rec.Player1) &&
		r.store.Connected(ctx, matchID, rec.Player2)

	send(ch, map[string]interface{}{
		"type":                   "start",
		"board":                  sess.game.BoardSlice(),
		"turn":                   sess.game.Turn,
		"phase":                  sess.game.Phase,
		"role":                   role,
		"goats_placed":           sess.game.GoatsPlaced,
		"goats_captured":         sess.game.GoatsCaptured,
		"both_players_connected": both,
	})
	if both {
		sess.broadcast(map[string]interface{}{
			"type":    "both_connected",
			"message": "Both players connected. Game can begin!",
		})
	}
	sess.mu.Unlock()

	log.Printf("[REGISTRY] user %d connected to match %s as %s", userID, matchID, role)
	return role, nil
}

// hydrate loads the session's game from the durable snapshot, or builds a
// fresh board when no meaningful snapshot exists. Caller holds sess.mu.
func (r *SessionRegistry) hydrate(ctx context.Context, sess *liveSession) error {
	snap, err := r.store.LoadSnapshot(ctx, sess.matchID)
	if err != nil {
		return err
	}
	if snap != nil && snap.GoatsPlaced > 0 {
		sess.game = game.FromSnapshot(*snap)
		log.Printf("[REGISTRY] match %s hydrated from snapshot (placed=%d captured=%d)",
			sess.matchID, snap.GoatsPlaced, snap.GoatsCaptured)
	} else {
		sess.game = game.New()
	}
	return nil
}

// Disconnect deregisters a channel. The last channel out persists the
// snapshot and evicts the session; the match itself survives for the
// disconnect-grace window so a reconnect can resume.
func (r *SessionRegistry) Disconnect(ctx context.Context, matchID string, userID uint, ch Channel) {
	r.store.ClearConnected(ctx, matchID, userID)

	sess := r.lookupSession(matchID)
	if sess == nil {
		return
	}

	sess.mu.Lock()
	if _, ok := sess.channels[ch]; !ok {
		sess.mu.Unlock()
		return
	}
	delete(sess.channels, ch)
	role := sess.rec.RoleOf(userID)
	empty := len(sess.channels) == 0

	if !empty {
		sess.broadcast(map[string]interface{}{
			"type":    "player_disconnected",
			"role":    role,
			"message": role + " player disconnected",
		})
	} else if !sess.finished {
		if err := r.store.SaveSnapshot(ctx, matchID, sess.game.Snapshot()); err != nil {
			log.Printf("[REGISTRY] failed to persist snapshot for %s on eviction: %v", matchID, err)
		}
		bothGone := !r.store.Connected(ctx, matchID, sess.rec.Player1) &&
			!r.store.Connected(ctx, matchID, sess.rec.Player2)
		if bothGone {
			r.store.ExpireMatchState(ctx, matchID)
		}
	}
	sess.mu.Unlock()

	if empty {
		r.evictIfIdle(matchID, sess)
		log.Printf("[REGISTRY] match %s evicted from memory (no live channels)", matchID)
	}
}

// evictIfIdle drops the session from the map unless a channel re-registered
// in the meantime. Lock order: registry before session.
func (r *SessionRegistry) evictIfIdle(matchID string, sess *liveSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if len(sess.channels) == 0 && r.sessions[matchID] == sess {
		delete(r.sessions, matchID)
	}
}

// SubmitMove routes one intent from a channel into the match's engine. Wrong
// turns and illegal moves are unicast back to the sender; accepted moves are
// persisted and broadcast, and a terminal result triggers finalization.
func (r *SessionRegistry) SubmitMove(ctx context.Context, matchID string, ch Channel, intent MoveIntent) {
	sess := r.lookupSession(matchID)
	if sess == nil {
		send(ch, errMsg("match not found"))
		return
	}

	sess.mu.Lock()

	userID, ok := sess.channels[ch]
	if !ok {
		sess.mu.Unlock()
		send(ch, errMsg("not connected to this match"))
		return
	}
	if sess.finished {
		sess.mu.Unlock()
		send(ch, errMsg("game is already over"))
		return
	}
	role := sess.rec.RoleOf(userID)
	if sess.game.Turn != role {
		sess.mu.Unlock()
		send(ch, errMsg("not your turn"))
		return
	}

	applied, err := dispatch(sess.game, role, intent)
	if err != nil {
		sess.mu.Unlock()
		send(ch, errMsg(err.Error()))
		return
	}

	if err := r.store.SaveSnapshot(ctx, matchID, sess.game.Snapshot()); err != nil {
		log.Printf("[REGISTRY] failed to persist snapshot for %s: %v", matchID, err)
	}
	if err := r.store.AppendMove(ctx, matchID, applied); err != nil {
		log.Printf("[REGISTRY] failed to append move for %s: %v", matchID, err)
	}
	sess.moveCount++

	sess.broadcast(map[string]interface{}{
		"type":           "update",
		"board":          sess.game.BoardSlice(),
		"turn":           sess.game.Turn,
		"phase":          sess.game.Phase,
		"move":           applied,
		"goats_placed":   sess.game.GoatsPlaced,
		"goats_captured": sess.game.GoatsCaptured,
	})

	winner, reason := sess.game.CheckWinner()
	if winner == "" {
		sess.mu.Unlock()
		return
	}

	sess.finished = true
	sess.game.Phase = game.PhaseFinished
	sess.broadcast(map[string]interface{}{
		"type":        "game_over",
		"winner":      winner,
		"reason":      reason,
		"final_board": sess.game.BoardSlice(),
	})
	rec := sess.rec
	captured := sess.game.GoatsCaptured
	moves := sess.moveCount
	duration := time.Since(sess.startedAt)
	sess.mu.Unlock()

	log.Printf("[REGISTRY] match %s finished: winner=%s reason=%s", matchID, winner, reason)
	r.finalizer.Finalize(ctx, rec, winner, captured, moves, duration)

	r.mu.Lock()
	delete(r.sessions, matchID)
	r.mu.Unlock()
}

// dispatch applies an intent to the engine per the sender's role.
func dispatch(g *game.Game, role string, intent MoveIntent) (*MoveApplied, error) {
	switch intent.Type {
	case "place":
		if intent.Position == nil {
			return nil, errors.New("position required")
		}
		if err := g.PlaceGoat(*intent.Position); err != nil {
			return nil, err
		}
		return &MoveApplied{Type: "place", Position: intent.Position}, nil

	case "move":
		if intent.From == nil || intent.To == nil {
			return nil, errors.New("from and to positions required")
		}
		if role == game.TurnTiger {
			captured, err := g.MoveTiger(*intent.From, *intent.To)
			if err != nil {
				return nil, err
			}
			applied := &MoveApplied{Type: "move", From: intent.From, To: intent.To}
			if captured >= 0 {
				applied.Captured = &captured
			}
			return applied, nil
		}
		if err := g.MoveGoat(*intent.From, *intent.To); err != nil {
			return nil, err
		}
		return &MoveApplied{Type: "move", From: intent.From, To: intent.To}, nil

	default:
		return nil, errors.New("unknown move type")
	}
}

// broadcast sends to every channel on the session. Caller holds sess.mu.
func (sess *liveSession) broadcast(msg interface{}) {
	for ch := range sess.channels {
		send(ch, msg)
	}
}

func send(ch Channel, msg interface{}) {
	if err := ch.WriteJSON(msg); err != nil {
		log.Printf("[REGISTRY] channel send failed: %v", err)
	}
}

func errMsg(message string) map[string]interface{} {
	return map[string]interface{}{"type": "error", "message": message}
}
