package services

import (
	"context"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// MatchmakingService pairs waiting players FIFO. All queue state lives in
// Redis; pairing runs under WATCH so two concurrent joins can never both
// believe they popped the same pair.
type MatchmakingService struct {
	Store *MatchStore
}

func NewMatchmakingService(store *MatchStore) *MatchmakingService {
	return &MatchmakingService{Store: store}
}

// PairingResult is returned to a caller that ended up in the popped pair.
type PairingResult struct {
	MatchID  string `json:"matchId"`
	Opponent uint   `json:"opponent"`
	Role     string `json:"role"`
}

// Join refreshes the caller's heartbeat, sweeps dead tickets, re-enqueues
// the caller idempotently and attempts one pairing pass. Returns a result
// only when the caller was one of the paired users.
func (s *MatchmakingService) Join(ctx context.Context, userID uint) (*PairingResult, error) {
	if err := s.Store.HeartbeatUser(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := s.SweepDeadTickets(ctx); err != nil {
		return nil, err
	}

	// A stale binding from an abandoned match must not shadow the new one.
	if oldMatch, err := s.Store.UserMatch(ctx, userID); err != nil {
		return nil, err
	} else if oldMatch != "" {
		s.Store.ClearUserMatch(ctx, userID)
		s.Store.DeleteSnapshot(ctx, oldMatch)
		s.Store.ClearConnected(ctx, oldMatch, userID)
	}

	// Idempotent rejoin: drop any existing ticket before appending a fresh one.
	if err := s.Store.RemoveFromQueue(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.Store.Enqueue(ctx, userID); err != nil {
		return nil, err
	}

	return s.tryPair(ctx, userID)
}

// SweepDeadTickets purges queued users whose heartbeat has lapsed, deleting
// their pairing bindings too. Returns how many tickets were removed.
func (s *MatchmakingService) SweepDeadTickets(ctx context.Context) (int, error) {
	queued, err := s.Store.QueueUsers(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, uid := range queued {
		alive, err := s.Store.UserAlive(ctx, uid)
		if err != nil {
			return removed, err
		}
		if alive {
			continue
		}
		if err := s.Store.RemoveFromQueue(ctx, uid); err != nil {
			return removed, err
		}
		s.Store.ClearUserMatch(ctx, uid)
		removed++
	}
	return removed, nil
}

// SweepStaleBindings drops user->match bindings whose match record has
// already expired, so users who never poll /status are not stuck bound for
// the full binding TTL. Returns how many bindings were dropped.
func (s *MatchmakingService) SweepStaleBindings(ctx context.Context) (int, error) {
	bound, err := s.Store.BoundUsers(ctx)
	if err != nil {
		return 0, err
	}
	dropped := 0
	for _, uid := range bound {
		matchID, err := s.Store.UserMatch(ctx, uid)
		if err != nil {
			return dropped, err
		}
		if matchID == "" {
			continue
		}
		rec, err := s.Store.Match(ctx, matchID)
		if err != nil {
			return dropped, err
		}
		if rec == nil {
			s.Store.ClearUserMatch(ctx, uid)
			dropped++
		}
	}
	return dropped, nil
}

// tryPair pops the two oldest tickets under WATCH and creates a match. A
// lost WATCH means another join already paired; the attempt is simply
// abandoned and retried on the next join or poll.
func (s *MatchmakingService) tryPair(ctx context.Context, callerID uint) (*PairingResult, error) {
	var p1Cmd, p2Cmd *redis.StringCmd

	err := s.Store.rdb.Watch(ctx, func(tx *redis.Tx) error {
		length, err := tx.LLen(ctx, matchmakingQueueKey).Result()
		if err != nil {
			return err
		}
		if length < 2 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			p1Cmd = pipe.LPop(ctx, matchmakingQueueKey)
			p2Cmd = pipe.LPop(ctx, matchmakingQueueKey)
			return nil
		})
		return err
	}, matchmakingQueueKey)

	if errors.Is(err, redis.TxFailedErr) {
		log.Printf("[MATCHMAKING] pairing lost optimistic race, will retry on next join")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if p1Cmd == nil || p2Cmd == nil {
		return nil, nil // fewer than two tickets
	}

	p1, err1 := parseUserID(p1Cmd.Val())
	p2, err2 := parseUserID(p2Cmd.Val())
	if err1 != nil || err2 != nil {
		log.Printf("[MATCHMAKING] dropped unparseable tickets %q / %q", p1Cmd.Val(), p2Cmd.Val())
		return nil, nil
	}

	// Liveness is re-checked after the pop: a stale check before the pop
	// would just compound the race.
	if alive, _ := s.Store.UserAlive(ctx, p1); !alive {
		s.Store.Requeue(ctx, p2)
		return nil, nil
	}
	if alive, _ := s.Store.UserAlive(ctx, p2); !alive {
		s.Store.Requeue(ctx, p1)
		return nil, nil
	}
	if p1 == p2 {
		// Should be unreachable; requeue cleanly rather than corrupt the queue.
		log.Printf("[MATCHMAKING] duplicate ticket pop for user %d, requeueing", p1)
		s.Store.Requeue(ctx, p1)
		return nil, nil
	}

	matchID := uuid.NewString()
	if err := s.Store.CreateMatch(ctx, matchID, p1, p2); err != nil {
		return nil, err
	}
	log.Printf("[MATCHMAKING] match %s created: goat=%d tiger=%d", matchID, p1, p2)

	switch callerID {
	case p1:
		return &PairingResult{MatchID: matchID, Opponent: p2, Role: "goat"}, nil
	case p2:
		return &PairingResult{MatchID: matchID, Opponent: p1, Role: "tiger"}, nil
	default:
		return nil, nil
	}
}

// Cancel drops the user's ticket and any match binding.
func (s *MatchmakingService) Cancel(ctx context.Context, userID uint) error {
	if err := s.Store.RemoveFromQueue(ctx, userID); err != nil {
		return err
	}
	if matchID, _ := s.Store.UserMatch(ctx, userID); matchID != "" {
		s.Store.ClearConnected(ctx, matchID, userID)
	}
	s.Store.ClearUserMatch(ctx, userID)
	s.Store.DropHeartbeat(ctx, userID)
	return nil
}

// --- Fiber handlers ---

// StartMatchmaking handles POST /matchmaking/start.
func (s *MatchmakingService) StartMatchmaking(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	result, err := s.Join(c.Context(), userID)
	if err != nil {
		log.Printf("[MATCHMAKING] join failed for user %d: %v", userID, err)
		return c.Status(500).JSON(fiber.Map{"error": "matchmaking unavailable"})
	}
	if result != nil {
		return c.JSON(result)
	}
	return c.JSON(fiber.Map{"status": "queued", "message": "Waiting for opponent"})
}

// CancelMatchmaking handles POST /matchmaking/cancel.
func (s *MatchmakingService) CancelMatchmaking(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)
	if err := s.Cancel(c.Context(), userID); err != nil {
		log.Printf("[MATCHMAKING] cancel failed for user %d: %v", userID, err)
		return c.Status(500).JSON(fiber.Map{"error": "matchmaking unavailable"})
	}
	return c.JSON(fiber.Map{"status": "cancelled"})
}

// Heartbeat handles POST /matchmaking/heartbeat.
func (s *MatchmakingService) Heartbeat(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)
	if err := s.Store.HeartbeatUser(c.Context(), userID); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "matchmaking unavailable"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// Status handles GET /matchmaking/status: poll-based discovery of a
// completed pairing for clients not actively pushed to.
func (s *MatchmakingService) Status(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)
	ctx := c.Context()

	// Polling counts as presence while the user still holds a ticket.
	queued, err := s.Store.QueueUsers(ctx)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "matchmaking unavailable"})
	}
	for _, uid := range queued {
		if uid == userID {
			if err := s.Store.HeartbeatUser(ctx, userID); err != nil {
				return c.Status(500).JSON(fiber.Map{"error": "matchmaking unavailable"})
			}
			break
		}
	}

	matchID, err := s.Store.UserMatch(ctx, userID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "matchmaking unavailable"})
	}
	if matchID == "" {
		return c.JSON(fiber.Map{"status": "waiting"})
	}

	rec, err := s.Store.Match(ctx, matchID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "matchmaking unavailable"})
	}
	if rec == nil {
		// The match expired out from under the binding.
		s.Store.ClearUserMatch(ctx, userID)
		return c.JSON(fiber.Map{"status": "waiting"})
	}

	return c.JSON(PairingResult{
		MatchID:  matchID,
		Opponent: rec.Opponent(userID),
		Role:     rec.RoleOf(userID),
	})
}

// LeaveMatch handles POST /matchmaking/leave: abandon an active match and
// release all its state.
func (s *MatchmakingService) LeaveMatch(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)
	ctx := c.Context()

	matchID, err := s.Store.UserMatch(ctx, userID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "matchmaking unavailable"})
	}
	if matchID == "" {
		return c.JSON(fiber.Map{"status": "not_in_match", "message": "No active match found"})
	}

	if rec, _ := s.Store.Match(ctx, matchID); rec != nil {
		for _, uid := range []uint{rec.Player1, rec.Player2} {
			s.Store.ClearUserMatch(ctx, uid)
			s.Store.ClearConnected(ctx, matchID, uid)
			s.Store.DropHeartbeat(ctx, uid)
		}
	}
	s.Store.DeleteMatchState(ctx, matchID)
	return c.JSON(fiber.Map{"status": "left", "message": "Successfully left the match"})
}
