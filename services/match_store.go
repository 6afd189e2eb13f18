package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"baghchal-server/game"

	"github.com/redis/go-redis/v9"
)

// Redis key layout. Everything about a live match lives under these keys;
// Postgres only sees finished games.
const (
	matchmakingQueueKey = "queue:matchmaking"

	heartbeatTTL = 30 * time.Second // liveness window for queued/idle users
	matchTTL     = time.Hour        // hard ceiling on an active match
	// disconnectGrace is how long a match survives with zero live channels
	// before its durable state expires.
	disconnectGrace = 5 * time.Minute
)

func heartbeatKey(userID uint) string         { return fmt.Sprintf("heartbeat:%d", userID) }
func userMatchKey(userID uint) string         { return fmt.Sprintf("user_match:%d", userID) }
func matchKey(matchID string) string          { return "match:" + matchID }
func snapshotKey(matchID string) string       { return "game:" + matchID }
func movesKey(matchID string) string          { return "replay_moves:" + matchID }
func connKey(matchID string, uid uint) string { return fmt.Sprintf("ws_conn:%s:%d", matchID, uid) }

// MatchRecord binds two users and their fixed roles to a match id.
// Player1 is always the goat side, Player2 the tiger side.
type MatchRecord struct {
	ID        string
	Player1   uint
	Player2   uint
	Status    string
	CreatedAt int64
}

// RoleOf returns the user's role in this match, or "" for non-participants.
func (m *MatchRecord) RoleOf(userID uint) string {
	switch userID {
	case m.Player1:
		return game.TurnGoat
	case m.Player2:
		return game.TurnTiger
	default:
		return ""
	}
}

// Opponent returns the other participant's id.
func (m *MatchRecord) Opponent(userID uint) uint {
	if userID == m.Player1 {
		return m.Player2
	}
	return m.Player1
}

// MatchStore is the typed adapter over Redis. Core logic never touches raw
// string-encoded values; every method parses into native types here.
type MatchStore struct {
	rdb *redis.Client
}

func NewMatchStore(rdb *redis.Client) *MatchStore {
	return &MatchStore{rdb: rdb}
}

// --- liveness ---

// HeartbeatUser refreshes the user's liveness window.
func (s *MatchStore) HeartbeatUser(ctx context.Context, userID uint) error {
	return s.rdb.Set(ctx, heartbeatKey(userID), time.Now().Unix(), heartbeatTTL).Err()
}

// UserAlive reports whether the user's heartbeat is still within the window.
func (s *MatchStore) UserAlive(ctx context.Context, userID uint) (bool, error) {
	err := s.rdb.Get(ctx, heartbeatKey(userID)).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *MatchStore) DropHeartbeat(ctx context.Context, userID uint) {
	s.rdb.Del(ctx, heartbeatKey(userID))
}

// --- matchmaking queue ---

// QueueUsers returns the queued user ids, oldest first. Unparseable entries
// are dropped from the result (and will be swept by liveness checks).
func (s *MatchStore) QueueUsers(ctx context.Context) ([]uint, error) {
	items, err := s.rdb.LRange(ctx, matchmakingQueueKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	users := make([]uint, 0, len(items))
	for _, item := range items {
		if id, err := parseUserID(item); err == nil {
			users = append(users, id)
		}
	}
	return users, nil
}

func (s *MatchStore) Enqueue(ctx context.Context, userID uint) error {
	return s.rdb.RPush(ctx, matchmakingQueueKey, formatUserID(userID)).Err()
}

// Requeue puts a popped user back at the head of the queue.
func (s *MatchStore) Requeue(ctx context.Context, userID uint) error {
	return s.rdb.LPush(ctx, matchmakingQueueKey, formatUserID(userID)).Err()
}

// RemoveFromQueue deletes every ticket for the user. Safe when absent.
func (s *MatchStore) RemoveFromQueue(ctx context.Context, userID uint) error {
	return s.rdb.LRem(ctx, matchmakingQueueKey, 0, formatUserID(userID)).Err()
}

// --- match records ---

// CreateMatch writes the match record and binds both users to it.
func (s *MatchStore) CreateMatch(ctx context.Context, matchID string, p1, p2 uint) error {
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, matchKey(matchID), map[string]interface{}{
		"p1":         formatUserID(p1),
		"p2":         formatUserID(p2),
		"status":     "active",
		"created_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, matchKey(matchID), matchTTL)
	pipe.Set(ctx, userMatchKey(p1), matchID, matchTTL)
	pipe.Set(ctx, userMatchKey(p2), matchID, matchTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Match loads a match record. Returns (nil, nil) when none exists.
func (s *MatchStore) Match(ctx context.Context, matchID string) (*MatchRecord, error) {
	data, err := s.rdb.HGetAll(ctx, matchKey(matchID)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	p1, err := parseUserID(data["p1"])
	if err != nil {
		return nil, fmt.Errorf("match %s: bad p1: %w", matchID, err)
	}
	p2, err := parseUserID(data["p2"])
	if err != nil {
		return nil, fmt.Errorf("match %s: bad p2: %w", matchID, err)
	}
	created, _ := strconv.ParseInt(data["created_at"], 10, 64)
	return &MatchRecord{
		ID:        matchID,
		Player1:   p1,
		Player2:   p2,
		Status:    data["status"],
		CreatedAt: created,
	}, nil
}

// UserMatch returns the match id the user is bound to, or "".
func (s *MatchStore) UserMatch(ctx context.Context, userID uint) (string, error) {
	matchID, err := s.rdb.Get(ctx, userMatchKey(userID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return matchID, err
}

func (s *MatchStore) ClearUserMatch(ctx context.Context, userID uint) {
	s.rdb.Del(ctx, userMatchKey(userID))
}

// BoundUsers returns every user id currently holding a match binding.
func (s *MatchStore) BoundUsers(ctx context.Context) ([]uint, error) {
	var users []uint
	iter := s.rdb.Scan(ctx, 0, "user_match:*", 100).Iterator()
	for iter.Next(ctx) {
		if id, err := parseUserID(strings.TrimPrefix(iter.Val(), "user_match:")); err == nil {
			users = append(users, id)
		}
	}
	return users, iter.Err()
}

// DeleteMatchState removes every durable trace of a match: the record, the
// session snapshot and the accumulated move list.
func (s *MatchStore) DeleteMatchState(ctx context.Context, matchID string) {
	s.rdb.Del(ctx, matchKey(matchID), snapshotKey(matchID), movesKey(matchID))
}

// ExpireMatchState puts the match's durable state on the disconnect-grace
// clock instead of deleting it, so a reconnect can resume.
func (s *MatchStore) ExpireMatchState(ctx context.Context, matchID string) {
	s.rdb.Expire(ctx, matchKey(matchID), disconnectGrace)
	s.rdb.Expire(ctx, snapshotKey(matchID), disconnectGrace)
	s.rdb.Expire(ctx, movesKey(matchID), disconnectGrace)
}

// --- session snapshots ---

// SaveSnapshot persists the game's durable state under the match id.
func (s *MatchStore) SaveSnapshot(ctx context.Context, matchID string, snap game.Snapshot) error {
	board, err := json.Marshal(snap.Board)
	if err != nil {
		return err
	}
	history, err := json.Marshal(snap.History)
	if err != nil {
		return err
	}
	return s.rdb.HSet(ctx, snapshotKey(matchID), map[string]interface{}{
		"board":          string(board),
		"turn":           snap.Turn,
		"goats_placed":   snap.GoatsPlaced,
		"goats_captured": snap.GoatsCaptured,
		"phase":          snap.Phase,
		"history":        string(history),
	}).Err()
}

// LoadSnapshot reads a stored snapshot. Returns (nil, nil) when none exists.
func (s *MatchStore) LoadSnapshot(ctx context.Context, matchID string) (*game.Snapshot, error) {
	data, err := s.rdb.HGetAll(ctx, snapshotKey(matchID)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	snap := &game.Snapshot{Turn: data["turn"]}
	if raw := data["board"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &snap.Board); err != nil {
			return nil, fmt.Errorf("snapshot %s: bad board: %w", matchID, err)
		}
	}
	if raw := data["history"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &snap.History); err != nil {
			return nil, fmt.Errorf("snapshot %s: bad history: %w", matchID, err)
		}
	}
	snap.GoatsPlaced, _ = strconv.Atoi(data["goats_placed"])
	snap.GoatsCaptured, _ = strconv.Atoi(data["goats_captured"])
	snap.Phase, _ = strconv.Atoi(data["phase"])
	return snap, nil
}

func (s *MatchStore) DeleteSnapshot(ctx context.Context, matchID string) {
	s.rdb.Del(ctx, snapshotKey(matchID))
}

// --- connection presence ---

func (s *MatchStore) MarkConnected(ctx context.Context, matchID string, userID uint) error {
	return s.rdb.Set(ctx, connKey(matchID, userID), "connected", matchTTL).Err()
}

func (s *MatchStore) ClearConnected(ctx context.Context, matchID string, userID uint) {
	s.rdb.Del(ctx, connKey(matchID, userID))
}

// Connected reports whether the user has a live channel flag on the match.
func (s *MatchStore) Connected(ctx context.Context, matchID string, userID uint) bool {
	err := s.rdb.Get(ctx, connKey(matchID, userID)).Err()
	return err == nil
}

// --- move list ---

// AppendMove records one accepted move on the match's replay list.
func (s *MatchStore) AppendMove(ctx context.Context, matchID string, move interface{}) error {
	raw, err := json.Marshal(move)
	if err != nil {
		return err
	}
	return s.rdb.RPush(ctx, movesKey(matchID), raw).Err()
}

// Moves returns the accumulated move list in play order.
func (s *MatchStore) Moves(ctx context.Context, matchID string) ([]json.RawMessage, error) {
	items, err := s.rdb.LRange(ctx, movesKey(matchID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	moves := make([]json.RawMessage, len(items))
	for i, item := range items {
		moves[i] = json.RawMessage(item)
	}
	return moves, nil
}

func formatUserID(userID uint) string { return strconv.FormatUint(uint64(userID), 10) }

func parseUserID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
