package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinQueuesFirstPlayer(t *testing.T) {
	store, _ := testStore(t)
	mm := NewMatchmakingService(store)
	ctx := context.Background()

	result, err := mm.Join(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, result, "a lone player waits")

	queued, err := store.QueueUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, queued)

	alive, err := store.UserAlive(ctx, 1)
	require.NoError(t, err)
	assert.True(t, alive, "joining refreshes the heartbeat")
}

func TestJoinPairsTwoPlayers(t *testing.T) {
	store, _ := testStore(t)
	mm := NewMatchmakingService(store)
	ctx := context.Background()

	_, err := mm.Join(ctx, 1)
	require.NoError(t, err)

	result, err := mm.Join(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.MatchID)
	assert.Equal(t, uint(1), result.Opponent)
	assert.Equal(t, "tiger", result.Role, "second in queue takes the tiger side")

	// The first player discovers the same match by binding.
	matchID, err := store.UserMatch(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, result.MatchID, matchID)

	rec, err := store.Match(ctx, result.MatchID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, uint(1), rec.Player1)
	assert.Equal(t, uint(2), rec.Player2)
	assert.Equal(t, "goat", rec.RoleOf(1))
	assert.Equal(t, "tiger", rec.RoleOf(2))
	assert.Equal(t, "active", rec.Status)

	queued, err := store.QueueUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, queued, "both tickets consumed")
}

func TestJoinIsIdempotent(t *testing.T) {
	store, _ := testStore(t)
	mm := NewMatchmakingService(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := mm.Join(ctx, 7)
		require.NoError(t, err)
	}

	queued, err := store.QueueUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{7}, queued, "rejoin must never duplicate the ticket")
}

func TestCancelClearsTicketAndLiveness(t *testing.T) {
	store, mr := testStore(t)
	mm := NewMatchmakingService(store)
	ctx := context.Background()

	_, err := mm.Join(ctx, 5)
	require.NoError(t, err)
	require.NoError(t, mm.Cancel(ctx, 5))

	queued, err := store.QueueUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, queued)
	assert.False(t, mr.Exists("heartbeat:5"))
}

func TestSweepDeadTickets(t *testing.T) {
	store, mr := testStore(t)
	mm := NewMatchmakingService(store)
	ctx := context.Background()

	for _, uid := range []uint{1, 2, 3} {
		require.NoError(t, store.HeartbeatUser(ctx, uid))
		require.NoError(t, store.Enqueue(ctx, uid))
	}
	// Only user 3 keeps its heartbeat fresh across the window.
	mr.FastForward(heartbeatTTL + 1)
	require.NoError(t, store.HeartbeatUser(ctx, 3))

	removed, err := mm.SweepDeadTickets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	queued, err := store.QueueUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{3}, queued)
}

func TestSweepStaleBindings(t *testing.T) {
	store, mr := testStore(t)
	mm := NewMatchmakingService(store)
	ctx := context.Background()

	// Match 1 dies on the disconnect-grace clock; match 2 stays active.
	require.NoError(t, store.CreateMatch(ctx, "expired-match", 1, 2))
	require.NoError(t, store.CreateMatch(ctx, "live-match", 3, 4))
	store.ExpireMatchState(ctx, "expired-match")
	mr.FastForward(disconnectGrace + 1)

	dropped, err := mm.SweepStaleBindings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, dropped)

	for _, uid := range []uint{1, 2} {
		bound, err := store.UserMatch(ctx, uid)
		require.NoError(t, err)
		assert.Empty(t, bound, "user %d binding must not outlive its match", uid)
	}
	for _, uid := range []uint{3, 4} {
		bound, err := store.UserMatch(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, "live-match", bound)
	}
}

func TestPairRequeuesSurvivorWhenPeerDied(t *testing.T) {
	store, mr := testStore(t)
	mm := NewMatchmakingService(store)
	ctx := context.Background()

	// User 1's ticket is stale by the time the pop happens.
	require.NoError(t, store.HeartbeatUser(ctx, 1))
	require.NoError(t, store.Enqueue(ctx, 1))
	mr.FastForward(heartbeatTTL + 1)
	require.NoError(t, store.HeartbeatUser(ctx, 2))
	require.NoError(t, store.Enqueue(ctx, 2))

	result, err := mm.tryPair(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, result, "no match against a dead peer")

	queued, err := store.QueueUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{2}, queued, "the live player goes back to the head")

	matchID, err := store.UserMatch(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, matchID)
}

func TestJoinDropsStaleMatchBinding(t *testing.T) {
	store, _ := testStore(t)
	mm := NewMatchmakingService(store)
	ctx := context.Background()

	// Leftovers from an abandoned match.
	require.NoError(t, store.CreateMatch(ctx, "old-match", 1, 9))
	require.NoError(t, store.SaveSnapshot(ctx, "old-match", newSnapshotFixture()))

	_, err := mm.Join(ctx, 1)
	require.NoError(t, err)

	matchID, err := store.UserMatch(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, matchID, "stale binding must not shadow the new queue entry")

	snap, err := store.LoadSnapshot(ctx, "old-match")
	require.NoError(t, err)
	assert.Nil(t, snap, "stale snapshot is dropped")
}

func TestConcurrentJoinsProduceDisjointMatches(t *testing.T) {
	store, _ := testStore(t)
	mm := NewMatchmakingService(store)
	ctx := context.Background()
	const players = 10

	var wg sync.WaitGroup
	errs := make(chan error, players)
	for uid := uint(1); uid <= players; uid++ {
		wg.Add(1)
		go func(uid uint) {
			defer wg.Done()
			_, err := mm.Join(ctx, uid)
			errs <- err
		}(uid)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// Joins that lost the optimistic race left their users queued; drain the
	// remainder the same way polling would.
	for {
		queued, err := store.QueueUsers(ctx)
		require.NoError(t, err)
		if len(queued) < 2 {
			require.Empty(t, queued, "an even field must pair out completely")
			break
		}
		_, err = mm.tryPair(ctx, 0)
		require.NoError(t, err)
	}

	matches := make(map[string][]uint)
	for uid := uint(1); uid <= players; uid++ {
		matchID, err := store.UserMatch(ctx, uid)
		require.NoError(t, err)
		require.NotEmpty(t, matchID, "user %d ended up unmatched", uid)
		matches[matchID] = append(matches[matchID], uid)
	}

	assert.Len(t, matches, players/2)
	for matchID, users := range matches {
		assert.Len(t, users, 2, "match %s", matchID)
		rec, err := store.Match(ctx, matchID)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.NotEqual(t, rec.Player1, rec.Player2)
		assert.Equal(t, "goat", rec.RoleOf(rec.Player1))
		assert.Equal(t, "tiger", rec.RoleOf(rec.Player2))
	}
}
