package services

import (
	"testing"

	"baghchal-server/game"
	"baghchal-server/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB opens an in-memory SQLite database with the full schema. The pool is
// pinned to one connection so every query sees the same :memory: instance.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.GameLog{}, &models.Replay{}))
	return db
}

// testStore backs a MatchStore with an in-process miniredis instance.
func testStore(t *testing.T) (*MatchStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewMatchStore(rdb), mr
}

func createUser(t *testing.T, db *gorm.DB, username string, elo float64) *models.User {
	t.Helper()
	user := &models.User{Username: username, HashedPassword: "x", EloRating: elo}
	require.NoError(t, db.Create(user).Error)
	return user
}

// newSnapshotFixture returns a minimal non-fresh game snapshot.
func newSnapshotFixture() game.Snapshot {
	g := game.New()
	_ = g.PlaceGoat(6)
	return g.Snapshot()
}

func intPtr(v int) *int { return &v }
