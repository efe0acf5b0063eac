package testutil

import (
	"testing"
	"time"

	"github.com/kasuganosora/dreamrealm/cache"
	"github.com/kasuganosora/dreamrealm/config"
	dbadapter "github.com/kasuganosora/dreamrealm/db"
	"github.com/kasuganosora/dreamrealm/game/clock"
	"github.com/kasuganosora/dreamrealm/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Epoch is the fixed start time for fake clocks in tests.
var Epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// SetupTestDB creates a private in-memory SQLite DB and runs AutoMigrate.
// It requires no external services and is safe to use in parallel tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.Open(config.DatabaseConfig{
		Mode: dbadapter.ModeMemory,
	})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// SetupTestCache creates LocalCache and LocalPubSub (no Redis required).
func SetupTestCache(t *testing.T) (cache.Cache, cache.PubSub) {
	t.Helper()
	cfg := cache.CacheConfig{} // empty RedisAddr → LocalCache
	c, err := cache.NewCache(cfg)
	require.NoError(t, err, "SetupTestCache: NewCache")
	ps, err := cache.NewPubSub(cfg)
	require.NoError(t, err, "SetupTestCache: NewPubSub")
	return c, ps
}

// SetupClock returns a fake clock parked at Epoch.
func SetupClock() *clock.Fake {
	return clock.NewFake(Epoch)
}
