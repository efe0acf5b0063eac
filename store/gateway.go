// Package store is the transactional gateway between the game rules and the
// database. Every mutating operation runs inside one Atomic unit; lookups
// translate missing rows into errs.NotFound and guarded updates translate a
// lost race into errs.Conflict. Any other database failure surfaces as
// errs.Unavailable after the transaction has rolled back.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kasuganosora/dreamrealm/cache"
	"github.com/kasuganosora/dreamrealm/game/errs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultLockTTL bounds how long a crashed request can hold an actor.
const DefaultLockTTL = 5 * time.Second

// Gateway owns the database handle and the cache used for actor locks.
type Gateway struct {
	db      *gorm.DB
	cache   cache.Cache
	lockTTL time.Duration
	logger  *zap.Logger
}

// New creates a Gateway. A zero lockTTL uses DefaultLockTTL.
func New(db *gorm.DB, c cache.Cache, lockTTL time.Duration, logger *zap.Logger) *Gateway {
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{db: db, cache: c, lockTTL: lockTTL, logger: logger}
}

// DB returns the underlying handle for read-only queries outside a unit.
func (g *Gateway) DB(ctx context.Context) *gorm.DB {
	return g.db.WithContext(ctx)
}

// Atomic runs fn in a single transaction. Typed game errors returned by fn
// pass through unchanged; anything else becomes Unavailable.
func (g *Gateway) Atomic(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := g.db.WithContext(ctx).Transaction(fn)
	if err == nil {
		return nil
	}
	return g.classify(err)
}

func (g *Gateway) classify(err error) error {
	if errs.KindOf(err) != "" {
		return err
	}
	if IsUniqueViolation(err) {
		return errs.Wrap(errs.KindConflict, "duplicate row", err)
	}
	g.logger.Warn("store failure", zap.Error(err))
	return errs.Unavailable(err)
}

// Lock serializes operations of one actor across processes. The returned
// release func only deletes the key while this caller still owns it.
func (g *Gateway) Lock(ctx context.Context, actorID int64) (func(), error) {
	key := fmt.Sprintf("lock:actor:%d", actorID)
	token := uuid.NewString()
	ok, err := g.cache.SetNX(ctx, key, token, g.lockTTL)
	if err != nil {
		return nil, errs.Unavailable(err)
	}
	if !ok {
		return nil, errs.Conflict("actor busy, retry")
	}
	return func() {
		// The request context may already be cancelled.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if released, err := g.cache.CompareAndDelete(rctx, key, token); err != nil || !released {
			g.logger.Debug("actor lock not released",
				zap.Int64("actor_id", actorID), zap.Bool("released", released), zap.Error(err))
		}
	}, nil
}

// Guard checks that a conditional UPDATE touched a row. Zero rows means a
// concurrent writer changed the guarded columns first.
func Guard(res *gorm.DB, what string) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.Conflict(what + " was modified concurrently")
	}
	return nil
}

// IsUniqueViolation detects duplicate-key errors from the sqlite and mysql
// drivers.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "already exists")
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFound(what)
	}
	return err
}
