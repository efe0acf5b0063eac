// Package progression is the entry point for every game operation. Each
// mutating call takes the actor lock, runs one atomic store unit built from
// the action, ledger, construction and transfer rules, then publishes a
// user event.
package progression

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/kasuganosora/dreamrealm/cache"
	"github.com/kasuganosora/dreamrealm/game/action"
	"github.com/kasuganosora/dreamrealm/game/catalog"
	"github.com/kasuganosora/dreamrealm/game/clock"
	"github.com/kasuganosora/dreamrealm/model"
	"github.com/kasuganosora/dreamrealm/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options tunes the rules that are not part of the catalog.
type Options struct {
	GatherRestart     action.RestartPolicy
	MaxCrystalCredit  int64
	RNGSeed           uint64 // 0 seeds from the clock
	StartZone         string
	StartX, StartY    int
	InventoryCapacity int64
	VillageMaxStorage int64
}

// DefaultOptions mirrors the config defaults.
func DefaultOptions() Options {
	return Options{
		GatherRestart:     action.Restart,
		MaxCrystalCredit:  10,
		StartZone:         "shelter",
		InventoryCapacity: 100,
		VillageMaxStorage: 1000,
	}
}

// Service implements the progression operations.
type Service struct {
	gw     *store.Gateway
	cat    *catalog.Catalog
	clock  clock.Clock
	kv     cache.Cache
	ps     cache.PubSub
	opts   Options
	logger *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewService wires a Service. ps may be nil to disable user events.
func NewService(gw *store.Gateway, cat *catalog.Catalog, clk clock.Clock, kv cache.Cache, ps cache.PubSub, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	seed := opts.RNGSeed
	if seed == 0 {
		seed = uint64(clk.Now().UnixNano())
	}
	if opts.MaxCrystalCredit <= 0 {
		opts.MaxCrystalCredit = DefaultOptions().MaxCrystalCredit
	}
	return &Service{
		gw:     gw,
		cat:    cat,
		clock:  clk,
		kv:     kv,
		ps:     ps,
		opts:   opts,
		logger: logger,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Catalog exposes the rule tables.
func (s *Service) Catalog() *catalog.Catalog { return s.cat }

// now is normalized to UTC so stored timestamps compare consistently.
func (s *Service) now() time.Time { return s.clock.Now().UTC() }

// mutate serializes fn per actor and runs it as one atomic unit.
func (s *Service) mutate(ctx context.Context, accountID int64, op string, fn func(tx *gorm.DB) error) error {
	return s.run(ctx, accountID, op, func(tx *gorm.DB) (string, error) {
		return op, fn(tx)
	})
}

// run is mutate for units that pick their stats counter after the fact.
// An empty counter name records nothing.
func (s *Service) run(ctx context.Context, accountID int64, op string, fn func(tx *gorm.DB) (string, error)) error {
	release, err := s.gw.Lock(ctx, accountID)
	if err != nil {
		return err
	}
	defer release()

	var counter string
	err = s.gw.Atomic(ctx, func(tx *gorm.DB) error {
		var err error
		counter, err = fn(tx)
		return err
	})
	if err != nil {
		s.logger.Debug("operation rejected",
			zap.String("op", op), zap.Int64("account_id", accountID), zap.Error(err))
		return err
	}
	if counter != "" {
		s.count(ctx, counter)
	}
	return nil
}

func (s *Service) withRNG(fn func(r *rand.Rand)) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	fn(s.rng)
}

// Event is pushed to a user's SSE stream.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
	At   time.Time   `json:"at"`
}

// EventChannel is the pub/sub channel carrying an account's events.
func EventChannel(accountID int64) string {
	return fmt.Sprintf("events:%d", accountID)
}

func (s *Service) publish(ctx context.Context, accountID int64, typ string, data interface{}) {
	if s.ps == nil {
		return
	}
	payload, err := json.Marshal(Event{Type: typ, Data: data, At: s.now()})
	if err != nil {
		s.logger.Warn("event encode failed", zap.String("type", typ), zap.Error(err))
		return
	}
	if err := s.ps.Publish(ctx, EventChannel(accountID), string(payload)); err != nil {
		s.logger.Warn("event publish failed", zap.String("type", typ), zap.Error(err))
	}
}

const statsPrefix = "stats:op:"

// count bumps the per-operation success counter. Counters are best effort.
func (s *Service) count(ctx context.Context, op string) {
	if s.kv == nil {
		return
	}
	if _, err := s.kv.Incr(ctx, statsPrefix+op); err != nil {
		s.logger.Debug("stats counter failed", zap.String("op", op), zap.Error(err))
	}
}

// Provision creates the character, inventory, village and starting nexus of
// a new account. It runs inside the caller's registration transaction.
func (s *Service) Provision(tx *gorm.DB, accountID int64) error {
	now := s.now()
	ch := &model.Character{
		AccountID:   accountID,
		X:           s.opts.StartX,
		Y:           s.opts.StartY,
		CurrentZone: s.opts.StartZone,
	}
	if err := tx.Create(ch).Error; err != nil {
		return err
	}
	if err := tx.Create(&model.Inventory{CharacterID: ch.ID, MaxCapacity: s.opts.InventoryCapacity}).Error; err != nil {
		return err
	}
	v := &model.Village{AccountID: accountID, MaxStorage: s.opts.VillageMaxStorage, LastCollectedAt: now}
	if err := tx.Create(v).Error; err != nil {
		return err
	}
	if _, err := s.cat.Building("nexus"); err != nil {
		return err
	}
	return tx.Create(&model.Building{VillageID: v.ID, Type: "nexus", Level: 1, PositionX: 5, PositionY: 5}).Error
}

func parseCount(v string) int64 {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
