package progression

import (
	"context"
	"math/rand/v2"
	"strings"

	"github.com/kasuganosora/dreamrealm/cache"
	"github.com/kasuganosora/dreamrealm/game/errs"
	"github.com/kasuganosora/dreamrealm/game/transfer"
	"github.com/kasuganosora/dreamrealm/model"
	"github.com/kasuganosora/dreamrealm/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ListMapResources lists available nodes in zone, or in every zone when
// zone is empty.
func (s *Service) ListMapResources(ctx context.Context, zone string) ([]model.MapResource, error) {
	nodes, err := store.AvailableNodes(s.gw.DB(ctx), strings.TrimSpace(zone))
	if err != nil {
		return nil, wrapRead(err)
	}
	return nodes, nil
}

// SeedMapResources replaces the whole node population.
func (s *Service) SeedMapResources(ctx context.Context) (int, error) {
	var nodes []model.MapResource
	s.withRNG(func(r *rand.Rand) { nodes = transfer.PlanSeed(s.cat, r) })

	var count int
	err := s.gw.Atomic(ctx, func(tx *gorm.DB) error {
		var err error
		count, err = transfer.Seed(tx, nodes)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.count(ctx, "seed")
	s.logger.Info("map seeded", zap.Int("nodes", count))
	return count, nil
}

// RespawnDue makes every node whose respawn time has passed available
// again. It is safe to run redundantly.
func (s *Service) RespawnDue(ctx context.Context) (int64, error) {
	var n int64
	err := s.gw.Atomic(ctx, func(tx *gorm.DB) error {
		var err error
		n, err = transfer.Respawn(tx, s.now())
		return err
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.count(ctx, "respawn")
		s.logger.Debug("nodes respawned", zap.Int64("count", n))
	}
	return n, nil
}

// SweepIdleProduction settles whole hours of production for every village.
// Villages whose owner is busy are skipped and picked up by the next sweep.
// Partial hours stay on the village clock, so any sweep interval is safe.
func (s *Service) SweepIdleProduction(ctx context.Context) (int, error) {
	var owners []int64
	if err := s.gw.DB(ctx).Model(&model.Village{}).Pluck("account_id", &owners).Error; err != nil {
		return 0, errs.Unavailable(err)
	}
	swept := 0
	for _, accountID := range owners {
		if ctx.Err() != nil {
			return swept, ctx.Err()
		}
		err := s.run(ctx, accountID, "sweep_collect", func(tx *gorm.DB) (string, error) {
			return s.settle(tx, accountID)
		})
		switch {
		case err == nil:
			swept++
		case errs.Is(err, errs.KindConflict):
			// owner busy
		default:
			s.logger.Warn("production sweep failed", zap.Int64("account_id", accountID), zap.Error(err))
		}
	}
	return swept, nil
}

// Stats summarizes world state and operation counters for operators.
type Stats struct {
	Accounts      int64            `json:"accounts"`
	Nodes         int64            `json:"nodes"`
	DepletedNodes int64            `json:"depleted_nodes"`
	Constructing  int64            `json:"constructing_buildings"`
	Operations    map[string]int64 `json:"operations"`
}

// StatsOps lists the counters reported by Stats.
var StatsOps = []string{
	"move", "gather_start", "gather_finish", "collect", "build", "finish_construction",
	"deposit", "add_crystal", "draw_crystal", "seed", "respawn", "sweep_collect",
	"gather_lost",
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	db := s.gw.DB(ctx)
	st := &Stats{Operations: make(map[string]int64, len(StatsOps))}
	for _, q := range []struct {
		dst   *int64
		model interface{}
		where string
		args  []interface{}
	}{
		{&st.Accounts, &model.Account{}, "", nil},
		{&st.Nodes, &model.MapResource{}, "", nil},
		{&st.DepletedNodes, &model.MapResource{}, "depleted = ?", []interface{}{true}},
		{&st.Constructing, &model.Building{}, "is_constructing = ?", []interface{}{true}},
	} {
		tx := db.Model(q.model)
		if q.where != "" {
			tx = tx.Where(q.where, q.args...)
		}
		if err := tx.Count(q.dst).Error; err != nil {
			return nil, errs.Unavailable(err)
		}
	}
	if s.kv != nil {
		for _, op := range StatsOps {
			v, err := s.kv.Get(ctx, statsPrefix+op)
			if err != nil {
				if !cache.IsNotFound(err) {
					s.logger.Debug("stats read failed", zap.String("op", op), zap.Error(err))
				}
				continue
			}
			st.Operations[op] = parseCount(v)
		}
	}
	return st, nil
}
