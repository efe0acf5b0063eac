package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Task names.
const (
	TaskRespawn    = "map_respawn"
	TaskProduction = "idle_production"
)

// World is the part of the progression service driven by the scheduler.
type World interface {
	RespawnDue(ctx context.Context) (int64, error)
	SweepIdleProduction(ctx context.Context) (int, error)
}

// RegisterWorld schedules the respawn sweep and, when productionEvery is
// positive, the idle production sweep. A non-positive respawnEvery leaves
// respawn to the admin endpoint.
func RegisterWorld(s *Scheduler, w World, respawnEvery, productionEvery time.Duration) {
	if respawnEvery > 0 {
		s.AddTicker(TaskRespawn, respawnEvery, func(ctx context.Context) error {
			n, err := w.RespawnDue(ctx)
			if n > 0 {
				s.logger.Info("nodes respawned", zap.Int64("count", n))
			}
			return err
		})
	}
	if productionEvery > 0 {
		s.AddTicker(TaskProduction, productionEvery, func(ctx context.Context) error {
			n, err := w.SweepIdleProduction(ctx)
			s.logger.Debug("production swept", zap.Int("villages", n))
			return err
		})
	}
}
