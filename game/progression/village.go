package progression

import (
	"context"

	"github.com/kasuganosora/dreamrealm/game/construction"
	"github.com/kasuganosora/dreamrealm/game/errs"
	"github.com/kasuganosora/dreamrealm/game/ledger"
	"github.com/kasuganosora/dreamrealm/game/transfer"
	"github.com/kasuganosora/dreamrealm/model"
	"github.com/kasuganosora/dreamrealm/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CollectResult is returned by CollectIdleProduction.
type CollectResult struct {
	Collected   map[string]int64 `json:"collected"`
	Discarded   map[string]int64 `json:"discarded"`
	HoursPassed float64          `json:"hours_passed"`
	Village     *model.Village   `json:"village"`
}

// GetVillage returns the actor's village with its buildings.
func (s *Service) GetVillage(ctx context.Context, accountID int64) (*model.Village, error) {
	db := s.gw.DB(ctx)
	v, err := store.VillageByAccount(db, accountID)
	if err != nil {
		return nil, wrapRead(err)
	}
	if v.Buildings, err = store.Buildings(db, v.ID); err != nil {
		return nil, wrapRead(err)
	}
	return v, nil
}

// CollectIdleProduction credits what the village produced since the last
// collection, capped per resource at its storage limit.
func (s *Service) CollectIdleProduction(ctx context.Context, accountID int64) (*CollectResult, error) {
	var out *CollectResult
	err := s.mutate(ctx, accountID, "collect", func(tx *gorm.DB) error {
		res, v, err := s.collect(tx, accountID)
		if err != nil {
			return err
		}
		out = &CollectResult{
			Collected:   res.Produced.Map(),
			Discarded:   res.Discarded.Map(),
			HoursPassed: ledger.RoundHours(res.HoursPassed),
			Village:     v,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, accountID, "production_collected", out)
	return out, nil
}

func (s *Service) collect(tx *gorm.DB, accountID int64) (ledger.Result, *model.Village, error) {
	v, err := store.VillageByAccount(tx, accountID)
	if err != nil {
		return ledger.Result{}, nil, err
	}
	bs, err := store.Buildings(tx, v.ID)
	if err != nil {
		return ledger.Result{}, nil, err
	}
	res := ledger.Collect(s.cat, v, bs, s.now())
	if err := transfer.ApplyCollect(tx, v, res); err != nil {
		return ledger.Result{}, nil, err
	}
	v.Buildings = bs
	return res, v, nil
}

// settle applies ledger.Settle for the sweep. It writes nothing, and
// reports no counter, while less than an hour is due.
func (s *Service) settle(tx *gorm.DB, accountID int64) (string, error) {
	v, err := store.VillageByAccount(tx, accountID)
	if err != nil {
		return "", err
	}
	bs, err := store.Buildings(tx, v.ID)
	if err != nil {
		return "", err
	}
	res := ledger.Settle(s.cat, v, bs, s.now())
	if res.HoursPassed == 0 {
		return "", nil
	}
	if err := transfer.ApplyCollect(tx, v, res); err != nil {
		return "", err
	}
	return "sweep_collect", nil
}

// Build places a new building in the actor's village and debits its cost.
func (s *Service) Build(ctx context.Context, accountID int64, buildingType string, x, y int) (*model.Building, error) {
	var out *model.Building
	err := s.mutate(ctx, accountID, "build", func(tx *gorm.DB) error {
		v, err := store.VillageByAccount(tx, accountID)
		if err != nil {
			return err
		}
		bs, err := store.Buildings(tx, v.ID)
		if err != nil {
			return err
		}
		plan, err := construction.PlanBuild(s.cat, v, bs, buildingType, x, y, s.now())
		if err != nil {
			return err
		}
		b, err := transfer.ApplyBuild(tx, v, plan)
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("building placed",
		zap.Int64("account_id", accountID), zap.String("type", out.Type), zap.Int64("building_id", out.ID))
	s.publish(ctx, accountID, "building_started", out)
	return out, nil
}

// FinishConstruction completes a building whose timer has elapsed.
func (s *Service) FinishConstruction(ctx context.Context, accountID, buildingID int64) (*model.Building, error) {
	var out *model.Building
	err := s.mutate(ctx, accountID, "finish_construction", func(tx *gorm.DB) error {
		b, err := store.Building(tx, buildingID)
		if err != nil {
			return err
		}
		v, err := store.VillageByAccount(tx, accountID)
		if err != nil {
			if errs.Is(err, errs.KindNotFound) {
				return errs.Forbidden("building belongs to another village")
			}
			return err
		}
		if err := construction.Finish(b, v.ID, s.now()); err != nil {
			return err
		}
		if err := transfer.ApplyFinishConstruction(tx, b); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, accountID, "building_completed", out)
	return out, nil
}

// Deposit moves the whole inventory into the village.
func (s *Service) Deposit(ctx context.Context, accountID int64) (*transfer.DepositResult, error) {
	var out transfer.DepositResult
	err := s.mutate(ctx, accountID, "deposit", func(tx *gorm.DB) error {
		ch, err := store.CharacterByAccount(tx, accountID)
		if err != nil {
			return err
		}
		inv, err := store.InventoryByCharacter(tx, ch.ID)
		if err != nil {
			return err
		}
		v, err := store.VillageByAccount(tx, accountID)
		if err != nil {
			return err
		}
		out = transfer.PlanDeposit(inv.Amounts(), v.Amounts(), v.MaxStorage)
		return transfer.ApplyDeposit(tx, inv, v, out)
	})
	if err != nil {
		return nil, err
	}
	if !out.Discarded.IsZero() {
		s.logger.Info("deposit overflow discarded",
			zap.Int64("account_id", accountID), zap.Int64("discarded", out.Discarded.Total()))
	}
	s.publish(ctx, accountID, "deposited", out)
	return &out, nil
}
