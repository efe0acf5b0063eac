package progression

import (
	"context"
	"math/rand/v2"

	"github.com/kasuganosora/dreamrealm/game/catalog"
	"github.com/kasuganosora/dreamrealm/game/errs"
	"github.com/kasuganosora/dreamrealm/game/transfer"
	"github.com/kasuganosora/dreamrealm/model"
	"github.com/kasuganosora/dreamrealm/store"
	"gorm.io/gorm"
)

// CrystalResult is returned by DrawCrystal.
type CrystalResult struct {
	CrystalType  string           `json:"crystal_type"`
	ResourceType string           `json:"resource_type"`
	Amount       int64            `json:"amount"`
	Inventory    *model.Inventory `json:"inventory"`
}

// AddCrystal credits a client-reported crystal. The amount is bounded by
// MaxCrystalCredit.
func (s *Service) AddCrystal(ctx context.Context, accountID int64, crystalType string, amount int64) (*model.Inventory, error) {
	def, err := s.cat.Crystal(crystalType)
	if err != nil {
		return nil, err
	}
	if amount < 1 || amount > s.opts.MaxCrystalCredit {
		return nil, errs.Newf(errs.KindInvalidArgument, "amount must be between 1 and %d", s.opts.MaxCrystalCredit)
	}
	inv, err := s.credit(ctx, accountID, "add_crystal", def, amount)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, accountID, "crystal_added", CrystalResult{
		CrystalType: def.Type, ResourceType: def.Resource.String(), Amount: amount, Inventory: inv,
	})
	return inv, nil
}

// DrawCrystal picks the crystal type and amount server-side from the
// weighted table and credits it.
func (s *Service) DrawCrystal(ctx context.Context, accountID int64) (*CrystalResult, error) {
	var (
		def    catalog.CrystalDef
		amount int64
	)
	s.withRNG(func(r *rand.Rand) { def, amount = s.cat.DrawCrystal(r) })

	inv, err := s.credit(ctx, accountID, "draw_crystal", def, amount)
	if err != nil {
		return nil, err
	}
	out := &CrystalResult{
		CrystalType: def.Type, ResourceType: def.Resource.String(), Amount: amount, Inventory: inv,
	}
	s.publish(ctx, accountID, "crystal_drawn", out)
	return out, nil
}

func (s *Service) credit(ctx context.Context, accountID int64, op string, def catalog.CrystalDef, amount int64) (*model.Inventory, error) {
	var out *model.Inventory
	err := s.mutate(ctx, accountID, op, func(tx *gorm.DB) error {
		ch, err := store.CharacterByAccount(tx, accountID)
		if err != nil {
			return err
		}
		inv, err := store.InventoryByCharacter(tx, ch.ID)
		if err != nil {
			return err
		}
		if err := transfer.Credit(tx, inv, def.Resource, amount); err != nil {
			return err
		}
		out = inv
		return nil
	})
	return out, err
}
