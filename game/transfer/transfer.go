// Package transfer applies the multi-row write batches of the progression
// rules. Every function must run inside one store.Atomic unit; each UPDATE
// carries a guard (row version, depleted flag or construction flag) so a
// concurrent writer makes the whole unit fail with Conflict instead of
// applying an effect twice.
package transfer

import (
	"time"

	"github.com/kasuganosora/dreamrealm/game/action"
	"github.com/kasuganosora/dreamrealm/game/catalog"
	"github.com/kasuganosora/dreamrealm/game/construction"
	"github.com/kasuganosora/dreamrealm/game/errs"
	"github.com/kasuganosora/dreamrealm/game/ledger"
	"github.com/kasuganosora/dreamrealm/model"
	"github.com/kasuganosora/dreamrealm/store"
	"gorm.io/gorm"
)

// SaveCharacter persists position and action fields of ch.
func SaveCharacter(tx *gorm.DB, ch *model.Character) error {
	res := tx.Model(&model.Character{}).
		Where("id = ? AND version = ?", ch.ID, ch.Version).
		Updates(map[string]interface{}{
			"x":                 ch.X,
			"y":                 ch.Y,
			"current_zone":      ch.CurrentZone,
			"current_action":    ch.CurrentAction,
			"action_started_at": ch.ActionStartedAt,
			"action_target_id":  ch.ActionTargetID,
			"version":           gorm.Expr("version + 1"),
		})
	if err := store.Guard(res, "character"); err != nil {
		return err
	}
	ch.Version++
	return nil
}

func saveInventory(tx *gorm.DB, inv *model.Inventory, next catalog.Amounts) error {
	cols := model.AmountColumns(next)
	cols["version"] = gorm.Expr("version + 1")
	res := tx.Model(&model.Inventory{}).
		Where("id = ? AND version = ?", inv.ID, inv.Version).
		Updates(cols)
	if err := store.Guard(res, "inventory"); err != nil {
		return err
	}
	inv.SetAmounts(next)
	inv.Version++
	return nil
}

func saveVillage(tx *gorm.DB, v *model.Village, next catalog.Amounts, collectedAt time.Time) error {
	cols := model.AmountColumns(next)
	cols["last_collected_at"] = collectedAt
	cols["version"] = gorm.Expr("version + 1")
	res := tx.Model(&model.Village{}).
		Where("id = ? AND version = ?", v.ID, v.Version).
		Updates(cols)
	if err := store.Guard(res, "village"); err != nil {
		return err
	}
	v.SetAmounts(next)
	v.LastCollectedAt = collectedAt
	v.Version++
	return nil
}

// ApplyGather credits the yield, depletes the node and saves ch, which
// action.Finish has already reset to Idle.
func ApplyGather(tx *gorm.DB, ch *model.Character, inv *model.Inventory, c action.Completion) error {
	res := tx.Model(&model.MapResource{}).
		Where("id = ? AND depleted = ?", c.NodeID, false).
		Updates(map[string]interface{}{"depleted": true, "respawn_at": c.RespawnAt, "harvested_at": c.At})
	if err := store.Guard(res, "resource node"); err != nil {
		return err
	}
	next := inv.Amounts()
	next[c.Resource] += c.Amount
	if err := saveInventory(tx, inv, next); err != nil {
		return err
	}
	return SaveCharacter(tx, ch)
}

// Credit adds amount of r to the inventory.
func Credit(tx *gorm.DB, inv *model.Inventory, r catalog.Resource, amount int64) error {
	if amount < 0 {
		return errs.InvalidArgument("credit amount must not be negative")
	}
	next := inv.Amounts()
	next[r] += amount
	return saveInventory(tx, inv, next)
}

// ApplyCollect stores a ledger result on v.
func ApplyCollect(tx *gorm.DB, v *model.Village, r ledger.Result) error {
	return saveVillage(tx, v, r.Balance, r.CollectedAt)
}

// ApplyBuild debits the village and inserts the planned building. A
// concurrent insert at the same position fails on the unique index.
func ApplyBuild(tx *gorm.DB, v *model.Village, p construction.Plan) (*model.Building, error) {
	if err := saveVillage(tx, v, p.Balance, v.LastCollectedAt); err != nil {
		return nil, err
	}
	b := p.Building
	if err := tx.Create(&b).Error; err != nil {
		if store.IsUniqueViolation(err) {
			return nil, errs.Wrap(errs.KindConflict, "position already occupied", err)
		}
		return nil, err
	}
	return &b, nil
}

// ApplyFinishConstruction clears the construction state of b.
func ApplyFinishConstruction(tx *gorm.DB, b *model.Building) error {
	res := tx.Model(&model.Building{}).
		Where("id = ? AND is_constructing = ?", b.ID, true).
		Updates(map[string]interface{}{
			"is_constructing":         false,
			"construction_started_at": nil,
			"construction_ends_at":    nil,
		})
	return store.Guard(res, "building")
}

// DepositResult reports what a deposit moved.
type DepositResult struct {
	Moved     catalog.Amounts `json:"moved"`
	Discarded catalog.Amounts `json:"discarded"`
	Village   catalog.Amounts `json:"village"`
}

// PlanDeposit moves every inventory count into the village balance, capped
// per resource at maxStorage.
func PlanDeposit(inv, village catalog.Amounts, maxStorage int64) DepositResult {
	next, discarded := ledger.Cap(village, inv, maxStorage)
	return DepositResult{Moved: inv, Discarded: discarded, Village: next}
}

// ApplyDeposit zeroes the inventory and stores the new village balance.
func ApplyDeposit(tx *gorm.DB, inv *model.Inventory, v *model.Village, r DepositResult) error {
	if err := saveInventory(tx, inv, catalog.Amounts{}); err != nil {
		return err
	}
	return saveVillage(tx, v, r.Village, v.LastCollectedAt)
}

// Respawn brings back every depleted node whose respawn time has passed.
func Respawn(tx *gorm.DB, now time.Time) (int64, error) {
	res := tx.Model(&model.MapResource{}).
		Where("depleted = ? AND respawn_at <= ?", true, now).
		Updates(map[string]interface{}{"depleted": false, "respawn_at": nil})
	return res.RowsAffected, res.Error
}
