// Package construction plans new buildings and validates their completion.
package construction

import (
	"strings"
	"time"

	"github.com/kasuganosora/dreamrealm/game/catalog"
	"github.com/kasuganosora/dreamrealm/game/errs"
	"github.com/kasuganosora/dreamrealm/model"
)

// Building states reported to clients.
const (
	StateComplete     = "complete"
	StateConstructing = "constructing"
	StateReady        = "ready" // timer elapsed, waiting for Finish
)

// Plan is a validated Build: the row to insert and the debit to apply.
type Plan struct {
	Building model.Building
	Cost     catalog.Amounts
	Balance  catalog.Amounts // village balance after the debit
}

// PlanBuild validates placing a typ building at (x, y) in village v.
// existing must hold every building of the village.
func PlanBuild(cat *catalog.Catalog, v *model.Village, existing []model.Building, typ string, x, y int, now time.Time) (Plan, error) {
	def, err := cat.Building(typ)
	if err != nil {
		return Plan{}, err
	}
	have := v.Amounts()
	if !have.Covers(def.Cost) {
		return Plan{}, errs.Newf(errs.KindInsufficientResources,
			"not enough resources: %s", strings.Join(have.Missing(def.Cost), ", "))
	}
	for _, b := range existing {
		if b.PositionX == x && b.PositionY == y {
			return Plan{}, errs.Newf(errs.KindConflict, "position (%d,%d) already occupied", x, y)
		}
	}

	b := model.Building{
		VillageID: v.ID,
		Type:      typ,
		Level:     1,
		PositionX: x,
		PositionY: y,
	}
	if def.BuildTime > 0 {
		started, ends := now, now.Add(def.BuildTime)
		b.IsConstructing = true
		b.ConstructionStartedAt = &started
		b.ConstructionEndsAt = &ends
	}
	return Plan{Building: b, Cost: def.Cost, Balance: have.Sub(def.Cost)}, nil
}

// Finish validates completing b on behalf of the owner of villageID and
// clears the construction state. Level is left unchanged.
func Finish(b *model.Building, villageID int64, now time.Time) error {
	if b.VillageID != villageID {
		return errs.Forbidden("building belongs to another village")
	}
	if !b.IsConstructing {
		return errs.InvalidState("building is not under construction")
	}
	if b.ConstructionEndsAt != nil && now.Before(*b.ConstructionEndsAt) {
		return errs.TooEarly("construction not finished yet", b.ConstructionEndsAt.Sub(now).Seconds())
	}
	b.IsConstructing = false
	b.ConstructionStartedAt = nil
	b.ConstructionEndsAt = nil
	return nil
}

// State reports where b is in its construction lifecycle.
func State(b *model.Building, now time.Time) string {
	switch {
	case !b.IsConstructing:
		return StateComplete
	case b.ConstructionEndsAt != nil && !now.Before(*b.ConstructionEndsAt):
		return StateReady
	default:
		return StateConstructing
	}
}
