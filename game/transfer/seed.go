package transfer

import (
	"math/rand/v2"

	"github.com/kasuganosora/dreamrealm/game/catalog"
	"github.com/kasuganosora/dreamrealm/model"
	"gorm.io/gorm"
)

// PlanSeed lays out a fresh node population for every zone: between
// MinNodes and MaxNodes nodes per zone, types drawn from the zone pool,
// positions uniform on the zone grid.
func PlanSeed(cat *catalog.Catalog, rng *rand.Rand) []model.MapResource {
	var out []model.MapResource
	for _, z := range cat.Zones() {
		count := z.MinNodes
		if span := z.MaxNodes - z.MinNodes; span > 0 {
			count += rng.IntN(span + 1)
		}
		for i := 0; i < count; i++ {
			out = append(out, model.MapResource{
				Type: z.NodeTypes[rng.IntN(len(z.NodeTypes))],
				Zone: z.Name,
				X:    rng.IntN(z.GridSize),
				Y:    rng.IntN(z.GridSize),
			})
		}
	}
	return out
}

// Seed replaces every node with a new population and returns its size.
func Seed(tx *gorm.DB, nodes []model.MapResource) (int, error) {
	if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.MapResource{}).Error; err != nil {
		return 0, err
	}
	if len(nodes) == 0 {
		return 0, nil
	}
	if err := tx.CreateInBatches(&nodes, 100).Error; err != nil {
		return 0, err
	}
	return len(nodes), nil
}
