// Package catalog holds the static game-rule tables: gatherable node types,
// building types, crystal types, zones and the crystal draw weights.
//
// A Catalog is built once at process start and never mutated afterwards, so
// it can be shared by every request without locking.
package catalog

import (
	"math/rand/v2"
	"sort"
	"time"

	"github.com/kasuganosora/dreamrealm/game/errs"
)

const (
	// DefaultGatherDuration applies to node types missing from the table.
	DefaultGatherDuration = 5 * time.Second
	// DefaultGatherYield applies to node types missing from the table.
	DefaultGatherYield int64 = 1
	// DefaultRespawnDelay is how long a depleted node stays unavailable.
	DefaultRespawnDelay = 60 * time.Second
)

// NodeDef describes a gatherable map node type.
type NodeDef struct {
	Type     string        `json:"type"`
	Resource Resource      `json:"-"`
	Yield    int64         `json:"yield"`
	Duration time.Duration `json:"duration"`
}

// BuildingDef describes a constructible building type.
type BuildingDef struct {
	Type       string        `json:"type"`
	Name       string        `json:"name"`
	Cost       Amounts       `json:"cost"`
	Production Amounts       `json:"production"` // per hour at level 1
	BuildTime  time.Duration `json:"build_time"`
}

// Produces reports whether the building yields anything while idle.
func (d BuildingDef) Produces() bool { return !d.Production.IsZero() }

// CrystalDef maps a crystal type onto the inventory resource it credits.
type CrystalDef struct {
	Type     string   `json:"type"`
	Name     string   `json:"name"`
	Resource Resource `json:"-"`
}

// ZoneDef describes how a zone is populated when the map is seeded.
type ZoneDef struct {
	Name      string   `json:"name"`
	NodeTypes []string `json:"node_types"`
	MinNodes  int      `json:"min_nodes"`
	MaxNodes  int      `json:"max_nodes"`
	GridSize  int      `json:"grid_size"`
}

// DrawWeight is one row of the weighted crystal amount table.
type DrawWeight struct {
	Amount int64   `json:"amount"`
	Weight float64 `json:"weight"`
}

// Catalog is the read-only rule set.
type Catalog struct {
	nodes        map[string]NodeDef
	buildings    map[string]BuildingDef
	crystals     map[string]CrystalDef
	crystalOrder []string
	zones        []ZoneDef
	draws        []DrawWeight
	respawnDelay time.Duration
}

func amounts(pairs map[Resource]int64) Amounts {
	var a Amounts
	for r, v := range pairs {
		a[r] = v
	}
	return a
}

// Default returns the built-in rule set.
func Default() *Catalog {
	c := &Catalog{
		nodes: map[string]NodeDef{
			"nightmare_shard":  {Type: "nightmare_shard", Resource: NightmareShards, Yield: 3, Duration: 5 * time.Second},
			"frozen_wish":      {Type: "frozen_wish", Resource: FrozenWishes, Yield: 2, Duration: 4 * time.Second},
			"oblivion_essence": {Type: "oblivion_essence", Resource: OblivionEssence, Yield: 2, Duration: 6 * time.Second},
			"pure_fear":        {Type: "pure_fear", Resource: PureFear, Yield: 1, Duration: 10 * time.Second},
			"moon_dust":        {Type: "moon_dust", Resource: MoonDust, Yield: 5, Duration: 3 * time.Second},
		},
		buildings: map[string]BuildingDef{
			"nexus": {
				Type: "nexus", Name: "Nexus of Consciousness",
			},
			"nightmare_trap": {
				Type: "nightmare_trap", Name: "Nightmare Trap",
				Cost:       amounts(map[Resource]int64{MoonDust: 50, FrozenWishes: 20}),
				Production: amounts(map[Resource]int64{NightmareShards: 5}),
				BuildTime:  60 * time.Second,
			},
			"wish_crystallizer": {
				Type: "wish_crystallizer", Name: "Wish Crystallizer",
				Cost:       amounts(map[Resource]int64{MoonDust: 40, NightmareShards: 15}),
				Production: amounts(map[Resource]int64{FrozenWishes: 4}),
				BuildTime:  60 * time.Second,
			},
			"oblivion_well": {
				Type: "oblivion_well", Name: "Well of Oblivion",
				Cost:       amounts(map[Resource]int64{MoonDust: 60, FrozenWishes: 25}),
				Production: amounts(map[Resource]int64{OblivionEssence: 3}),
				BuildTime:  90 * time.Second,
			},
			"mind_storage": {
				Type: "mind_storage", Name: "Mind Storage",
				Cost:      amounts(map[Resource]int64{MoonDust: 100, NightmareShards: 30}),
				BuildTime: 120 * time.Second,
			},
		},
		crystals: map[string]CrystalDef{
			"crystallized_desires": {Type: "crystallized_desires", Name: "Crystallized Desires", Resource: FrozenWishes},
			"essence_oblivion":     {Type: "essence_oblivion", Name: "Essence Oblivion", Resource: OblivionEssence},
			"moon_dust":            {Type: "moon_dust", Name: "Moon Dust", Resource: MoonDust},
			"nightmare_fragments":  {Type: "nightmare_fragments", Name: "Nightmare Fragments", Resource: NightmareShards},
			"pure_fear":            {Type: "pure_fear", Name: "Pure Fear", Resource: PureFear},
		},
		zones: []ZoneDef{
			{Name: "twilight_forest", NodeTypes: []string{"frozen_wish", "moon_dust"}, MinNodes: 10, MaxNodes: 15, GridSize: 20},
			{Name: "nightmare_fields", NodeTypes: []string{"nightmare_shard", "moon_dust"}, MinNodes: 10, MaxNodes: 15, GridSize: 20},
			{Name: "forgotten_shore", NodeTypes: []string{"oblivion_essence", "moon_dust"}, MinNodes: 10, MaxNodes: 15, GridSize: 20},
			{Name: "deep_darkness", NodeTypes: []string{"pure_fear", "nightmare_shard"}, MinNodes: 10, MaxNodes: 15, GridSize: 20},
		},
		// Scaled x20 from the client-side fractional table.
		draws: []DrawWeight{
			{Amount: 1, Weight: 5},
			{Amount: 2, Weight: 10},
			{Amount: 3, Weight: 8},
			{Amount: 4, Weight: 6},
			{Amount: 5, Weight: 4},
			{Amount: 6, Weight: 3},
			{Amount: 7, Weight: 2},
			{Amount: 8, Weight: 1.5},
			{Amount: 9, Weight: 1},
			{Amount: 10, Weight: 0.5},
		},
		respawnDelay: DefaultRespawnDelay,
	}
	c.index()
	return c
}

func (c *Catalog) index() {
	c.crystalOrder = c.crystalOrder[:0]
	for k := range c.crystals {
		c.crystalOrder = append(c.crystalOrder, k)
	}
	sort.Strings(c.crystalOrder)
}

// Node returns the definition of a node type.
func (c *Catalog) Node(nodeType string) (NodeDef, bool) {
	d, ok := c.nodes[nodeType]
	return d, ok
}

// GatherDuration is the time a character must spend on a node of the given
// type before the gather may complete.
func (c *Catalog) GatherDuration(nodeType string) time.Duration {
	if d, ok := c.nodes[nodeType]; ok {
		return d.Duration
	}
	return DefaultGatherDuration
}

// GatherYield is the amount credited by one completed gather.
func (c *Catalog) GatherYield(nodeType string) int64 {
	if d, ok := c.nodes[nodeType]; ok {
		return d.Yield
	}
	return DefaultGatherYield
}

// NodeResource resolves the inventory resource credited by a node type.
// Unknown types have no fallback field and fail with InvalidType.
func (c *Catalog) NodeResource(nodeType string) (Resource, error) {
	d, ok := c.nodes[nodeType]
	if !ok {
		return 0, errs.InvalidType("node", nodeType)
	}
	return d.Resource, nil
}

// NodeTypes lists known node types in sorted order.
func (c *Catalog) NodeTypes() []string {
	out := make([]string, 0, len(c.nodes))
	for k := range c.nodes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Building returns the definition of a building type.
func (c *Catalog) Building(buildingType string) (BuildingDef, error) {
	d, ok := c.buildings[buildingType]
	if !ok {
		return BuildingDef{}, errs.InvalidType("building", buildingType)
	}
	return d, nil
}

// Buildings lists every building definition sorted by type.
func (c *Catalog) Buildings() []BuildingDef {
	out := make([]BuildingDef, 0, len(c.buildings))
	for _, d := range c.buildings {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Crystal returns the definition of a crystal type.
func (c *Catalog) Crystal(crystalType string) (CrystalDef, error) {
	d, ok := c.crystals[crystalType]
	if !ok {
		return CrystalDef{}, errs.InvalidType("crystal", crystalType)
	}
	return d, nil
}

// Zones returns a copy of the zone table.
func (c *Catalog) Zones() []ZoneDef {
	out := make([]ZoneDef, len(c.zones))
	for i, z := range c.zones {
		z.NodeTypes = append([]string(nil), z.NodeTypes...)
		out[i] = z
	}
	return out
}

// RespawnDelay is how long a gathered node stays depleted.
func (c *Catalog) RespawnDelay() time.Duration { return c.respawnDelay }

// DrawCrystal picks a crystal type uniformly and an amount from the weighted
// table.
func (c *Catalog) DrawCrystal(rng *rand.Rand) (CrystalDef, int64) {
	def := c.crystals[c.crystalOrder[rng.IntN(len(c.crystalOrder))]]

	var total float64
	for _, d := range c.draws {
		total += d.Weight
	}
	roll := rng.Float64() * total
	for _, d := range c.draws {
		roll -= d.Weight
		if roll <= 0 {
			return def, d.Amount
		}
	}
	return def, c.draws[0].Amount
}

// MaxDrawAmount is the largest amount DrawCrystal can return.
func (c *Catalog) MaxDrawAmount() int64 {
	var m int64
	for _, d := range c.draws {
		if d.Amount > m {
			m = d.Amount
		}
	}
	return m
}
