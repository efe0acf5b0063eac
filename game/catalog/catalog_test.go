package catalog

import (
	"encoding/json"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kasuganosora/dreamrealm/game/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_GatherTable(t *testing.T) {
	c := Default()
	cases := []struct {
		typ      string
		res      Resource
		yield    int64
		duration time.Duration
	}{
		{"nightmare_shard", NightmareShards, 3, 5 * time.Second},
		{"frozen_wish", FrozenWishes, 2, 4 * time.Second},
		{"oblivion_essence", OblivionEssence, 2, 6 * time.Second},
		{"pure_fear", PureFear, 1, 10 * time.Second},
		{"moon_dust", MoonDust, 5, 3 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.typ, func(t *testing.T) {
			assert.Equal(t, tc.yield, c.GatherYield(tc.typ))
			assert.Equal(t, tc.duration, c.GatherDuration(tc.typ))
			r, err := c.NodeResource(tc.typ)
			require.NoError(t, err)
			assert.Equal(t, tc.res, r)
		})
	}
}

func TestUnknownNode_Fallbacks(t *testing.T) {
	c := Default()
	assert.Equal(t, DefaultGatherDuration, c.GatherDuration("void_pearl"))
	assert.Equal(t, DefaultGatherYield, c.GatherYield("void_pearl"))
	_, err := c.NodeResource("void_pearl")
	assert.Equal(t, errs.KindInvalidType, errs.KindOf(err))
}

func TestDefault_Buildings(t *testing.T) {
	c := Default()

	trap, err := c.Building("nightmare_trap")
	require.NoError(t, err)
	assert.Equal(t, int64(50), trap.Cost[MoonDust])
	assert.Equal(t, int64(20), trap.Cost[FrozenWishes])
	assert.Equal(t, int64(5), trap.Production[NightmareShards])
	assert.Equal(t, 60*time.Second, trap.BuildTime)
	assert.True(t, trap.Produces())

	nexus, err := c.Building("nexus")
	require.NoError(t, err)
	assert.True(t, nexus.Cost.IsZero())
	assert.False(t, nexus.Produces())
	assert.Zero(t, nexus.BuildTime)

	storage, err := c.Building("mind_storage")
	require.NoError(t, err)
	assert.False(t, storage.Produces())
	assert.Equal(t, 120*time.Second, storage.BuildTime)

	_, err = c.Building("castle")
	assert.Equal(t, errs.KindInvalidType, errs.KindOf(err))
	assert.Len(t, c.Buildings(), 5)
}

func TestCrystals(t *testing.T) {
	c := Default()
	d, err := c.Crystal("crystallized_desires")
	require.NoError(t, err)
	assert.Equal(t, FrozenWishes, d.Resource)

	d, err = c.Crystal("nightmare_fragments")
	require.NoError(t, err)
	assert.Equal(t, NightmareShards, d.Resource)

	_, err = c.Crystal("ruby")
	assert.Equal(t, errs.KindInvalidType, errs.KindOf(err))
}

func TestDrawCrystal_WithinTable(t *testing.T) {
	c := Default()
	rng := rand.New(rand.NewPCG(1, 2))
	seen := map[int64]bool{}
	for i := 0; i < 2000; i++ {
		def, amount := c.DrawCrystal(rng)
		_, err := c.Crystal(def.Type)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, amount, int64(1))
		assert.LessOrEqual(t, amount, c.MaxDrawAmount())
		seen[amount] = true
	}
	// The common amounts must show up over many draws.
	assert.True(t, seen[2])
	assert.True(t, seen[3])
}

func TestDrawCrystal_Deterministic(t *testing.T) {
	c := Default()
	a := rand.New(rand.NewPCG(7, 7))
	b := rand.New(rand.NewPCG(7, 7))
	for i := 0; i < 20; i++ {
		d1, n1 := c.DrawCrystal(a)
		d2, n2 := c.DrawCrystal(b)
		assert.Equal(t, d1, d2)
		assert.Equal(t, n1, n2)
	}
}

func TestZones_ReferenceKnownNodes(t *testing.T) {
	c := Default()
	require.Len(t, c.Zones(), 4)
	for _, z := range c.Zones() {
		for _, nt := range z.NodeTypes {
			_, ok := c.Node(nt)
			assert.True(t, ok, "zone %s references %s", z.Name, nt)
		}
	}
	require.NoError(t, c.Validate())
}

func TestZones_ReturnsCopy(t *testing.T) {
	c := Default()
	z := c.Zones()
	z[0].NodeTypes[0] = "tampered"
	assert.NotEqual(t, "tampered", c.Zones()[0].NodeTypes[0])
}

func TestParseResource_Legacy(t *testing.T) {
	r, ok := ParseResource("crystallizedDesires")
	require.True(t, ok)
	assert.Equal(t, FrozenWishes, r)

	r, ok = ParseResource("moonDust")
	require.True(t, ok)
	assert.Equal(t, MoonDust, r)

	_, ok = ParseResource("gold")
	assert.False(t, ok)
}

func TestAmounts_JSON(t *testing.T) {
	var a Amounts
	a[MoonDust] = 7
	a[PureFear] = 1
	b, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"nightmareShards":0,"frozenWishes":0,"oblivionEssence":0,"pureFear":1,"moonDust":7}`, string(b))

	var back Amounts
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, a, back)

	assert.Error(t, json.Unmarshal([]byte(`{"gold":1}`), &back))
}

func TestAmounts_CoversAndMissing(t *testing.T) {
	var have, need Amounts
	have[MoonDust] = 40
	have[FrozenWishes] = 30
	need[MoonDust] = 50
	need[FrozenWishes] = 20
	assert.False(t, have.Covers(need))
	assert.Equal(t, []string{"moonDust"}, have.Missing(need))

	have[MoonDust] = 50
	assert.True(t, have.Covers(need))
	assert.Equal(t, int64(10), have.Sub(need).Total())
}

func TestParse_Overrides(t *testing.T) {
	doc := `
respawn_delay: 2m
nodes:
  moon_dust: {resource: moonDust, yield: 8, duration: 2s}
  star_ash: {resource: pureFear, yield: 1, duration: 30s}
buildings:
  dream_loom:
    name: Dream Loom
    cost: {moonDust: 10, crystallizedDesires: 5}
    production: {pureFear: 2}
    build_time: 30s
zones:
  - {name: ash_plains, node_types: [star_ash], min_nodes: 1, max_nodes: 2, grid_size: 5}
`
	c, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, c.RespawnDelay())
	assert.Equal(t, int64(8), c.GatherYield("moon_dust"))
	assert.Equal(t, 30*time.Second, c.GatherDuration("star_ash"))

	loom, err := c.Building("dream_loom")
	require.NoError(t, err)
	assert.Equal(t, int64(5), loom.Cost[FrozenWishes])
	assert.Equal(t, int64(2), loom.Production[PureFear])

	// Untouched defaults survive.
	_, err = c.Building("nightmare_trap")
	assert.NoError(t, err)
	require.Len(t, c.Zones(), 1)
	assert.Equal(t, "ash_plains", c.Zones()[0].Name)
}

func TestParse_RejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown resource":  `nodes: {x: {resource: gold, yield: 1, duration: 1s}}`,
		"zero yield":        `nodes: {moon_dust: {resource: moonDust, yield: 0, duration: 1s}}`,
		"unknown zone node": `zones: [{name: z, node_types: [nope], min_nodes: 1, max_nodes: 1, grid_size: 1}]`,
		"bad range":         `zones: [{name: z, node_types: [moon_dust], min_nodes: 5, max_nodes: 1, grid_size: 1}]`,
		"negative cost":     `buildings: {b: {cost: {moonDust: -1}}}`,
		"bad yaml":          `nodes: [`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad_FileAndEmptyPath(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRespawnDelay, c.RespawnDelay())

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("respawn_delay: 90s\n"), 0o644))
	c, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, c.RespawnDelay())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
