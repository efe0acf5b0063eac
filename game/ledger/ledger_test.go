package ledger

import (
	"testing"
	"time"

	"github.com/kasuganosora/dreamrealm/game/catalog"
	"github.com/kasuganosora/dreamrealm/model"
	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func village(moonDust, max int64) *model.Village {
	return &model.Village{ID: 1, MoonDust: moonDust, MaxStorage: max, LastCollectedAt: t0}
}

func TestCollect_TrapTwoHours(t *testing.T) {
	cat := catalog.Default()
	v := village(10, 100)
	bs := []model.Building{{Type: "nightmare_trap", Level: 1}}

	r := Collect(cat, v, bs, t0.Add(2*time.Hour))
	assert.Equal(t, int64(10), r.Produced[catalog.NightmareShards])
	assert.Equal(t, int64(10), r.Balance[catalog.NightmareShards])
	assert.Equal(t, int64(10), r.Balance[catalog.MoonDust])
	assert.Equal(t, 2.0, r.HoursPassed)
	assert.Equal(t, t0.Add(2*time.Hour), r.CollectedAt)
}

func TestCollect_SameInstantYieldsNothing(t *testing.T) {
	cat := catalog.Default()
	v := village(0, 100)
	bs := []model.Building{{Type: "nightmare_trap", Level: 3}, {Type: "oblivion_well", Level: 1}}

	now := t0.Add(5 * time.Hour)
	first := Collect(cat, v, bs, now)
	assert.False(t, first.Produced.IsZero())

	v.SetAmounts(first.Balance)
	v.LastCollectedAt = first.CollectedAt
	second := Collect(cat, v, bs, now)
	assert.True(t, second.Produced.IsZero())
	assert.Equal(t, first.Balance, second.Balance)
}

func TestCollect_LevelScalesAndFloors(t *testing.T) {
	cat := catalog.Default()
	v := village(0, 1000)
	bs := []model.Building{
		{Type: "wish_crystallizer", Level: 2},
		{Type: "wish_crystallizer", Level: 1},
	}
	// 4/h × 2 × 0.5h = 4, 4/h × 1 × 0.5h = 2
	r := Collect(cat, v, bs, t0.Add(30*time.Minute))
	assert.Equal(t, int64(6), r.Produced[catalog.FrozenWishes])

	// Floor happens per building: 3/h × 0.3h = 0.9 → 0.
	r = Collect(cat, v, []model.Building{{Type: "oblivion_well", Level: 1}}, t0.Add(18*time.Minute))
	assert.Zero(t, r.Produced[catalog.OblivionEssence])
}

func TestCollect_SkipsConstructingAndUnknown(t *testing.T) {
	cat := catalog.Default()
	v := village(0, 1000)
	bs := []model.Building{
		{Type: "nightmare_trap", Level: 1, IsConstructing: true},
		{Type: "castle", Level: 1},
		{Type: "mind_storage", Level: 1},
		{Type: "nexus", Level: 1},
	}
	r := Collect(cat, v, bs, t0.Add(10*time.Hour))
	assert.True(t, r.Produced.IsZero())
}

func TestCollect_CapDiscardsOverflow(t *testing.T) {
	cat := catalog.Default()
	v := village(0, 100)
	v.NightmareShards = 95
	r := Collect(cat, v, []model.Building{{Type: "nightmare_trap", Level: 1}}, t0.Add(4*time.Hour))
	assert.Equal(t, int64(20), r.Produced[catalog.NightmareShards])
	assert.Equal(t, int64(100), r.Balance[catalog.NightmareShards])
	assert.Equal(t, int64(15), r.Discarded[catalog.NightmareShards])
}

func TestCollect_ClockRollback(t *testing.T) {
	cat := catalog.Default()
	v := village(10, 100)
	r := Collect(cat, v, []model.Building{{Type: "nightmare_trap", Level: 1}}, t0.Add(-3*time.Hour))
	assert.True(t, r.Produced.IsZero())
	assert.Equal(t, t0, r.CollectedAt)
	assert.Equal(t, v.Amounts(), r.Balance)
}

func TestCap_BoundsEveryResource(t *testing.T) {
	var bal, delta catalog.Amounts
	for _, r := range catalog.Resources() {
		bal[r] = int64(r) * 20
		delta[r] = 45
	}
	next, disc := Cap(bal, delta, 100)
	for _, r := range catalog.Resources() {
		assert.GreaterOrEqual(t, next[r], int64(0))
		assert.LessOrEqual(t, next[r], int64(100))
		assert.Equal(t, bal[r]+delta[r], next[r]+disc[r])
	}
}

func TestCap_ClampsBalanceAboveLimit(t *testing.T) {
	// A lowered storage limit pulls an old balance back under the cap.
	var bal, delta catalog.Amounts
	bal[catalog.MoonDust] = 150
	delta[catalog.MoonDust] = 5
	next, disc := Cap(bal, delta, 100)
	assert.Equal(t, int64(100), next[catalog.MoonDust])
	assert.Equal(t, int64(55), disc[catalog.MoonDust])
}

func TestRoundHours(t *testing.T) {
	assert.Equal(t, 1.23, RoundHours(1.2345))
	assert.Equal(t, 0.0, RoundHours(0.004))
}

func TestSettle_ShortIntervalsLoseNothing(t *testing.T) {
	cat := catalog.Default()
	v := village(0, 1000)
	bs := []model.Building{{Type: "nightmare_trap", Level: 1}, {Type: "oblivion_well", Level: 1}}

	now := t0
	for i := 0; i < 12; i++ {
		now = now.Add(10 * time.Minute)
		r := Settle(cat, v, bs, now)
		if r.HoursPassed == 0 {
			assert.True(t, r.Produced.IsZero())
			assert.Equal(t, v.LastCollectedAt, r.CollectedAt)
			continue
		}
		v.SetAmounts(r.Balance)
		v.LastCollectedAt = r.CollectedAt
	}
	assert.Equal(t, int64(10), v.NightmareShards)
	assert.Equal(t, int64(6), v.OblivionEssence)
	assert.Equal(t, t0.Add(2*time.Hour), v.LastCollectedAt)
}

func TestSettle_KeepsRemainder(t *testing.T) {
	cat := catalog.Default()
	v := village(0, 1000)
	r := Settle(cat, v, []model.Building{{Type: "nightmare_trap", Level: 1}}, t0.Add(90*time.Minute))
	assert.Equal(t, 1.0, r.HoursPassed)
	assert.Equal(t, int64(5), r.Produced[catalog.NightmareShards])
	assert.Equal(t, t0.Add(time.Hour), r.CollectedAt)

	r = Settle(cat, v, nil, t0.Add(-time.Minute))
	assert.Zero(t, r.HoursPassed)
	assert.Equal(t, t0, r.CollectedAt)
}
