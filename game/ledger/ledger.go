// Package ledger computes village idle production retroactively from the
// time elapsed since the last collection.
package ledger

import (
	"math"
	"time"

	"github.com/kasuganosora/dreamrealm/game/catalog"
	"github.com/kasuganosora/dreamrealm/model"
)

// Result is the outcome of one collection.
type Result struct {
	// Produced is the raw production before the storage cap.
	Produced catalog.Amounts `json:"collected"`
	// Discarded is the part of Produced that did not fit under the cap.
	Discarded   catalog.Amounts `json:"discarded"`
	Balance     catalog.Amounts `json:"balance"`
	HoursPassed float64         `json:"hours_passed"`
	// CollectedAt is the new lastCollectedAt. It equals the old value when
	// the clock went backwards.
	CollectedAt time.Time `json:"collected_at"`
}

// Production sums floor(base × level × hours) per building and resource.
// Buildings still under construction, and types missing from the catalog,
// produce nothing.
func Production(cat *catalog.Catalog, buildings []model.Building, hours float64) catalog.Amounts {
	var out catalog.Amounts
	if hours <= 0 {
		return out
	}
	for _, b := range buildings {
		if b.IsConstructing {
			continue
		}
		def, err := cat.Building(b.Type)
		if err != nil || !def.Produces() {
			continue
		}
		for _, r := range catalog.Resources() {
			if base := def.Production[r]; base > 0 {
				out[r] += int64(math.Floor(float64(base) * float64(b.Level) * hours))
			}
		}
	}
	return out
}

// Cap adds delta to balance per resource without exceeding max. Overflow is
// discarded, not carried.
func Cap(balance, delta catalog.Amounts, max int64) (next, discarded catalog.Amounts) {
	for _, r := range catalog.Resources() {
		sum := balance[r] + delta[r]
		if sum > max {
			discarded[r] = sum - max
			sum = max
		}
		if sum < 0 {
			sum = 0
		}
		next[r] = sum
	}
	return next, discarded
}

// Collect runs the ledger for village v at now.
func Collect(cat *catalog.Catalog, v *model.Village, buildings []model.Building, now time.Time) Result {
	if now.Before(v.LastCollectedAt) {
		return Result{Balance: v.Amounts(), CollectedAt: v.LastCollectedAt}
	}
	hours := now.Sub(v.LastCollectedAt).Hours()
	produced := Production(cat, buildings, hours)
	balance, discarded := Cap(v.Amounts(), produced, v.MaxStorage)
	return Result{
		Produced:    produced,
		Discarded:   discarded,
		Balance:     balance,
		HoursPassed: hours,
		CollectedAt: now,
	}
}

// RoundHours rounds to two decimals for display.
func RoundHours(h float64) float64 {
	return math.Round(h*100) / 100
}

// Settle credits whole hours of production only and moves lastCollectedAt
// forward by exactly those hours, so the remainder keeps accruing. Hourly
// rates are integers, so nothing is floored away. HoursPassed is zero when
// less than an hour has elapsed or the clock went backwards; the village
// must then be left untouched.
func Settle(cat *catalog.Catalog, v *model.Village, buildings []model.Building, now time.Time) Result {
	idle := Result{Balance: v.Amounts(), CollectedAt: v.LastCollectedAt}
	if now.Before(v.LastCollectedAt) {
		return idle
	}
	whole := time.Duration(now.Sub(v.LastCollectedAt) / time.Hour)
	if whole < 1 {
		return idle
	}
	hours := float64(whole)
	produced := Production(cat, buildings, hours)
	balance, discarded := Cap(v.Amounts(), produced, v.MaxStorage)
	return Result{
		Produced:    produced,
		Discarded:   discarded,
		Balance:     balance,
		HoursPassed: hours,
		CollectedAt: v.LastCollectedAt.Add(whole * time.Hour),
	}
}
