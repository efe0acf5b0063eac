package model

import (
	"time"

	"github.com/kasuganosora/dreamrealm/game/catalog"
)

// Village holds the account's stored resources. Every count stays within
// [0, MaxStorage].
type Village struct {
	ID              int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID       int64      `gorm:"uniqueIndex;not null" json:"account_id"`
	NightmareShards int64      `gorm:"not null;default:0" json:"nightmare_shards"`
	FrozenWishes    int64      `gorm:"not null;default:0" json:"frozen_wishes"`
	OblivionEssence int64      `gorm:"not null;default:0" json:"oblivion_essence"`
	PureFear        int64      `gorm:"not null;default:0" json:"pure_fear"`
	MoonDust        int64      `gorm:"not null;default:0" json:"moon_dust"`
	MaxStorage      int64      `gorm:"not null" json:"max_storage"`
	LastCollectedAt time.Time  `gorm:"not null" json:"last_collected_at"`
	Version         int64      `gorm:"not null;default:0" json:"-"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	Buildings       []Building `gorm:"-" json:"buildings,omitempty"`
}

func (v *Village) Amounts() catalog.Amounts {
	return catalog.Amounts{
		catalog.NightmareShards: v.NightmareShards,
		catalog.FrozenWishes:    v.FrozenWishes,
		catalog.OblivionEssence: v.OblivionEssence,
		catalog.PureFear:        v.PureFear,
		catalog.MoonDust:        v.MoonDust,
	}
}

func (v *Village) SetAmounts(a catalog.Amounts) {
	v.NightmareShards = a[catalog.NightmareShards]
	v.FrozenWishes = a[catalog.FrozenWishes]
	v.OblivionEssence = a[catalog.OblivionEssence]
	v.PureFear = a[catalog.PureFear]
	v.MoonDust = a[catalog.MoonDust]
}

// ResourceColumn maps a resource onto the column name shared by
// inventories and villages.
func ResourceColumn(r catalog.Resource) string {
	switch r {
	case catalog.NightmareShards:
		return "nightmare_shards"
	case catalog.FrozenWishes:
		return "frozen_wishes"
	case catalog.OblivionEssence:
		return "oblivion_essence"
	case catalog.PureFear:
		return "pure_fear"
	case catalog.MoonDust:
		return "moon_dust"
	}
	return ""
}

// AmountColumns renders a as a column→value map for guarded updates.
func AmountColumns(a catalog.Amounts) map[string]interface{} {
	m := make(map[string]interface{}, catalog.NumResources)
	for _, r := range catalog.Resources() {
		m[ResourceColumn(r)] = a[r]
	}
	return m
}
