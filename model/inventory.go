package model

import (
	"time"

	"github.com/kasuganosora/dreamrealm/game/catalog"
)

// Inventory is the character's personal stockpile. MaxCapacity is a soft
// cap reported to the client.
type Inventory struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CharacterID     int64     `gorm:"uniqueIndex;not null" json:"character_id"`
	NightmareShards int64     `gorm:"not null;default:0" json:"nightmare_shards"`
	FrozenWishes    int64     `gorm:"not null;default:0" json:"frozen_wishes"`
	OblivionEssence int64     `gorm:"not null;default:0" json:"oblivion_essence"`
	PureFear        int64     `gorm:"not null;default:0" json:"pure_fear"`
	MoonDust        int64     `gorm:"not null;default:0" json:"moon_dust"`
	MaxCapacity     int64     `gorm:"not null" json:"max_capacity"`
	Version         int64     `gorm:"not null;default:0" json:"-"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (inv *Inventory) Amounts() catalog.Amounts {
	return catalog.Amounts{
		catalog.NightmareShards: inv.NightmareShards,
		catalog.FrozenWishes:    inv.FrozenWishes,
		catalog.OblivionEssence: inv.OblivionEssence,
		catalog.PureFear:        inv.PureFear,
		catalog.MoonDust:        inv.MoonDust,
	}
}

func (inv *Inventory) SetAmounts(a catalog.Amounts) {
	inv.NightmareShards = a[catalog.NightmareShards]
	inv.FrozenWishes = a[catalog.FrozenWishes]
	inv.OblivionEssence = a[catalog.OblivionEssence]
	inv.PureFear = a[catalog.PureFear]
	inv.MoonDust = a[catalog.MoonDust]
}
