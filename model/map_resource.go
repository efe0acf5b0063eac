package model

import "time"

// MapResource is a gatherable node. RespawnAt is set iff Depleted.
// HarvestedAt survives respawn and marks the last completed gather.
type MapResource struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Type        string     `gorm:"size:32;not null" json:"type"`
	Zone        string     `gorm:"index:idx_map_zone;size:32;not null" json:"zone"`
	X           int        `gorm:"not null" json:"x"`
	Y           int        `gorm:"not null" json:"y"`
	Depleted    bool       `gorm:"index:idx_map_depleted;not null;default:false" json:"depleted"`
	RespawnAt   *time.Time `json:"respawn_at"`
	HarvestedAt *time.Time `json:"harvested_at"`
}
