package model

import "time"

// Building is a structure placed in a village. Position is unique per
// village; the construction timestamps are set iff IsConstructing.
type Building struct {
	ID                    int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	VillageID             int64      `gorm:"uniqueIndex:idx_building_pos,priority:1;not null" json:"village_id"`
	Type                  string     `gorm:"size:32;not null" json:"type"`
	Level                 int        `gorm:"not null;default:1" json:"level"`
	PositionX             int        `gorm:"uniqueIndex:idx_building_pos,priority:2;not null" json:"position_x"`
	PositionY             int        `gorm:"uniqueIndex:idx_building_pos,priority:3;not null" json:"position_y"`
	IsConstructing        bool       `gorm:"not null;default:false" json:"is_constructing"`
	ConstructionStartedAt *time.Time `json:"construction_started_at"`
	ConstructionEndsAt    *time.Time `json:"construction_ends_at"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
