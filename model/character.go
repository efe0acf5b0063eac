package model

import "time"

// ActionGathering is the only timed action a character can be in.
const ActionGathering = "gathering"

// Character is the account's avatar on the map. CurrentAction is empty when
// idle; ActionStartedAt and ActionTargetID are set iff it is gathering.
type Character struct {
	ID              int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID       int64      `gorm:"uniqueIndex;not null" json:"account_id"`
	X               int        `gorm:"not null" json:"x"`
	Y               int        `gorm:"not null" json:"y"`
	CurrentZone     string     `gorm:"size:32;not null" json:"current_zone"`
	CurrentAction   string     `gorm:"size:16" json:"current_action"`
	ActionStartedAt *time.Time `json:"action_started_at"`
	ActionTargetID  *int64     `json:"action_target_id"`
	Version         int64      `gorm:"not null;default:0" json:"-"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Gathering reports whether a gather is in flight.
func (c *Character) Gathering() bool {
	return c.CurrentAction == ActionGathering && c.ActionStartedAt != nil && c.ActionTargetID != nil
}
