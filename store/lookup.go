package store

import (
	"github.com/kasuganosora/dreamrealm/model"
	"gorm.io/gorm"
)

// The lookups take the handle to read through so they work both inside an
// Atomic unit and on the plain connection.

func Account(db *gorm.DB, accountID int64) (*model.Account, error) {
	var acc model.Account
	if err := db.First(&acc, accountID).Error; err != nil {
		return nil, notFound(err, "account")
	}
	return &acc, nil
}

func AccountByUsername(db *gorm.DB, username string) (*model.Account, error) {
	var acc model.Account
	if err := db.Where("username = ?", username).First(&acc).Error; err != nil {
		return nil, notFound(err, "account")
	}
	return &acc, nil
}

func CharacterByAccount(db *gorm.DB, accountID int64) (*model.Character, error) {
	var ch model.Character
	if err := db.Where("account_id = ?", accountID).First(&ch).Error; err != nil {
		return nil, notFound(err, "character")
	}
	return &ch, nil
}

func InventoryByCharacter(db *gorm.DB, characterID int64) (*model.Inventory, error) {
	var inv model.Inventory
	if err := db.Where("character_id = ?", characterID).First(&inv).Error; err != nil {
		return nil, notFound(err, "inventory")
	}
	return &inv, nil
}

func VillageByAccount(db *gorm.DB, accountID int64) (*model.Village, error) {
	var v model.Village
	if err := db.Where("account_id = ?", accountID).First(&v).Error; err != nil {
		return nil, notFound(err, "village")
	}
	return &v, nil
}

func Building(db *gorm.DB, buildingID int64) (*model.Building, error) {
	var b model.Building
	if err := db.First(&b, buildingID).Error; err != nil {
		return nil, notFound(err, "building")
	}
	return &b, nil
}

// Buildings lists a village's buildings in creation order.
func Buildings(db *gorm.DB, villageID int64) ([]model.Building, error) {
	var out []model.Building
	err := db.Where("village_id = ?", villageID).Order("id").Find(&out).Error
	return out, err
}

func BuildingAt(db *gorm.DB, villageID int64, x, y int) (*model.Building, error) {
	var b model.Building
	err := db.Where("village_id = ? AND position_x = ? AND position_y = ?", villageID, x, y).First(&b).Error
	if err != nil {
		return nil, notFound(err, "building")
	}
	return &b, nil
}

func MapResource(db *gorm.DB, nodeID int64) (*model.MapResource, error) {
	var n model.MapResource
	if err := db.First(&n, nodeID).Error; err != nil {
		return nil, notFound(err, "resource node")
	}
	return &n, nil
}

// AvailableNodes lists non-depleted nodes, optionally filtered by zone.
func AvailableNodes(db *gorm.DB, zone string) ([]model.MapResource, error) {
	q := db.Where("depleted = ?", false)
	if zone != "" {
		q = q.Where("zone = ?", zone)
	}
	var out []model.MapResource
	err := q.Order("id").Find(&out).Error
	return out, err
}
