package db

import (
	"fmt"

	"github.com/kasuganosora/dreamrealm/config"
	dbmysql "github.com/kasuganosora/dreamrealm/db/mysql"
	dbsqlite "github.com/kasuganosora/dreamrealm/db/sqlite"
	"gorm.io/gorm"
)

const (
	ModeSQLite = "sqlite"
	ModeMySQL  = "mysql"
	ModeMemory = "memory"
)

// Open returns a *gorm.DB for the configured database mode.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Mode {
	case ModeSQLite:
		return dbsqlite.Open(cfg.SQLitePath)
	case ModeMemory:
		return dbsqlite.OpenMemory()
	case ModeMySQL:
		return dbmysql.Open(cfg)
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}
