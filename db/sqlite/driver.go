package sqlite

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open creates a GORM *DB backed by a SQLite file, creating its directory.
// SQLite allows one writer, so the pool is pinned to a single connection
// and every statement inside a transaction must go through that tx.
func Open(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir %s: %w", dir, err)
		}
	}
	return open(path + "?_busy_timeout=5000&_foreign_keys=on")
}

// OpenMemory creates a private in-memory database. Each call gets its own
// named shared-cache database so parallel tests never see each other.
func OpenMemory() (*gorm.DB, error) {
	return open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
}

func open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}
