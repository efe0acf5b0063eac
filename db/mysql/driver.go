package mysql

import (
	"errors"
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/kasuganosora/dreamrealm/config"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Pool defaults used when the config leaves a value at zero.
const (
	defaultMaxOpen = 50
	defaultMaxIdle = 10
	defaultMaxLife = time.Hour
)

// Open creates a pooled GORM *DB for cfg.MySQLDSN. The DSN is normalized
// so timestamps scan as UTC time.Time values and text is utf8mb4.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn, err := NormalizeDSN(cfg.MySQLDSN)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:               dsn,
		DefaultStringSize: 191,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(orDefault(cfg.MySQLMaxOpen, defaultMaxOpen))
	sqlDB.SetMaxIdleConns(orDefault(cfg.MySQLMaxIdle, defaultMaxIdle))
	sqlDB.SetConnMaxLifetime(orDefault(cfg.MySQLMaxLife, defaultMaxLife))
	return db, nil
}

// NormalizeDSN forces parseTime, UTC and utf8mb4 on a go-sql-driver DSN.
func NormalizeDSN(dsn string) (string, error) {
	if dsn == "" {
		return "", errors.New("mysql: database.mysql_dsn is empty")
	}
	c, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysql: invalid dsn: %w", err)
	}
	c.ParseTime = true
	c.Loc = time.UTC
	if c.Collation == "" || c.Collation == "utf8mb4_general_ci" {
		c.Collation = "utf8mb4_unicode_ci"
	}
	return c.FormatDSN(), nil
}

func orDefault[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}
