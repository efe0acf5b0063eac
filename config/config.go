package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Game     GameConfig     `mapstructure:"game"`
	Security SecurityConfig `mapstructure:"security"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
}

type ServerConfig struct {
	Port     int      `mapstructure:"port"`
	Debug    bool     `mapstructure:"debug"`
	AdminKey string   `mapstructure:"admin_key"`
	AdminIPs []string `mapstructure:"admin_ips"` // empty = any address
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql | memory
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

// Gather restart policies.
const (
	GatherRestart = "restart"
	GatherReject  = "reject"
)

type GameConfig struct {
	GatherRestart           string        `mapstructure:"gather_restart"` // restart | reject
	RespawnSweepInterval    time.Duration `mapstructure:"respawn_sweep_interval"`
	ProductionSweepInterval time.Duration `mapstructure:"production_sweep_interval"` // 0 disables
	MaxCrystalCredit        int64         `mapstructure:"max_crystal_credit"`
	RNGSeed                 uint64        `mapstructure:"rng_seed"` // 0 = seed from time
	StartZone               string        `mapstructure:"start_zone"`
	StartX                  int           `mapstructure:"start_x"`
	StartY                  int           `mapstructure:"start_y"`
	InventoryCapacity       int64         `mapstructure:"inventory_capacity"`
	VillageMaxStorage       int64         `mapstructure:"village_max_storage"`
	ActorLockTTL            time.Duration `mapstructure:"actor_lock_ttl"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTLH        time.Duration `mapstructure:"jwt_ttl_h"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

type CatalogConfig struct {
	Path string `mapstructure:"path"` // optional YAML override
}

// Load reads config from the given YAML file path. An empty path uses
// defaults and DREAMREALM_* environment variables only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("DREAMREALM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.admin_key", "")
	v.SetDefault("server.admin_ips", []string{})
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/dreamrealm.db")
	v.SetDefault("database.mysql_dsn", "")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("game.gather_restart", GatherRestart)
	v.SetDefault("game.respawn_sweep_interval", "10s")
	v.SetDefault("game.production_sweep_interval", "0s")
	v.SetDefault("game.max_crystal_credit", 10)
	v.SetDefault("game.rng_seed", 0)
	v.SetDefault("game.start_zone", "shelter")
	v.SetDefault("game.start_x", 0)
	v.SetDefault("game.start_y", 0)
	v.SetDefault("game.inventory_capacity", 100)
	v.SetDefault("game.village_max_storage", 1000)
	v.SetDefault("game.actor_lock_ttl", "5s")
	v.SetDefault("security.jwt_secret", "")
	v.SetDefault("security.jwt_ttl_h", "168h")
	v.SetDefault("security.bcrypt_cost", 12)
	v.SetDefault("security.rate_limit_rps", 20)
	v.SetDefault("security.rate_limit_burst", 40)
	v.SetDefault("catalog.path", "")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
