package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/kasuganosora/dreamrealm/api/rest"
	"github.com/kasuganosora/dreamrealm/audit"
	"github.com/kasuganosora/dreamrealm/cache"
	"github.com/kasuganosora/dreamrealm/config"
	dbadapter "github.com/kasuganosora/dreamrealm/db"
	"github.com/kasuganosora/dreamrealm/game/account"
	"github.com/kasuganosora/dreamrealm/game/action"
	"github.com/kasuganosora/dreamrealm/game/catalog"
	"github.com/kasuganosora/dreamrealm/game/clock"
	"github.com/kasuganosora/dreamrealm/game/progression"
	"github.com/kasuganosora/dreamrealm/model"
	"github.com/kasuganosora/dreamrealm/scheduler"
	"github.com/kasuganosora/dreamrealm/store"
	"go.uber.org/zap"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}
	if cfg.Security.JWTSecret == "" || cfg.Security.JWTSecret == "change-me" {
		logger.Warn("security.jwt_secret is unset or default; tokens are forgeable")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	if err := model.AutoMigrate(db); err != nil {
		logger.Fatal("db migrate failed", zap.Error(err))
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		auditSvc.Stop(flushCtx)
	}()

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		logger.Fatal("cache init failed", zap.Error(err))
	}
	defer c.Close()
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		logger.Fatal("pubsub init failed", zap.Error(err))
	}
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Catalog ----
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		logger.Fatal("catalog load failed", zap.Error(err))
	}

	// ---- Services ----
	gw := store.New(db, c, cfg.Game.ActorLockTTL, logger)
	prog := progression.NewService(gw, cat, clock.Real{}, c, pubsub, progression.Options{
		GatherRestart:     action.ParsePolicy(cfg.Game.GatherRestart),
		MaxCrystalCredit:  cfg.Game.MaxCrystalCredit,
		RNGSeed:           cfg.Game.RNGSeed,
		StartZone:         cfg.Game.StartZone,
		StartX:            cfg.Game.StartX,
		StartY:            cfg.Game.StartY,
		InventoryCapacity: cfg.Game.InventoryCapacity,
		VillageMaxStorage: cfg.Game.VillageMaxStorage,
	}, logger)
	accounts := account.NewService(gw, c, prog, cfg.Security, clock.Real{}, logger)

	if st, err := prog.Stats(ctx); err == nil && st.Nodes == 0 {
		n, err := prog.SeedMapResources(ctx)
		if err != nil {
			logger.Warn("initial map seed failed", zap.Error(err))
		} else {
			logger.Info("empty map seeded", zap.Int("nodes", n))
		}
	}

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	scheduler.RegisterWorld(sched, prog, cfg.Game.RespawnSweepInterval, cfg.Game.ProductionSweepInterval)

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := apirest.NewRouter(ctx, apirest.Deps{
		Progression: prog,
		Accounts:    accounts,
		Scheduler:   sched,
		Audit:       auditSvc,
		PubSub:      pubsub,
		Server:      cfg.Server,
		Security:    cfg.Security,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("Server listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}
