package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/dreamrealm/api/sse"
	"github.com/kasuganosora/dreamrealm/audit"
	"github.com/kasuganosora/dreamrealm/cache"
	"github.com/kasuganosora/dreamrealm/config"
	"github.com/kasuganosora/dreamrealm/game/account"
	"github.com/kasuganosora/dreamrealm/game/progression"
	mw "github.com/kasuganosora/dreamrealm/middleware"
	"github.com/kasuganosora/dreamrealm/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Deps are the collaborators the HTTP surface is built from. Audit and
// Scheduler may be nil.
type Deps struct {
	Progression *progression.Service
	Accounts    *account.Service
	Scheduler   *scheduler.Scheduler
	Audit       *audit.Service
	PubSub      cache.PubSub
	Server      config.ServerConfig
	Security    config.SecurityConfig
	Logger      *zap.Logger
}

// NewRouter builds the gin engine. ctx bounds background helpers such as the
// rate limiter sweep.
func NewRouter(ctx context.Context, d Deps) *gin.Engine {
	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(d.Logger), mw.Recovery(d.Logger))
	if d.Security.RateLimitRPS > 0 {
		r.Use(mw.RateLimit(ctx, rate.Limit(d.Security.RateLimitRPS), d.Security.RateLimitBurst))
	}
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "kind": "NotFound"})
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := mw.Auth(d.Accounts)
	authH := NewAuthHandler(d.Accounts)
	charH := NewCharacterHandler(d.Progression)
	villageH := NewVillageHandler(d.Progression)
	invH := NewInventoryHandler(d.Progression)
	adminH := NewAdminHandler(d.Progression, d.Accounts, d.Scheduler, d.Logger)

	api := r.Group("/api")
	if d.Audit != nil {
		api.Use(audit.Middleware(d.Audit))
	}
	{
		authG := api.Group("/auth")
		authG.POST("/register", authH.Register)
		authG.POST("/login", authH.Login)
		authG.POST("/logout", auth, authH.Logout)

		charG := api.Group("/character", auth)
		charG.GET("", charH.Get)
		charG.POST("/move", charH.Move)
		charG.POST("/gather/start", charH.StartGather)
		charG.POST("/gather/finish", charH.FinishGather)

		api.GET("/map/resources", auth, charH.ListResources)

		villageG := api.Group("/village", auth)
		villageG.GET("", villageH.Get)
		villageG.POST("/collect", villageH.Collect)
		villageG.POST("/build", villageH.Build)
		villageG.POST("/finish-construction", villageH.FinishConstruction)
		villageG.POST("/deposit", villageH.Deposit)

		invG := api.Group("/inventory", auth)
		invG.POST("/add-crystal", invH.AddCrystal)
		invG.POST("/draw-crystal", invH.DrawCrystal)

		adminG := api.Group("/admin", mw.IPWhitelist(d.Server.AdminIPs), mw.AdminKey(d.Server.AdminKey))
		adminG.POST("/map/seed", adminH.Seed)
		adminG.POST("/map/respawn", adminH.Respawn)
		adminG.GET("/metrics", adminH.Metrics)
		adminG.POST("/accounts/:id/ban", adminH.BanAccount)
	}

	if d.PubSub != nil {
		sseH := sse.NewHandler(d.PubSub, d.Logger)
		r.GET("/sse", auth, sseH.ServeSSE)
	}
	return r
}
