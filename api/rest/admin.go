package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/dreamrealm/game/account"
	"github.com/kasuganosora/dreamrealm/game/progression"
	mw "github.com/kasuganosora/dreamrealm/middleware"
	"github.com/kasuganosora/dreamrealm/scheduler"
	"go.uber.org/zap"
)

// AdminHandler handles operator endpoints.
// Routes must be protected by the AdminKey middleware.
type AdminHandler struct {
	svc      *progression.Service
	accounts *account.Service
	sched    *scheduler.Scheduler
	logger   *zap.Logger
}

// NewAdminHandler creates an AdminHandler. sched may be nil.
func NewAdminHandler(svc *progression.Service, accounts *account.Service, sched *scheduler.Scheduler, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, accounts: accounts, sched: sched, logger: logger}
}

// Seed replaces the map population.
// POST /api/admin/map/seed
func (h *AdminHandler) Seed(c *gin.Context) {
	ctx, cancel := opContext(c)
	defer cancel()
	n, err := h.svc.SeedMapResources(ctx)
	if err != nil {
		mw.AbortError(c, err)
		return
	}
	h.logger.Info("admin seeded map", zap.Int("nodes", n), zap.String("trace_id", mw.GetTraceID(c)))
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// Respawn makes every due node available again.
// POST /api/admin/map/respawn
func (h *AdminHandler) Respawn(c *gin.Context) {
	ctx, cancel := opContext(c)
	defer cancel()
	n, err := h.svc.RespawnDue(ctx)
	if err != nil {
		mw.AbortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"respawned": n})
}

// Metrics returns world counts, operation counters and scheduler state.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	ctx, cancel := opContext(c)
	defer cancel()
	st, err := h.svc.Stats(ctx)
	if err != nil {
		mw.AbortError(c, err)
		return
	}
	tasks := []scheduler.TaskInfo{}
	if h.sched != nil {
		tasks = h.sched.Tasks()
	}
	c.JSON(http.StatusOK, gin.H{"world": st, "scheduler_tasks": tasks})
}

// BanAccount bans or unbans a player account.
// POST /api/admin/accounts/:id/ban
func (h *AdminHandler) BanAccount(c *gin.Context) {
	accountID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Ban bool `json:"ban"`
	}
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := opContext(c)
	defer cancel()
	if err := h.accounts.SetBanned(ctx, accountID, req.Ban); err != nil {
		mw.AbortError(c, err)
		return
	}
	h.logger.Info("admin changed account status",
		zap.Int64("account_id", accountID), zap.Bool("ban", req.Ban), zap.String("trace_id", mw.GetTraceID(c)))
	c.JSON(http.StatusOK, gin.H{"ok": true, "banned": req.Ban})
}
