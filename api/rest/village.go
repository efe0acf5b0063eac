package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/dreamrealm/game/progression"
	mw "github.com/kasuganosora/dreamrealm/middleware"
)

// VillageHandler handles village endpoints.
type VillageHandler struct {
	svc *progression.Service
}

// NewVillageHandler creates a new VillageHandler.
func NewVillageHandler(svc *progression.Service) *VillageHandler {
	return &VillageHandler{svc: svc}
}

// Get handles GET /api/village.
func (h *VillageHandler) Get(c *gin.Context) {
	ctx, cancel := opContext(c)
	defer cancel()
	v, err := h.svc.GetVillage(ctx, mw.GetAccountID(c))
	if err != nil {
		mw.AbortError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// Collect handles POST /api/village/collect.
func (h *VillageHandler) Collect(c *gin.Context) {
	ctx, cancel := opContext(c)
	defer cancel()
	res, err := h.svc.CollectIdleProduction(ctx, mw.GetAccountID(c))
	if err != nil {
		mw.AbortError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type buildRequest struct {
	BuildingType string `json:"building_type" binding:"required"`
	X            *int   `json:"x" binding:"required"`
	Y            *int   `json:"y" binding:"required"`
}

// Build handles POST /api/village/build.
func (h *VillageHandler) Build(c *gin.Context) {
	var req buildRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := opContext(c)
	defer cancel()
	b, err := h.svc.Build(ctx, mw.GetAccountID(c), req.BuildingType, *req.X, *req.Y)
	if err != nil {
		mw.AbortError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"building": b})
}

type finishConstructionRequest struct {
	BuildingID int64 `json:"building_id" binding:"required,gt=0"`
}

// FinishConstruction handles POST /api/village/finish-construction.
func (h *VillageHandler) FinishConstruction(c *gin.Context) {
	var req finishConstructionRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := opContext(c)
	defer cancel()
	b, err := h.svc.FinishConstruction(ctx, mw.GetAccountID(c), req.BuildingID)
	if err != nil {
		mw.AbortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"building": b})
}

// Deposit handles POST /api/village/deposit.
func (h *VillageHandler) Deposit(c *gin.Context) {
	ctx, cancel := opContext(c)
	defer cancel()
	res, err := h.svc.Deposit(ctx, mw.GetAccountID(c))
	if err != nil {
		mw.AbortError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
