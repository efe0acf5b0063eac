package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/dreamrealm/game/progression"
	mw "github.com/kasuganosora/dreamrealm/middleware"
)

// InventoryHandler handles crystal credit endpoints.
type InventoryHandler struct {
	svc *progression.Service
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(svc *progression.Service) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

type addCrystalRequest struct {
	CrystalType string `json:"crystal_type" binding:"required"`
	Amount      int64  `json:"amount"`
}

// AddCrystal handles POST /api/inventory/add-crystal.
func (h *InventoryHandler) AddCrystal(c *gin.Context) {
	var req addCrystalRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := opContext(c)
	defer cancel()
	inv, err := h.svc.AddCrystal(ctx, mw.GetAccountID(c), req.CrystalType, req.Amount)
	if err != nil {
		mw.AbortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inventory": inv})
}

// DrawCrystal handles POST /api/inventory/draw-crystal.
func (h *InventoryHandler) DrawCrystal(c *gin.Context) {
	ctx, cancel := opContext(c)
	defer cancel()
	res, err := h.svc.DrawCrystal(ctx, mw.GetAccountID(c))
	if err != nil {
		mw.AbortError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
