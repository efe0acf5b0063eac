package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/dreamrealm/game/progression"
	mw "github.com/kasuganosora/dreamrealm/middleware"
)

// CharacterHandler handles character and gathering endpoints.
type CharacterHandler struct {
	svc *progression.Service
}

// NewCharacterHandler creates a new CharacterHandler.
func NewCharacterHandler(svc *progression.Service) *CharacterHandler {
	return &CharacterHandler{svc: svc}
}

// Get handles GET /api/character.
func (h *CharacterHandler) Get(c *gin.Context) {
	ctx, cancel := opContext(c)
	defer cancel()
	view, err := h.svc.GetCharacter(ctx, mw.GetAccountID(c))
	if err != nil {
		mw.AbortError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type moveRequest struct {
	X    *int   `json:"x" binding:"required"`
	Y    *int   `json:"y" binding:"required"`
	Zone string `json:"zone"`
}

// Move handles POST /api/character/move.
func (h *CharacterHandler) Move(c *gin.Context) {
	var req moveRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := opContext(c)
	defer cancel()
	ch, err := h.svc.MoveCharacter(ctx, mw.GetAccountID(c), *req.X, *req.Y, req.Zone)
	if err != nil {
		mw.AbortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"character": ch})
}

type gatherRequest struct {
	NodeID int64 `json:"node_id" binding:"required,gt=0"`
}

// StartGather handles POST /api/character/gather/start.
func (h *CharacterHandler) StartGather(c *gin.Context) {
	var req gatherRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := opContext(c)
	defer cancel()
	ch, err := h.svc.StartGather(ctx, mw.GetAccountID(c), req.NodeID)
	if err != nil {
		mw.AbortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"character": ch})
}

// FinishGather handles POST /api/character/gather/finish.
func (h *CharacterHandler) FinishGather(c *gin.Context) {
	ctx, cancel := opContext(c)
	defer cancel()
	res, err := h.svc.FinishGather(ctx, mw.GetAccountID(c))
	if err != nil {
		mw.AbortError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListResources handles GET /api/map/resources?zone=.
func (h *CharacterHandler) ListResources(c *gin.Context) {
	ctx, cancel := opContext(c)
	defer cancel()
	nodes, err := h.svc.ListMapResources(ctx, c.Query("zone"))
	if err != nil {
		mw.AbortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resources": nodes, "count": len(nodes)})
}
