package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/dreamrealm/game/account"
	mw "github.com/kasuganosora/dreamrealm/middleware"
)

// AuthHandler handles authentication REST endpoints.
type AuthHandler struct {
	accounts *account.Service
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(accounts *account.Service) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// Length rules live in account.Register so every caller gets the same
// error kinds.
type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req credentials
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := opContext(c)
	defer cancel()
	sess, err := h.accounts.Register(ctx, req.Username, req.Password)
	if err != nil {
		mw.AbortError(c, err)
		return
	}
	c.Set(mw.AccountIDKey, sess.UserID)
	c.JSON(http.StatusCreated, sess)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentials
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := opContext(c)
	defer cancel()
	sess, err := h.accounts.Login(ctx, req.Username, req.Password, c.ClientIP())
	if err != nil {
		mw.AbortError(c, err)
		return
	}
	c.Set(mw.AccountIDKey, sess.UserID)
	c.JSON(http.StatusOK, sess)
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx, cancel := opContext(c)
	defer cancel()
	if err := h.accounts.Logout(ctx, mw.GetToken(c)); err != nil {
		mw.AbortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
