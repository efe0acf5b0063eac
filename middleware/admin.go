package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/dreamrealm/game/errs"
)

const AdminKeyHeader = "X-Admin-Key"

// AdminKey guards operator routes with a shared key. An empty key disables
// the routes entirely so the server cannot ship them unprotected.
func AdminKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			AbortError(c, errs.New(errs.KindUnavailable, "admin endpoints disabled: set server.admin_key"))
			return
		}
		got := c.GetHeader(AdminKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			AbortError(c, errs.Forbidden("admin key required"))
			return
		}
		c.Next()
	}
}
