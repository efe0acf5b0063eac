package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/dreamrealm/game/errs"
)

const (
	AccountIDKey = "account_id"
	TokenKey     = "token"
)

// Authenticator resolves a session token to its account.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (int64, error)
}

// BearerToken extracts the session token from the Authorization header, or
// from the token query parameter for clients that cannot set headers
// (EventSource).
func BearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

// Auth validates the session token and stores the account id in the context.
func Auth(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			AbortError(c, errs.New(errs.KindInvalidCredentials, "missing token"))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		accountID, err := authn.Authenticate(ctx, token)
		if err != nil {
			AbortError(c, err)
			return
		}

		c.Set(AccountIDKey, accountID)
		c.Set(TokenKey, token)
		c.Next()
	}
}

// GetAccountID retrieves the authenticated account ID from the Gin context.
func GetAccountID(c *gin.Context) int64 {
	if v, exists := c.Get(AccountIDKey); exists {
		return v.(int64)
	}
	return 0
}

// GetToken returns the session token the request authenticated with.
func GetToken(c *gin.Context) string {
	return c.GetString(TokenKey)
}
