package audit

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	mw "github.com/kasuganosora/dreamrealm/middleware"
)

// maxBody caps how much of a request body is kept in the audit row.
const maxBody = 4 << 10

// Middleware audits every non-GET request that reaches a route. Bodies of
// /api/auth routes are never stored.
func Middleware(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.FullPath() == "" {
			c.Next()
			return
		}
		start := time.Now()
		var body json.RawMessage
		if c.Request.Body != nil && !strings.HasPrefix(c.FullPath(), "/api/auth") {
			raw, _ := io.ReadAll(io.LimitReader(c.Request.Body, maxBody+1))
			c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), c.Request.Body))
			if len(raw) <= maxBody && json.Valid(raw) {
				body = raw
			}
		}

		c.Next()

		entry := Entry{
			TraceID:    mw.GetTraceID(c),
			Action:     c.Request.Method + " " + c.FullPath(),
			Response:   gin.H{"status": c.Writer.Status()},
			ErrorKind:  c.GetString(mw.ErrorKindKey),
			IP:         c.ClientIP(),
			DurationMs: int(time.Since(start).Milliseconds()),
		}
		if len(body) > 0 {
			entry.Request = body
		}
		if id := mw.GetAccountID(c); id != 0 {
			entry.AccountID = &id
		}
		if last := c.Errors.Last(); last != nil {
			entry.Error = last.Error()
		}
		svc.Log(entry)
	}
}
