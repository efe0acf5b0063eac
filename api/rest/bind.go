package rest

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/dreamrealm/game/errs"
	mw "github.com/kasuganosora/dreamrealm/middleware"
)

// opTimeout bounds one core operation, including waits on the store.
const opTimeout = 5 * time.Second

// bindJSON decodes the body into req, answering InvalidArgument on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		mw.AbortError(c, errs.Wrap(errs.KindInvalidArgument, "invalid request body", err))
		return false
	}
	return true
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		mw.AbortError(c, errs.InvalidArgument("invalid "+name))
		return 0, false
	}
	return id, true
}

func opContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), opTimeout)
}
