package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/dreamrealm/game/errs"
)

// ErrorKindKey holds the kind of the error a handler responded with, for
// the request logger and the audit trail.
const ErrorKindKey = "error_kind"

var kindStatus = map[errs.Kind]int{
	errs.KindNotFound:              http.StatusNotFound,
	errs.KindInvalidState:          http.StatusConflict,
	errs.KindTooEarly:              http.StatusTooEarly,
	errs.KindConflict:              http.StatusConflict,
	errs.KindInsufficientResources: http.StatusUnprocessableEntity,
	errs.KindInvalidType:           http.StatusBadRequest,
	errs.KindInvalidArgument:       http.StatusBadRequest,
	errs.KindForbidden:             http.StatusForbidden,
	errs.KindInvalidCredentials:    http.StatusUnauthorized,
	errs.KindUsernameTaken:         http.StatusConflict,
	errs.KindWeakPassword:          http.StatusBadRequest,
	errs.KindUnavailable:           http.StatusServiceUnavailable,
}

// StatusOf maps an error kind to its HTTP status. Errors without a kind are
// internal.
func StatusOf(kind errs.Kind) int {
	if s, ok := kindStatus[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// AbortError writes err as {"error","kind"[,"remaining_time"]} and aborts.
// Untyped errors are reported without their text.
func AbortError(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	body := gin.H{"error": "internal error", "kind": "Internal"}
	if kind != "" {
		var e *errs.Error
		if errors.As(err, &e) {
			body["error"] = e.Message
		}
		body["kind"] = kind
		c.Set(ErrorKindKey, string(kind))
	} else {
		c.Set(ErrorKindKey, "Internal")
	}
	if rem, ok := errs.RemainingOf(err); ok {
		body["remaining_time"] = rem
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(StatusOf(kind), body)
}
