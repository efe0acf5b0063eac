package audit

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/dreamrealm/game/errs"
	mw "github.com/kasuganosora/dreamrealm/middleware"
	"github.com/kasuganosora/dreamrealm/model"
	"github.com/kasuganosora/dreamrealm/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestLog_EnqueuedAndFlushed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())

	accountID := int64(2)
	svc.Log(Entry{
		TraceID:    "trace-123",
		AccountID:  &accountID,
		Action:     "POST /api/village/build",
		Request:    map[string]interface{}{"type": "nightmare_trap"},
		Response:   map[string]int{"status": 422},
		Error:      "not enough resources",
		ErrorKind:  "InsufficientResources",
		IP:         "127.0.0.1",
		DurationMs: 42,
	})

	// Stop flushes remaining entries.
	svc.Stop(context.Background())

	var logs []model.AuditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "trace-123", logs[0].TraceID)
	assert.Equal(t, int64(2), *logs[0].AccountID)
	assert.Equal(t, "InsufficientResources", logs[0].ErrorKind)
	assert.JSONEq(t, `{"type":"nightmare_trap"}`, string(logs[0].Request))
	assert.Equal(t, 42, logs[0].DurationMs)
}

func TestLog_BatchFlush(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())
	for i := 0; i < 250; i++ {
		svc.Log(Entry{Action: "batch"})
	}
	svc.Stop(context.Background())

	var count int64
	db.Model(&model.AuditLog{}).Count(&count)
	assert.Equal(t, int64(250), count)
}

func TestLog_NilFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())
	svc.Log(Entry{Action: "anonymous"})
	svc.Stop(context.Background())

	var logs []model.AuditLog
	db.Find(&logs)
	require.Len(t, logs, 1)
	assert.Nil(t, logs[0].AccountID)
	assert.Empty(t, logs[0].Request)
}

func TestStop_IdempotentAndDropsLateEntries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())
	svc.Stop(context.Background())
	svc.Stop(context.Background())
	svc.Log(Entry{Action: "late"})

	var count int64
	db.Model(&model.AuditLog{}).Count(&count)
	assert.Zero(t, count)
}

func TestLog_DropsWhenFull(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())
	for i := 0; i < queueSize+10; i++ {
		svc.Log(Entry{Action: "flood"})
	}
	svc.Stop(context.Background())
}

func TestMiddleware_RecordsMutations(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())

	r := gin.New()
	r.Use(mw.TraceID(), Middleware(svc))
	r.POST("/api/village/build", func(c *gin.Context) {
		c.Set(mw.AccountIDKey, int64(9))
		mw.AbortError(c, errs.Conflict("position already occupied"))
	})
	r.POST("/api/auth/login", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/village", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/api/village/build", bytes.NewBufferString(`{"building_type":"nexus","x":1,"y":1}`)),
		httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(`{"username":"a","password":"secret"}`)),
		httptest.NewRequest(http.MethodGet, "/api/village", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	svc.Stop(context.Background())

	var logs []model.AuditLog
	require.NoError(t, db.Order("id").Find(&logs).Error)
	require.Len(t, logs, 2)

	assert.Equal(t, "POST /api/village/build", logs[0].Action)
	assert.Equal(t, int64(9), *logs[0].AccountID)
	assert.Equal(t, "Conflict", logs[0].ErrorKind)
	assert.Contains(t, logs[0].Error, "position already occupied")
	assert.JSONEq(t, `{"building_type":"nexus","x":1,"y":1}`, string(logs[0].Request))
	assert.JSONEq(t, `{"status":409}`, string(logs[0].Response))

	assert.Equal(t, "POST /api/auth/login", logs[1].Action)
	assert.Empty(t, logs[1].Request)
}

func TestStop_HonorsContext(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	svc.Stop(ctx)
}
