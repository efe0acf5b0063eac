package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/dreamrealm/api/rest"
	"github.com/kasuganosora/dreamrealm/config"
	"github.com/kasuganosora/dreamrealm/game/account"
	"github.com/kasuganosora/dreamrealm/game/catalog"
	"github.com/kasuganosora/dreamrealm/game/clock"
	"github.com/kasuganosora/dreamrealm/game/progression"
	mw "github.com/kasuganosora/dreamrealm/middleware"
	"github.com/kasuganosora/dreamrealm/model"
	"github.com/kasuganosora/dreamrealm/scheduler"
	"github.com/kasuganosora/dreamrealm/store"
	"github.com/kasuganosora/dreamrealm/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const adminKey = "admin-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type server struct {
	r     *gin.Engine
	db    *gorm.DB
	clock *clock.Fake
}

func newServer(t *testing.T) *server {
	t.Helper()
	db := testutil.SetupTestDB(t)
	kv, ps := testutil.SetupTestCache(t)
	clk := testutil.SetupClock()
	logger := zap.NewNop()

	gw := store.New(db, kv, time.Second, logger)
	opts := progression.DefaultOptions()
	opts.RNGSeed = 7
	prog := progression.NewService(gw, catalog.Default(), clk, kv, ps, opts, logger)
	sec := config.SecurityConfig{JWTSecret: "test-secret", JWTTTLH: 24 * time.Hour, BcryptCost: bcrypt.MinCost}
	accounts := account.NewService(gw, kv, prog, sec, clk, logger)
	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	r := rest.NewRouter(ctx, rest.Deps{
		Progression: prog,
		Accounts:    accounts,
		Scheduler:   sched,
		PubSub:      ps,
		Server:      config.ServerConfig{AdminKey: adminKey},
		Security:    sec,
		Logger:      logger,
	})
	return &server{r: r, db: db, clock: clk}
}

type response struct {
	*httptest.ResponseRecorder
	t *testing.T
}

func (r response) json() map[string]interface{} {
	r.t.Helper()
	var out map[string]interface{}
	require.NoError(r.t, json.Unmarshal(r.Body.Bytes(), &out), r.Body.String())
	return out
}

func (s *server) do(t *testing.T, method, path, token string, body interface{}, headers ...string) response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return response{w, t}
}

func (s *server) register(t *testing.T, name string) (string, int64) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": name, "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := w.json()
	return body["token"].(string), int64(body["user_id"].(float64))
}

func (s *server) admin(t *testing.T, method, path string, body interface{}) response {
	t.Helper()
	return s.do(t, method, path, "", body, mw.AdminKeyHeader, adminKey)
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.json()["status"])
	assert.NotEmpty(t, w.Header().Get(mw.TraceIDHeader))
}

func TestAuthFlow(t *testing.T) {
	s := newServer(t)
	token, id := s.register(t, "alice")
	assert.NotZero(t, id)

	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": "alice", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "UsernameTaken", w.json()["kind"])

	w = s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": "bob", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "WeakPassword", w.json()["kind"])

	w = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "InvalidCredentials", w.json()["kind"])

	w = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.json()["username"])

	w = s.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/character", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	s := newServer(t)
	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/character"},
		{http.MethodPost, "/api/character/gather/finish"},
		{http.MethodGet, "/api/map/resources"},
		{http.MethodGet, "/api/village"},
		{http.MethodPost, "/api/inventory/draw-crystal"},
	} {
		w := s.do(t, route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
	}
}

func TestGatherFlow(t *testing.T) {
	s := newServer(t)
	token, _ := s.register(t, "carol")

	w := s.admin(t, http.MethodPost, "/api/admin/map/seed", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/map/resources?zone=twilight_forest", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	nodes := w.json()["resources"].([]interface{})
	require.NotEmpty(t, nodes)
	node := nodes[0].(map[string]interface{})
	nodeID := int64(node["id"].(float64))
	duration := catalog.Default().GatherDuration(node["type"].(string))

	w = s.do(t, http.MethodPost, "/api/character/gather/start", token, gin.H{"node_id": nodeID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/character/gather/finish", token, nil)
	require.Equal(t, http.StatusTooEarly, w.Code)
	body := w.json()
	assert.Equal(t, "TooEarly", body["kind"])
	assert.InDelta(t, duration.Seconds(), body["remaining_time"], 1e-6)

	s.clock.Advance(duration)
	w = s.do(t, http.MethodPost, "/api/character/gather/finish", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Positive(t, w.json()["amount"])

	w = s.do(t, http.MethodPost, "/api/character/gather/finish", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "InvalidState", w.json()["kind"])

	w = s.do(t, http.MethodPost, "/api/character/gather/start", token, gin.H{"node_id": nodeID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Conflict", w.json()["kind"])

	w = s.do(t, http.MethodPost, "/api/character/gather/start", token, gin.H{"node_id": 999999})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/character/gather/start", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidArgument", w.json()["kind"])
}

func TestMove(t *testing.T) {
	s := newServer(t)
	token, _ := s.register(t, "dave")

	w := s.do(t, http.MethodPost, "/api/character/move", token, gin.H{"x": 4, "y": 0, "zone": "deep_darkness"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ch := w.json()["character"].(map[string]interface{})
	assert.Equal(t, float64(4), ch["x"])
	assert.Equal(t, float64(0), ch["y"])

	w = s.do(t, http.MethodPost, "/api/character/move", token, gin.H{"x": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVillageFlow(t *testing.T) {
	s := newServer(t)
	token, id := s.register(t, "erin")

	w := s.do(t, http.MethodPost, "/api/village/build", token, gin.H{"building_type": "nightmare_trap", "x": 1, "y": 2})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "InsufficientResources", w.json()["kind"])

	w = s.do(t, http.MethodPost, "/api/village/build", token, gin.H{"building_type": "castle", "x": 1, "y": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidType", w.json()["kind"])

	require.NoError(t, s.db.Model(&model.Village{}).Where("account_id = ?", id).
		Updates(map[string]interface{}{"moon_dust": 100, "frozen_wishes": 50}).Error)

	w = s.do(t, http.MethodPost, "/api/village/build", token, gin.H{"building_type": "nightmare_trap", "x": 1, "y": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	b := w.json()["building"].(map[string]interface{})
	buildingID := int64(b["id"].(float64))

	w = s.do(t, http.MethodPost, "/api/village/build", token, gin.H{"building_type": "nightmare_trap", "x": 1, "y": 2})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/village/finish-construction", token, gin.H{"building_id": buildingID})
	require.Equal(t, http.StatusTooEarly, w.Code)
	assert.InDelta(t, 60.0, w.json()["remaining_time"], 1e-6)

	s.clock.Advance(time.Minute)
	w = s.do(t, http.MethodPost, "/api/village/finish-construction", token, gin.H{"building_id": buildingID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	other, _ := s.register(t, "frank")
	w = s.do(t, http.MethodPost, "/api/village/finish-construction", other, gin.H{"building_id": buildingID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	s.clock.Advance(2 * time.Hour)
	w = s.do(t, http.MethodPost, "/api/village/collect", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := w.json()
	assert.Equal(t, float64(10), body["collected"].(map[string]interface{})["nightmareShards"])
	assert.InDelta(t, 2.02, body["hours_passed"], 1e-9)

	w = s.do(t, http.MethodPost, "/api/inventory/add-crystal", token, gin.H{"crystal_type": "moon_dust", "amount": 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/village/deposit", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(5), w.json()["moved"].(map[string]interface{})["moonDust"])

	w = s.do(t, http.MethodGet, "/api/village", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	v := w.json()
	assert.Equal(t, float64(55), v["moon_dust"])
	assert.Len(t, v["buildings"], 2)
}

func TestInventoryCrystals(t *testing.T) {
	s := newServer(t)
	token, _ := s.register(t, "gina")

	w := s.do(t, http.MethodPost, "/api/inventory/add-crystal", token, gin.H{"crystal_type": "pure_fear", "amount": 500})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidArgument", w.json()["kind"])

	w = s.do(t, http.MethodPost, "/api/inventory/add-crystal", token, gin.H{"crystal_type": "ruby", "amount": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidType", w.json()["kind"])

	w = s.do(t, http.MethodPost, "/api/inventory/draw-crystal", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := w.json()
	assert.NotEmpty(t, body["crystal_type"])
	assert.Positive(t, body["amount"])

	w = s.do(t, http.MethodGet, "/api/character", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.json(), "inventory")
}

func TestAdminRoutes(t *testing.T) {
	s := newServer(t)
	token, id := s.register(t, "hank")

	w := s.do(t, http.MethodGet, "/api/admin/metrics", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodPost, "/api/admin/map/seed", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "player tokens do not grant admin")

	w = s.admin(t, http.MethodPost, "/api/admin/map/respawn", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), w.json()["respawned"])

	w = s.admin(t, http.MethodGet, "/api/admin/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	world := w.json()["world"].(map[string]interface{})
	assert.Equal(t, float64(1), world["accounts"])

	w = s.admin(t, http.MethodPost, fmt.Sprintf("/api/admin/accounts/%d/ban", id), gin.H{"ban": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodGet, "/api/character", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.admin(t, http.MethodPost, "/api/admin/accounts/999/ban", gin.H{"ban": true})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.admin(t, http.MethodPost, "/api/admin/accounts/abc/ban", gin.H{"ban": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnknownRoute(t *testing.T) {
	s := newServer(t)
	w := s.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
