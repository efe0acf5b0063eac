// Package integration runs the full HTTP stack against an in-memory world.
package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/kasuganosora/dreamrealm/api/rest"
	"github.com/kasuganosora/dreamrealm/audit"
	"github.com/kasuganosora/dreamrealm/cache"
	"github.com/kasuganosora/dreamrealm/config"
	"github.com/kasuganosora/dreamrealm/game/account"
	"github.com/kasuganosora/dreamrealm/game/catalog"
	"github.com/kasuganosora/dreamrealm/game/clock"
	"github.com/kasuganosora/dreamrealm/game/progression"
	mw "github.com/kasuganosora/dreamrealm/middleware"
	"github.com/kasuganosora/dreamrealm/scheduler"
	"github.com/kasuganosora/dreamrealm/store"
	"github.com/kasuganosora/dreamrealm/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AdminKey is the admin credential the test server accepts.
const AdminKey = "integration-admin-key"

// TestServer wraps a real HTTP server wired the same way as main.
type TestServer struct {
	DB       *gorm.DB
	Cache    cache.Cache
	PubSub   cache.PubSub
	Clock    *clock.Fake
	Progress *progression.Service
	Accounts *account.Service
	Sched    *scheduler.Scheduler
	Audit    *audit.Service
	Server   *httptest.Server
	URL      string

	cancel context.CancelFunc
}

// NewTestServer creates a fully wired server backed by in-memory SQLite and
// the local cache. The world clock is fake and starts at testutil.Epoch.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.SetupTestDB(t)
	kv, ps := testutil.SetupTestCache(t)
	clk := testutil.SetupClock()
	logger := zap.NewNop()

	sec := config.SecurityConfig{
		JWTSecret:      "integration-test-secret",
		JWTTTLH:        72 * time.Hour,
		BcryptCost:     bcrypt.MinCost,
		RateLimitRPS:   1000,
		RateLimitBurst: 2000,
	}

	gw := store.New(db, kv, time.Second, logger)
	opts := progression.DefaultOptions()
	opts.RNGSeed = 1
	prog := progression.NewService(gw, catalog.Default(), clk, kv, ps, opts, logger)
	accounts := account.NewService(gw, kv, prog, sec, clk, logger)
	auditSvc := audit.New(db, logger)
	sched := scheduler.New(logger)

	ctx, cancel := context.WithCancel(context.Background())
	r := apirest.NewRouter(ctx, apirest.Deps{
		Progression: prog,
		Accounts:    accounts,
		Scheduler:   sched,
		Audit:       auditSvc,
		PubSub:      ps,
		Server:      config.ServerConfig{AdminKey: AdminKey},
		Security:    sec,
		Logger:      logger,
	})
	server := httptest.NewServer(r)

	return &TestServer{
		DB:       db,
		Cache:    kv,
		PubSub:   ps,
		Clock:    clk,
		Progress: prog,
		Accounts: accounts,
		Sched:    sched,
		Audit:    auditSvc,
		Server:   server,
		URL:      server.URL,
		cancel:   cancel,
	}
}

// Close shuts down the server and its background workers.
func (ts *TestServer) Close() {
	// Open SSE streams would otherwise keep Close waiting.
	ts.Server.CloseClientConnections()
	ts.Server.Close()
	ts.Sched.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ts.Audit.Stop(ctx)
	ts.cancel()
}

// --- HTTP helpers ---

// Do sends a request with an optional JSON body and Bearer token. Extra
// headers are given as name/value pairs.
func (ts *TestServer) Do(t *testing.T, method, path string, body interface{}, token string, headers ...string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// PostJSON sends a POST request.
func (ts *TestServer) PostJSON(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	return ts.Do(t, http.MethodPost, path, body, token)
}

// Get sends a GET request.
func (ts *TestServer) Get(t *testing.T, path string, token string) *http.Response {
	t.Helper()
	return ts.Do(t, http.MethodGet, path, nil, token)
}

// Admin sends a request carrying the admin key.
func (ts *TestServer) Admin(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	return ts.Do(t, method, path, body, "", mw.AdminKeyHeader, AdminKey)
}

// ReadJSON decodes the response body into v and closes it.
func ReadJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// Expect asserts the status code and returns the decoded JSON object.
func Expect(t *testing.T, resp *http.Response, status int) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	ReadJSON(t, resp, &out)
	require.Equal(t, status, resp.StatusCode, "body: %v", out)
	return out
}

// Register creates an account and returns its session token and id.
func (ts *TestServer) Register(t *testing.T, username, password string) (string, int64) {
	t.Helper()
	body := Expect(t, ts.PostJSON(t, "/api/auth/register", map[string]string{
		"username": username,
		"password": password,
	}, ""), http.StatusCreated)
	return body["token"].(string), int64(body["user_id"].(float64))
}

// Seed regenerates the map through the admin API and returns every node in
// zone.
func (ts *TestServer) Seed(t *testing.T, token, zone string) []map[string]interface{} {
	t.Helper()
	Expect(t, ts.Admin(t, http.MethodPost, "/api/admin/map/seed", nil), http.StatusOK)
	body := Expect(t, ts.Get(t, "/api/map/resources?zone="+zone, token), http.StatusOK)
	var nodes []map[string]interface{}
	for _, n := range body["resources"].([]interface{}) {
		nodes = append(nodes, n.(map[string]interface{}))
	}
	return nodes
}

var uidCounter atomic.Int64

// UniqueID returns a username-safe id unique within the test binary.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s%d", prefix, uidCounter.Add(1))
}

// --- SSE helpers ---

// SSEEvent is one decoded server-sent event.
type SSEEvent struct {
	Name string
	Data string
}

// SSEStream reads events from an open /sse connection.
type SSEStream struct {
	resp   *http.Response
	events chan SSEEvent
}

// OpenSSE connects to /sse with the token in the query string and waits for
// the connected event.
func (ts *TestServer) OpenSSE(t *testing.T, token string) *SSEStream {
	t.Helper()
	resp, err := http.Get(ts.URL + "/sse?token=" + token)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	s := &SSEStream{resp: resp, events: make(chan SSEEvent, 64)}
	go s.read()
	t.Cleanup(s.Close)

	ev := s.Next(t, 2*time.Second)
	require.Equal(t, "connected", ev.Name)
	return s
}

func (s *SSEStream) read() {
	defer close(s.events)
	sc := bufio.NewScanner(s.resp.Body)
	var ev SSEEvent
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if ev.Name != "" || ev.Data != "" {
				s.events <- ev
			}
			ev = SSEEvent{}
		case strings.HasPrefix(line, "event: "):
			ev.Name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.Data = strings.TrimPrefix(line, "data: ")
		}
	}
}

// Next returns the next event or fails the test after timeout.
func (s *SSEStream) Next(t *testing.T, timeout time.Duration) SSEEvent {
	t.Helper()
	select {
	case ev, ok := <-s.events:
		require.True(t, ok, "sse stream closed")
		return ev
	case <-time.After(timeout):
		t.Fatal("timed out waiting for sse event")
		return SSEEvent{}
	}
}

// Close drops the connection.
func (s *SSEStream) Close() {
	_ = s.resp.Body.Close()
}
