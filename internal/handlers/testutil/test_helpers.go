package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/edudao/gatekeeper/internal/api"
	"github.com/edudao/gatekeeper/internal/app"
	iauth "github.com/edudao/gatekeeper/internal/auth"
	"github.com/edudao/gatekeeper/internal/authz"
	"github.com/edudao/gatekeeper/internal/cache"
	sharedtestutil "github.com/edudao/gatekeeper/internal/database/testutil"
	"github.com/edudao/gatekeeper/internal/directory"
	"github.com/edudao/gatekeeper/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T         *testing.T
	DB        *gorm.DB
	Router    *gin.Engine
	JWT       *iauth.JWTService
	Config    *app.Config
	Sessions  *authz.Sessions
	Directory *directory.CachedDirectory
}

// EnvOption customises NewEnv.
type EnvOption func(*envConfig)

type envConfig struct {
	wrap func(authz.Directory) authz.Directory
}

// WithDirectoryWrapper lets a test intercept directory queries, for example to
// inject failures or latency.
func WithDirectoryWrapper(wrap func(authz.Directory) authz.Directory) EnvOption {
	return func(cfg *envConfig) {
		cfg.wrap = wrap
	}
}

// NewEnv provisions a fresh handler test environment seeded with the demo members.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	var envCfg envConfig
	for _, opt := range opts {
		opt(&envCfg)
	}

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithDemoUsers())

	cfg := &app.Config{
		Server: app.ServerConfig{Port: 8000, LandingRoute: "/"},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: "test-suite-super-secret-key-32-bytes!!",
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
		},
		Gates:      app.DefaultGates(),
		Gate:       app.GateConfig{WaitTimeout: 2 * time.Second},
		Monitoring: app.MonitoringConfig{Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"}},
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	gormDir, err := directory.NewGormDirectory(db)
	require.NoError(t, err)
	var dir authz.Directory = gormDir
	if envCfg.wrap != nil {
		dir = envCfg.wrap(dir)
	}
	cached, err := directory.NewCachedDirectory(dir, cache.NewMemoryStore(128, time.Minute), time.Minute)
	require.NoError(t, err)

	resolver, err := authz.NewResolver(cached, authz.WithResolverLogger(zap.NewNop()))
	require.NoError(t, err)
	sessions, err := authz.NewSessions(resolver, 64, time.Minute, authz.WithSessionLogger(zap.NewNop()))
	require.NoError(t, err)
	t.Cleanup(sessions.Close)

	router, err := api.NewRouter(api.Dependencies{
		Config:   cfg,
		JWT:      jwtSvc,
		Resolver: resolver,
		Sessions: sessions,
		Cache:    cached,
	})
	require.NoError(t, err)

	return &Env{
		T:         t,
		DB:        db,
		Router:    router,
		JWT:       jwtSvc,
		Config:    cfg,
		Sessions:  sessions,
		Directory: cached,
	}
}

// TokenFor issues an access token for userID.
func (e *Env) TokenFor(userID string) string {
	e.T.Helper()
	token, err := e.JWT.GenerateAccessToken(iauth.AccessTokenInput{UserID: userID})
	require.NoError(e.T, err)
	return token
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Notice  *response.Notice    `json:"notice"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(e.T, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// Get is shorthand for a GET request.
func (e *Env) Get(path, token string) *httptest.ResponseRecorder {
	e.T.Helper()
	return e.Request(http.MethodGet, path, nil, token)
}
