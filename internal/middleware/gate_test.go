package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	iauth "github.com/edudao/gatekeeper/internal/auth"
	"github.com/edudao/gatekeeper/internal/authz"
	"github.com/edudao/gatekeeper/internal/directory"
	"github.com/edudao/gatekeeper/pkg/response"
)

func daoDirectory() *directory.Static {
	return directory.NewStatic().
		AddRole(authz.Role{ID: "admin", Name: "admin"}).
		AddRole(authz.Role{ID: "reviewer", Name: "reviewer"}).
		AddPermission(authz.Permission{ID: "manage_users", Name: "manage_users"}).
		AddPermission(authz.Permission{ID: "review_proposal", Name: "review_proposal"}).
		Grant("admin", "manage_users").
		Grant("reviewer", "review_proposal").
		Assign("u1", "admin").
		Assign("u3", "reviewer")
}

type slowDirectory struct {
	authz.Directory
	delay time.Duration
}

func (d slowDirectory) QueryRoleIDs(ctx context.Context, userID string) ([]string, error) {
	select {
	case <-time.After(d.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return d.Directory.QueryRoleIDs(ctx, userID)
}

type failingDirectory struct {
	authz.Directory
}

func (failingDirectory) QueryRoleIDs(context.Context, string) ([]string, error) {
	return nil, context.DeadlineExceeded
}

func newResolver(t *testing.T, dir authz.Directory) *authz.Resolver {
	t.Helper()
	r, err := authz.NewResolver(dir, authz.WithResolverLogger(zap.NewNop()))
	require.NoError(t, err)
	return r
}

func newGateRouter(t *testing.T, dir authz.Directory, opts GateOptions) (*gin.Engine, *iauth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sessions, err := authz.NewSessions(newResolver(t, dir), 16, time.Minute, authz.WithSessionLogger(zap.NewNop()))
	require.NoError(t, err)
	t.Cleanup(sessions.Close)

	jwtSvc := newJWT(t)
	r := gin.New()
	r.Use(Identify(jwtSvc))
	r.GET("/admin", PageGate(sessions, "manage_users", opts), func(c *gin.Context) {
		snap := c.MustGet(CtxSnapshotKey).(authz.Snapshot)
		c.String(http.StatusOK, "welcome "+snap.UserID)
	})
	return r, jwtSvc
}

func getAs(r http.Handler, token, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func requireDenied(t *testing.T, w *httptest.ResponseRecorder, landing string) {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, landing, w.Header().Get("Location"))
	require.Equal(t, "Access denied", w.Header().Get(response.NoticeHeader))

	var payload response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.False(t, payload.Success)
	require.NotNil(t, payload.Notice)
	require.Contains(t, payload.Notice.Description, "manage_users")
}

func TestPageGateAllowsAdmin(t *testing.T) {
	r, jwtSvc := newGateRouter(t, daoDirectory(), GateOptions{LandingRoute: "/home"})

	w := getAs(r, tokenFor(t, jwtSvc, "u1"), "/admin")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "welcome u1", w.Body.String())
}

func TestPageGateRedirectsWithoutPermission(t *testing.T) {
	r, jwtSvc := newGateRouter(t, daoDirectory(), GateOptions{LandingRoute: "/home"})

	requireDenied(t, getAs(r, tokenFor(t, jwtSvc, "u3"), "/admin"), "/home")
	requireDenied(t, getAs(r, tokenFor(t, jwtSvc, "u2"), "/admin"), "/home")
}

func TestPageGateRedirectsAnonymous(t *testing.T) {
	r, _ := newGateRouter(t, daoDirectory(), GateOptions{})

	requireDenied(t, getAs(r, "", "/admin"), "/")
}

func TestPageGateWaitsForLoadingSession(t *testing.T) {
	dir := slowDirectory{Directory: daoDirectory(), delay: 100 * time.Millisecond}
	r, jwtSvc := newGateRouter(t, dir, GateOptions{WaitTimeout: 2 * time.Second})

	w := getAs(r, tokenFor(t, jwtSvc, "u1"), "/admin")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestPageGateDeniesWhenWaitTimesOut(t *testing.T) {
	dir := slowDirectory{Directory: daoDirectory(), delay: time.Second}
	r, jwtSvc := newGateRouter(t, dir, GateOptions{WaitTimeout: 20 * time.Millisecond})

	requireDenied(t, getAs(r, tokenFor(t, jwtSvc, "u1"), "/admin"), "/")
}

func TestPageGateDeniesOnDirectoryFailure(t *testing.T) {
	r, jwtSvc := newGateRouter(t, failingDirectory{Directory: daoDirectory()}, GateOptions{})

	requireDenied(t, getAs(r, tokenFor(t, jwtSvc, "u1"), "/admin"), "/")
}

func TestRequirePermission(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := newJWT(t)
	resolver := newResolver(t, daoDirectory())

	r := gin.New()
	r.Use(Identify(jwtSvc))
	r.GET("/users", RequirePermission(resolver, "manage_users"), func(c *gin.Context) { c.Status(http.StatusOK) })

	require.Equal(t, http.StatusUnauthorized, getAs(r, "", "/users").Code)
	require.Equal(t, http.StatusOK, getAs(r, tokenFor(t, jwtSvc, "u1"), "/users").Code)

	w := getAs(r, tokenFor(t, jwtSvc, "u3"), "/users")
	require.Equal(t, http.StatusForbidden, w.Code)
	var payload response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, "ACCESS_DENIED", payload.Error.Code)
}

func TestRequirePermissionFailsClosed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := newJWT(t)
	resolver := newResolver(t, failingDirectory{Directory: daoDirectory()})

	r := gin.New()
	r.Use(Identify(jwtSvc))
	r.GET("/users", RequirePermission(resolver, "manage_users"), func(c *gin.Context) { c.Status(http.StatusOK) })

	require.Equal(t, http.StatusForbidden, getAs(r, tokenFor(t, jwtSvc, "u1"), "/users").Code)
}

func TestPageGateSurvivesInvalidationWhileWaiting(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := slowDirectory{Directory: daoDirectory(), delay: 100 * time.Millisecond}
	sessions, err := authz.NewSessions(newResolver(t, dir), 16, time.Minute, authz.WithSessionLogger(zap.NewNop()))
	require.NoError(t, err)
	t.Cleanup(sessions.Close)

	jwtSvc := newJWT(t)
	r := gin.New()
	r.Use(Identify(jwtSvc))
	r.GET("/admin", PageGate(sessions, "manage_users", GateOptions{WaitTimeout: 2 * time.Second}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	sessions.Acquire("u1")
	go func() {
		time.Sleep(20 * time.Millisecond)
		sessions.Invalidate("u1")
	}()

	start := time.Now()
	w := getAs(r, tokenFor(t, jwtSvc, "u1"), "/admin")
	require.Equal(t, http.StatusOK, w.Code)
	require.Less(t, time.Since(start), time.Second)
}
