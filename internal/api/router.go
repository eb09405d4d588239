package api

import (
	"fmt"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/edudao/gatekeeper/internal/app"
	iauth "github.com/edudao/gatekeeper/internal/auth"
	"github.com/edudao/gatekeeper/internal/authz"
	"github.com/edudao/gatekeeper/internal/handlers"
	"github.com/edudao/gatekeeper/internal/middleware"
	"github.com/edudao/gatekeeper/internal/monitoring"
)

// Dependencies are the long-lived services the router wires into handlers.
type Dependencies struct {
	Config   *app.Config
	JWT      *iauth.JWTService
	Resolver *authz.Resolver
	Sessions *authz.Sessions

	// Cache is optional; when set, refreshing a caller also drops cached rows.
	Cache handlers.CacheInvalidator
	// Health holds the probes behind /health; nil reports healthy.
	Health *monitoring.HealthManager
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Resolver == nil {
		return nil, fmt.Errorf("resolver must be provided")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session registry must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.Identify(deps.JWT))

	registerHealthRoutes(r, deps.Health)
	registerMonitoringRoutes(r, deps.Config.Monitoring)

	opts := []handlers.AuthorizationOption{handlers.WithSnapshotWait(deps.Config.Gate.WaitTimeout)}
	if deps.Cache != nil {
		opts = append(opts, handlers.WithCacheInvalidator(deps.Cache))
	}
	authzHandler := handlers.NewAuthorizationHandler(deps.Resolver, deps.Sessions, opts...)
	registerAuthorizationRoutes(r.Group("/api"), authzHandler, deps.Resolver)

	registerPageRoutes(r, deps.Sessions, deps.Config)

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func registerPageRoutes(r *gin.Engine, sessions *authz.Sessions, cfg *app.Config) {
	opts := middleware.GateOptions{
		LandingRoute: cfg.Server.LandingRoute,
		WaitTimeout:  cfg.Gate.WaitTimeout,
	}

	paths := make([]string, 0, len(cfg.Gates))
	for path := range cfg.Gates {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		permission := cfg.Gates[path]
		r.GET(path, middleware.PageGate(sessions, permission, opts), handlers.Page(path, permission))
	}
}
