package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/edudao/gatekeeper/internal/api"
	"github.com/edudao/gatekeeper/internal/app"
	"github.com/edudao/gatekeeper/internal/app/maintenance"
	iauth "github.com/edudao/gatekeeper/internal/auth"
	"github.com/edudao/gatekeeper/internal/authz"
	"github.com/edudao/gatekeeper/internal/cache"
	"github.com/edudao/gatekeeper/internal/monitoring"
	"github.com/edudao/gatekeeper/internal/monitoring/checks"
)

// maintenanceMaxAge is how long the cache purge may go without a run before
// readiness degrades.
const maintenanceMaxAge = time.Hour

// runtimeStack owns every long-lived component the server needs.
type runtimeStack struct {
	DB        *gorm.DB
	Directory *app.DirectoryStack
	Resolver  *authz.Resolver
	Sessions  *authz.Sessions
	JWT       *iauth.JWTService
	Cleaner   *maintenance.Cleaner
	Router    *gin.Engine
}

func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (stack *runtimeStack, err error) {
	stack = &runtimeStack{}
	defer func() {
		if err != nil {
			err = multierr.Append(err, stack.Shutdown(context.Background()))
			stack = nil
		}
	}()

	stack.DB, err = app.OpenDatabase(cfg)
	if err != nil {
		return stack, err
	}
	log.Info("database connected", zap.String("driver", cfg.Database.Driver))

	stack.Directory, err = app.OpenDirectory(ctx, cfg, stack.DB)
	if err != nil {
		return stack, err
	}
	log.Info("directory cache ready", zap.String("backend", cfg.Cache.Backend), zap.Duration("ttl", cfg.Cache.TTL))

	stack.Resolver, err = authz.NewResolver(stack.Directory.Directory)
	if err != nil {
		return stack, fmt.Errorf("initialise resolver: %w", err)
	}

	stack.Sessions, err = authz.NewSessions(stack.Resolver, cfg.Sessions.Capacity, cfg.Sessions.TTL)
	if err != nil {
		return stack, fmt.Errorf("initialise session registry: %w", err)
	}

	stack.JWT, err = iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return stack, fmt.Errorf("initialise jwt service: %w", err)
	}

	stack.Cleaner = maintenance.NewCleaner(stack.Directory.ExpiringStores(),
		maintenance.WithPurgeSchedule(cfg.Maintenance.CachePurgeSchedule))
	if err := stack.Cleaner.Start(); err != nil {
		return stack, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		Config:   cfg,
		JWT:      stack.JWT,
		Resolver: stack.Resolver,
		Sessions: stack.Sessions,
		Cache:    stack.Directory.Cached,
		Health:   healthManager(stack),
	})
	if err != nil {
		return stack, fmt.Errorf("build api router: %w", err)
	}

	return stack, nil
}

func healthManager(stack *runtimeStack) *monitoring.HealthManager {
	manager := monitoring.NewHealthManager()
	manager.RegisterReadiness(checks.Database(stack.DB, 0))
	manager.RegisterReadiness(checks.Directory(stack.Directory.Source, 0))
	if redisStore, ok := stack.Directory.Store.(*cache.RedisStore); ok {
		manager.RegisterReadiness(checks.Redis(redisStore, 0))
	}
	manager.RegisterReadiness(checks.Maintenance(stack.Cleaner, maintenanceMaxAge))
	return manager
}

// Shutdown releases the stack in reverse construction order. Components that
// were never started are skipped.
func (s *runtimeStack) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}

	var errs error
	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
		}
		errs = multierr.Append(errs, s.Cleaner.RunOnce(ctx))
	}
	if s.Sessions != nil {
		s.Sessions.Close()
	}
	errs = multierr.Append(errs, s.Directory.Close())
	if s.DB != nil {
		errs = multierr.Append(errs, app.CloseDatabase(s.DB))
	}
	return errs
}
