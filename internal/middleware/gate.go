package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/edudao/gatekeeper/internal/authz"
	"github.com/edudao/gatekeeper/pkg/logger"
	"github.com/edudao/gatekeeper/pkg/response"
)

const defaultGateWait = 5 * time.Second

// SessionSource waits on the live authorization session for a subject.
type SessionSource interface {
	Await(ctx context.Context, userID string) (authz.Snapshot, error)
}

// GateOptions configures PageGate.
type GateOptions struct {
	LandingRoute string
	WaitTimeout  time.Duration
}

// AccessDeniedNotice is shown after a gate redirects the caller away.
func AccessDeniedNotice(permissionName string) response.Notice {
	return response.Notice{
		Title:       "Access denied",
		Description: fmt.Sprintf("You need the %s permission to view this page.", permissionName),
		Variant:     "destructive",
	}
}

// PageGate protects a page behind permissionName. It waits for the caller's
// session to settle and never decides while it is still loading. Denied
// callers are redirected to the landing route with an access-denied notice.
// The settled snapshot is stored under CtxSnapshotKey for the page handler.
func PageGate(sessions SessionSource, permissionName string, opts GateOptions) gin.HandlerFunc {
	landing := opts.LandingRoute
	if landing == "" {
		landing = "/"
	}
	wait := opts.WaitTimeout
	if wait <= 0 {
		wait = defaultGateWait
	}
	log := logger.WithModule("http")

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), wait)
		snap, err := sessions.Await(ctx, UserID(c))
		cancel()

		if err != nil {
			log.Warn("page gate timed out waiting for authorization",
				zap.String("path", c.Request.URL.Path),
				zap.String("user_id", snap.UserID),
				zap.Error(err),
			)
		}

		if err != nil || !snap.HasPermission(permissionName) {
			response.RedirectWithNotice(c, landing, AccessDeniedNotice(permissionName))
			c.Abort()
			return
		}

		c.Set(CtxSnapshotKey, snap)
		c.Next()
	}
}
