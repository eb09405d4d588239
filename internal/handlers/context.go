package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edudao/gatekeeper/internal/middleware"
)

// caller is the part of a request the authorization handlers act on: the
// request context and the subject attached by middleware.Identify.
type caller struct {
	ctx    context.Context
	userID string
}

// callerOf reads the caller from c. Handlers driven directly in tests may
// have no request attached and get a background context.
func callerOf(c *gin.Context) caller {
	if c == nil {
		return caller{ctx: context.Background()}
	}
	ctx := context.Background()
	if c.Request != nil {
		ctx = c.Request.Context()
	}
	return caller{ctx: ctx, userID: middleware.UserID(c)}
}

func (r caller) anonymous() bool {
	return r.userID == ""
}

// bounded returns a copy whose context expires after d.
func (r caller) bounded(d time.Duration) (caller, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(r.ctx, d)
	r.ctx = ctx
	return r, cancel
}

func requestContext(c *gin.Context) context.Context {
	return callerOf(c).ctx
}
