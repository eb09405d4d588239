package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/edudao/gatekeeper/pkg/errors"
	"github.com/edudao/gatekeeper/pkg/response"
)

// PermissionChecker answers fail-closed permission questions.
type PermissionChecker interface {
	HasPermission(ctx context.Context, userID, permissionName string) bool
}

// RequirePermission lets the request through only when the identified caller
// holds permissionName. Anonymous callers get 401, everyone else 403.
func RequirePermission(checker PermissionChecker, permissionName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)
		if userID == "" {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !checker.HasPermission(c.Request.Context(), userID, permissionName) {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
