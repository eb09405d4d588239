package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edudao/gatekeeper/internal/authz"
	"github.com/edudao/gatekeeper/internal/middleware"
	"github.com/edudao/gatekeeper/pkg/errors"
	"github.com/edudao/gatekeeper/pkg/response"
)

// Page renders the payload of a gated page. It expects PageGate to have run
// and stored the settled snapshot.
func Page(name, permissionName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(middleware.CtxSnapshotKey)
		snap, _ := v.(authz.Snapshot)
		if !ok || !snap.HasPermission(permissionName) {
			response.Error(c, errors.ErrForbidden)
			return
		}

		response.Success(c, http.StatusOK, gin.H{
			"page":        name,
			"user_id":     snap.UserID,
			"roles":       snap.Roles,
			"permissions": snap.Permissions.Names(),
		})
	}
}
