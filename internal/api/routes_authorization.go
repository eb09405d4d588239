package api

import (
	"github.com/gin-gonic/gin"

	"github.com/edudao/gatekeeper/internal/handlers"
	"github.com/edudao/gatekeeper/internal/middleware"
)

const manageUsersPermission = "manage_users"

func registerAuthorizationRoutes(api *gin.RouterGroup, handler *handlers.AuthorizationHandler, checker middleware.PermissionChecker) {
	authz := api.Group("/authorization")
	{
		authz.GET("/me", handler.Me)
		authz.GET("/check", handler.Check)
		authz.POST("/refresh", middleware.RequireIdentity(), handler.Refresh)
	}

	users := api.Group("/users")
	users.Use(middleware.RequirePermission(checker, manageUsersPermission))
	{
		users.GET("/:id/roles", handler.UserRoles)
		users.GET("/:id/permissions", handler.UserPermissions)
	}
}
