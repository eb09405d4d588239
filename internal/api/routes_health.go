package api

import (
	"github.com/gin-gonic/gin"

	"github.com/edudao/gatekeeper/internal/handlers"
	"github.com/edudao/gatekeeper/internal/monitoring"
)

func registerHealthRoutes(r *gin.Engine, manager *monitoring.HealthManager) {
	h := handlers.NewHealthHandler(manager)

	registerHealthEndpoints(r, h)
	registerHealthEndpoints(r.Group("/api"), h)
}

func registerHealthEndpoints(router gin.IRouter, h *handlers.HealthHandler) {
	router.GET("/health", h.Summary)
	router.GET("/health/live", h.Live)
	router.GET("/health/ready", h.Ready)
}
