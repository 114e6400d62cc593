package main

import (
	"github.com/gin-gonic/gin"

	"intake-platform/internal/auth"
	"intake-platform/internal/httpapi"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authManager *auth.Manager) {
	// public: health + the provider webhook.
	// NOTE: the webhook signature check is a stub until the provider's
	// signing scheme is implemented (httpapi.VerifySignature).
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.POST("/webhook", h.Webhook)

	// dashboard API
	v1 := r.Group("/v1")
	{
		v1.POST("/auth/login", h.Login)

		protected := v1.Group("")
		protected.Use(auth.RequireAccessToken(authManager))
		protected.Use(auth.RequireAnyRole(auth.RoleOperator, auth.RoleAdmin))
		{
			protected.GET("/calls", h.ListCalls)
			protected.GET("/calls/:call_id", h.GetCall)
			protected.GET("/stats", h.GetStats)
		}
	}
}
