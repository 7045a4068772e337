package main

import (
	"github.com/gin-gonic/gin"

	"github.com/niggl1/interfoneapp/internal/httpapi"
	"github.com/niggl1/interfoneapp/internal/rbac"
	"github.com/niggl1/interfoneapp/internal/signaling"
)

type deps struct {
	api    *httpapi.API
	ws     *signaling.Handler
	authMW gin.HandlerFunc
	health gin.HandlerFunc
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d deps) {
	// public
	r.GET("/healthz", d.health)

	// Signaling handshake is public: tokenless connections downgrade to a
	// visitor identity inside the handler.
	r.GET("/ws", d.ws.Serve)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(d.authMW)
	{
		callsGroup := v1.Group("/calls")
		{
			callsGroup.POST("", d.api.CreateCall)
			callsGroup.GET("", d.api.History)
			callsGroup.GET("/active", d.api.ActiveCall)
			callsGroup.GET("/:id", d.api.GetCall)
			callsGroup.POST("/:id/answer", d.api.AnswerCall)
			callsGroup.POST("/:id/reject", d.api.RejectCall)
			callsGroup.POST("/:id/end", d.api.EndCall)
		}

		// ADMIN routes
		admin := v1.Group("/admin")
		admin.Use(rbac.RequireAnyRole(rbac.RoleStaff, rbac.RoleAdmin))
		{
			admin.GET("/reports/calls", d.api.CallsReport)
		}
	}
}
