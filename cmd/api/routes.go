package main

import (
	"time"

	"trio-driver/internal/httpapi"
	"trio-driver/internal/rbac"
	"trio-driver/internal/telephony"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, endpoint telephony.Endpoint, gatherer prometheus.Gatherer, authMW gin.HandlerFunc, deviceBudget time.Duration) {
	h := httpapi.Handlers{Endpoint: endpoint}

	// public
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW, httpapi.AuditActor(), httpapi.Deadline(deviceBudget))

	viewer := v1.Group("")
	viewer.Use(rbac.RequireRole(rbac.RoleViewer))
	{
		viewer.GET("/statistics", h.Statistics)
		viewer.GET("/version", h.Version)
		viewer.GET("/call/status", h.CallStatus)
		viewer.GET("/call/mute", h.MuteStatus)
	}

	operator := v1.Group("/call")
	operator.Use(rbac.RequireRole(rbac.RoleOperator))
	{
		operator.POST("/dial", h.Dial)
		operator.POST("/hangup", h.Hangup)
		operator.POST("/mute", h.Mute)
		operator.POST("/unmute", h.Unmute)
		operator.POST("/message", h.SendMessage)
	}

	// restart and reboot take the phone offline
	admin := v1.Group("")
	admin.Use(rbac.RequireRole(rbac.RoleAdmin))
	{
		admin.POST("/controls", h.Controls)
	}
}
