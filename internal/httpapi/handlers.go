package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trio-driver/internal/audit"
	"trio-driver/internal/auth"
	"trio-driver/internal/calls"
	"trio-driver/internal/device"
	"trio-driver/internal/telephony"
	"trio-driver/pkg/logger"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call the endpoint, return JSON.
type Handlers struct {
	Endpoint telephony.Endpoint
}

func (h Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz checks that the phone answers.
func (h Handlers) Readyz(c *gin.Context) {
	if err := h.Endpoint.HealthCheck(c.Request.Context()); err != nil {
		logger.FromGin(c).Warn("device not ready", "err", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "endpoint": h.Endpoint.Name()})
}

func (h Handlers) Statistics(c *gin.Context) {
	snap, err := h.Endpoint.Statistics(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h Handlers) Version(c *gin.Context) {
	v, err := h.Endpoint.SoftwareVersion(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if v == nil {
		c.JSON(http.StatusOK, gin.H{"version": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"version": v.String(), "major": v.Major, "minor": v.Minor})
}

func (h Handlers) CallStatus(c *gin.Context) {
	st, err := h.Endpoint.RetrieveCallStatus(c.Request.Context(), c.Query("call_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h Handlers) MuteStatus(c *gin.Context) {
	st, ok, err := h.Endpoint.RetrieveMuteStatus(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "unknown"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": st})
}

func (h Handlers) Dial(c *gin.Context) {
	var req calls.DialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	handle, err := h.Endpoint.Dial(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	// the call was placed even when its handle could not be resolved
	c.JSON(http.StatusAccepted, gin.H{"call_id": handle, "resolved": handle != calls.UnknownCallID})
}

type callRequest struct {
	CallID  string `json:"call_id"`
	Message string `json:"message"`
}

func (h Handlers) Hangup(c *gin.Context) {
	var req callRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	if err := h.Endpoint.Hangup(c.Request.Context(), req.CallID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Handlers) Mute(c *gin.Context) {
	if err := h.Endpoint.Mute(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Handlers) Unmute(c *gin.Context) {
	if err := h.Endpoint.Unmute(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Handlers) SendMessage(c *gin.Context) {
	var req callRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Endpoint.SendMessage(c.Request.Context(), req.CallID, req.Message); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type controlsRequest struct {
	Properties []telephony.ControllableProperty `json:"properties"`
}

func (h Handlers) Controls(c *gin.Context) {
	var req controlsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Endpoint.ControlProperties(c.Request.Context(), req.Properties); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AuditActor records the authenticated caller in the request context for
// command auditing. Use it after auth.RequireAccessToken.
func AuditActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		sub, _ := auth.Subject(ctx)
		role, _ := auth.Role(ctx)
		c.Request = c.Request.WithContext(audit.WithActor(ctx, audit.Actor{Subject: sub, Role: role, IP: c.ClientIP()}))
		c.Next()
	}
}

// Deadline bounds the request context so device work stops before the
// server's write deadline would drop the response.
func Deadline(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// writeError maps driver errors to HTTP responses.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var ce *device.CommandError
	switch {
	case errors.Is(err, calls.ErrInvalidArgument),
		errors.Is(err, telephony.ErrUnknownControl),
		errors.Is(err, telephony.ErrInvalidControl):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, telephony.ErrNotImplemented):
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "not implemented"})
	case errors.As(err, &ce):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
			"error":       "device rejected command",
			"host":        ce.Host,
			"path":        ce.Path,
			"status":      string(ce.Status),
			"status_text": ce.Status.Text(),
		})
	case errors.Is(err, device.ErrTransport),
		errors.Is(err, context.DeadlineExceeded):
		c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{"error": "device unreachable"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
