package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-management-api/pkg/response"
)

// HealthCheck probes one dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	Checks  []HealthCheck
	Timeout time.Duration
	Logger  *logrus.Logger
}

func NewHealthHandler(logger *logrus.Logger, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{Checks: checks, Timeout: 2 * time.Second, Logger: logger}
}

// Health GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.Timeout)
	defer cancel()

	for _, chk := range h.Checks {
		if err := chk.Check(ctx); err != nil {
			if h.Logger != nil {
				h.Logger.WithError(err).WithField("check", chk.Name).Warn("health check failed")
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"ok":         false,
				"error":      chk.Name + " unavailable",
				"request_id": c.GetString(response.RequestIDKey),
			})
			return
		}
	}
	response.JSON(c, http.StatusOK, gin.H{"ok": true})
}
