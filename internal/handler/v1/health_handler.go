package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	version string
	checks  map[string]Pinger
	log     *zap.Logger
}

func NewHealthHandler(version string, checks map[string]Pinger, log *zap.Logger) *HealthHandler {
	return &HealthHandler{version: version, checks: checks, log: log}
}

// Health is liveness only and never touches dependencies.
func (h *HealthHandler) Health(c *gin.Context) {
	respondOK(c, gin.H{"status": "ok", "version": h.version})
}

func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := make(map[string]string, len(h.checks))
	ready := true
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			h.log.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
			status[name] = "unavailable"
			ready = false
			continue
		}
		status[name] = "ok"
	}

	if !ready {
		respond(c, http.StatusServiceUnavailable, Envelope{Data: status, Message: "not ready"})
		return
	}
	respondOK(c, status)
}
