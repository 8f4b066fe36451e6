package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/healthtrack/backend/internal/model"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	database Pinger
	store    Pinger
	timeout  time.Duration
}

// NewHealthHandler checks database and, when the refresh store is not the
// database itself, store. store may be nil.
func NewHealthHandler(database, store Pinger) *HealthHandler {
	return &HealthHandler{database: database, store: store, timeout: 2 * time.Second}
}

func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, model.PingResponse{Message: "pong"})
}

// Healthz godoc
// @Summary Readiness check
// @Tags health
// @Produce json
// @Success 200 {object} model.HealthResponse
// @Failure 503 {object} model.HealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp := model.HealthResponse{Status: "ok", Database: "ok"}
	if err := h.database.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = "unreachable"
	}
	if h.store != nil {
		resp.Store = "ok"
		if err := h.store.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Store = "unreachable"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
