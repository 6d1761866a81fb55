package handler

import (
	"context"
	"net/http"
	"time"

	"orderapp/internal/repository"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type HealthHandler struct {
	db  repository.Pinger
	log *zap.Logger
}

func NewHealthHandler(db repository.Pinger, log *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, log: log.Named("health")}
}

type healthResponse struct {
	Status string `json:"status"`
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health/liveness", h.liveness)
	e.GET("/health/readiness", h.readiness)
}

func (h *HealthHandler) liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
}

// DBに届くか
func (h *HealthHandler) readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.log.Warn("readiness check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
	}
	return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
}
