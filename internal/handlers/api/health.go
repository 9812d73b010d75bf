package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
)

// Pinger is any dependency that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessChecker reports whether the classification model is usable.
type ReadinessChecker interface {
	Ready() error
	Version() string
}

// HealthHandler reports service health via JSON API.
type HealthHandler struct {
	db         Pinger
	model      ReadinessChecker
	collectors []string
}

// NewHealthHandler creates a new API health handler.
func NewHealthHandler(database Pinger, model ReadinessChecker, collectors []string) *HealthHandler {
	return &HealthHandler{db: database, model: model, collectors: collectors}
}

type healthResponse struct {
	Database     string   `json:"database"`
	Model        string   `json:"model"`
	ModelVersion string   `json:"model_version,omitempty"`
	Collectors   []string `json:"collectors"`
}

// Check returns 200 when the database and the model are both usable and 503
// otherwise. The body is the same in both cases.
func (h *HealthHandler) Check(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{Database: "ok", Model: "ok", Collectors: h.collectors}
	if resp.Collectors == nil {
		resp.Collectors = []string{}
	}
	healthy := true

	if err := h.db.Ping(ctx); err != nil {
		resp.Database = "unreachable"
		healthy = false
	}
	if err := h.model.Ready(); err != nil {
		resp.Model = "unavailable"
		healthy = false
	} else {
		resp.ModelVersion = h.model.Version()
	}

	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "error",
			"error":  "service degraded",
			"data":   resp,
		})
	}
	return jsonSuccess(c, resp)
}
