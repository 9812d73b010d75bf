package api

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"instaguard/internal/models"
)

// DecisionLister reads recorded decisions.
type DecisionLister interface {
	ListDecisions(ctx context.Context, f models.DecisionFilter) ([]models.Decision, error)
	CountDecisionsByLabel(ctx context.Context) ([]models.LabelCount, error)
}

// DecisionHandler serves decision history.
type DecisionHandler struct {
	db DecisionLister
}

// NewDecisionHandler creates a new decision handler.
func NewDecisionHandler(database DecisionLister) *DecisionHandler {
	return &DecisionHandler{db: database}
}

// Mine returns the calling user's own decisions, newest first.
func (h *DecisionHandler) Mine(c fiber.Ctx) error {
	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	decisions, err := h.db.ListDecisions(c.Context(), models.DecisionFilter{
		RequestedBy: &user.ID,
		Limit:       queryLimit(c),
	})
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch decisions")
	}
	return jsonSuccess(c, nonNil(decisions))
}

// List returns all decisions, newest first (admin only).
func (h *DecisionHandler) List(c fiber.Ctx) error {
	user, ok := c.Locals("user").(*models.User)
	if !ok || !user.IsAdmin() {
		return jsonError(c, fiber.StatusForbidden, "admin access required")
	}

	decisions, err := h.db.ListDecisions(c.Context(), models.DecisionFilter{
		Limit: queryLimit(c),
	})
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch decisions")
	}
	return jsonSuccess(c, nonNil(decisions))
}

// Stats returns decision counts by label (admin only).
func (h *DecisionHandler) Stats(c fiber.Ctx) error {
	user, ok := c.Locals("user").(*models.User)
	if !ok || !user.IsAdmin() {
		return jsonError(c, fiber.StatusForbidden, "admin access required")
	}

	counts, err := h.db.CountDecisionsByLabel(c.Context())
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch stats")
	}

	resp := models.DecisionStatsResponse{Labels: counts}
	if resp.Labels == nil {
		resp.Labels = []models.LabelCount{}
	}
	for _, lc := range counts {
		resp.Total += lc.Count
	}
	return jsonSuccess(c, resp)
}

func nonNil(d []models.Decision) []models.Decision {
	if d == nil {
		return []models.Decision{}
	}
	return d
}

// queryLimit reads ?limit=; the store clamps out-of-range values.
func queryLimit(c fiber.Ctx) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return 0
	}
	return n
}
