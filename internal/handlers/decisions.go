package handlers

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"instaguard/internal/config"
	"instaguard/internal/models"
)

// auditPageSize is how many decisions the audit view shows.
const auditPageSize = 200

// DecisionStore reads recorded decisions.
type DecisionStore interface {
	ListDecisions(ctx context.Context, f models.DecisionFilter) ([]models.Decision, error)
	CountDecisionsByLabel(ctx context.Context) ([]models.LabelCount, error)
}

// DecisionHandler renders decision history pages.
type DecisionHandler struct {
	db  DecisionStore
	cfg *config.Config
}

// NewDecisionHandler creates a new decision page handler.
func NewDecisionHandler(database DecisionStore, cfg *config.Config) *DecisionHandler {
	return &DecisionHandler{db: database, cfg: cfg}
}

// History renders the current user's own decisions.
func (h *DecisionHandler) History(c fiber.Ctx) error {
	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	decisions, err := h.db.ListDecisions(c.Context(), models.DecisionFilter{RequestedBy: &user.ID})
	if err != nil {
		return err
	}

	return c.Render("decisions", MergeBranding(c, fiber.Map{
		"Title":     "My checks",
		"Decisions": decisions,
	}, h.cfg))
}

// Audit renders every recorded decision with label totals (admin only).
func (h *DecisionHandler) Audit(c fiber.Ctx) error {
	user, ok := c.Locals("user").(*models.User)
	if !ok || !user.IsAdmin() {
		return fiber.NewError(fiber.StatusForbidden, "Admin access required")
	}

	decisions, err := h.db.ListDecisions(c.Context(), models.DecisionFilter{Limit: auditPageSize})
	if err != nil {
		return err
	}
	counts, err := h.db.CountDecisionsByLabel(c.Context())
	if err != nil {
		return err
	}

	var total int64
	for _, lc := range counts {
		total += lc.Count
	}

	return c.Render("decisions", MergeBranding(c, fiber.Map{
		"Title":     "Decision audit",
		"Audit":     true,
		"Decisions": decisions,
		"Counts":    counts,
		"Total":     total,
	}, h.cfg))
}
