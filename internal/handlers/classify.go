package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"instaguard/internal/classifier"
	"instaguard/internal/config"
	"instaguard/internal/extract"
	"instaguard/internal/models"
	"instaguard/internal/pipeline"
)

// Classifier runs the classification pipeline.
type Classifier interface {
	Classify(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// ClassifyHandler serves the classify form and its HTMX result fragment.
type ClassifyHandler struct {
	svc Classifier
	cfg *config.Config
}

// NewClassifyHandler creates a new classify page handler.
func NewClassifyHandler(svc Classifier, cfg *config.Config) *ClassifyHandler {
	return &ClassifyHandler{svc: svc, cfg: cfg}
}

// Index renders the classify form.
func (h *ClassifyHandler) Index(c fiber.Ctx) error {
	return c.Render("index", MergeBranding(c, fiber.Map{
		"Title": "Check an account",
	}, h.cfg))
}

// Submit classifies the submitted username and renders the result fragment.
func (h *ClassifyHandler) Submit(c fiber.Ctx) error {
	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return htmxError(c, "Please sign in again.")
	}

	res, err := h.svc.Classify(c.Context(), pipeline.Request{
		Username:    c.FormValue("username"),
		RequestedBy: &user.ID,
	})
	if err != nil {
		return htmxError(c, userMessage(err))
	}

	return c.Render("partials/result", fiber.Map{
		"Decision": &res.Decision,
		"Message":  res.Message,
	}, "")
}

// userMessage turns a pipeline error into text fit for the page.
func userMessage(err error) string {
	switch {
	case errors.Is(err, pipeline.ErrInvalidUsername):
		return "Please enter a valid username."
	case errors.Is(err, extract.ErrProfileNotFound):
		return "Username does not exist."
	case errors.Is(err, extract.ErrExtractionUnavailable):
		return "Profile data is temporarily unavailable. Please try again later."
	case errors.Is(err, classifier.ErrModelUnavailable):
		return "Classification service unavailable."
	default:
		slog.Error("classification request failed", "error", err)
		return "Something went wrong. Please try again."
	}
}
