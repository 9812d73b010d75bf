package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"instaguard/internal/classifier"
	"instaguard/internal/extract"
	"instaguard/internal/features"
	"instaguard/internal/models"
	"instaguard/internal/pipeline"
)

// Classifier is the pipeline surface the classify endpoints use.
type Classifier interface {
	Classify(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	Score(fields map[string]float64) (features.Vector, classifier.Prediction, error)
}

// ClassifyHandler serves the classification endpoints.
type ClassifyHandler struct {
	svc Classifier
}

// NewClassifyHandler creates a new classify handler.
func NewClassifyHandler(svc Classifier) *ClassifyHandler {
	return &ClassifyHandler{svc: svc}
}

// Classify runs the pipeline for the username in the request body.
func (h *ClassifyHandler) Classify(c fiber.Ctx) error {
	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var body struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonErrorCode(c, fiber.StatusBadRequest, "invalid_request", "invalid request body")
	}

	res, err := h.svc.Classify(c.Context(), pipeline.Request{
		Username:    body.Username,
		RequestedBy: &user.ID,
	})
	if err != nil {
		return classifyError(c, err)
	}

	d := res.Decision
	return jsonSuccess(c, models.ClassifyResponse{
		Username:   d.Username,
		Label:      d.Label,
		Confidence: d.Confidence,
		Message:    res.Message,
		Note:       d.Note,
		DecisionID: &d.ID,
	})
}

// classifyError maps pipeline errors onto HTTP responses. Internal details
// stay in the log.
func classifyError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, pipeline.ErrInvalidUsername):
		return jsonErrorCode(c, fiber.StatusBadRequest, "invalid_username", "invalid username")
	case extract.IsInferredNotFound(err):
		return jsonErrorCode(c, fiber.StatusNotFound, models.OutcomeNotFoundInferred, "username does not exist")
	case errors.Is(err, extract.ErrProfileNotFound):
		return jsonErrorCode(c, fiber.StatusNotFound, models.OutcomeNotFound, "username does not exist")
	case errors.Is(err, extract.ErrExtractionUnavailable):
		return jsonErrorCode(c, fiber.StatusServiceUnavailable, models.OutcomeUnavailable, "profile data is temporarily unavailable, try again later")
	case errors.Is(err, classifier.ErrModelUnavailable):
		return jsonErrorCode(c, fiber.StatusServiceUnavailable, models.OutcomeModelUnavailable, "classification service unavailable")
	default:
		slog.Error("classification request failed", "error", err)
		return jsonErrorCode(c, fiber.StatusInternalServerError, "internal_error", "classification failed")
	}
}

// Score classifies a caller-supplied signal map. Nothing is recorded.
func (h *ClassifyHandler) Score(c fiber.Ctx) error {
	var body struct {
		Features map[string]float64 `json:"features"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil || len(body.Features) == 0 {
		return jsonErrorCode(c, fiber.StatusBadRequest, "invalid_request", "features object is required")
	}

	vec, pred, err := h.svc.Score(body.Features)
	if err != nil {
		if errors.Is(err, features.ErrMalformedVector) {
			return jsonErrorCode(c, fiber.StatusBadRequest, "invalid_features", err.Error())
		}
		return classifyError(c, err)
	}

	return jsonSuccess(c, models.ScoreResponse{
		Label:        pred.Label,
		Confidence:   pred.Confidence,
		ModelVersion: pred.ModelVersion,
		Features:     vec.Slice(),
	})
}
