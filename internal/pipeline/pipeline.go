// Package pipeline runs one classification request end to end: override
// check, signal extraction, normalization, scoring and recording.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"instaguard/internal/classifier"
	"instaguard/internal/events"
	"instaguard/internal/extract"
	"instaguard/internal/features"
	"instaguard/internal/metrics"
	"instaguard/internal/models"
	"instaguard/internal/validation"
)

const overrideMessage = "This is a verified real account based on trusted sources."

var (
	// ErrInvalidUsername is returned before the pipeline starts.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInternal wraps normalization, scoring and storage failures.
	ErrInternal = errors.New("internal error")
)

// Overrides looks up known accounts that skip extraction.
type Overrides interface {
	Lookup(username string) (string, bool)
}

// Extractor acquires profile signals.
type Extractor interface {
	Extract(ctx context.Context, username string) (models.SignalSet, error)
}

// Classifier scores feature vectors.
type Classifier interface {
	Ready() error
	Version() string
	Predict(v features.Vector) (classifier.Prediction, error)
}

// Recorder persists decisions.
type Recorder interface {
	RecordDecision(ctx context.Context, d *models.Decision) (uuid.UUID, error)
}

// Publisher emits decision events.
type Publisher interface {
	Publish(ctx context.Context, e events.Envelope) error
}

// Request is one classification request.
type Request struct {
	Username    string
	RequestedBy *uuid.UUID
}

// Result is a successful classification.
type Result struct {
	Decision models.Decision
	Message  string
}

// Service wires the pipeline stages together.
type Service struct {
	overrides  Overrides
	extractor  Extractor
	classifier Classifier
	recorder   Recorder
	publisher  Publisher
	pubTimeout time.Duration
	now        func() time.Time
}

// defaultPublishTimeout bounds the event write that follows each recorded
// decision.
const defaultPublishTimeout = 2 * time.Second

// Option configures a Service.
type Option func(*Service)

// WithPublisher publishes every recorded decision.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithPublishTimeout bounds each event publish. The publish outlives a
// cancelled request but never exceeds d.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *Service) { s.pubTimeout = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a pipeline service.
func NewService(o Overrides, e Extractor, c Classifier, r Recorder, opts ...Option) *Service {
	s := &Service{
		overrides:  o,
		extractor:  e,
		classifier: c,
		recorder:   r,
		pubTimeout: defaultPublishTimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Classify runs the pipeline for one username. Only override hits and
// classified outcomes are recorded; not-found and unavailable outcomes are
// returned as errors.
func (s *Service) Classify(ctx context.Context, req Request) (*Result, error) {
	start := s.now()
	res, outcome, err := s.classify(ctx, req)
	if outcome != "" {
		metrics.RecordOutcome(outcome, s.now().Sub(start))
	}
	return res, err
}

func (s *Service) classify(ctx context.Context, req Request) (*Result, string, error) {
	username := validation.NormalizeUsername(req.Username)
	if !validation.ValidateUsername(username) {
		return nil, "", fmt.Errorf("%w: %q", ErrInvalidUsername, req.Username)
	}

	if note, ok := s.overrides.Lookup(username); ok {
		conf := 1.0
		d := models.Decision{
			Username:     username,
			RequestedBy:  req.RequestedBy,
			Label:        models.LabelReal,
			Confidence:   &conf,
			ModelVersion: s.classifier.Version(),
			Source:       models.SourceOverride,
			Note:         note,
		}
		res, err := s.record(ctx, d, overrideMessage)
		if err != nil {
			return nil, models.OutcomeFailed, err
		}
		return res, models.OutcomeOverride, nil
	}

	if err := s.classifier.Ready(); err != nil {
		return nil, models.OutcomeModelUnavailable, err
	}

	signals, err := s.extractor.Extract(ctx, username)
	if err != nil {
		switch {
		case extract.IsInferredNotFound(err):
			return nil, models.OutcomeNotFoundInferred, err
		case errors.Is(err, extract.ErrProfileNotFound):
			return nil, models.OutcomeNotFound, err
		case errors.Is(err, extract.ErrExtractionUnavailable):
			return nil, models.OutcomeUnavailable, err
		default:
			slog.Error("unexpected extraction error", "username", username, "error", err)
			return nil, models.OutcomeUnavailable, fmt.Errorf("%w: %v", extract.ErrExtractionUnavailable, err)
		}
	}
	if signals.IsEmpty() {
		return nil, models.OutcomeNotFoundInferred, &extract.NotFoundError{Username: username, Inferred: true}
	}

	vec := features.Normalize(signals)
	pred, err := s.classifier.Predict(vec)
	if err != nil {
		if errors.Is(err, classifier.ErrModelUnavailable) {
			return nil, models.OutcomeModelUnavailable, err
		}
		slog.Error("classification failed", "username", username, "error", err)
		return nil, models.OutcomeFailed, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	d := models.Decision{
		Username:     username,
		RequestedBy:  req.RequestedBy,
		Signals:      &signals,
		Label:        pred.Label,
		Confidence:   pred.Confidence,
		ModelVersion: pred.ModelVersion,
		Source:       signals.Source,
	}
	res, err := s.record(ctx, d, classifiedMessage(pred.Label))
	if err != nil {
		return nil, models.OutcomeFailed, err
	}
	return res, models.OutcomeClassified, nil
}

func (s *Service) record(ctx context.Context, d models.Decision, message string) (*Result, error) {
	d.ID = uuid.New()
	d.CreatedAt = s.now().UTC()

	if _, err := s.recorder.RecordDecision(ctx, &d); err != nil {
		slog.Error("failed to record decision", "username", d.Username, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	if s.publisher != nil {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.pubTimeout)
		err := s.publisher.Publish(pubCtx, events.NewDecisionRecorded(&d, d.CreatedAt))
		cancel()
		if err != nil {
			slog.Warn("failed to publish decision event", "decision_id", d.ID, "error", err)
		}
	}

	return &Result{Decision: d, Message: message}, nil
}

func classifiedMessage(label string) string {
	return fmt.Sprintf("This account appears to be %s based on profile metrics.", strings.ToLower(label))
}

// Score classifies caller-supplied signals without extraction or recording.
func (s *Service) Score(fields map[string]float64) (features.Vector, classifier.Prediction, error) {
	vec := features.FromMap(fields)
	if err := vec.Validate(); err != nil {
		return vec, classifier.Prediction{}, err
	}
	pred, err := s.classifier.Predict(vec)
	return vec, pred, err
}
