// Package extract acquires profile signals for a username: first from the
// authenticated primary source, then from an ordered chain of fallback
// collectors that each recover a partial signal set.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"instaguard/internal/metrics"
	"instaguard/internal/models"
)

// Primary is the authenticated, full-signal source.
type Primary interface {
	Fetch(ctx context.Context, username string) (models.SignalSet, error)
}

// Extractor runs the primary source and then the fallback chain.
type Extractor struct {
	primary          Primary
	chain            []Collector
	primaryTimeout   time.Duration
	collectorTimeout time.Duration
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithPrimaryTimeout bounds the primary source attempt.
func WithPrimaryTimeout(d time.Duration) Option {
	return func(e *Extractor) { e.primaryTimeout = d }
}

// WithCollectorTimeout bounds each fallback collector independently.
func WithCollectorTimeout(d time.Duration) Option {
	return func(e *Extractor) { e.collectorTimeout = d }
}

// NewExtractor creates an extractor. primary may be nil.
func NewExtractor(primary Primary, chain []Collector, opts ...Option) *Extractor {
	e := &Extractor{
		primary:          primary,
		chain:            chain,
		primaryTimeout:   45 * time.Second,
		collectorTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Collectors returns the names of the fallback chain in order.
func (e *Extractor) Collectors() []string {
	names := make([]string, len(e.chain))
	for i, c := range e.chain {
		names[i] = c.Name()
	}
	return names
}

// Extract returns the signal set for username.
//
// A primary "does not exist" answer is returned as an explicit NotFoundError.
// Any other primary failure falls through to the chain, which stops at the
// first collector reporting a positive bio length. If every collector comes
// back empty the result is an inferred NotFoundError. ErrExtractionUnavailable
// is returned only when nothing could be attempted.
func (e *Extractor) Extract(ctx context.Context, username string) (models.SignalSet, error) {
	if e.primary != nil {
		s, err := e.fetchPrimary(ctx, username)
		switch {
		case err == nil:
			s.Source = models.SourcePrimary
			return s, nil
		case errors.Is(err, ErrProfileNotExist):
			return models.SignalSet{}, &NotFoundError{Username: username}
		default:
			slog.Warn("primary source failed, using fallbacks", "username", username, "error", err)
		}
	}

	if len(e.chain) == 0 {
		return models.SignalSet{}, fmt.Errorf("%w: primary failed and no fallback collectors are configured", ErrExtractionUnavailable)
	}

	for _, c := range e.chain {
		if err := ctx.Err(); err != nil {
			return models.SignalSet{}, fmt.Errorf("%w: %v", ErrExtractionUnavailable, err)
		}

		p, err := e.runCollector(ctx, c, username)
		switch {
		case err != nil:
			metrics.RecordCollectorAttempt(c.Name(), metrics.ResultError)
			slog.Warn("collector failed", "collector", c.Name(), "username", username, "error", err)
		case p.BioLength > 0:
			metrics.RecordCollectorAttempt(c.Name(), metrics.ResultSignal)
			slog.Info("collector produced signal", "collector", c.Name(), "username", username, "bio_length", p.BioLength)
			return partialSignals(username, c.Name(), p), nil
		default:
			metrics.RecordCollectorAttempt(c.Name(), metrics.ResultEmpty)
		}
	}

	if err := ctx.Err(); err != nil {
		return models.SignalSet{}, fmt.Errorf("%w: %v", ErrExtractionUnavailable, err)
	}
	return models.SignalSet{}, &NotFoundError{Username: username, Inferred: true}
}

func (e *Extractor) fetchPrimary(ctx context.Context, username string) (s models.SignalSet, err error) {
	if e.primaryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.primaryTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrPrimaryUnavailable, r)
		}
	}()
	return e.primary.Fetch(ctx, username)
}

// runCollector isolates one collector: its own deadline, and a panic becomes
// an ordinary error.
func (e *Extractor) runCollector(ctx context.Context, c Collector, username string) (p Partial, err error) {
	if e.collectorTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.collectorTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("collector %s panicked: %v", c.Name(), r)
		}
	}()
	return c.Collect(ctx, username)
}
