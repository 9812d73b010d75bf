// Package classifier wraps the pretrained fake-account model behind a load-once
// adapter.
package classifier

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"instaguard/internal/features"
	"instaguard/internal/models"
)

// ErrModelUnavailable is returned for every prediction when the model failed to load.
var ErrModelUnavailable = errors.New("model unavailable")

// Prediction is the adapter's output for one feature vector.
type Prediction struct {
	Label        string
	Confidence   *float64 // nil when the model has no probability output
	ModelVersion string
}

// Adapter holds the process-wide model. Loading happens once; a failed load is
// remembered and never retried.
type Adapter struct {
	path           string
	defaultVersion string

	once  sync.Once
	model Model
	err   error
}

// NewAdapter creates an adapter that loads the artifact at path on first use.
// defaultVersion is reported when the artifact carries no version of its own.
func NewAdapter(path, defaultVersion string) *Adapter {
	return &Adapter{path: path, defaultVersion: defaultVersion}
}

// NewAdapterWithModel creates an adapter around an already loaded model.
func NewAdapterWithModel(m Model, defaultVersion string) *Adapter {
	a := &Adapter{defaultVersion: defaultVersion}
	a.once.Do(func() {
		if m == nil {
			a.err = errors.New("nil model")
			return
		}
		a.model = m
	})
	return a
}

// Load loads the model artifact if that has not happened yet and returns the
// load error, if any. Safe to call concurrently.
func (a *Adapter) Load() error {
	a.once.Do(func() {
		m, err := LoadFile(a.path)
		if err != nil {
			a.err = err
			slog.Error("classifier model failed to load", "path", a.path, "error", err)
			return
		}
		a.model = m
		slog.Info("classifier model loaded", "path", a.path, "version", a.Version())
	})
	return a.err
}

// Ready returns ErrModelUnavailable (wrapping the load error) if the model
// cannot serve predictions.
func (a *Adapter) Ready() error {
	if err := a.Load(); err != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return nil
}

// Version returns the model version, falling back to the configured default.
func (a *Adapter) Version() string {
	if a.model != nil {
		if v := a.model.Version(); v != "" {
			return v
		}
	}
	return a.defaultVersion
}

// Predict scores a feature vector. Label is Fake for the positive class.
// Confidence is the positive-class probability rounded to two decimals when
// the model supports it. Scoring errors are returned as-is, never retried.
func (a *Adapter) Predict(v features.Vector) (Prediction, error) {
	if err := a.Ready(); err != nil {
		return Prediction{}, err
	}
	if err := v.Validate(); err != nil {
		return Prediction{}, err
	}

	row := v.Slice()
	class, err := a.model.Predict(row)
	if err != nil {
		return Prediction{}, fmt.Errorf("prediction failed: %w", err)
	}

	p := Prediction{
		Label:        models.LabelReal,
		ModelVersion: a.Version(),
	}
	if class == 1 {
		p.Label = models.LabelFake
	}

	if pm, ok := a.model.(ProbabilityModel); ok {
		prob, err := pm.PredictProba(row)
		if err != nil {
			slog.Warn("probability output failed", "error", err)
		} else {
			rounded := Round2(prob)
			p.Confidence = &rounded
		}
	}

	return p, nil
}

// Round2 rounds to two decimal places.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
