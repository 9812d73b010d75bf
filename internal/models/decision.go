package models

import (
	"time"

	"github.com/google/uuid"
)

// Classification labels.
const (
	LabelReal = "Real"
	LabelFake = "Fake"
)

// Pipeline outcome constants, used for metrics and API error codes.
const (
	OutcomeOverride         = "override"
	OutcomeClassified       = "classified"
	OutcomeNotFound         = "profile_not_found"
	OutcomeNotFoundInferred = "profile_not_found_inferred"
	OutcomeUnavailable      = "extraction_unavailable"
	OutcomeModelUnavailable = "model_unavailable"
	OutcomeFailed           = "failed"
)

// Decision is the persisted record of one classification outcome.
// Decisions are append-only; nothing updates or deletes them.
type Decision struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	RequestedBy  *uuid.UUID `json:"requested_by,omitempty"`
	Signals      *SignalSet `json:"features,omitempty"` // nil for override hits
	Label        string     `json:"label"`
	Confidence   *float64   `json:"confidence"` // nil when the model has no probability output
	ModelVersion string     `json:"model_version"`
	Source       string     `json:"source"`
	Note         string     `json:"note,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// IsFake returns true if the decision labelled the account fake.
func (d *Decision) IsFake() bool {
	return d.Label == LabelFake
}

// IsOverride returns true if the decision came from the override table.
func (d *Decision) IsOverride() bool {
	return d.Source == SourceOverride
}

// DecisionFilter narrows a decision listing.
type DecisionFilter struct {
	RequestedBy *uuid.UUID
	Limit       int
}

// LabelCount is the number of decisions recorded for one label.
type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}
