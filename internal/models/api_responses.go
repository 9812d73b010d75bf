package models

import "github.com/google/uuid"

// ClassifyResponse is returned by the classify endpoint.
type ClassifyResponse struct {
	Username   string     `json:"username"`
	Label      string     `json:"label"`
	Confidence *float64   `json:"confidence"`
	Message    string     `json:"message"`
	Note       string     `json:"note,omitempty"`
	DecisionID *uuid.UUID `json:"decision_id,omitempty"`
}

// ScoreResponse is returned when scoring caller-supplied signals.
type ScoreResponse struct {
	Label        string    `json:"label"`
	Confidence   *float64  `json:"confidence"`
	ModelVersion string    `json:"model_version"`
	Features     []float64 `json:"features"`
}

// DecisionStatsResponse summarizes recorded decisions by label.
type DecisionStatsResponse struct {
	Total  int64        `json:"total"`
	Labels []LabelCount `json:"labels"`
}
