package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"instaguard/internal/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// clampLimit applies the default and the upper bound to a list limit.
func clampLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}

// prepareDecision validates d and fills in its ID and timestamp when unset.
func prepareDecision(d *models.Decision) error {
	if d == nil {
		return fmt.Errorf("%w: nil decision", ErrInvalidDecision)
	}
	if d.Username == "" {
		return fmt.Errorf("%w: missing username", ErrInvalidDecision)
	}
	if d.Label != models.LabelReal && d.Label != models.LabelFake {
		return fmt.Errorf("%w: label %q", ErrInvalidDecision, d.Label)
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	return nil
}

func marshalSignals(s *models.SignalSet) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func unmarshalSignals(raw []byte) (*models.SignalSet, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s models.SignalSet
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decoding stored features: %w", err)
	}
	return &s, nil
}

// RecordDecision appends a decision and returns its ID.
func (d *DB) RecordDecision(ctx context.Context, dec *models.Decision) (uuid.UUID, error) {
	if err := prepareDecision(dec); err != nil {
		return uuid.Nil, err
	}
	features, err := marshalSignals(dec.Signals)
	if err != nil {
		return uuid.Nil, err
	}

	query := `
		INSERT INTO decisions (id, username, requested_by, features, label, confidence, model_version, source, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = d.Pool.Exec(ctx, query,
		dec.ID,
		dec.Username,
		dec.RequestedBy,
		features,
		dec.Label,
		dec.Confidence,
		dec.ModelVersion,
		dec.Source,
		dec.Note,
		dec.CreatedAt,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to record decision: %w", err)
	}
	return dec.ID, nil
}

// ListDecisions returns decisions newest first, optionally scoped to one requester.
func (d *DB) ListDecisions(ctx context.Context, f models.DecisionFilter) ([]models.Decision, error) {
	query := `
		SELECT id, username, requested_by, features, label, confidence, model_version, source, note, created_at
		FROM decisions
		WHERE ($1::uuid IS NULL OR requested_by = $1)
		ORDER BY created_at DESC, id
		LIMIT $2
	`

	rows, err := d.Pool.Query(ctx, query, f.RequestedBy, clampLimit(f.Limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []models.Decision
	for rows.Next() {
		var (
			dec models.Decision
			raw []byte
		)
		if err := rows.Scan(
			&dec.ID, &dec.Username, &dec.RequestedBy, &raw, &dec.Label,
			&dec.Confidence, &dec.ModelVersion, &dec.Source, &dec.Note, &dec.CreatedAt,
		); err != nil {
			return nil, err
		}
		if dec.Signals, err = unmarshalSignals(raw); err != nil {
			return nil, err
		}
		decisions = append(decisions, dec)
	}

	return decisions, rows.Err()
}

// CountDecisionsByLabel returns the number of decisions per label.
func (d *DB) CountDecisionsByLabel(ctx context.Context) ([]models.LabelCount, error) {
	rows, err := d.Pool.Query(ctx, `SELECT label, COUNT(*) FROM decisions GROUP BY label ORDER BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []models.LabelCount
	for rows.Next() {
		var lc models.LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, lc)
	}
	return counts, rows.Err()
}
