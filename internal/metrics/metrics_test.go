package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"instaguard/internal/models"
)

type fakeCounter struct {
	counts []models.LabelCount
	err    error
}

func (f fakeCounter) CountDecisionsByLabel(context.Context) ([]models.LabelCount, error) {
	return f.counts, f.err
}

func TestDecisionCollector(t *testing.T) {
	c := &DecisionCollector{store: fakeCounter{counts: []models.LabelCount{
		{Label: models.LabelFake, Count: 3},
		{Label: models.LabelReal, Count: 9},
	}}}

	want := `
# HELP instaguard_decisions_recorded Recorded classification decisions by label
# TYPE instaguard_decisions_recorded gauge
instaguard_decisions_recorded{label="Fake"} 3
instaguard_decisions_recorded{label="Real"} 9
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(want)); err != nil {
		t.Error(err)
	}
}

func TestDecisionCollector_StoreError(t *testing.T) {
	c := &DecisionCollector{store: fakeCounter{err: errors.New("down")}}
	if n := testutil.CollectAndCount(c); n != 0 {
		t.Errorf("CollectAndCount() = %d, want 0 on store error", n)
	}
}

func TestRecordOutcome(t *testing.T) {
	before := testutil.ToFloat64(classifications.WithLabelValues(models.OutcomeOverride))
	RecordOutcome(models.OutcomeOverride, 10*time.Millisecond)
	after := testutil.ToFloat64(classifications.WithLabelValues(models.OutcomeOverride))
	if after-before != 1 {
		t.Errorf("override counter moved by %v, want 1", after-before)
	}
}

func TestRecordCollectorAttempt(t *testing.T) {
	before := testutil.ToFloat64(collectorAttempts.WithLabelValues("static", ResultEmpty))
	RecordCollectorAttempt("static", ResultEmpty)
	RecordCollectorAttempt("static", ResultEmpty)
	after := testutil.ToFloat64(collectorAttempts.WithLabelValues("static", ResultEmpty))
	if after-before != 2 {
		t.Errorf("collector counter moved by %v, want 2", after-before)
	}
}
