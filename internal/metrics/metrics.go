package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"instaguard/internal/models"
)

var (
	decisionsDesc = prometheus.NewDesc(
		"instaguard_decisions_recorded",
		"Recorded classification decisions by label",
		[]string{"label"},
		nil,
	)

	classifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "instaguard_classifications_total",
		Help: "Classification requests by pipeline outcome",
	}, []string{"outcome"})

	collectorAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "instaguard_collector_attempts_total",
		Help: "Signal collector attempts by collector and result",
	}, []string{"collector", "result"})

	pipelineDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "instaguard_pipeline_duration_seconds",
		Help:    "Time spent classifying one username",
		Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"outcome"})
)

// Collector result labels.
const (
	ResultSignal = "signal"
	ResultEmpty  = "empty"
	ResultError  = "error"
)

// LabelCounter is the store query the decision collector needs.
type LabelCounter interface {
	CountDecisionsByLabel(ctx context.Context) ([]models.LabelCount, error)
}

// DecisionCollector is a custom Prometheus collector that reads decision counts
// from the store on each scrape.
type DecisionCollector struct {
	store LabelCounter
}

// Describe sends the metric descriptor to the channel.
func (c *DecisionCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- decisionsDesc
}

// Collect queries the store and emits one gauge per label.
func (c *DecisionCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	counts, err := c.store.CountDecisionsByLabel(ctx)
	if err != nil {
		slog.Error("failed to collect decision metrics", "error", err)
		return
	}
	for _, lc := range counts {
		ch <- prometheus.MustNewConstMetric(
			decisionsDesc,
			prometheus.GaugeValue,
			float64(lc.Count),
			lc.Label,
		)
	}
}

var initOnce sync.Once

// Init registers all collectors with the default registry.
// Must be called once at startup.
func Init(store LabelCounter) {
	initOnce.Do(func() {
		prometheus.MustRegister(classifications, collectorAttempts, pipelineDuration)
		if store != nil {
			prometheus.MustRegister(&DecisionCollector{store: store})
		}
	})
}

// RecordOutcome counts one finished pipeline run and its duration.
func RecordOutcome(outcome string, elapsed time.Duration) {
	classifications.WithLabelValues(outcome).Inc()
	pipelineDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// RecordCollectorAttempt counts one signal collector call.
func RecordCollectorAttempt(collector, result string) {
	collectorAttempts.WithLabelValues(collector, result).Inc()
}
