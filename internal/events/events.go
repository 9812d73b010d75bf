// Package events publishes decision events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"instaguard/internal/models"
)

const (
	// TypeDecisionRecorded is emitted after a decision is stored.
	TypeDecisionRecorded = "decision.recorded"

	schemaVersion = "1.0"
	sourceService = "instaguard"
)

// Envelope wraps every event payload.
type Envelope struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	OccurredAt    time.Time `json:"occurred_at"`
	SourceService string    `json:"source_service"`
	SchemaVersion string    `json:"schema_version"`
	PartitionKey  string    `json:"partition_key"`
	Data          any       `json:"data"`
}

// DecisionData is the payload of a decision.recorded event.
type DecisionData struct {
	DecisionID   string   `json:"decision_id"`
	Username     string   `json:"username"`
	Label        string   `json:"label"`
	Confidence   *float64 `json:"confidence"`
	Source       string   `json:"source"`
	ModelVersion string   `json:"model_version"`
	RequestedBy  string   `json:"requested_by,omitempty"`
	Partial      bool     `json:"partial"`
}

// NewDecisionRecorded builds the event for d, keyed by username so every
// decision for one account lands on the same partition.
func NewDecisionRecorded(d *models.Decision, now time.Time) Envelope {
	data := DecisionData{
		DecisionID:   d.ID.String(),
		Username:     d.Username,
		Label:        d.Label,
		Confidence:   d.Confidence,
		Source:       d.Source,
		ModelVersion: d.ModelVersion,
		Partial:      d.Signals != nil && d.Signals.Partial,
	}
	if d.RequestedBy != nil {
		data.RequestedBy = d.RequestedBy.String()
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     TypeDecisionRecorded,
		OccurredAt:    now.UTC(),
		SourceService: sourceService,
		SchemaVersion: schemaVersion,
		PartitionKey:  d.Username,
		Data:          data,
	}
}

// batchTimeout caps how long a single event waits for a batch to fill.
const batchTimeout = 10 * time.Millisecond

// KafkaPublisher writes events to a single topic.
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka publisher requires a topic")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
			WriteTimeout: 10 * time.Second,
			BatchTimeout: batchTimeout,
		},
		topic: topic,
	}, nil
}

// Publish writes one envelope.
func (p *KafkaPublisher) Publish(ctx context.Context, e Envelope) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", e.EventType, err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(e.PartitionKey),
		Value: payload,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.EventType)},
		},
	})
}

// Close flushes pending writes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
