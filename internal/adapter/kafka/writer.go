// Package kafka publishes swath summaries to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/storm-swath-service/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces swath summaries to a Kafka topic.
// It implements pipeline.SummaryPublisher.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishSummary serializes summary and writes it keyed by run id.
func (w *Writer) PublishSummary(ctx context.Context, summary domain.SwathSummary) error {
	msg, err := serializeToMessage(summary)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write summary %s: %w", summary.RunID, err)
	}
	w.logger.Debug("summary published", "run_id", summary.RunID, "bytes", len(msg.Value))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a SwathSummary into a Kafka message.
func serializeToMessage(summary domain.SwathSummary) (kafkago.Message, error) {
	data, err := json.Marshal(summary)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize swath summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(summary.RunID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "storm_id", Value: []byte(summary.StormID)},
			{Key: "created_at", Value: []byte(summary.CreatedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
