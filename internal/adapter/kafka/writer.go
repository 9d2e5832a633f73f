package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/flood-monitor-service/internal/config"
	"github.com/couchcryptid/flood-monitor-service/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes warning change events to a Kafka topic.
// It implements monitor.Publisher.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured warnings topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaWarningsTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchFlushInterval,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishChanges serializes and publishes warning changes in a single
// WriteMessages call. Messages are keyed by flood area ID so every change
// for one area lands on the same partition in order.
func (w *Writer) PublishChanges(ctx context.Context, changes []domain.WarningChange) error {
	if len(changes) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(changes))
	for i := range changes {
		msg, err := serializeToMessage(changes[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d warning changes: %w", len(msgs), err)
	}
	w.logger.Debug("published warning changes", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a WarningChange into a Kafka message.
func serializeToMessage(change domain.WarningChange) (kafkago.Message, error) {
	data, err := json.Marshal(change)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize warning change: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(change.Warning.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "change_type", Value: []byte(change.Type)},
			{Key: "severity_level", Value: []byte(strconv.Itoa(change.Warning.SeverityLevel))},
			{Key: "detected_at", Value: []byte(change.DetectedAt.Format(time.RFC3339))},
		},
	}, nil
}
