package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/farm-sim-service/internal/config"
	"github.com/couchcryptid/farm-sim-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	headerRunID      = "run_id"
	headerRecordDate = "record_date"
	headerHarvests   = "harvests"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes simulation records to a Kafka topic.
// It implements simulation.Publisher.
type Writer struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured record topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Writer{writer: w, topic: cfg.KafkaTopic, logger: logger}
}

// Publish serializes and writes records in a single WriteMessages call.
// Records are keyed by timestamp so each partition stays in calendar order.
func (w *Writer) Publish(ctx context.Context, runID string, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(runID, records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d records to %s: %w", len(msgs), w.topic, err)
	}
	w.logger.Debug("records published", "topic", w.topic, "count", len(msgs), "run_id", runID)
	return nil
}

// Close flushes pending messages and closes the producer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a record into a Kafka message.
func serializeToMessage(runID string, rec domain.Record) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize record %s: %w", rec.Date, err)
	}
	return kafkago.Message{
		Key:   []byte(rec.Timestamp.Format(time.RFC3339)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: headerRunID, Value: []byte(runID)},
			{Key: headerRecordDate, Value: []byte(rec.Date)},
			{Key: headerHarvests, Value: []byte(fmt.Sprint(len(rec.Production.Harvests)))},
		},
	}, nil
}
