// Package kafka publishes reconciled warnings to a sink topic for
// downstream consumers. Publishing is optional; the pipeline treats a nil
// publisher as "disabled".
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/imgw-warning-proxy/internal/config"
	"github.com/couchcryptid/imgw-warning-proxy/internal/domain"
)

// Writer produces warning messages to the configured sink topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes and writes one warning to the sink topic.
func (w *Writer) Publish(ctx context.Context, warning domain.Warning) error {
	msg, err := serializeToMessage(warning)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

// Close flushes and closes the underlying producer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a warning into a Kafka message. The message is
// keyed by the stable feed identifier when present so replacements of the
// same warning land in one partition; rows without one key by warehouse id.
func serializeToMessage(warning domain.Warning) (kafkago.Message, error) {
	data, err := json.Marshal(warning)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize warning: %w", err)
	}

	key := warning.StableID()
	if key == "" {
		key = warning.ID
	}

	headers := []kafkago.Header{
		{Key: "fetched_at", Value: []byte(warning.FetchedAt.UTC().Format(time.RFC3339))},
	}
	if warning.Level != nil {
		headers = append(headers, kafkago.Header{Key: "level", Value: []byte(*warning.Level)})
	}

	return kafkago.Message{
		Key:     []byte(key),
		Value:   data,
		Headers: headers,
	}, nil
}
