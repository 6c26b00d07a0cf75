// Package kafka publishes seeded site catalogs to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/couchcryptid/efb-avv-checker/internal/config"
	"github.com/couchcryptid/efb-avv-checker/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces one message per site to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sites topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSitesTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes the catalog and writes it in a single WriteMessages call.
// Keys are stable per annex so a compacted topic keeps the latest entry.
func (w *Writer) Publish(ctx context.Context, meta domain.Meta, catalog []domain.SiteCatalog) error {
	if len(catalog) == 0 {
		return nil
	}
	generatedAt := meta[domain.MetaGeneratedAt]
	msgs := make([]kafkago.Message, len(catalog))
	for i := range catalog {
		msg, err := serializeToMessage(catalog[i], generatedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write site messages: %w", err)
	}
	w.logger.Info("catalog published", "topic", w.writer.Topic, "sites", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// MessageKey is the partition key for a site's catalog entry.
func MessageKey(annex int) string {
	return "annex-" + strconv.Itoa(annex)
}

// serializeToMessage marshals a SiteCatalog into a Kafka message.
func serializeToMessage(entry domain.SiteCatalog, generatedAt string) (kafkago.Message, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize site catalog: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(MessageKey(entry.Site.Annex)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "annex", Value: []byte(strconv.Itoa(entry.Site.Annex))},
			{Key: "state", Value: []byte(entry.Site.State)},
			{Key: "generated_at", Value: []byte(generatedAt)},
		},
	}, nil
}
