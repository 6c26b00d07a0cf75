package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/couchcryptid/efb-avv-checker/internal/config"
	"github.com/couchcryptid/efb-avv-checker/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	entry := domain.SiteCatalog{
		Site: domain.Site{ID: 4, Annex: 12, Name: "Biogasanlage Oldenburg", State: "NI"},
		Codes: []domain.WasteCode{
			{Code: "200108", Text: "Küchenabfälle"},
			{Code: "190204", Hazardous: true},
		},
	}

	msg, err := serializeToMessage(entry, "2024-03-05T08:30:15Z")
	require.NoError(t, err)

	assert.Equal(t, []byte("annex-12"), msg.Key)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "annex", msg.Headers[0].Key)
	assert.Equal(t, []byte("12"), msg.Headers[0].Value)
	assert.Equal(t, "state", msg.Headers[1].Key)
	assert.Equal(t, []byte("NI"), msg.Headers[1].Value)
	assert.Equal(t, "generated_at", msg.Headers[2].Key)
	assert.Equal(t, []byte("2024-03-05T08:30:15Z"), msg.Headers[2].Value)

	var got domain.SiteCatalog
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, entry, got)
}

func TestMessageKey(t *testing.T) {
	assert.Equal(t, "annex-1", MessageKey(1))
}

func TestWriter_PublishEmptyCatalog(t *testing.T) {
	w := NewWriter(&config.Config{KafkaBrokers: []string{"127.0.0.1:1"}, KafkaSitesTopic: "efb-sites"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, w.Publish(context.Background(), domain.Meta{}, nil), "empty catalog never dials the broker")
}

func TestNewWriter_UsesSitesTopic(t *testing.T) {
	w := NewWriter(&config.Config{KafkaBrokers: []string{"b1:9092"}, KafkaSitesTopic: "custom-sites"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Equal(t, "custom-sites", w.writer.Topic)
	assert.Equal(t, kafkago.RequireAll, w.writer.RequiredAcks)
}
