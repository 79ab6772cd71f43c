// Package kafka publishes normalized records to a sink topic for downstream
// consumers (exporters, archivers).
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/crime-data-service/internal/config"
	"github.com/couchcryptid/crime-data-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces normalized records to the configured sink topic.
// It implements service.RecordPublisher.
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

// PublishDataset serializes every record in the dataset and publishes them
// in a single WriteMessages call.
func (w *Writer) PublishDataset(ctx context.Context, dataset *domain.Dataset) error {
	if dataset.Len() == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, 0, dataset.Len())
	for i := range dataset.Len() {
		msg, err := serializeRecord(dataset, i)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeRecord marshals the record at index i into a Kafka message keyed
// by location, so all records for one location land on the same partition.
func serializeRecord(dataset *domain.Dataset, i int) (kafkago.Message, error) {
	var payload any
	if dataset.Kind == domain.KindStopSearch {
		payload = dataset.StopSearches[i]
	} else {
		payload = dataset.Incidents[i]
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s record: %w", dataset.Kind, err)
	}
	return kafkago.Message{
		Key:   []byte(dataset.LocationKey),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "record_kind", Value: []byte(dataset.Kind)},
			{Key: "fetched_at", Value: []byte(dataset.FetchedAt.Format(time.RFC3339))},
		},
	}, nil
}
