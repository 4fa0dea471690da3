package emitter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/headline-pulse/internal/logger"
	"github.com/DeafMist/headline-pulse/internal/models"
)

const defaultKafkaBatch = 500

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes documents to a topic, keyed by document ID.
type KafkaSink struct {
	w     messageWriter
	topic string
	batch int
	log   *slog.Logger
}

// NewKafkaSink builds a sink backed by a kafka-go writer.
func NewKafkaSink(brokers []string, topic string, log *slog.Logger) *KafkaSink {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     brokers,
		Topic:       topic,
		MaxAttempts: 3,
	})
	return newKafkaSink(w, topic, log)
}

func newKafkaSink(w messageWriter, topic string, log *slog.Logger) *KafkaSink {
	if log == nil {
		log = logger.Discard()
	}
	return &KafkaSink{w: w, topic: topic, batch: defaultKafkaBatch, log: log}
}

// Emit writes docs in fixed-size batches, stopping at the first failed batch.
func (s *KafkaSink) Emit(ctx context.Context, docs []models.Document) (int, error) {
	sent := 0
	for start := 0; start < len(docs); start += s.batch {
		end := min(start+s.batch, len(docs))

		msgs := make([]kafka.Message, 0, end-start)
		for _, doc := range docs[start:end] {
			payload, err := marshalDocument(doc)
			if err != nil {
				return sent, err
			}
			msgs = append(msgs, kafka.Message{Key: []byte(doc.ID), Value: payload})
		}

		if err := s.w.WriteMessages(ctx, msgs...); err != nil {
			return sent, fmt.Errorf("publish to %s: %w", s.topic, err)
		}
		sent += len(msgs)
		s.log.Debug("published batch", slog.String("topic", s.topic), slog.Int("sent", sent))
	}
	return sent, nil
}

// Close flushes and closes the underlying writer.
func (s *KafkaSink) Close() error {
	return s.w.Close()
}
