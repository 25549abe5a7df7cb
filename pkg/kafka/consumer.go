// Package kafka provides a Kafka consumer backed by segmentio/kafka-go,
// used to pull raw document payloads off a topic one at a time.
package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/silviatti/gensim/pkg/config"
)

// Message is a single fetched document payload.
type Message struct {
	Key   []byte
	Value []byte
}

// Consumer reads messages from a Kafka topic on demand.
type Consumer struct {
	reader *kafka.Reader
	logger *slog.Logger
}

// NewConsumer creates a Consumer for the configured document topic.
func NewConsumer(cfg config.KafkaConfig) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.DocumentTopic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1e3,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	return &Consumer{
		reader: r,
		logger: slog.Default().With("component", "kafka-consumer", "topic", cfg.DocumentTopic),
	}
}

// Fetch blocks until the next message is available, commits it, and returns
// its payload. It returns ctx.Err() once ctx is cancelled.
func (c *Consumer) Fetch(ctx context.Context) (Message, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("fetching kafka message: %w", err)
	}
	c.logger.Debug("message received",
		"partition", msg.Partition,
		"offset", msg.Offset,
		"value_size", len(msg.Value),
	)
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("failed to commit message",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
	}
	return Message{Key: msg.Key, Value: msg.Value}, nil
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
