package source

import (
	"context"
	"io"
	"log/slog"

	"github.com/silviatti/gensim/internal/tokenizer"
	apperrors "github.com/silviatti/gensim/pkg/errors"
	"github.com/silviatti/gensim/pkg/kafka"
)

// KafkaSource streams raw document payloads off a Kafka topic, tokenizing
// each message value as one document. It is one-shot: the broker offset
// advances as messages are committed, so a second traversal cannot replay
// the stream. Iteration ends after maxDocs documents (if maxDocs > 0) or
// when ctx is cancelled.
type KafkaSource struct {
	consumer *kafka.Consumer
	maxDocs  int
	started  bool
	logger   *slog.Logger
}

func NewKafkaSource(consumer *kafka.Consumer, maxDocs int) *KafkaSource {
	return &KafkaSource{
		consumer: consumer,
		maxDocs:  maxDocs,
		logger:   slog.Default().With("component", "kafka-source"),
	}
}

func (s *KafkaSource) Restartable() bool { return false }

func (s *KafkaSource) Docs(ctx context.Context) (DocIterator, error) {
	if s.started {
		return nil, apperrors.ErrNotRestartable
	}
	s.started = true
	return &kafkaDocIterator{ctx: ctx, src: s}, nil
}

type kafkaDocIterator struct {
	ctx    context.Context
	src    *KafkaSource
	seen   int
	closed bool
}

func (it *kafkaDocIterator) Next() ([]string, error) {
	if it.closed {
		return nil, apperrors.ErrClosed
	}
	if it.src.maxDocs > 0 && it.seen >= it.src.maxDocs {
		return nil, io.EOF
	}
	msg, err := it.src.consumer.Fetch(it.ctx)
	if err != nil {
		if it.ctx.Err() != nil {
			// Cancellation marks the end of the stream, not a failure.
			it.src.logger.Info("document stream stopped", "documents", it.seen)
			return nil, io.EOF
		}
		return nil, err
	}
	it.seen++
	return tokenizer.Tokenize(string(msg.Value)), nil
}

func (it *kafkaDocIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	return it.src.consumer.Close()
}
