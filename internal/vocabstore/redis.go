package vocabstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/silviatti/gensim/internal/dictionary"
	apperrors "github.com/silviatti/gensim/pkg/errors"
	"github.com/silviatti/gensim/pkg/redis"
	"github.com/silviatti/gensim/pkg/resilience"
)

const (
	redisTokensKey   = "vocab:tokens"   // hash: token -> "id:docfreq"
	redisCountersKey = "vocab:counters" // "numDocs:numPos"
)

// RedisStore keeps the vocabulary in a Redis hash, one field per token.
type RedisStore struct {
	client *redis.Client
	retry  resilience.RetryConfig
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, d *dictionary.Dictionary) error {
	entries := d.Entries()
	fields := make([]any, 0, len(entries)*2)
	for _, e := range entries {
		fields = append(fields, e.Token, fmt.Sprintf("%d:%d", e.ID, e.DocFreq))
	}
	return resilience.Retry(ctx, "vocabulary-save", s.retry, func() error {
		if err := s.client.Del(ctx, redisTokensKey, redisCountersKey); err != nil {
			return fmt.Errorf("clearing vocabulary keys: %w", err)
		}
		if len(fields) > 0 {
			if err := s.client.HSet(ctx, redisTokensKey, fields...); err != nil {
				return fmt.Errorf("writing vocabulary hash: %w", err)
			}
		}
		counters := fmt.Sprintf("%d:%d", d.NumDocs(), d.NumPos())
		if err := s.client.Set(ctx, redisCountersKey, counters); err != nil {
			return fmt.Errorf("writing vocabulary counters: %w", err)
		}
		return nil
	})
}

func (s *RedisStore) Load(ctx context.Context) (*dictionary.Dictionary, error) {
	counters, err := s.client.Get(ctx, redisCountersKey)
	if err != nil {
		if redis.IsNilError(err) {
			return nil, fmt.Errorf("no vocabulary snapshot in redis")
		}
		return nil, fmt.Errorf("reading vocabulary counters: %w", err)
	}
	numDocs, numPos, err := parseCounters(counters)
	if err != nil {
		return nil, err
	}

	hash, err := s.client.HGetAll(ctx, redisTokensKey)
	if err != nil {
		return nil, fmt.Errorf("reading vocabulary hash: %w", err)
	}
	entries := make([]dictionary.Entry, 0, len(hash))
	for token, packed := range hash {
		idStr, freqStr, ok := strings.Cut(packed, ":")
		if !ok {
			return nil, apperrors.NewParse(apperrors.ErrMalformedEntry, redisTokensKey, 0, "bad field %q for token %q", packed, token)
		}
		id, err := strconv.Atoi(idStr)
		if err != nil || id < 0 {
			return nil, apperrors.NewParse(apperrors.ErrMalformedEntry, redisTokensKey, 0, "bad id %q for token %q", idStr, token)
		}
		freq, err := strconv.Atoi(freqStr)
		if err != nil || freq < 0 {
			return nil, apperrors.NewParse(apperrors.ErrMalformedEntry, redisTokensKey, 0, "bad document frequency %q for token %q", freqStr, token)
		}
		entries = append(entries, dictionary.Entry{ID: id, Token: token, DocFreq: freq})
	}
	return dictionary.FromEntries(entries, numDocs, numPos), nil
}

func parseCounters(packed string) (int, int64, error) {
	docsStr, posStr, ok := strings.Cut(packed, ":")
	if !ok {
		return 0, 0, apperrors.NewParse(apperrors.ErrCorruptHeader, redisCountersKey, 0, "bad counters %q", packed)
	}
	numDocs, err := strconv.Atoi(docsStr)
	if err != nil || numDocs < 0 {
		return 0, 0, apperrors.NewParse(apperrors.ErrCorruptHeader, redisCountersKey, 0, "bad document count %q", docsStr)
	}
	numPos, err := strconv.ParseInt(posStr, 10, 64)
	if err != nil || numPos < 0 {
		return 0, 0, apperrors.NewParse(apperrors.ErrCorruptHeader, redisCountersKey, 0, "bad position count %q", posStr)
	}
	return numDocs, numPos, nil
}
