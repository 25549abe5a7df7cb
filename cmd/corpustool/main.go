// Command corpustool builds a dictionary from a document source, vectorizes
// the documents, and persists both: the corpus in a chosen on-disk format
// and the vocabulary in a chosen store backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/silviatti/gensim/internal/corpus"
	"github.com/silviatti/gensim/internal/corpus/bleicorpus"
	"github.com/silviatti/gensim/internal/corpus/mm"
	"github.com/silviatti/gensim/internal/dictionary"
	"github.com/silviatti/gensim/internal/source"
	"github.com/silviatti/gensim/internal/vocabstore"
	"github.com/silviatti/gensim/pkg/config"
	apperrors "github.com/silviatti/gensim/pkg/errors"
	"github.com/silviatti/gensim/pkg/kafka"
	"github.com/silviatti/gensim/pkg/logger"
	"github.com/silviatti/gensim/pkg/metrics"
	"github.com/silviatti/gensim/pkg/postgres"
	"github.com/silviatti/gensim/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	inputPath := flag.String("input", "", "text file with one document per line (omit to consume from kafka)")
	corpusPath := flag.String("corpus", "corpus.mm", "output corpus path")
	dictPath := flag.String("dict", "dictionary.txt", "output vocabulary path (text and sqlite stores)")
	storeKind := flag.String("store", "text", "vocabulary store backend: text, sqlite, postgres, redis")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdown := m.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", "error", err)
			}
		}()
	}

	if err := run(ctx, cfg, m, *inputPath, *corpusPath, *dictPath, *storeKind); err != nil {
		slog.Error("corpustool failed", "error", err)
		os.Exit(1)
	}
	slog.Info("corpustool finished", "corpus", *corpusPath)
}

func run(ctx context.Context, cfg *config.Config, m *metrics.Metrics, inputPath, corpusPath, dictPath, storeKind string) error {
	dict, vectors, err := buildVectors(ctx, cfg, inputPath)
	if err != nil {
		return fmt.Errorf("building dictionary: %w", err)
	}
	m.DocsProcessedTotal.Add(float64(dict.NumDocs()))
	m.TokensProcessedTotal.Add(float64(dict.NumPos()))

	if cfg.Dictionary.NoBelow > 0 || cfg.Dictionary.NoAboveFrac < 1.0 || cfg.Dictionary.KeepN > 0 {
		dict.FilterExtremes(cfg.Dictionary.NoBelow, cfg.Dictionary.NoAboveFrac, cfg.Dictionary.KeepN)
		// Filtering renumbers ids; vectors from the pre-filter vocabulary
		// would be stale, so re-vectorize.
		vectors, err = revectorize(dict, inputPath)
		if err != nil {
			return fmt.Errorf("re-vectorizing after filter: %w", err)
		}
	}
	m.VocabularySize.Set(float64(dict.Len()))

	store, cleanup, err := openStore(ctx, cfg, storeKind, dictPath)
	if err != nil {
		return fmt.Errorf("opening %s vocabulary store: %w", storeKind, err)
	}
	defer cleanup()

	// The corpus write and the vocabulary save are independent once the
	// dictionary is frozen.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		format := cfg.Corpus.Format
		start := time.Now()
		err := serializeCorpus(gctx, format, corpusPath, vectors)
		m.SerializeDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())
		if err != nil {
			m.SerializeErrorsTotal.WithLabelValues(format).Inc()
			return err
		}
		m.DocsSerializedTotal.WithLabelValues(format).Add(float64(dict.NumDocs()))
		return nil
	})
	g.Go(func() error {
		err := store.Save(gctx, dict)
		status := "ok"
		if err != nil {
			status = "error"
		}
		m.VocabStoreOpsTotal.WithLabelValues(storeKind, "save", status).Inc()
		return err
	})
	return g.Wait()
}

// buildVectors builds the dictionary and returns the vectorized corpus. A
// file input is traversed twice (build, then a lazy vectorizing pass); a
// kafka stream cannot be replayed, so its vectors are buffered in memory
// while the single pass runs.
func buildVectors(ctx context.Context, cfg *config.Config, inputPath string) (*dictionary.Dictionary, corpus.Corpus, error) {
	if inputPath != "" {
		src := source.NewLineSource(inputPath)
		dict, err := dictionary.Build(ctx, src)
		if err != nil {
			return nil, nil, err
		}
		return dict, dictionary.NewBOWCorpus(dict, src), nil
	}

	consumer := kafka.NewConsumer(cfg.Kafka)
	src := source.NewKafkaSource(consumer, cfg.Kafka.MaxDocuments)
	it, err := src.Docs(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer it.Close()
	dict := dictionary.New()
	var docs corpus.SliceCorpus
	for {
		tokens, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		docs = append(docs, dict.AddDocument(tokens))
	}
	return dict, docs, nil
}

func revectorize(dict *dictionary.Dictionary, inputPath string) (corpus.Corpus, error) {
	if inputPath != "" {
		return dictionary.NewBOWCorpus(dict, source.NewLineSource(inputPath)), nil
	}
	// A kafka stream cannot be replayed and the buffered vectors carry
	// pre-filter ids. Refuse rather than emit a corpus inconsistent with
	// the dictionary.
	return nil, fmt.Errorf("cannot re-vectorize a one-shot source after filtering: %w", apperrors.ErrNotRestartable)
}

func serializeCorpus(ctx context.Context, format, path string, c corpus.Corpus) error {
	switch format {
	case "mm":
		return mm.Serialize(ctx, path, c)
	case "blei":
		return bleicorpus.Serialize(ctx, path, c)
	default:
		return fmt.Errorf("%w: %q", apperrors.ErrUnknownFormat, format)
	}
}

func openStore(ctx context.Context, cfg *config.Config, kind, dictPath string) (vocabstore.Store, func(), error) {
	noop := func() {}
	switch kind {
	case "text":
		return vocabstore.NewTextStore(dictPath), noop, nil
	case "sqlite":
		return vocabstore.NewSQLiteStore(dictPath), noop, nil
	case "postgres":
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		store := vocabstore.NewPostgresStore(client)
		if err := store.EnsureSchema(ctx); err != nil {
			client.Close()
			return nil, nil, err
		}
		return store, func() { client.Close() }, nil
	case "redis":
		client, err := redis.NewClient(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return vocabstore.NewRedisStore(client), func() { client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown vocabulary store %q", kind)
	}
}
