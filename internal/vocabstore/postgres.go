package vocabstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/silviatti/gensim/internal/dictionary"
	"github.com/silviatti/gensim/pkg/postgres"
	"github.com/silviatti/gensim/pkg/resilience"
)

// PostgresStore persists the vocabulary in PostgreSQL. Save replaces the
// previous snapshot inside a single transaction and retries transient
// failures with backoff.
type PostgresStore struct {
	client *postgres.Client
	retry  resilience.RetryConfig
}

func NewPostgresStore(client *postgres.Client) *PostgresStore {
	return &PostgresStore{client: client}
}

// EnsureSchema creates the vocabulary tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vocabulary (
			id INTEGER NOT NULL,
			token TEXT NOT NULL,
			doc_freq INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS vocabulary_meta (
			num_docs INTEGER NOT NULL,
			num_pos BIGINT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.client.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating vocabulary schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, d *dictionary.Dictionary) error {
	entries := d.Entries()
	return resilience.Retry(ctx, "vocabulary-save", s.retry, func() error {
		return s.client.InTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `DELETE FROM vocabulary`); err != nil {
				return fmt.Errorf("clearing vocabulary: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM vocabulary_meta`); err != nil {
				return fmt.Errorf("clearing vocabulary counters: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vocabulary_meta (num_docs, num_pos) VALUES ($1, $2)`,
				d.NumDocs(), d.NumPos(),
			); err != nil {
				return fmt.Errorf("writing vocabulary counters: %w", err)
			}
			stmt, err := tx.PrepareContext(ctx,
				`INSERT INTO vocabulary (id, token, doc_freq) VALUES ($1, $2, $3)`,
			)
			if err != nil {
				return fmt.Errorf("preparing vocabulary insert: %w", err)
			}
			defer stmt.Close()
			for _, e := range entries {
				if _, err := stmt.ExecContext(ctx, e.ID, e.Token, e.DocFreq); err != nil {
					return fmt.Errorf("inserting vocabulary row: %w", err)
				}
			}
			return nil
		})
	})
}

func (s *PostgresStore) Load(ctx context.Context) (*dictionary.Dictionary, error) {
	var numDocs int
	var numPos int64
	err := s.client.DB.QueryRowContext(ctx,
		`SELECT num_docs, num_pos FROM vocabulary_meta`,
	).Scan(&numDocs, &numPos)
	if err != nil {
		return nil, fmt.Errorf("reading vocabulary counters: %w", err)
	}

	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT id, token, doc_freq FROM vocabulary ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("reading vocabulary rows: %w", err)
	}
	defer rows.Close()

	var entries []dictionary.Entry
	for rows.Next() {
		var e dictionary.Entry
		if err := rows.Scan(&e.ID, &e.Token, &e.DocFreq); err != nil {
			return nil, fmt.Errorf("scanning vocabulary row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vocabulary rows: %w", err)
	}
	return dictionary.FromEntries(entries, numDocs, numPos), nil
}
