package vocabstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/silviatti/gensim/internal/dictionary"
)

// insertBatchSize keeps multi-row inserts under sqlite's bound-parameter
// limit (3 parameters per row).
const insertBatchSize = 300

// SQLiteStore persists the vocabulary to a local sqlite database, replacing
// any previous snapshot on Save.
type SQLiteStore struct {
	Path string
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{Path: path}
}

func (s *SQLiteStore) Save(ctx context.Context, d *dictionary.Dictionary) error {
	db, err := sql.Open("sqlite3", s.Path)
	if err != nil {
		return fmt.Errorf("opening sqlite database %s: %w", s.Path, err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vocabulary (id INTEGER NOT NULL, token TEXT NOT NULL, doc_freq INTEGER NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS vocabulary_meta (num_docs INTEGER NOT NULL, num_pos INTEGER NOT NULL)`,
		`DELETE FROM vocabulary`,
		`DELETE FROM vocabulary_meta`,
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning sqlite transaction: %w", err)
	}
	defer tx.Rollback()
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("preparing vocabulary tables: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO vocabulary_meta (num_docs, num_pos) VALUES (?, ?)`,
		d.NumDocs(), d.NumPos(),
	); err != nil {
		return fmt.Errorf("writing vocabulary counters: %w", err)
	}

	entries := d.Entries()
	for start := 0; start < len(entries); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(entries) {
			end = len(entries)
		}
		batch := entries[start:end]
		placeholders := make([]string, 0, len(batch))
		args := make([]any, 0, len(batch)*3)
		for _, e := range batch {
			placeholders = append(placeholders, "(?, ?, ?)")
			args = append(args, e.ID, e.Token, e.DocFreq)
		}
		stmt := fmt.Sprintf(
			"INSERT INTO vocabulary (id, token, doc_freq) VALUES %s",
			strings.Join(placeholders, ","),
		)
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("inserting vocabulary rows: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing vocabulary snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*dictionary.Dictionary, error) {
	db, err := sql.Open("sqlite3", s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %s: %w", s.Path, err)
	}
	defer db.Close()

	var numDocs int
	var numPos int64
	err = db.QueryRowContext(ctx,
		`SELECT num_docs, num_pos FROM vocabulary_meta`,
	).Scan(&numDocs, &numPos)
	if err != nil {
		return nil, fmt.Errorf("reading vocabulary counters: %w", err)
	}

	rows, err := db.QueryContext(ctx,
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
