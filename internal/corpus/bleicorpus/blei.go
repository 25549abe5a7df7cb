// Package bleicorpus reads and writes corpora in the LDA-C format used by
// Blei's lda-c: one line per document, "N id:value ..." with 0-based ids
// and N the number of entries. An empty document is the line "0". The
// format has no global header, so it can be written from a one-shot,
// uncounted source without any header patching; the price is that the
// document count is only known after a full read.
package bleicorpus

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/silviatti/gensim/internal/corpus"
	apperrors "github.com/silviatti/gensim/pkg/errors"
)

// Serialize writes c to path in a single pass, via a temp file renamed on
// success.
func Serialize(ctx context.Context, path string, c corpus.Corpus) (err error) {
	it, err := c.Iter(ctx)
	if err != nil {
		return err
	}
	defer it.Close()

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp corpus file: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmpPath)
		}
	}()

	w := bufio.NewWriter(f)
	numDocs := 0
	for {
		if err = ctx.Err(); err != nil {
			return err
		}
		var doc corpus.Document
		doc, err = it.Next()
		if err == io.EOF {
			err = nil
			break
		}
		if err != nil {
			return fmt.Errorf("reading corpus: %w", err)
		}
		numDocs++
		parts := make([]string, 0, len(doc)+1)
		lastID := -1
		kept := 0
		for _, e := range doc {
			if e.Value == 0 {
				continue
			}
			if e.ID < 0 || e.ID <= lastID {
				return fmt.Errorf("document %d: entries not in strictly ascending id order", numDocs)
			}
			lastID = e.ID
			kept++
			parts = append(parts, fmt.Sprintf("%d:%s", e.ID, strconv.FormatFloat(e.Value, 'g', -1, 64)))
		}
		parts = append([]string{strconv.Itoa(kept)}, parts...)
		if _, err = fmt.Fprintln(w, strings.Join(parts, " ")); err != nil {
			return fmt.Errorf("writing document: %w", err)
		}
	}

	if err = w.Flush(); err != nil {
		return fmt.Errorf("flushing corpus body: %w", err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("syncing corpus file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("closing corpus file: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming corpus file: %w", err)
	}
	slog.Default().With("component", "blei-writer").Info("corpus serialized",
		"path", path,
		"documents", numDocs,
	)
	return nil
}

// Corpus is a lazy, restartable view over an LDA-C file. Every Iter call
// opens its own read handle.
type Corpus struct {
	path string
}

// Open verifies the file is readable. Parsing happens lazily during
// iteration since the format has no header to validate up front.
func Open(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus file: %w", err)
	}
	f.Close()
	return &Corpus{path: path}, nil
}

func (c *Corpus) Iter(ctx context.Context) (corpus.Iterator, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus file: %w", err)
	}
	sc := bufio.NewScanner(f)
	// A whole document sits on one line.
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &iterator{path: c.path, file: f, sc: sc}, nil
}

type iterator struct {
	path   string
	file   *os.File
	sc     *bufio.Scanner
	line   int
	closed bool
}

func (it *iterator) Next() (corpus.Document, error) {
	if it.closed {
		return nil, apperrors.ErrClosed
	}
	if !it.sc.Scan() {
		if err := it.sc.Err(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", it.path, err)
		}
		return nil, io.EOF
	}
	it.line++
	fields := strings.Fields(it.sc.Text())
	if len(fields) == 0 {
		return nil, apperrors.NewParse(apperrors.ErrMalformedEntry, it.path, it.line, "blank document line")
	}
	count, err := strconv.Atoi(fields[0])
	if err != nil || count < 0 {
		return nil, apperrors.NewParse(apperrors.ErrMalformedEntry, it.path, it.line,
			"bad entry count %q", fields[0])
	}
	if len(fields)-1 != count {
		return nil, apperrors.NewParse(apperrors.ErrMalformedEntry, it.path, it.line,
			"entry count %d does not match %d entries", count, len(fields)-1)
	}
	doc := corpus.Document{}
	lastID := -1
	for _, field := range fields[1:] {
		idStr, valStr, ok := strings.Cut(field, ":")
		if !ok {
			return nil, apperrors.NewParse(apperrors.ErrMalformedEntry, it.path, it.line,
				"bad entry %q", field)
		}
		id, err := strconv.Atoi(idStr)
		if err != nil || id < 0 {
			return nil, apperrors.NewParse(apperrors.ErrMalformedEntry, it.path, it.line,
				"bad feature id %q", idStr)
		}
		if id <= lastID {
			return nil, apperrors.NewParse(apperrors.ErrMalformedEntry, it.path, it.line,
				"feature id %d out of order", id)
		}
		lastID = id
		value, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			return nil, apperrors.NewParse(apperrors.ErrMalformedEntry, it.path, it.line,
				"bad value %q", valStr)
		}
		if value == 0 {
			return nil, apperrors.NewParse(apperrors.ErrMalformedEntry, it.path, it.line,
				"explicit zero entry for feature %d", id)
		}
		doc = append(doc, corpus.Entry{ID: id, Value: value})
	}
	return doc, nil
}

func (it *iterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	return it.file.Close()
}
