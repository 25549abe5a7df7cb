package vocabstore

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/silviatti/gensim/internal/dictionary"
	apperrors "github.com/silviatti/gensim/pkg/errors"
)

// TextStore dumps the vocabulary as a tab-separated file: a first line
// "numDocs<TAB>numPos", then one "id<TAB>token<TAB>docfreq" row per token,
// sorted by id. Writes go through a temp file renamed on success.
type TextStore struct {
	Path string
}

func NewTextStore(path string) *TextStore {
	return &TextStore{Path: path}
}

func (s *TextStore) Save(ctx context.Context, d *dictionary.Dictionary) (err error) {
	tmpPath := s.Path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp vocabulary file: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmpPath)
		}
	}()

	w := bufio.NewWriter(f)
	if _, err = fmt.Fprintf(w, "%d\t%d\n", d.NumDocs(), d.NumPos()); err != nil {
		return fmt.Errorf("writing counters: %w", err)
	}
	for _, e := range d.Entries() {
		if err = ctx.Err(); err != nil {
			return err
		}
		if _, err = fmt.Fprintf(w, "%d\t%s\t%d\n", e.ID, e.Token, e.DocFreq); err != nil {
			return fmt.Errorf("writing vocabulary row: %w", err)
		}
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("flushing vocabulary file: %w", err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("syncing vocabulary file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("closing vocabulary file: %w", err)
	}
	if err = os.Rename(tmpPath, s.Path); err != nil {
		return fmt.Errorf("renaming vocabulary file: %w", err)
	}
	return nil
}

func (s *TextStore) Load(ctx context.Context) (*dictionary.Dictionary, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening vocabulary file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", s.Path, err)
		}
		return nil, apperrors.NewParse(apperrors.ErrCorruptHeader, s.Path, 1, "missing counter line")
	}
	counters := strings.Split(sc.Text(), "\t")
	if len(counters) != 2 {
		return nil, apperrors.NewParse(apperrors.ErrCorruptHeader, s.Path, 1, "counter line needs 2 values, got %q", sc.Text())
	}
	numDocs, err := strconv.Atoi(counters[0])
	if err != nil || numDocs < 0 {
		return nil, apperrors.NewParse(apperrors.ErrCorruptHeader, s.Path, 1, "bad document count %q", counters[0])
	}
	numPos, err := strconv.ParseInt(counters[1], 10, 64)
	if err != nil || numPos < 0 {
		return nil, apperrors.NewParse(apperrors.ErrCorruptHeader, s.Path, 1, "bad position count %q", counters[1])
	}

	var entries []dictionary.Entry
	lineNo := 1
	for sc.Scan() {
		lineNo++
		fields := strings.Split(sc.Text(), "\t")
		if len(fields) != 3 {
			return nil, apperrors.NewParse(apperrors.ErrMalformedEntry, s.Path, lineNo, "row needs 3 values, got %q", sc.Text())
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil || id < 0 {
			return nil, apperrors.NewParse(apperrors.ErrMalformedEntry, s.Path, lineNo, "bad id %q", fields[0])
		}
		freq, err := strconv.Atoi(fields[2])
		if err != nil || freq < 0 {
			return nil, apperrors.NewParse(apperrors.ErrMalformedEntry, s.Path, lineNo, "bad document frequency %q", fields[2])
		}
		entries = append(entries, dictionary.Entry{ID: id, Token: fields[1], DocFreq: freq})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.Path, err)
	}
	return dictionary.FromEntries(entries, numDocs, numPos), nil
}
