package mm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/silviatti/gensim/internal/corpus"
	apperrors "github.com/silviatti/gensim/pkg/errors"
)

// Corpus is a lazy, restartable view over a Matrix Market file. Open
// validates the header eagerly; documents are only read during iteration,
// and every Iter call holds its own read handle so independent traversals
// do not interfere.
type Corpus struct {
	path       string
	numDocs    int
	numTerms   int
	numNonZero int
}

// Open parses and validates the file header. A bad banner or size line
// fails fast with a ParseError; the body is not touched.
func Open(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	c := &Corpus{path: path}
	if _, err := c.readHeader(sc); err != nil {
		return nil, err
	}
	return c, nil
}

// readHeader consumes the banner, comments, and size line, returning the
// number of lines consumed.
func (c *Corpus) readHeader(sc *bufio.Scanner) (int, error) {
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return 0, fmt.Errorf("reading %s: %w", c.path, err)
		}
		return 0, apperrors.NewParse(apperrors.ErrCorruptHeader, c.path, 1, "missing banner")
	}
	line := 1
	banner := strings.ToLower(strings.TrimSpace(sc.Text()))
	if !strings.HasPrefix(banner, "%%matrixmarket matrix coordinate real") {
		return 0, apperrors.NewParse(apperrors.ErrCorruptHeader, c.path, 1, "unsupported banner %q", sc.Text())
	}
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(text, "%") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 3 {
			return 0, apperrors.NewParse(apperrors.ErrCorruptHeader, c.path, line, "size line needs 3 values, got %q", text)
		}
		vals := make([]int, 3)
		for i, field := range fields {
			v, err := strconv.Atoi(field)
			if err != nil || v < 0 {
				return 0, apperrors.NewParse(apperrors.ErrCorruptHeader, c.path, line, "bad size value %q", field)
			}
			vals[i] = v
		}
		c.numDocs, c.numTerms, c.numNonZero = vals[0], vals[1], vals[2]
		return line, nil
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("reading %s: %w", c.path, err)
	}
	return 0, apperrors.NewParse(apperrors.ErrCorruptHeader, c.path, line, "missing size line")
}

// NumDocs returns the document count recorded in the header.
func (c *Corpus) NumDocs() int { return c.numDocs }

// NumTerms returns the feature count recorded in the header.
func (c *Corpus) NumTerms() int { return c.numTerms }

// NumNonZero returns the non-zero entry count recorded in the header.
func (c *Corpus) NumNonZero() int { return c.numNonZero }

func (c *Corpus) Iter(ctx context.Context) (corpus.Iterator, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus file: %w", err)
	}
	sc := bufio.NewScanner(f)
	line, err := c.readHeader(sc)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &iterator{
		c:       c,
		file:    f,
		sc:      sc,
		line:    line,
		nextDoc: 1,
	}, nil
}

type entryRec struct {
	doc   int
	term  int
	value float64
}

type iterator struct {
	c       *Corpus
	file    *os.File
	sc      *bufio.Scanner
	line    int
	nextDoc int // 1-based index of the next document to yield
	pending *entryRec
	seen    int
	closed  bool
}

// Next yields documents strictly in file order. Gaps between entry document
// indices, and trailing documents past the last entry, come back as empty
// documents so the header's document count always matches what iteration
// produces.
func (it *iterator) Next() (corpus.Document, error) {
	if it.closed {
		return nil, apperrors.ErrClosed
	}
	if it.nextDoc > it.c.numDocs {
		if err := it.checkExhausted(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	doc := corpus.Document{}
	lastTerm := 0
	for {
		rec, err := it.nextEntry()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			// Body exhausted: this and any remaining documents are empty.
			break
		}
		if rec.doc < it.nextDoc {
			return nil, apperrors.NewParse(apperrors.ErrMalformedEntry, it.c.path, it.line,
				"document index %d out of order", rec.doc)
		}
		if rec.doc > it.c.numDocs {
			return nil, apperrors.NewParse(apperrors.ErrMalformedEntry, it.c.path, it.line,
				"document index %d exceeds header count %d", rec.doc, it.c.numDocs)
		}
		if rec.doc > it.nextDoc {
			it.pending = rec
			break
		}
		if rec.term <= lastTerm {
			return nil, apperrors.NewParse(apperrors.ErrMalformedEntry, it.c.path, it.line,
				"term index %d out of order within document %d", rec.term, rec.doc)
		}
		lastTerm = rec.term
		doc = append(doc, corpus.Entry{ID: rec.term - 1, Value: rec.value})
	}
	it.nextDoc++
	return doc, nil
}

// nextEntry returns the buffered lookahead entry or parses the next body
// line, or nil at end of file.
func (it *iterator) nextEntry() (*entryRec, error) {
	if it.pending != nil {
		rec := it.pending
		it.pending = nil
		return rec, nil
	}
	if !it.sc.Scan() {
		if err := it.sc.Err(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", it.c.path, err)
		}
		return nil, nil
	}
	it.line++
	fields := strings.Fields(it.sc.Text())
	if len(fields) != 3 {
		return nil, apperrors.NewParse(apperrors.ErrMalformedEntry, it.c.path, it.line,
			"entry needs 3 values, got %q", it.sc.Text())
	}
	docIdx, err := strconv.Atoi(fields[0])
	if err != nil || docIdx < 1 {
		return nil, apperrors.NewParse(apperrors.ErrMalformedEntry, it.c.path, it.line,
			"bad document index %q", fields[0])
	}
	term, err := strconv.Atoi(fields[1])
	if err != nil || term < 1 || term > it.c.numTerms {
		return nil, apperrors.NewParse(apperrors.ErrMalformedEntry, it.c.path, it.line,
			"bad term index %q", fields[1])
	}
	value, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return nil, apperrors.NewParse(apperrors.ErrMalformedEntry, it.c.path, it.line,
			"bad value %q", fields[2])
	}
	if value == 0 {
		return nil, apperrors.NewParse(apperrors.ErrMalformedEntry, it.c.path, it.line,
			"explicit zero entry for document %d term %d", docIdx, term)
	}
	it.seen++
	if it.seen > it.c.numNonZero {
		return nil, apperrors.NewParse(apperrors.ErrCorruptHeader, it.c.path, it.line,
			"more than %d entries in body", it.c.numNonZero)
	}
	return &entryRec{doc: docIdx, term: term, value: value}, nil
}

// checkExhausted verifies the body matched the header once every document
// has been yielded.
func (it *iterator) checkExhausted() error {
	rec, err := it.nextEntry()
	if err != nil {
		return err
	}
	if rec != nil {
		return apperrors.NewParse(apperrors.ErrCorruptHeader, it.c.path, it.line,
			"entry for document %d beyond header count %d", rec.doc, it.c.numDocs)
	}
	if it.seen != it.c.numNonZero {
		return apperrors.NewParse(apperrors.ErrCorruptHeader, it.c.path, it.line,
			"header promises %d entries, body holds %d", it.c.numNonZero, it.seen)
	}
	return nil
}

func (it *iterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	return it.file.Close()
}
