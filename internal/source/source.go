// Package source provides document sources: lazy sequences of tokenized
// documents that feed dictionary building and vectorization. A source may
// be restartable (every Docs call starts a fresh traversal with its own
// handle) or one-shot, in which case a second Docs call fails fast.
package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/silviatti/gensim/internal/tokenizer"
	apperrors "github.com/silviatti/gensim/pkg/errors"
)

// DocIterator yields one tokenized document per Next call and io.EOF once
// the source is exhausted.
type DocIterator interface {
	Next() ([]string, error)
	Close() error
}

// Source produces traversals of a document collection.
type Source interface {
	Docs(ctx context.Context) (DocIterator, error)
	Restartable() bool
}

// SliceSource is an in-memory, restartable source of pre-tokenized
// documents.
type SliceSource [][]string

func (s SliceSource) Docs(ctx context.Context) (DocIterator, error) {
	return &sliceDocIterator{docs: s}, nil
}

func (s SliceSource) Restartable() bool { return true }

type sliceDocIterator struct {
	docs [][]string
	pos  int
}

func (it *sliceDocIterator) Next() ([]string, error) {
	if it.pos >= len(it.docs) {
		return nil, io.EOF
	}
	doc := it.docs[it.pos]
	it.pos++
	return doc, nil
}

func (it *sliceDocIterator) Close() error { return nil }

// LineSource reads a text file with one raw document per line, tokenizing
// each line on the fly. It is restartable: every traversal opens its own
// read handle. Read failures are fatal, never skipped, since document order
// and count integrity matter downstream.
type LineSource struct {
	Path string
}

// NewLineSource returns a LineSource over path. The file is not touched
// until the first traversal.
func NewLineSource(path string) *LineSource {
	return &LineSource{Path: path}
}

func (s *LineSource) Restartable() bool { return true }

func (s *LineSource) Docs(ctx context.Context) (DocIterator, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening document file: %w", err)
	}
	sc := bufio.NewScanner(f)
	// One document per line; documents can be far longer than the default
	// scanner limit.
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &lineDocIterator{
		path:    s.Path,
		file:    f,
		scanner: sc,
	}, nil
}

type lineDocIterator struct {
	path    string
	file    *os.File
	scanner *bufio.Scanner
	closed  bool
}

func (it *lineDocIterator) Next() ([]string, error) {
	if it.closed {
		return nil, apperrors.ErrClosed
	}
	if !it.scanner.Scan() {
		if err := it.scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", it.path, err)
		}
		return nil, io.EOF
	}
	return tokenizer.Tokenize(it.scanner.Text()), nil
}

func (it *lineDocIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	return it.file.Close()
}
