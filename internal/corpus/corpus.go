// Package corpus defines the sparse document vector model and the lazy,
// restartable iteration contract shared by every corpus backend. A corpus
// is consumed one document at a time; nothing here ever materializes a
// whole corpus unless the caller asks for it explicitly.
package corpus

import (
	"context"
	"io"
	"sort"

	apperrors "github.com/silviatti/gensim/pkg/errors"
)

// Entry is one non-zero feature of a document vector. Zero values are never
// stored; a missing id means zero.
type Entry struct {
	ID    int
	Value float64
}

// Document is a sparse bag-of-words vector: entries sorted by ascending ID,
// each ID unique.
type Document []Entry

// Sort orders the document's entries by ascending feature id.
func (d Document) Sort() {
	sort.Slice(d, func(i, j int) bool { return d[i].ID < d[j].ID })
}

// Equal reports whether two documents hold the same (id, value) pairs in
// the same order.
func (d Document) Equal(other Document) bool {
	if len(d) != len(other) {
		return false
	}
	for i := range d {
		if d[i] != other[i] {
			return false
		}
	}
	return true
}

// Iterator yields one document per Next call and io.EOF once the corpus is
// exhausted. Close releases the underlying resource and is safe to call
// before exhaustion.
type Iterator interface {
	Next() (Document, error)
	Close() error
}

// Corpus is anything that can produce a fresh traversal of its documents.
// Restartable backends return an independent Iterator per Iter call, each
// holding its own handle on the underlying source. One-shot backends fail
// the second Iter call with ErrNotRestartable rather than silently reading
// an exhausted stream as empty.
type Corpus interface {
	Iter(ctx context.Context) (Iterator, error)
}

// ReadAll drains a corpus into memory. Intended for tests and small
// corpora; large corpora should be consumed through Iter directly.
func ReadAll(ctx context.Context, c Corpus) ([]Document, error) {
	it, err := c.Iter(ctx)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var docs []Document
	for {
		doc, err := it.Next()
		if err == io.EOF {
			return docs, nil
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
}

// SliceCorpus is an in-memory, restartable corpus.
type SliceCorpus []Document

func (c SliceCorpus) Iter(ctx context.Context) (Iterator, error) {
	return &sliceIterator{docs: c}, nil
}

// Len returns the number of documents.
func (c SliceCorpus) Len() int { return len(c) }

type sliceIterator struct {
	docs   []Document
	pos    int
	closed bool
}

func (it *sliceIterator) Next() (Document, error) {
	if it.closed {
		return nil, apperrors.ErrClosed
	}
	if it.pos >= len(it.docs) {
		return nil, io.EOF
	}
	doc := it.docs[it.pos]
	it.pos++
	return doc, nil
}

func (it *sliceIterator) Close() error {
	it.closed = true
	return nil
}

// StreamCorpus adapts a generator function into a one-shot corpus. The
// generator is pulled lazily; it must return io.EOF when drained. A second
// Iter call fails with ErrNotRestartable.
type StreamCorpus struct {
	next    func() (Document, error)
	started bool
}

// NewStreamCorpus wraps next into a one-shot Corpus.
func NewStreamCorpus(next func() (Document, error)) *StreamCorpus {
	return &StreamCorpus{next: next}
}

func (c *StreamCorpus) Iter(ctx context.Context) (Iterator, error) {
	if c.started {
		return nil, apperrors.ErrNotRestartable
	}
	c.started = true
	return &streamIterator{ctx: ctx, next: c.next}, nil
}

type streamIterator struct {
	ctx    context.Context
	next   func() (Document, error)
	closed bool
}

func (it *streamIterator) Next() (Document, error) {
	if it.closed {
		return nil, apperrors.ErrClosed
	}
	if err := it.ctx.Err(); err != nil {
		return nil, err
	}
	return it.next()
}

func (it *streamIterator) Close() error {
	it.closed = true
	return nil
}
