package dictionary

import (
	"context"
	"io"

	"github.com/silviatti/gensim/internal/corpus"
	"github.com/silviatti/gensim/internal/source"
	apperrors "github.com/silviatti/gensim/pkg/errors"
)

// BOWCorpus lazily maps a token source through a frozen Dictionary,
// yielding one bag-of-words vector per source document. It is restartable
// exactly when the underlying source is; a one-shot source makes the second
// Iter fail with ErrNotRestartable rather than yielding an empty corpus.
type BOWCorpus struct {
	dict    *Dictionary
	src     source.Source
	started bool
}

// NewBOWCorpus wraps src so it can be consumed as a corpus of vectors. The
// dictionary must not be mutated while the corpus is being iterated.
func NewBOWCorpus(dict *Dictionary, src source.Source) *BOWCorpus {
	return &BOWCorpus{dict: dict, src: src}
}

func (c *BOWCorpus) Iter(ctx context.Context) (corpus.Iterator, error) {
	if c.started && !c.src.Restartable() {
		return nil, apperrors.ErrNotRestartable
	}
	c.started = true
	docs, err := c.src.Docs(ctx)
	if err != nil {
		return nil, err
	}
	return &bowIterator{dict: c.dict, docs: docs}, nil
}

type bowIterator struct {
	dict *Dictionary
	docs source.DocIterator
}

func (it *bowIterator) Next() (corpus.Document, error) {
	tokens, err := it.docs.Next()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	return it.dict.Doc2BOW(tokens), nil
}

func (it *bowIterator) Close() error {
	return it.docs.Close()
}
