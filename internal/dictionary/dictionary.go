// Package dictionary implements the vocabulary: a mapping from tokens to
// stable integer ids plus per-id document frequencies. Ids are assigned in
// order of first appearance during a single forward pass over a document
// source, so building cannot be parallelized without changing the id
// assignment contract. A Dictionary is not safe for concurrent mutation.
package dictionary

import (
	"context"
	"io"
	"log/slog"
	"sort"

	"github.com/silviatti/gensim/internal/corpus"
	"github.com/silviatti/gensim/internal/source"
)

// Dictionary maps tokens to integer ids and tracks how many documents each
// token appears in.
type Dictionary struct {
	token2id map[string]int
	id2token map[int]string
	docFreq  map[int]int
	numDocs  int
	numPos   int64
	nextID   int
}

// Entry is one persisted vocabulary row.
type Entry struct {
	ID      int
	Token   string
	DocFreq int
}

// New returns an empty Dictionary.
func New() *Dictionary {
	return &Dictionary{
		token2id: make(map[string]int),
		id2token: make(map[int]string),
		docFreq:  make(map[int]int),
	}
}

// Build consumes src in a single forward pass and returns the resulting
// Dictionary. Auxiliary memory is proportional to the vocabulary, never to
// the corpus, so sources far larger than memory are fine.
func Build(ctx context.Context, src source.Source) (*Dictionary, error) {
	d := New()
	it, err := src.Docs(ctx)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tokens, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		d.AddDocument(tokens)
	}
	slog.Default().With("component", "dictionary").Info("dictionary built",
		"vocabulary_size", d.Len(),
		"documents", d.numDocs,
		"token_positions", d.numPos,
	)
	return d, nil
}

// AddDocument updates the vocabulary with one document's tokens and returns
// the document's bag-of-words vector. Unseen tokens get fresh ids in the
// order they appear; document frequency increments once per token per
// document, regardless of in-document repetition.
func (d *Dictionary) AddDocument(tokens []string) corpus.Document {
	counts := make(map[int]int)
	for _, token := range tokens {
		id, known := d.token2id[token]
		if !known {
			id = d.nextID
			d.nextID++
			d.token2id[token] = id
			d.id2token[id] = token
		}
		counts[id]++
	}
	for id := range counts {
		d.docFreq[id]++
	}
	d.numDocs++
	d.numPos += int64(len(tokens))
	return bowFromCounts(counts)
}

// Doc2BOW converts one document's tokens to a bag-of-words vector against
// the current vocabulary without modifying it. Tokens absent from the
// vocabulary are silently dropped; that loss is what keeps the
// representation sparse and bounded.
func (d *Dictionary) Doc2BOW(tokens []string) corpus.Document {
	counts := make(map[int]int)
	for _, token := range tokens {
		if id, ok := d.token2id[token]; ok {
			counts[id]++
		}
	}
	return bowFromCounts(counts)
}

func bowFromCounts(counts map[int]int) corpus.Document {
	doc := make(corpus.Document, 0, len(counts))
	for id, count := range counts {
		doc = append(doc, corpus.Entry{ID: id, Value: float64(count)})
	}
	doc.Sort()
	return doc
}

// FilterTokens removes the given ids and their frequency entries. Remaining
// ids keep their values, so the id space may contain gaps until Compactify
// is called.
func (d *Dictionary) FilterTokens(ids []int) {
	for _, id := range ids {
		token, ok := d.id2token[id]
		if !ok {
			continue
		}
		delete(d.token2id, token)
		delete(d.id2token, id)
		delete(d.docFreq, id)
	}
}

// Compactify renumbers surviving ids to the contiguous range [0, N),
// preserving their relative order. Calling it again with no intervening
// removals is a no-op.
func (d *Dictionary) Compactify() {
	ids := make([]int, 0, len(d.id2token))
	for id := range d.id2token {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	token2id := make(map[string]int, len(ids))
	id2token := make(map[int]string, len(ids))
	docFreq := make(map[int]int, len(ids))
	for newID, oldID := range ids {
		token := d.id2token[oldID]
		token2id[token] = newID
		id2token[newID] = token
		docFreq[newID] = d.docFreq[oldID]
	}
	d.token2id = token2id
	d.id2token = id2token
	d.docFreq = docFreq
	d.nextID = len(ids)
}

// FilterExtremes drops tokens that appear in fewer than noBelow documents
// or in more than noAboveFrac of all documents, then keeps only the keepN
// most frequent survivors (keepN <= 0 keeps all) and compactifies. Ties on
// frequency are broken by id so the result is deterministic.
func (d *Dictionary) FilterExtremes(noBelow int, noAboveFrac float64, keepN int) {
	noAbove := int(noAboveFrac * float64(d.numDocs))
	var keep []int
	for id, freq := range d.docFreq {
		if freq >= noBelow && (d.numDocs == 0 || freq <= noAbove) {
			keep = append(keep, id)
		}
	}
	sort.Slice(keep, func(i, j int) bool {
		fi, fj := d.docFreq[keep[i]], d.docFreq[keep[j]]
		if fi != fj {
			return fi > fj
		}
		return keep[i] < keep[j]
	})
	if keepN > 0 && len(keep) > keepN {
		keep = keep[:keepN]
	}

	keepSet := make(map[int]struct{}, len(keep))
	for _, id := range keep {
		keepSet[id] = struct{}{}
	}
	var remove []int
	for id := range d.id2token {
		if _, ok := keepSet[id]; !ok {
			remove = append(remove, id)
		}
	}
	before := d.Len()
	d.FilterTokens(remove)
	d.Compactify()
	slog.Default().With("component", "dictionary").Info("filtered extremes",
		"kept", d.Len(),
		"removed", before-d.Len(),
		"no_below", noBelow,
		"no_above_frac", noAboveFrac,
		"keep_n", keepN,
	)
}

// Len returns the number of distinct tokens in the vocabulary.
func (d *Dictionary) Len() int { return len(d.token2id) }

// NumDocs returns the number of documents processed so far.
func (d *Dictionary) NumDocs() int { return d.numDocs }

// NumPos returns the total number of token positions processed so far.
func (d *Dictionary) NumPos() int64 { return d.numPos }

// ID returns the id for token, if present.
func (d *Dictionary) ID(token string) (int, bool) {
	id, ok := d.token2id[token]
	return id, ok
}

// Token returns the token for id, if present.
func (d *Dictionary) Token(id int) (string, bool) {
	token, ok := d.id2token[id]
	return token, ok
}

// DocFreq returns the number of documents token id appears in.
func (d *Dictionary) DocFreq(id int) int {
	return d.docFreq[id]
}

// Entries returns a snapshot of the vocabulary sorted by id, suitable for
// persistence.
func (d *Dictionary) Entries() []Entry {
	entries := make([]Entry, 0, len(d.token2id))
	for id, token := range d.id2token {
		entries = append(entries, Entry{ID: id, Token: token, DocFreq: d.docFreq[id]})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

// FromEntries reconstructs a Dictionary from a persisted snapshot.
func FromEntries(entries []Entry, numDocs int, numPos int64) *Dictionary {
	d := New()
	d.numDocs = numDocs
	d.numPos = numPos
	for _, e := range entries {
		d.token2id[e.Token] = e.ID
		d.id2token[e.ID] = e.Token
		d.docFreq[e.ID] = e.DocFreq
		if e.ID >= d.nextID {
			d.nextID = e.ID + 1
		}
	}
	return d
}
