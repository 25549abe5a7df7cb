// Package integration exercises the full local pipeline: tokenized
// documents in, dictionary built, corpus serialized, reopened, and compared
// entry for entry. Everything runs against temp files; no external services
// are involved.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/silviatti/gensim/internal/corpus"
	"github.com/silviatti/gensim/internal/corpus/bleicorpus"
	"github.com/silviatti/gensim/internal/corpus/mm"
	"github.com/silviatti/gensim/internal/dictionary"
	"github.com/silviatti/gensim/internal/source"
	"github.com/silviatti/gensim/internal/vocabstore"
)

const sampleDocs = `Human machine interface for lab abc computer applications
A survey of user opinion of computer system response time
The EPS user interface management system
System and human system engineering testing of EPS
Relation of user perceived response time to error measurement
The generation of random binary unordered trees
The intersection graph of paths in trees
Graph minors IV Widths of trees and well quasi ordering
Graph minors A survey
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docs.txt")
	if err := os.WriteFile(path, []byte(sampleDocs), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestFilePipelineRoundTrip builds a dictionary from a line file, streams
// the vectorized corpus to Matrix Market, and checks the reopened corpus
// matches a direct vectorization pass.
func TestFilePipelineRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := source.NewLineSource(writeSample(t))

	dict, err := dictionary.Build(ctx, src)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if dict.NumDocs() != 9 {
		t.Fatalf("NumDocs = %d, want 9", dict.NumDocs())
	}

	mmPath := filepath.Join(t.TempDir(), "corpus.mm")
	if err := mm.Serialize(ctx, mmPath, dictionary.NewBOWCorpus(dict, src)); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	persisted, err := mm.Open(mmPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if persisted.NumDocs() != 9 {
		t.Fatalf("persisted NumDocs = %d, want 9", persisted.NumDocs())
	}
	if persisted.NumTerms() != dict.Len() {
		t.Fatalf("persisted NumTerms = %d, want %d", persisted.NumTerms(), dict.Len())
	}

	got, err := corpus.ReadAll(ctx, persisted)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	want, err := corpus.ReadAll(ctx, dictionary.NewBOWCorpus(dict, src))
	if err != nil {
		t.Fatalf("ReadAll(reference): %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d documents, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("document %d = %v, want %v", i, got[i], want[i])
		}
	}
}

// TestFormatConversion reads a Matrix Market corpus and rewrites it as
// LDA-C, checking the vectors survive the conversion.
func TestFormatConversion(t *testing.T) {
	ctx := context.Background()
	src := source.NewLineSource(writeSample(t))
	dict, err := dictionary.Build(ctx, src)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	dir := t.TempDir()
	mmPath := filepath.Join(dir, "corpus.mm")
	bleiPath := filepath.Join(dir, "corpus.lda-c")
	if err := mm.Serialize(ctx, mmPath, dictionary.NewBOWCorpus(dict, src)); err != nil {
		t.Fatalf("mm.Serialize: %v", err)
	}
	mmCorpus, err := mm.Open(mmPath)
	if err != nil {
		t.Fatalf("mm.Open: %v", err)
	}
	if err := bleicorpus.Serialize(ctx, bleiPath, mmCorpus); err != nil {
		t.Fatalf("bleicorpus.Serialize: %v", err)
	}

	bleiCorpus, err := bleicorpus.Open(bleiPath)
	if err != nil {
		t.Fatalf("bleicorpus.Open: %v", err)
	}
	got, err := corpus.ReadAll(ctx, bleiCorpus)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	want, err := corpus.ReadAll(ctx, mmCorpus)
	if err != nil {
		t.Fatalf("ReadAll(mm): %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d documents, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("document %d = %v, want %v", i, got[i], want[i])
		}
	}
}

// TestFilteredDictionaryPersistence prunes the vocabulary, persists it, and
// checks the reloaded dictionary vectorizes identically.
func TestFilteredDictionaryPersistence(t *testing.T) {
	ctx := context.Background()
	src := source.NewLineSource(writeSample(t))
	dict, err := dictionary.Build(ctx, src)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	dict.FilterExtremes(2, 1.0, 0)

	store := vocabstore.NewTextStore(filepath.Join(t.TempDir(), "vocab.txt"))
	if err := store.Save(ctx, dict); err != nil {
		t.Fatalf("Save: %v", err)
	}
	restored, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tokens := []string{"graph", "minors", "survey", "nonexistent"}
	if got, want := restored.Doc2BOW(tokens), dict.Doc2BOW(tokens); !got.Equal(want) {
		t.Fatalf("restored Doc2BOW = %v, want %v", got, want)
	}
}
