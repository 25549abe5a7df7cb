package bleicorpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/silviatti/gensim/internal/corpus"
	apperrors "github.com/silviatti/gensim/pkg/errors"
)

func TestRoundTrip(t *testing.T) {
	docs := corpus.SliceCorpus{
		{{ID: 0, Value: 1}, {ID: 3, Value: 2.5}},
		{},
		{{ID: 1, Value: 0.5}},
	}
	path := filepath.Join(t.TempDir(), "corpus.lda-c")
	if err := Serialize(context.Background(), path, docs); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	for pass := 0; pass < 2; pass++ {
		got, err := corpus.ReadAll(context.Background(), c)
		if err != nil {
			t.Fatalf("pass %d: %v", pass, err)
		}
		if len(got) != len(docs) {
			t.Fatalf("pass %d: got %d documents, want %d", pass, len(got), len(docs))
		}
		for i := range docs {
			if !got[i].Equal(docs[i]) {
				t.Errorf("pass %d: document %d = %v, want %v", pass, i, got[i], docs[i])
			}
		}
	}
}

func TestEmptyDocumentLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.lda-c")
	if err := os.WriteFile(path, []byte("0\n1 2:4\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := corpus.ReadAll(context.Background(), c)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 2 || len(got[0]) != 0 {
		t.Fatalf("got %v, want empty document then one entry", got)
	}
	if !got[1].Equal(corpus.Document{{ID: 2, Value: 4}}) {
		t.Fatalf("got[1] = %v, want [{2 4}]", got[1])
	}
}

func TestRejectsMalformedLines(t *testing.T) {
	cases := map[string]string{
		"count mismatch": "2 1:1\n",
		"bad count":      "x 1:1\n",
		"bad entry":      "1 nope\n",
		"zero value":     "1 0:0\n",
		"id order":       "2 3:1 1:1\n",
	}
	for name, body := range cases {
		path := filepath.Join(t.TempDir(), "bad.lda-c")
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		c, err := Open(path)
		if err != nil {
			t.Fatalf("%s: Open: %v", name, err)
		}
		if _, err := corpus.ReadAll(context.Background(), c); !apperrors.Is(err, apperrors.ErrMalformedEntry) {
			t.Errorf("%s: error = %v, want ErrMalformedEntry", name, err)
		}
	}
}
