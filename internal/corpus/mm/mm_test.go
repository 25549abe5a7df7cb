package mm

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/silviatti/gensim/internal/corpus"
	apperrors "github.com/silviatti/gensim/pkg/errors"
)

func roundTrip(t *testing.T, docs corpus.SliceCorpus) (*Corpus, []corpus.Document) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.mm")
	if err := Serialize(context.Background(), path, docs); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := corpus.ReadAll(context.Background(), c)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return c, got
}

func assertDocsEqual(t *testing.T, got, want []corpus.Document) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d documents, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("document %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRoundTripMixed(t *testing.T) {
	docs := corpus.SliceCorpus{
		{{ID: 0, Value: 1}, {ID: 2, Value: 3}},
		{},
		{{ID: 1, Value: 0.5}},
		{},
	}
	c, got := roundTrip(t, docs)
	assertDocsEqual(t, got, docs)
	if c.NumDocs() != 4 {
		t.Errorf("NumDocs = %d, want 4", c.NumDocs())
	}
	if c.NumTerms() != 3 {
		t.Errorf("NumTerms = %d, want 3", c.NumTerms())
	}
	if c.NumNonZero() != 3 {
		t.Errorf("NumNonZero = %d, want 3", c.NumNonZero())
	}
}

// TestRoundTripEmptySecondDocument pins the header document count when the
// last entry-bearing document is followed by an empty one.
func TestRoundTripEmptySecondDocument(t *testing.T) {
	docs := corpus.SliceCorpus{
		{{ID: 1, Value: 0.5}},
		{},
	}
	c, got := roundTrip(t, docs)
	assertDocsEqual(t, got, docs)
	if c.NumDocs() != 2 {
		t.Fatalf("NumDocs = %d, want 2", c.NumDocs())
	}
}

func TestRoundTripEmptyCorpus(t *testing.T) {
	c, got := roundTrip(t, corpus.SliceCorpus{})
	if len(got) != 0 {
		t.Fatalf("got %d documents, want 0", len(got))
	}
	if c.NumDocs() != 0 || c.NumTerms() != 0 || c.NumNonZero() != 0 {
		t.Fatalf("header = %d/%d/%d, want 0/0/0", c.NumDocs(), c.NumTerms(), c.NumNonZero())
	}
}

func TestRoundTripSingleEmptyDocument(t *testing.T) {
	docs := corpus.SliceCorpus{{}}
	c, got := roundTrip(t, docs)
	assertDocsEqual(t, got, docs)
	if c.NumDocs() != 1 {
		t.Fatalf("NumDocs = %d, want 1", c.NumDocs())
	}
}

// TestSerializeOneShotStream checks that a generator-backed corpus can be
// written in a single pass, counts unknown up front.
func TestSerializeOneShotStream(t *testing.T) {
	pos := 0
	docs := []corpus.Document{
		{{ID: 0, Value: 2}},
		{},
		{{ID: 4, Value: 1}},
	}
	stream := corpus.NewStreamCorpus(func() (corpus.Document, error) {
		if pos >= len(docs) {
			return nil, io.EOF
		}
		doc := docs[pos]
		pos++
		return doc, nil
	})

	path := filepath.Join(t.TempDir(), "stream.mm")
	if err := Serialize(context.Background(), path, stream); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if c.NumDocs() != 3 || c.NumTerms() != 5 || c.NumNonZero() != 2 {
		t.Fatalf("header = %d/%d/%d, want 3/5/2", c.NumDocs(), c.NumTerms(), c.NumNonZero())
	}
	got, err := corpus.ReadAll(context.Background(), c)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	assertDocsEqual(t, got, docs)
}

// TestIndependentTraversals checks that two concurrent iterators each hold
// their own file handle and do not disturb one another.
func TestIndependentTraversals(t *testing.T) {
	docs := corpus.SliceCorpus{
		{{ID: 0, Value: 1}},
		{{ID: 1, Value: 2}},
	}
	path := filepath.Join(t.TempDir(), "corpus.mm")
	if err := Serialize(context.Background(), path, docs); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	ctx := context.Background()
	first, err := c.Iter(ctx)
	if err != nil {
		t.Fatalf("first Iter: %v", err)
	}
	defer first.Close()
	second, err := c.Iter(ctx)
	if err != nil {
		t.Fatalf("second Iter: %v", err)
	}
	defer second.Close()

	d1, err := first.Next()
	if err != nil {
		t.Fatalf("first.Next: %v", err)
	}
	d2, err := second.Next()
	if err != nil {
		t.Fatalf("second.Next: %v", err)
	}
	if !d1.Equal(d2) {
		t.Fatalf("traversals diverge: %v vs %v", d1, d2)
	}
}

func TestZeroValuesNeverStored(t *testing.T) {
	docs := corpus.SliceCorpus{
		{{ID: 0, Value: 0}, {ID: 1, Value: 2}},
	}
	c, got := roundTrip(t, docs)
	want := []corpus.Document{{{ID: 1, Value: 2}}}
	assertDocsEqual(t, got, want)
	if c.NumNonZero() != 1 {
		t.Fatalf("NumNonZero = %d, want 1", c.NumNonZero())
	}
}

func TestOpenRejectsBadBanner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.mm")
	if err := os.WriteFile(path, []byte("not a matrix market file\n1 1 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path)
	if !apperrors.Is(err, apperrors.ErrCorruptHeader) {
		t.Fatalf("Open error = %v, want ErrCorruptHeader", err)
	}
}

func TestOpenRejectsBadSizeLine(t *testing.T) {
	for _, body := range []string{
		Banner + "\n",
		Banner + "\n1 2\n",
		Banner + "\n1 -2 3\n",
		Banner + "\nx y z\n",
	} {
		path := filepath.Join(t.TempDir(), "bad.mm")
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Open(path); !apperrors.Is(err, apperrors.ErrCorruptHeader) {
			t.Fatalf("Open(%q) error = %v, want ErrCorruptHeader", body, err)
		}
	}
}

func TestIterRejectsBodyHeaderMismatch(t *testing.T) {
	cases := map[string]string{
		"missing entries": Banner + "\n2 2 3\n1 1 1\n",
		"extra entries":   Banner + "\n1 2 1\n1 1 1\n1 2 1\n",
		"doc overflow":    Banner + "\n1 2 2\n1 1 1\n2 2 1\n",
		"zero value":      Banner + "\n1 2 1\n1 1 0\n",
		"out of order":    Banner + "\n2 2 2\n2 1 1\n1 2 1\n",
	}
	for name, body := range cases {
		path := filepath.Join(t.TempDir(), "bad.mm")
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		c, err := Open(path)
		if err != nil {
			t.Fatalf("%s: Open: %v", name, err)
		}
		if _, err := corpus.ReadAll(context.Background(), c); err == nil {
			t.Errorf("%s: read succeeded, want parse error", name)
		}
	}
}

func TestFailedSerializeLeavesNoFile(t *testing.T) {
	pos := 0
	stream := corpus.NewStreamCorpus(func() (corpus.Document, error) {
		if pos == 0 {
			pos++
			return corpus.Document{{ID: 0, Value: 1}}, nil
		}
		return nil, os.ErrInvalid
	})
	path := filepath.Join(t.TempDir(), "broken.mm")
	if err := Serialize(context.Background(), path, stream); err == nil {
		t.Fatal("Serialize succeeded, want error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("final file exists after failed serialize (stat err=%v)", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind after failed serialize (stat err=%v)", err)
	}
}

func TestHeaderAllowsComments(t *testing.T) {
	body := strings.Join([]string{
		Banner,
		"% produced by corpustool",
		"1 1 1",
		"1 1 2.5",
	}, "\n") + "\n"
	path := filepath.Join(t.TempDir(), "comments.mm")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
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
	assertDocsEqual(t, got, []corpus.Document{{{ID: 0, Value: 2.5}}})
}
