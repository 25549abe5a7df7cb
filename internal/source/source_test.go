package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func collect(t *testing.T, src Source) [][]string {
	t.Helper()
	it, err := src.Docs(context.Background())
	if err != nil {
		t.Fatalf("Docs: %v", err)
	}
	defer it.Close()
	var docs [][]string
	for {
		tokens, err := it.Next()
		if err == io.EOF {
			return docs
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		docs = append(docs, tokens)
	}
}

func TestLineSourceTokenizesEachLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.txt")
	content := "Human machine interface\n\nSurvey of user opinion\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	src := NewLineSource(path)
	if !src.Restartable() {
		t.Fatal("LineSource should be restartable")
	}

	want := [][]string{
		{"human", "machine", "interface"},
		{},
		{"survey", "user", "opinion"},
	}
	for pass := 0; pass < 2; pass++ {
		got := collect(t, src)
		if len(got) != len(want) {
			t.Fatalf("pass %d: got %d documents, want %d", pass, len(got), len(want))
		}
		for i := range want {
			if len(want[i]) == 0 && len(got[i]) == 0 {
				continue
			}
			if !reflect.DeepEqual(got[i], want[i]) {
				t.Errorf("pass %d: document %d = %v, want %v", pass, i, got[i], want[i])
			}
		}
	}
}

func TestLineSourceMissingFile(t *testing.T) {
	src := NewLineSource(filepath.Join(t.TempDir(), "absent.txt"))
	if _, err := src.Docs(context.Background()); err == nil {
		t.Fatal("Docs on missing file succeeded, want error")
	}
}

func TestSliceSource(t *testing.T) {
	src := SliceSource{{"tree"}, {"graph", "tree"}}
	if !src.Restartable() {
		t.Fatal("SliceSource should be restartable")
	}
	got := collect(t, src)
	if len(got) != 2 || len(got[1]) != 2 {
		t.Fatalf("collect = %v", got)
	}
}

func TestLineSourceCloseMidTraversal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.txt")
	if err := os.WriteFile(path, []byte("one line\ntwo lines\n"), 0644); err != nil {
		t.Fatal(err)
	}
	it, err := NewLineSource(path).Docs(context.Background())
	if err != nil {
		t.Fatalf("Docs: %v", err)
	}
	if _, err := it.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if err := it.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := it.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
