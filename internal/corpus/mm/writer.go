// Package mm reads and writes corpora in the Matrix Market coordinate
// format. The file is self-describing: a banner line, then a size line
// holding (document count, feature count, non-zero entry count), then one
// line per non-zero entry as "doc term value" with 1-based indices,
// ascending by document then term. Documents with no entries contribute no
// body lines but still count in the header, so empty documents survive a
// round trip.
package mm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/silviatti/gensim/internal/corpus"
)

// Banner identifies a supported Matrix Market file.
const Banner = "%%MatrixMarket matrix coordinate real general"

// sizeLineWidth reserves room in the size line so it can be patched in
// place once the single pass over the corpus has produced the counts.
const sizeLineWidth = 64

// Serialize writes c to path in a single pass. The corpus is never held in
// memory at once: counts are unknown up front, so a blank size line is
// reserved and patched in place at the end instead of buffering the body.
// The file is written to path+".tmp" and atomically renamed on success, so
// a failed write never leaves a falsely complete file behind.
func Serialize(ctx context.Context, path string, c corpus.Corpus) (err error) {
	it, err := c.Iter(ctx)
	if err != nil {
		return err
	}
	defer it.Close()

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp corpus file: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmpPath)
		}
	}()

	w := bufio.NewWriter(f)
	if _, err = fmt.Fprintln(w, Banner); err != nil {
		return fmt.Errorf("writing banner: %w", err)
	}
	sizeOffset := int64(len(Banner) + 1)
	if _, err = fmt.Fprintf(w, "%*s\n", sizeLineWidth, ""); err != nil {
		return fmt.Errorf("reserving size line: %w", err)
	}

	numDocs, numTerms, numNonZero := 0, 0, 0
	for {
		if err = ctx.Err(); err != nil {
			return err
		}
		var doc corpus.Document
		doc, err = it.Next()
		if err == io.EOF {
			err = nil
			break
		}
		if err != nil {
			return fmt.Errorf("reading corpus: %w", err)
		}
		numDocs++
		lastID := -1
		for _, e := range doc {
			if e.Value == 0 {
				continue
			}
			if e.ID < 0 || e.ID <= lastID {
				return fmt.Errorf("document %d: entries not in strictly ascending id order", numDocs)
			}
			lastID = e.ID
			if e.ID+1 > numTerms {
				numTerms = e.ID + 1
			}
			numNonZero++
			_, err = fmt.Fprintf(w, "%d %d %s\n",
				numDocs, e.ID+1, strconv.FormatFloat(e.Value, 'g', -1, 64))
			if err != nil {
				return fmt.Errorf("writing entry: %w", err)
			}
		}
	}

	if err = w.Flush(); err != nil {
		return fmt.Errorf("flushing corpus body: %w", err)
	}
	sizes := fmt.Sprintf("%d %d %d", numDocs, numTerms, numNonZero)
	if _, err = f.WriteAt([]byte(sizes), sizeOffset); err != nil {
		return fmt.Errorf("patching size line: %w", err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("syncing corpus file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("closing corpus file: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming corpus file: %w", err)
	}
	slog.Default().With("component", "mm-writer").Info("corpus serialized",
		"path", path,
		"documents", numDocs,
		"features", numTerms,
		"non_zero", numNonZero,
	)
	return nil
}
