// Package vocabstore persists dictionaries. All backends store the same
// snapshot — token, id, document frequency rows plus the document and
// position counters — and reconstruct an equivalent Dictionary on load.
package vocabstore

import (
	"context"

	"github.com/silviatti/gensim/internal/dictionary"
)

// Store saves and restores a Dictionary snapshot.
type Store interface {
	Save(ctx context.Context, d *dictionary.Dictionary) error
	Load(ctx context.Context) (*dictionary.Dictionary, error)
}
