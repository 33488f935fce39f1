package vocab

import (
	"fmt"
	"sort"

	"github.com/comrados/crawlergram/pkg/topics/ingest"
	"github.com/comrados/crawlergram/pkg/topics/internalerr"
)

// Vocabulary maps every distinct compound of a corpus to its stem.
// It is built fresh per corpus and owned by a single run:
// - the builder adds keys with an unset stem
// - a stemmer returns a copy with every stem filled in
// - the encoder only reads it
type Vocabulary struct {
	// key -> stem, "" while unset
	stems map[string]string
}

// New creates an empty vocabulary.
func New() *Vocabulary {
	return &Vocabulary{stems: make(map[string]string)}
}

// Build collects the surviving compounds of all documents. The key set only
// depends on which compounds occur, not on document order.
func Build(docs []*ingest.Document) *Vocabulary {
	v := New()
	for _, doc := range docs {
		for _, tok := range doc.Tokens {
			for _, c := range tok.Compounds {
				v.Add(c)
			}
		}
	}
	return v
}

// Add inserts key with an unset stem. Existing keys are left alone.
// Returns true if the key was new.
func (v *Vocabulary) Add(key string) bool {
	if _, ok := v.stems[key]; ok {
		return false
	}
	v.stems[key] = ""
	return true
}

// Has reports whether key is in the vocabulary.
func (v *Vocabulary) Has(key string) bool {
	_, ok := v.stems[key]
	return ok
}

// Len returns the number of keys.
func (v *Vocabulary) Len() int {
	return len(v.stems)
}

// Keys returns all keys in ascending lexicographic order.
func (v *Vocabulary) Keys() []string {
	keys := make([]string, 0, len(v.stems))
	for k := range v.stems {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Stem returns the stem of key. ok is false when the key is unknown or its
// stem is still unset.
func (v *Vocabulary) Stem(key string) (stem string, ok bool) {
	stem, found := v.stems[key]
	return stem, found && stem != ""
}

// SetStem assigns the stem of an existing key.
func (v *Vocabulary) SetStem(key, stem string) error {
	if _, ok := v.stems[key]; !ok {
		return fmt.Errorf("set stem of %q: %w", key, internalerr.ErrNotFound)
	}
	if stem == "" {
		return fmt.Errorf("set stem of %q: empty stem: %w", key, internalerr.ErrInvalidInput)
	}
	v.stems[key] = stem
	return nil
}

// Complete reports whether every key has a stem.
func (v *Vocabulary) Complete() bool {
	for _, s := range v.stems {
		if s == "" {
			return false
		}
	}
	return true
}

// Unstemmed returns the keys without a stem, sorted.
func (v *Vocabulary) Unstemmed() []string {
	var out []string
	for k, s := range v.stems {
		if s == "" {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (v *Vocabulary) Clone() *Vocabulary {
	c := &Vocabulary{stems: make(map[string]string, len(v.stems))}
	for k, s := range v.stems {
		c.stems[k] = s
	}
	return c
}

// Stems returns the number of distinct stems among stemmed keys.
func (v *Vocabulary) Stems() int {
	seen := make(map[string]struct{})
	for _, s := range v.stems {
		if s != "" {
			seen[s] = struct{}{}
		}
	}
	return len(seen)
}
