package stem

import (
	"context"
	"fmt"
	"strings"

	"github.com/comrados/crawlergram/pkg/topics/internalerr"
	"github.com/comrados/crawlergram/pkg/topics/vocab"
)

// Params tunes the stemmers that cluster words across the vocabulary.
type Params struct {
	MinOccurrence       int     // minimum frequency of a suffix pair to link two words
	MaxEditDistance     int     // maximum length of each differing suffix
	SimilarityThreshold float64 // minimum cohesion for joining a class
}

// DefaultParams are the GRAS settings used when nothing is configured.
var DefaultParams = Params{
	MinOccurrence:       5,
	MaxEditDistance:     4,
	SimilarityThreshold: 0.8,
}

// Stemmer maps every vocabulary key to exactly one stem.
//
// Implementations receive the full key set and return a populated copy;
// the input vocabulary is not modified.
type Stemmer interface {
	Name() string
	Stem(ctx context.Context, v *vocab.Vocabulary, p Params) (*vocab.Vocabulary, error)
}

// New returns the stemmer registered under method.
func New(method string, languages []string) (Stemmer, error) {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case "", "gras":
		return GRAS{}, nil
	case "snowball":
		s, err := NewSnowball(languages)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "identity", "none":
		return Identity{}, nil
	}
	return nil, fmt.Errorf("unknown stemming method %q: %w", method, internalerr.ErrInvalidConfig)
}

// Identity stems every key to itself.
type Identity struct{}

func (Identity) Name() string { return "identity" }

func (Identity) Stem(ctx context.Context, v *vocab.Vocabulary, _ Params) (*vocab.Vocabulary, error) {
	out := v.Clone()
	for _, k := range out.Keys() {
		if err := out.SetStem(k, k); err != nil {
			return nil, err
		}
	}
	return out, ctx.Err()
}

// withOverrides applies curated stems on top of another stemmer.
type withOverrides struct {
	base      Stemmer
	overrides *vocab.Overrides
}

// WithOverrides wraps s so that keys covered by o take the curated stem.
func WithOverrides(s Stemmer, o *vocab.Overrides) Stemmer {
	if o.Len() == 0 {
		return s
	}
	return withOverrides{base: s, overrides: o}
}

func (w withOverrides) Name() string { return w.base.Name() + "+overrides" }

func (w withOverrides) Stem(ctx context.Context, v *vocab.Vocabulary, p Params) (*vocab.Vocabulary, error) {
	out, err := w.base.Stem(ctx, v, p)
	if err != nil {
		return nil, err
	}
	w.overrides.Apply(out)
	return out, nil
}
