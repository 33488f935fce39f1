package inference

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/comrados/crawlergram/pkg/topics/internalerr"
)

// Engine discovers topics in a corpus of stemmed documents.
// This interface allows swapping implementations (Gibbs mixture, Gibbs LDA,
// variational LDA, ...)
type Engine interface {
	// Name identifies the engine in reports and stored runs
	Name() string

	// Infer fits the model and returns the top words of each topic.
	// docs are space-separated stemmed texts. An empty corpus fails with
	// ErrEmptyCorpus. Implementations stop between iterations once ctx is done.
	Infer(ctx context.Context, docs []string, p Params) (Result, error)
}

// Params are the model hyperparameters shared by all engines.
type Params struct {
	Topics     int     `json:"topics" yaml:"topics" toml:"topics"`
	Alpha      float64 `json:"alpha" yaml:"alpha" toml:"alpha"`
	Beta       float64 `json:"beta" yaml:"beta" toml:"beta"`
	Iterations int     `json:"iterations" yaml:"iterations" toml:"iterations"`
	TopWords   int     `json:"top_words" yaml:"top_words" toml:"top_words"`
	Seed       uint64  `json:"seed,omitempty" yaml:"seed,omitempty" toml:"seed,omitempty"` // 0 picks a time-based seed
}

// Validate checks the hyperparameters.
func (p Params) Validate() error {
	switch {
	case p.Topics <= 0:
		return fmt.Errorf("topics must be positive, got %d: %w", p.Topics, internalerr.ErrInvalidInput)
	case p.Alpha <= 0 || p.Beta <= 0:
		return fmt.Errorf("alpha and beta must be positive: %w", internalerr.ErrInvalidInput)
	case p.Iterations <= 0:
		return fmt.Errorf("iterations must be positive, got %d: %w", p.Iterations, internalerr.ErrInvalidInput)
	case p.TopWords <= 0:
		return fmt.Errorf("top words must be positive, got %d: %w", p.TopWords, internalerr.ErrInvalidInput)
	}
	return nil
}

func (p Params) String() string {
	return fmt.Sprintf("topics=%d alpha=%g beta=%g iterations=%d top_words=%d",
		p.Topics, p.Alpha, p.Beta, p.Iterations, p.TopWords)
}

// Rand returns the random source for a run.
func (p Params) Rand() *rand.Rand {
	seed := p.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// WordWeight is one word of a topic.
type WordWeight struct {
	Word   string  `json:"word"`
	Weight float64 `json:"weight"`
}

// Result is an engine's output.
type Result struct {
	Engine     string
	Params     Params
	Documents  int
	Vocabulary int
	// Topics[k] holds the top words of topic k. Order within a topic is not
	// guaranteed; reports sort it.
	Topics [][]WordWeight
}

// Corpus is a bag-of-words view of the documents with dense word ids.
type Corpus struct {
	Words []string       // id -> word
	Index map[string]int // word -> id
	Docs  [][]int        // word ids per document, in order
}

// NewCorpus splits documents on whitespace and assigns ids in first-seen
// order. Empty documents are kept as empty rows.
func NewCorpus(docs []string) (*Corpus, error) {
	c := &Corpus{Index: make(map[string]int)}
	tokens := 0
	for _, d := range docs {
		fields := strings.Fields(d)
		ids := make([]int, len(fields))
		for i, w := range fields {
			id, ok := c.Index[w]
			if !ok {
				id = len(c.Words)
				c.Index[w] = id
				c.Words = append(c.Words, w)
			}
			ids[i] = id
		}
		c.Docs = append(c.Docs, ids)
		tokens += len(ids)
	}
	if tokens == 0 {
		return nil, internalerr.ErrEmptyCorpus
	}
	return c, nil
}

// V returns the vocabulary size.
func (c *Corpus) V() int {
	return len(c.Words)
}

// TopWords returns the n highest weighted words of a topic-word row.
// Ties keep word id order.
func TopWords(row []float64, words []string, n int) []WordWeight {
	ids := make([]int, len(row))
	for i := range ids {
		ids[i] = i
	}
	sort.SliceStable(ids, func(a, b int) bool {
		return row[ids[a]] > row[ids[b]]
	})
	if n > len(ids) {
		n = len(ids)
	}
	out := make([]WordWeight, n)
	for i := 0; i < n; i++ {
		out[i] = WordWeight{Word: words[ids[i]], Weight: row[ids[i]]}
	}
	return out
}
