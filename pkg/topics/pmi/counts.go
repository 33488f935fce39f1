package pmi

import (
	"sort"
	"strings"
)

// Counter holds document and co-document frequencies of the words of an
// encoded corpus.
type Counter struct {
	n     int64
	df    map[string]int64
	pairs map[Pair]int64
}

// Pair is an ordered word pair, A < B.
type Pair struct {
	A, B string
}

// NewPair orders a and b.
func NewPair(a, b string) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// NewCounter creates an empty counter.
func NewCounter() *Counter {
	return &Counter{
		df:    make(map[string]int64),
		pairs: make(map[Pair]int64),
	}
}

// FromTexts counts space separated documents, such as stemmed document
// texts.
func FromTexts(texts []string) *Counter {
	c := NewCounter()
	for _, t := range texts {
		c.Add(strings.Fields(t))
	}
	return c
}

// Add counts one document. Repeated words count once.
func (c *Counter) Add(words []string) {
	c.n++

	seen := make(map[string]bool, len(words))
	uniq := make([]string, 0, len(words))
	for _, w := range words {
		if !seen[w] {
			seen[w] = true
			uniq = append(uniq, w)
		}
	}
	sort.Strings(uniq)

	for i, a := range uniq {
		c.df[a]++
		for _, b := range uniq[i+1:] {
			c.pairs[Pair{A: a, B: b}]++
		}
	}
}

// Docs returns the number of documents counted.
func (c *Counter) Docs() int64 { return c.n }

// Count returns the number of documents containing w.
func (c *Counter) Count(w string) int64 { return c.df[w] }

// PairCount returns the number of documents containing both a and b.
func (c *Counter) PairCount(a, b string) int64 {
	return c.pairs[NewPair(a, b)]
}

// Words returns the number of distinct words.
func (c *Counter) Words() int { return len(c.df) }
