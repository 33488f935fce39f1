package stem

import (
	"context"
	"sort"

	"github.com/comrados/crawlergram/pkg/topics/vocab"
)

// minPrefix is the shortest shared prefix, in runes, for two words to be
// considered variants of each other.
const minPrefix = 3

// GRAS is a graph-based, language-independent stemmer (Paik et al., 2011).
//
// Two words sharing a prefix are linked when the suffixes left after that
// prefix are short and the same suffix pair links many other words. Classes
// grow around the best connected word: a neighbour joins when enough of its
// own neighbours are also neighbours of the pivot. Every class member stems
// to the shortest word of its class; unlinked words stem to themselves.
type GRAS struct{}

func (GRAS) Name() string { return "gras" }

type suffixPair struct{ a, b string }

type candidate struct {
	a, b int
	pair suffixPair
}

func (GRAS) Stem(ctx context.Context, v *vocab.Vocabulary, p Params) (*vocab.Vocabulary, error) {
	if p.MinOccurrence <= 0 {
		p.MinOccurrence = DefaultParams.MinOccurrence
	}
	if p.MaxEditDistance <= 0 {
		p.MaxEditDistance = DefaultParams.MaxEditDistance
	}
	if p.SimilarityThreshold <= 0 {
		p.SimilarityThreshold = DefaultParams.SimilarityThreshold
	}

	words := v.Keys()
	runes := make([][]rune, len(words))
	for i, w := range words {
		runes[i] = []rune(w)
	}

	// Words are sorted, so words sharing their first minPrefix runes are
	// contiguous.
	freq := make(map[suffixPair]int)
	var cands []candidate
	for start := 0; start < len(words); {
		end := start + 1
		if len(runes[start]) >= minPrefix {
			for end < len(words) && samePrefix(runes[start], runes[end], minPrefix) {
				end++
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			for i := start; i < end; i++ {
				for j := i + 1; j < end; j++ {
					lcp := commonPrefix(runes[i], runes[j])
					sa, sb := runes[i][lcp:], runes[j][lcp:]
					if len(sa) > p.MaxEditDistance || len(sb) > p.MaxEditDistance {
						continue
					}
					pair := suffixPair{string(sa), string(sb)}
					if pair.b < pair.a {
						pair.a, pair.b = pair.b, pair.a
					}
					freq[pair]++
					cands = append(cands, candidate{a: i, b: j, pair: pair})
				}
			}
		}
		start = end
	}

	adj := make([]map[int]struct{}, len(words))
	for _, c := range cands {
		if freq[c.pair] < p.MinOccurrence {
			continue
		}
		if adj[c.a] == nil {
			adj[c.a] = make(map[int]struct{})
		}
		if adj[c.b] == nil {
			adj[c.b] = make(map[int]struct{})
		}
		adj[c.a][c.b] = struct{}{}
		adj[c.b][c.a] = struct{}{}
	}

	out := v.Clone()
	for _, w := range words {
		if err := out.SetStem(w, w); err != nil {
			return nil, err
		}
	}

	removed := make([]bool, len(words))
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pivot := -1
		best := 0
		for i := range words {
			if removed[i] {
				continue
			}
			if d := len(adj[i]); d > best {
				pivot, best = i, d
			}
		}
		if pivot < 0 {
			break
		}

		class := []int{pivot}
		for _, n := range sortedNeighbours(adj[pivot]) {
			if cohesion(adj[pivot], adj[n]) >= p.SimilarityThreshold {
				class = append(class, n)
			}
		}

		stem := representative(words, runes, class)
		for _, m := range class {
			if err := out.SetStem(words[m], stem); err != nil {
				return nil, err
			}
		}

		for _, m := range class {
			removed[m] = true
			for n := range adj[m] {
				delete(adj[n], m)
			}
			adj[m] = nil
		}
	}

	return out, nil
}

// cohesion = (1 + |N(p) ∩ N(v)|) / |N(v)|
func cohesion(np, nv map[int]struct{}) float64 {
	if len(nv) == 0 {
		return 0
	}
	common := 0
	for n := range nv {
		if _, ok := np[n]; ok {
			common++
		}
	}
	return float64(1+common) / float64(len(nv))
}

// representative is the shortest class member, ties broken by order.
func representative(words []string, runes [][]rune, class []int) string {
	best := class[0]
	for _, m := range class[1:] {
		if len(runes[m]) < len(runes[best]) || (len(runes[m]) == len(runes[best]) && words[m] < words[best]) {
			best = m
		}
	}
	return words[best]
}

func sortedNeighbours(n map[int]struct{}) []int {
	out := make([]int, 0, len(n))
	for i := range n {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func samePrefix(a, b []rune, n int) bool {
	if len(a) < n || len(b) < n {
		return false
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func commonPrefix(a, b []rune) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
