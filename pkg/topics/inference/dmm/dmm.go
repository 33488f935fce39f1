// Package dmm implements the Dirichlet Multinomial Mixture model fitted by
// collapsed Gibbs sampling (Yin and Wang, 2014). Each document belongs to
// exactly one topic, which suits short chat messages.
package dmm

import (
	"context"
	"fmt"
	"math"

	"github.com/comrados/crawlergram/pkg/topics/inference"
)

const Name = "gsdmm"

// Engine is the GSDMM topic model.
type Engine struct{}

// New creates a GSDMM engine.
func New() *Engine {
	return &Engine{}
}

func (e *Engine) Name() string { return Name }

func (e *Engine) Infer(ctx context.Context, docs []string, p inference.Params) (inference.Result, error) {
	if err := p.Validate(); err != nil {
		return inference.Result{}, err
	}
	corpus, err := inference.NewCorpus(docs)
	if err != nil {
		return inference.Result{}, fmt.Errorf("%s: %w", Name, err)
	}

	K, V := p.Topics, corpus.V()
	rnd := p.Rand()

	z := make([]int, len(corpus.Docs))
	mz := make([]int, K)    // documents per topic
	nz := make([]int, K)    // words per topic
	nzw := make([][]int, K) // word counts per topic
	for k := range nzw {
		nzw[k] = make([]int, V)
	}

	add := func(d, k, sign int) {
		mz[k] += sign
		nz[k] += sign * len(corpus.Docs[d])
		for _, w := range corpus.Docs[d] {
			nzw[k][w] += sign
		}
	}

	counts := make([][]wordCount, len(corpus.Docs))
	for d, words := range corpus.Docs {
		counts[d] = countWords(words)
		z[d] = rnd.IntN(K)
		add(d, z[d], 1)
	}

	logp := make([]float64, K)
	vBeta := float64(V) * p.Beta
	for it := 0; it < p.Iterations; it++ {
		if err := ctx.Err(); err != nil {
			return inference.Result{}, fmt.Errorf("%s: iteration %d: %w", Name, it, err)
		}

		for d, words := range corpus.Docs {
			if len(words) == 0 {
				continue
			}
			add(d, z[d], -1)

			for k := 0; k < K; k++ {
				lp := math.Log(float64(mz[k]) + p.Alpha)
				for _, wc := range counts[d] {
					for j := 0; j < wc.n; j++ {
						lp += math.Log(float64(nzw[k][wc.w]) + p.Beta + float64(j))
					}
				}
				for i := 0; i < len(words); i++ {
					lp -= math.Log(float64(nz[k]) + vBeta + float64(i))
				}
				logp[k] = lp
			}

			z[d] = sampleLog(logp, rnd.Float64())
			add(d, z[d], 1)
		}
	}

	res := inference.Result{
		Engine:     Name,
		Params:     p,
		Documents:  len(corpus.Docs),
		Vocabulary: V,
		Topics:     make([][]inference.WordWeight, K),
	}
	row := make([]float64, V)
	for k := 0; k < K; k++ {
		for w := 0; w < V; w++ {
			row[w] = (float64(nzw[k][w]) + p.Beta) / (float64(nz[k]) + vBeta)
		}
		res.Topics[k] = inference.TopWords(row, corpus.Words, p.TopWords)
	}
	return res, nil
}

type wordCount struct{ w, n int }

// countWords returns the distinct words of a document in first-seen order.
func countWords(words []int) []wordCount {
	var out []wordCount
	pos := make(map[int]int, len(words))
	for _, w := range words {
		if i, ok := pos[w]; ok {
			out[i].n++
			continue
		}
		pos[w] = len(out)
		out = append(out, wordCount{w: w, n: 1})
	}
	return out
}

// sampleLog draws an index proportionally to exp(logp) using u in [0, 1).
func sampleLog(logp []float64, u float64) int {
	maxLog := math.Inf(-1)
	for _, lp := range logp {
		if lp > maxLog {
			maxLog = lp
		}
	}

	total := 0.0
	probs := make([]float64, len(logp))
	for k, lp := range logp {
		probs[k] = math.Exp(lp - maxLog)
		total += probs[k]
	}

	target := u * total
	for k, pk := range probs {
		target -= pk
		if target < 0 {
			return k
		}
	}
	return len(probs) - 1
}
