// Package lda implements Latent Dirichlet Allocation fitted by collapsed
// Gibbs sampling (Griffiths and Steyvers, 2004).
package lda

import (
	"context"
	"fmt"

	"github.com/comrados/crawlergram/pkg/topics/inference"
)

const Name = "gslda"

// Engine is the Gibbs sampling LDA topic model.
type Engine struct{}

// New creates a GSLDA engine.
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

	z := make([][]int, len(corpus.Docs)) // topic per token
	ndk := make([][]int, len(corpus.Docs))
	nkw := make([][]int, K)
	nk := make([]int, K)
	for k := range nkw {
		nkw[k] = make([]int, V)
	}

	for d, words := range corpus.Docs {
		z[d] = make([]int, len(words))
		ndk[d] = make([]int, K)
		for i, w := range words {
			k := rnd.IntN(K)
			z[d][i] = k
			ndk[d][k]++
			nkw[k][w]++
			nk[k]++
		}
	}

	prob := make([]float64, K)
	vBeta := float64(V) * p.Beta
	for it := 0; it < p.Iterations; it++ {
		if err := ctx.Err(); err != nil {
			return inference.Result{}, fmt.Errorf("%s: iteration %d: %w", Name, it, err)
		}

		for d, words := range corpus.Docs {
			for i, w := range words {
				k := z[d][i]
				ndk[d][k]--
				nkw[k][w]--
				nk[k]--

				total := 0.0
				for t := 0; t < K; t++ {
					prob[t] = (float64(ndk[d][t]) + p.Alpha) *
						(float64(nkw[t][w]) + p.Beta) /
						(float64(nk[t]) + vBeta)
					total += prob[t]
				}

				target := rnd.Float64() * total
				k = K - 1
				for t := 0; t < K; t++ {
					target -= prob[t]
					if target < 0 {
						k = t
						break
					}
				}

				z[d][i] = k
				ndk[d][k]++
				nkw[k][w]++
				nk[k]++
			}
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
			row[w] = (float64(nkw[k][w]) + p.Beta) / (float64(nk[k]) + vBeta)
		}
		res.Topics[k] = inference.TopWords(row, corpus.Words, p.TopWords)
	}
	return res, nil
}
