// Package vblda fits LDA with online variational Bayes using
// github.com/james-bowman/nlp.
package vblda

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/james-bowman/nlp"
	"gonum.org/v1/gonum/mat"

	"github.com/comrados/crawlergram/pkg/topics/inference"
	"github.com/comrados/crawlergram/pkg/topics/internalerr"
)

const Name = "vblda"

// Engine wraps nlp.LatentDirichletAllocation. At most one fit runs per
// engine; an abandoned fit keeps its slot until the library returns.
type Engine struct {
	// Processes is the number of goroutines used by the fit. Zero leaves the
	// library default.
	Processes int

	once  sync.Once
	slot  chan struct{}
	fitFn func(docs []string, p inference.Params) fitted
}

// New creates a variational LDA engine.
func New(processes int) *Engine {
	return &Engine{Processes: processes}
}

func (e *Engine) Name() string { return Name }

type fitted struct {
	topicsOverWords mat.Matrix
	vocabulary      map[string]int
	err             error
}

// Infer fits the model. The library call itself cannot be interrupted, so
// a done ctx abandons the fit and returns immediately. A caller that finds
// the previous fit still running waits for it, bounded by its own ctx.
func (e *Engine) Infer(ctx context.Context, docs []string, p inference.Params) (inference.Result, error) {
	if err := p.Validate(); err != nil {
		return inference.Result{}, err
	}
	if !hasWords(docs) {
		return inference.Result{}, fmt.Errorf("%s: %w", Name, internalerr.ErrEmptyCorpus)
	}
	if err := ctx.Err(); err != nil {
		return inference.Result{}, fmt.Errorf("%s: %w", Name, err)
	}

	e.once.Do(func() { e.slot = make(chan struct{}, 1) })
	select {
	case e.slot <- struct{}{}:
	case <-ctx.Done():
		return inference.Result{}, fmt.Errorf("%s: %w", Name, ctx.Err())
	}

	fit := e.fitFn
	if fit == nil {
		fit = e.fit
	}
	done := make(chan fitted, 1)
	go func() {
		defer func() { <-e.slot }()
		done <- fit(docs, p)
	}()

	var f fitted
	select {
	case <-ctx.Done():
		return inference.Result{}, fmt.Errorf("%s: %w", Name, ctx.Err())
	case f = <-done:
	}
	if f.err != nil {
		return inference.Result{}, fmt.Errorf("%s: %w", Name, f.err)
	}

	words := make([]string, len(f.vocabulary))
	for w, id := range f.vocabulary {
		words[id] = w
	}

	tr, tc := f.topicsOverWords.Dims()
	res := inference.Result{
		Engine:     Name,
		Params:     p,
		Documents:  len(docs),
		Vocabulary: tc,
		Topics:     make([][]inference.WordWeight, tr),
	}
	row := make([]float64, tc)
	for topic := 0; topic < tr; topic++ {
		sum := 0.0
		for word := 0; word < tc; word++ {
			row[word] = f.topicsOverWords.At(topic, word)
			sum += row[word]
		}
		// report probabilities like the Gibbs engines
		if sum > 0 {
			for word := range row {
				row[word] /= sum
			}
		}
		res.Topics[topic] = inference.TopWords(row, words, p.TopWords)
	}
	return res, nil
}

func (e *Engine) fit(docs []string, p inference.Params) (f fitted) {
	defer func() {
		if r := recover(); r != nil {
			f.err = fmt.Errorf("fit panicked: %v", r)
		}
	}()

	vectoriser := nlp.NewCountVectoriser()

	lda := nlp.NewLatentDirichletAllocation(p.Topics)
	lda.Alpha = p.Alpha
	lda.Eta = p.Beta
	lda.Iterations = p.Iterations
	lda.TransformationPasses = max(p.Iterations/2, 1)
	if e.Processes > 0 {
		lda.Processes = e.Processes
	}

	pipeline := nlp.NewPipeline(vectoriser, lda)
	if _, err := pipeline.FitTransform(docs...); err != nil {
		return fitted{err: err}
	}
	return fitted{topicsOverWords: lda.Components(), vocabulary: vectoriser.Vocabulary}
}

func hasWords(docs []string) bool {
	for _, d := range docs {
		if strings.TrimSpace(d) != "" {
			return true
		}
	}
	return false
}
