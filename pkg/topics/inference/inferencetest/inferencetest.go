// Package inferencetest holds checks shared by the engine tests.
package inferencetest

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/comrados/crawlergram/pkg/topics/inference"
	"github.com/comrados/crawlergram/pkg/topics/internalerr"
)

// Corpus is a small two-theme corpus of stemmed documents.
func Corpus() []string {
	var docs []string
	for i := 0; i < 10; i++ {
		docs = append(docs,
			"apple banana fruit juice apple",
			"engine wheel car road engine",
		)
	}
	return docs
}

// Params returns small, seeded hyperparameters.
func Params() inference.Params {
	return inference.Params{Topics: 3, Alpha: 0.1, Beta: 0.1, Iterations: 30, TopWords: 4, Seed: 7}
}

// CheckShape verifies the result layout and weights.
func CheckShape(t *testing.T, e inference.Engine) inference.Result {
	t.Helper()

	p := Params()
	res, err := e.Infer(context.Background(), Corpus(), p)
	if err != nil {
		t.Fatalf("%s: Infer failed: %v", e.Name(), err)
	}

	if res.Engine != e.Name() {
		t.Errorf("Expected engine %q, got %q", e.Name(), res.Engine)
	}
	if res.Params != p {
		t.Errorf("Expected params to be echoed, got %+v", res.Params)
	}
	if res.Documents != 20 || res.Vocabulary != 8 {
		t.Errorf("Expected 20 documents and 8 words, got %d and %d", res.Documents, res.Vocabulary)
	}
	if len(res.Topics) != p.Topics {
		t.Fatalf("Expected %d topics, got %d", p.Topics, len(res.Topics))
	}

	known := strings.Fields(strings.Join(Corpus()[:2], " "))
	for k, topic := range res.Topics {
		if len(topic) != p.TopWords {
			t.Errorf("Topic %d: expected %d words, got %d", k, p.TopWords, len(topic))
		}
		for _, ww := range topic {
			if ww.Weight <= 0 || ww.Weight > 1 {
				t.Errorf("Topic %d: weight of %q out of range: %f", k, ww.Word, ww.Weight)
			}
			found := false
			for _, w := range known {
				if w == ww.Word {
					found = true
				}
			}
			if !found {
				t.Errorf("Topic %d: unknown word %q", k, ww.Word)
			}
		}
	}
	return res
}

// CheckDeterministic verifies that a fixed seed reproduces the result.
func CheckDeterministic(t *testing.T, e inference.Engine) {
	t.Helper()

	a, err := e.Infer(context.Background(), Corpus(), Params())
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Infer(context.Background(), Corpus(), Params())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("%s: same seed gave different results", e.Name())
	}
}

// CheckEmpty verifies the empty corpus precondition.
func CheckEmpty(t *testing.T, e inference.Engine) {
	t.Helper()

	_, err := e.Infer(context.Background(), []string{"", " "}, Params())
	if !errors.Is(err, internalerr.ErrEmptyCorpus) {
		t.Errorf("%s: expected ErrEmptyCorpus, got %v", e.Name(), err)
	}
}

// CheckCancelled verifies that a done context stops the engine.
func CheckCancelled(t *testing.T, e inference.Engine) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Infer(ctx, Corpus(), Params())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("%s: expected context.Canceled, got %v", e.Name(), err)
	}
}
