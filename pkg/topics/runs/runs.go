package runs

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/comrados/crawlergram/pkg/topics/analytics"
	"github.com/comrados/crawlergram/pkg/topics/inference"
	"github.com/comrados/crawlergram/pkg/topics/store"
)

// Builder turns engine results into persistable run records with
// time-ordered ids. Safe for concurrent use.
type Builder struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// New creates a new run builder
func New() *Builder {
	return &Builder{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Build creates a run record for one dialog. Topic words are stored
// heaviest first.
func (b *Builder) Build(dialogID int64, res inference.Result) (store.Run, error) {
	params, err := json.Marshal(res.Params)
	if err != nil {
		return store.Run{}, fmt.Errorf("encode params: %w", err)
	}

	b.mu.Lock()
	now := b.now().UTC()
	id, err := ulid.New(ulid.Timestamp(now), b.entropy)
	b.mu.Unlock()
	if err != nil {
		return store.Run{}, fmt.Errorf("new run id: %w", err)
	}

	run := store.Run{
		ID:        id.String(),
		DialogID:  dialogID,
		Engine:    res.Engine,
		Params:    string(params),
		CreatedAt: now,
		Topics:    make([][]store.TopicWord, len(res.Topics)),
	}
	for k, topic := range res.Topics {
		sorted := analytics.SortTopic(topic)
		words := make([]store.TopicWord, len(sorted))
		for i, ww := range sorted {
			words[i] = store.TopicWord{Word: ww.Word, Weight: ww.Weight}
		}
		run.Topics[k] = words
	}
	return run, nil
}

// Result converts a stored run back into an engine result for reporting.
func Result(r store.Run) (inference.Result, error) {
	var p inference.Params
	if r.Params != "" {
		if err := json.Unmarshal([]byte(r.Params), &p); err != nil {
			return inference.Result{}, fmt.Errorf("decode params of run %s: %w", r.ID, err)
		}
	}

	res := inference.Result{
		Engine: r.Engine,
		Params: p,
		Topics: make([][]inference.WordWeight, len(r.Topics)),
	}
	for k, topic := range r.Topics {
		words := make([]inference.WordWeight, len(topic))
		for i, tw := range topic {
			words[i] = inference.WordWeight{Word: tw.Word, Weight: tw.Weight}
		}
		res.Topics[k] = words
	}
	return res, nil
}
