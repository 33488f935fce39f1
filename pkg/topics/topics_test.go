package topics

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/comrados/crawlergram/pkg/topics/config"
	"github.com/comrados/crawlergram/pkg/topics/inference"
	"github.com/comrados/crawlergram/pkg/topics/ingest"
	"github.com/comrados/crawlergram/pkg/topics/internalerr"
	"github.com/comrados/crawlergram/pkg/topics/stem"
	"github.com/comrados/crawlergram/pkg/topics/stoplist"
	"github.com/comrados/crawlergram/pkg/topics/store"
	"github.com/comrados/crawlergram/pkg/topics/store/memstore"
	"github.com/comrados/crawlergram/pkg/topics/store/sqlite"
	"github.com/comrados/crawlergram/pkg/topics/vocab"
)

// recordingEngine returns the first word of the corpus as its only topic
// and remembers every corpus it was given.
type recordingEngine struct {
	name string
	err  error

	mu   sync.Mutex
	seen [][]string
}

func (r *recordingEngine) Name() string { return r.name }

func (r *recordingEngine) Infer(ctx context.Context, docs []string, p inference.Params) (inference.Result, error) {
	if r.err != nil {
		return inference.Result{}, r.err
	}
	r.mu.Lock()
	r.seen = append(r.seen, append([]string(nil), docs...))
	r.mu.Unlock()

	first := strings.Fields(docs[0])[0]
	return inference.Result{
		Engine:    r.name,
		Params:    p,
		Documents: len(docs),
		Topics:    [][]inference.WordWeight{{{Word: first, Weight: 1}}},
	}, nil
}

// blockingEngine waits for its context.
type blockingEngine struct{}

func (blockingEngine) Name() string { return "blocking" }

func (blockingEngine) Infer(ctx context.Context, _ []string, _ inference.Params) (inference.Result, error) {
	<-ctx.Done()
	return inference.Result{}, ctx.Err()
}

func seed(t *testing.T, st store.Store, d store.Dialog, texts ...string) {
	t.Helper()
	ctx := context.Background()
	if err := st.UpsertDialog(ctx, d); err != nil {
		t.Fatal(err)
	}
	msgs := make([]store.Message, len(texts))
	for i, text := range texts {
		msgs[i] = store.Message{ID: int64(i + 1), Text: text, Date: int64(1000 + i*60)}
	}
	if err := st.WriteMessages(ctx, d.ID, msgs); err != nil {
		t.Fatal(err)
	}
}

func testOptions(st store.Store, engines ...inference.Engine) Options {
	overrides := vocab.NewOverrides()
	overrides.AddGroup("run", []string{"running"})

	stops := stoplist.NewSets([]string{"en"}, map[string][]string{"en": {"the", "and", "is"}})
	opts := Options{
		Store:    st,
		Pipeline: ingest.NewPipeline(ingest.NewTokenizer(ingest.TokenizerOptions{}), stops, nil),
		Stemmer:  stem.WithOverrides(stem.Identity{}, overrides),
	}
	for _, e := range engines {
		opts.Engines = append(opts.Engines, config.EngineRun{
			Engine: e,
			Params: inference.Params{Topics: 1, Alpha: 0.1, Beta: 0.1, Iterations: 1, TopWords: 1},
		})
	}
	return opts
}

func TestExtract(t *testing.T) {
	st := memstore.New()
	d := store.Dialog{ID: 1, Username: "gophers"}
	seed(t, st, d, "The dog is running fast", "and the cat is running late")

	engine := &recordingEngine{name: "fake"}
	ex := New(testOptions(st, engine))

	rep, err := ex.Extract(context.Background(), d)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	want := []string{"dog run fast", "cat run late"}
	if len(engine.seen) != 1 {
		t.Fatalf("Expected one engine call, got %d", len(engine.seen))
	}
	for i := range want {
		if engine.seen[0][i] != want[i] {
			t.Errorf("Document %d: expected %q, got %q", i, want[i], engine.seen[0][i])
		}
	}

	if rep.Stats.Documents != 2 || rep.Stats.UniqueWords != 5 {
		t.Errorf("Unexpected stats %+v", rep.Stats)
	}
	if rep.Pipeline.Stopwords != 5 {
		t.Errorf("Expected 5 stopwords removed, got %d", rep.Pipeline.Stopwords)
	}
	if len(rep.Results) != 1 || rep.Results[0].Topics[0][0].Word != "dog" {
		t.Errorf("Unexpected results %+v", rep.Results)
	}
	if len(rep.Runs) != 0 {
		t.Error("Runs should not be saved unless requested")
	}
	if len(rep.Coherence) != 1 || len(rep.Coherence[0]) != 1 {
		t.Errorf("Expected one coherence score per topic, got %v", rep.Coherence)
	}

	var buf bytes.Buffer
	if _, err := rep.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, s := range []string{"Dialog 1 gophers", "Number of documents: 2", "fake topics=1", "dog 1", "Mean topic coherence (NPMI): 0.000"} {
		if !strings.Contains(out, s) {
			t.Errorf("Report missing %q:\n%s", s, out)
		}
	}
}

func TestExtractRange(t *testing.T) {
	st := memstore.New()
	d := store.Dialog{ID: 1}
	seed(t, st, d, "early words", "middle words", "late words")

	engine := &recordingEngine{name: "fake"}
	opts := testOptions(st, engine)
	opts.From, opts.To = 1060, 1120
	if _, err := New(opts).Extract(context.Background(), d); err != nil {
		t.Fatal(err)
	}
	if len(engine.seen[0]) != 1 || engine.seen[0][0] != "middle words" {
		t.Errorf("Expected only the middle message, got %v", engine.seen[0])
	}

	// Inverted range reads everything
	engine.seen = nil
	opts.From, opts.To = 2000, 1000
	if _, err := New(opts).Extract(context.Background(), d); err != nil {
		t.Fatal(err)
	}
	if len(engine.seen[0]) != 3 {
		t.Errorf("Expected all 3 messages, got %v", engine.seen[0])
	}
}

func TestExtractMissingData(t *testing.T) {
	st := memstore.New()
	empty := store.Dialog{ID: 1}
	stops := store.Dialog{ID: 2}
	seed(t, st, empty)
	seed(t, st, stops, "the and", "is")

	ex := New(testOptions(st, &recordingEngine{name: "fake"}))

	if _, err := ex.Extract(context.Background(), empty); !errors.Is(err, internalerr.ErrNoMessages) {
		t.Errorf("Expected ErrNoMessages, got %v", err)
	}
	if _, err := ex.Extract(context.Background(), stops); !errors.Is(err, internalerr.ErrNoDocuments) {
		t.Errorf("Expected ErrNoDocuments, got %v", err)
	}
}

func TestExtractTimeout(t *testing.T) {
	st := memstore.New()
	d := store.Dialog{ID: 1}
	seed(t, st, d, "some words")

	opts := testOptions(st, blockingEngine{})
	opts.Timeout = 20 * time.Millisecond
	_, err := New(opts).Extract(context.Background(), d)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestExtractConcurrentKeepsEngineOrder(t *testing.T) {
	st := memstore.New()
	d := store.Dialog{ID: 1}
	seed(t, st, d, "alpha beta", "gamma delta")

	names := []string{"first", "second", "third"}
	var engines []inference.Engine
	for _, n := range names {
		engines = append(engines, &recordingEngine{name: n})
	}
	opts := testOptions(st, engines...)
	opts.Concurrent = true

	rep, err := New(opts).Extract(context.Background(), d)
	if err != nil {
		t.Fatal(err)
	}
	for i, n := range names {
		if rep.Results[i].Engine != n {
			t.Errorf("Result %d: expected engine %s, got %s", i, n, rep.Results[i].Engine)
		}
	}
}

func TestExtractSavesRunsAndVocabulary(t *testing.T) {
	st := memstore.New()
	d := store.Dialog{ID: 9}
	seed(t, st, d, "running dogs", "sleeping cats")

	dir := filepath.Join(t.TempDir(), "vocab")
	opts := testOptions(st, &recordingEngine{name: "a"}, &recordingEngine{name: "b"})
	opts.SaveResults = true
	opts.VocabularyDir = dir

	rep, err := New(opts).Extract(context.Background(), d)
	if err != nil {
		t.Fatal(err)
	}

	saved, err := st.GetRuns(context.Background(), 9)
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 2 || len(rep.Runs) != 2 {
		t.Errorf("Expected 2 saved runs, got %d stored and %d reported", len(saved), len(rep.Runs))
	}

	data, err := os.ReadFile(filepath.Join(dir, VocabularyFile(d)))
	if err != nil {
		t.Fatalf("Vocabulary dump missing: %v", err)
	}
	if string(data) != "cats\r\ndogs\r\nrunning\r\nsleeping\r\n" {
		t.Errorf("Unexpected vocabulary dump %q", data)
	}
}

func TestExtractAll(t *testing.T) {
	st := memstore.New()
	seed(t, st, store.Dialog{ID: 1}, "golang channels", "golang goroutines")
	seed(t, st, store.Dialog{ID: 2})
	seed(t, st, store.Dialog{ID: 3}, "rust ownership")

	opts := testOptions(st, &recordingEngine{name: "fake"})
	opts.Workers = 2
	outcomes, err := New(opts).ExtractAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("Expected 3 outcomes, got %d", len(outcomes))
	}
	for i, o := range outcomes {
		if o.Dialog.ID != int64(i+1) {
			t.Errorf("Outcome %d belongs to dialog %d", i, o.Dialog.ID)
		}
	}
	if outcomes[0].Report == nil || outcomes[2].Report == nil {
		t.Error("Dialogs 1 and 3 should succeed")
	}
	if !errors.Is(outcomes[1].Skipped, internalerr.ErrNoMessages) {
		t.Errorf("Dialog 2 should be skipped, got %+v", outcomes[1])
	}
}

func TestExtractAllParallelSavesRuns(t *testing.T) {
	ctx := context.Background()
	st, err := sqlite.OpenSQLite(ctx, filepath.Join(t.TempDir(), "messages.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	for d := int64(1); d <= 6; d++ {
		seed(t, st, store.Dialog{ID: d}, "golang channels select", "golang goroutines leak", "rust ownership borrow")
	}

	opts := testOptions(st, &recordingEngine{name: "a"}, &recordingEngine{name: "b"})
	opts.Workers = 4
	opts.SaveResults = true
	opts.Concurrent = true

	outcomes, err := New(opts).ExtractAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, o := range outcomes {
		if o.Err != nil || o.Skipped != nil {
			t.Errorf("Dialog %d should succeed, got err=%v skipped=%v", o.Dialog.ID, o.Err, o.Skipped)
		}
	}
	for d := int64(1); d <= 6; d++ {
		runs, err := st.GetRuns(ctx, d)
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) != 2 {
			t.Errorf("Dialog %d: expected 2 saved runs, got %d", d, len(runs))
		}
	}
}

func TestExtractAllFailures(t *testing.T) {
	st := memstore.New()
	seed(t, st, store.Dialog{ID: 1}, "some text")

	boom := errors.New("engine exploded")
	outcomes, err := New(testOptions(st, &recordingEngine{name: "bad", err: boom})).ExtractAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(outcomes[0].Err, boom) {
		t.Errorf("Expected engine failure to be recorded, got %+v", outcomes[0])
	}

	st.ReadErr = internalerr.ErrStoreUnavailable
	outcomes, _ = New(testOptions(st, &recordingEngine{name: "fake"})).ExtractAll(context.Background())
	if !errors.Is(outcomes[0].Err, internalerr.ErrStoreUnavailable) {
		t.Errorf("Expected store failure to be recorded, got %+v", outcomes[0])
	}
}

func TestExtractAllNoDialogs(t *testing.T) {
	_, err := New(testOptions(memstore.New())).ExtractAll(context.Background())
	if !errors.Is(err, internalerr.ErrNoDialogs) {
		t.Errorf("Expected ErrNoDialogs, got %v", err)
	}
}

func TestNewFromConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "en.txt"), []byte("the\nis\n"), 0644); err != nil {
		t.Fatal(err)
	}

	st := memstore.New()
	var texts []string
	for i := 0; i < 6; i++ {
		texts = append(texts, "apple banana fruit juice", "engine wheel car road")
	}
	seed(t, st, store.Dialog{ID: 5, Title: "mixed"}, texts...)

	cfg := config.Default()
	cfg.Stopwords.Dir = dir
	cfg.Stopwords.Languages = []string{"en"}
	cfg.Merge.Threshold = 0
	cfg.Stemming.Method = "identity"
	cfg.Inference.Seed = 3
	cfg.Inference.Engines = []config.Engine{
		{Name: "gsdmm", Topics: 2, Alpha: 0.1, Beta: 0.1, Iterations: 10, TopWords: 3},
		{Name: "gslda", Topics: 2, Alpha: 0.01, Beta: 0.1, Iterations: 10, TopWords: 3},
	}

	ex, err := NewFromConfig(st, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	rep, err := ex.Extract(context.Background(), store.Dialog{ID: 5, Title: "mixed"})
	if err != nil {
		t.Fatal(err)
	}
	if rep.Stats.Documents != 12 || rep.Stats.UniqueWords != 8 {
		t.Errorf("Unexpected stats %+v", rep.Stats)
	}
	if len(rep.Results) != 2 || rep.Results[0].Engine != "gsdmm" || rep.Results[1].Engine != "gslda" {
		t.Fatalf("Unexpected results %+v", rep.Results)
	}
	for i, res := range rep.Results {
		if len(res.Topics) != 2 {
			t.Errorf("%s: expected 2 topics, got %d", res.Engine, len(res.Topics))
		}
		for k, c := range rep.Coherence[i] {
			if c < -1 || c > 1 {
				t.Errorf("%s topic %d: coherence %f out of range", res.Engine, k, c)
			}
		}
	}
}
