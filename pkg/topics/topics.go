package topics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/comrados/crawlergram/pkg/topics/analytics"
	"github.com/comrados/crawlergram/pkg/topics/config"
	"github.com/comrados/crawlergram/pkg/topics/inference"
	"github.com/comrados/crawlergram/pkg/topics/ingest"
	"github.com/comrados/crawlergram/pkg/topics/internalerr"
	"github.com/comrados/crawlergram/pkg/topics/pmi"
	"github.com/comrados/crawlergram/pkg/topics/runs"
	"github.com/comrados/crawlergram/pkg/topics/stem"
	"github.com/comrados/crawlergram/pkg/topics/store"
	"github.com/comrados/crawlergram/pkg/topics/vocab"
)

// Extractor is the topic extraction facade: it reads dialogs from the store
// and runs the lexical pipeline, stemming and inference over each one.
type Extractor struct {
	store      store.Store
	pipeline   *ingest.Pipeline
	stemmer    stem.Stemmer
	stemParams stem.Params
	engines    []config.EngineRun
	assemble   ingest.AssembleOptions
	from, to   int64
	timeout    time.Duration
	concurrent bool
	workers    int
	vocabDir   string
	save       bool
	runs       *runs.Builder
	logger     *slog.Logger
}

// Options configures an Extractor
type Options struct {
	Store      store.Store
	Pipeline   *ingest.Pipeline
	Stemmer    stem.Stemmer
	StemParams stem.Params
	Engines    []config.EngineRun
	Assemble   ingest.AssembleOptions

	// From and To limit messages by date, epoch seconds. An invalid range
	// reads every message of a dialog.
	From, To int64

	// Timeout bounds each engine invocation. Zero means no timeout.
	Timeout    time.Duration
	Concurrent bool
	Workers    int

	VocabularyDir string
	SaveResults   bool
	Logger        *slog.Logger
}

// New creates an Extractor with the given dependencies
func New(opts Options) *Extractor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	stemmer := opts.Stemmer
	if stemmer == nil {
		stemmer = stem.GRAS{}
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Extractor{
		store:      opts.Store,
		pipeline:   opts.Pipeline,
		stemmer:    stemmer,
		stemParams: opts.StemParams,
		engines:    opts.Engines,
		assemble:   opts.Assemble,
		from:       opts.From,
		to:         opts.To,
		timeout:    opts.Timeout,
		concurrent: opts.Concurrent,
		workers:    workers,
		vocabDir:   opts.VocabularyDir,
		save:       opts.SaveResults,
		runs:       runs.New(),
		logger:     logger,
	}
}

// NewFromConfig loads the components cfg refers to and builds an Extractor
// over st.
func NewFromConfig(st store.Store, cfg *config.Config, logger *slog.Logger) (*Extractor, error) {
	comp, err := (&config.Loader{Config: cfg, Logger: logger}).Load()
	if err != nil {
		return nil, err
	}
	return New(Options{
		Store:         st,
		Pipeline:      ingest.NewPipeline(comp.Tokenizer, comp.Stopwords, logger),
		Stemmer:       comp.Stemmer,
		StemParams:    comp.StemParams,
		Engines:       comp.Engines,
		Assemble:      comp.Assemble,
		From:          cfg.Range.From,
		To:            cfg.Range.To,
		Timeout:       comp.Timeout,
		Concurrent:    comp.Concurrent,
		Workers:       cfg.Workers,
		VocabularyDir: cfg.Output.VocabularyDir,
		SaveResults:   cfg.Output.SaveResults,
		Logger:        logger,
	}), nil
}

// Close cleanly shuts down the Extractor and its store
func (e *Extractor) Close() error {
	return e.store.Close()
}

// Report is the outcome of one dialog run.
type Report struct {
	Dialog     store.Dialog
	Pipeline   ingest.Result
	Stats      analytics.Stats
	Vocabulary *vocab.Vocabulary
	Results    []inference.Result
	// Coherence holds the mean NPMI of every topic, per result.
	Coherence [][]float64
	Runs      []store.Run
}

// WriteTo renders the statistics followed by every engine's topics.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Dialog %d %s\n", r.Dialog.ID, r.Dialog.Name())
	if err := analytics.WriteStats(&buf, r.Stats); err != nil {
		return 0, err
	}
	for i, res := range r.Results {
		if err := analytics.WriteTopics(&buf, res); err != nil {
			return 0, err
		}
		if i < len(r.Coherence) && len(r.Coherence[i]) > 0 {
			fmt.Fprintf(&buf, "Mean topic coherence (NPMI): %.3f\n", mean(r.Coherence[i]))
		}
	}
	return buf.WriteTo(w)
}

// Prepare reads, assembles, tokenizes, filters, stems and re-encodes the
// documents of one dialog. The returned documents carry stemmed text.
func (e *Extractor) Prepare(ctx context.Context, dialog store.Dialog) ([]*ingest.Document, *vocab.Vocabulary, ingest.Result, error) {
	msgs, err := e.store.ReadMessagesRange(ctx, dialog, e.from, e.to)
	if err != nil {
		return nil, nil, ingest.Result{}, fmt.Errorf("read messages of %d: %w", dialog.ID, err)
	}
	if len(msgs) == 0 {
		return nil, nil, ingest.Result{}, fmt.Errorf("dialog %d: %w", dialog.ID, internalerr.ErrNoMessages)
	}

	docs := ingest.Assemble(dialog.ID, msgs, e.assemble)
	docs, pres := e.pipeline.Process(docs)
	if len(docs) == 0 {
		return nil, nil, pres, fmt.Errorf("dialog %d: %w", dialog.ID, internalerr.ErrNoDocuments)
	}
	e.logger.Debug("documents prepared",
		"dialog", dialog.ID,
		"messages", len(msgs),
		"documents", len(docs),
		"compounds", pres.Compounds,
		"stopwords", pres.Stopwords)

	stemmed, err := e.stemmer.Stem(ctx, vocab.Build(docs), e.stemParams)
	if err != nil {
		return nil, nil, pres, fmt.Errorf("stem dialog %d: %w", dialog.ID, err)
	}
	if err := vocab.Encode(docs, stemmed); err != nil {
		return nil, nil, pres, fmt.Errorf("encode dialog %d: %w", dialog.ID, err)
	}
	e.logger.Debug("vocabulary stemmed",
		"dialog", dialog.ID,
		"stemmer", e.stemmer.Name(),
		"words", stemmed.Len(),
		"stems", stemmed.Stems())

	return docs, stemmed, pres, nil
}

// Extract runs the full pipeline for one dialog.
func (e *Extractor) Extract(ctx context.Context, dialog store.Dialog) (*Report, error) {
	docs, v, pres, err := e.Prepare(ctx, dialog)
	if err != nil {
		return nil, err
	}

	texts := vocab.Texts(docs)
	results, err := e.infer(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("dialog %d: %w", dialog.ID, err)
	}

	rep := &Report{
		Dialog:     dialog,
		Pipeline:   pres,
		Stats:      analytics.Compute(docs, v),
		Vocabulary: v,
		Results:    results,
		Coherence:  coherence(texts, results),
	}

	if e.save {
		for _, res := range results {
			run, err := e.runs.Build(dialog.ID, res)
			if err != nil {
				return nil, err
			}
			if err := e.store.SaveRun(ctx, run); err != nil {
				return nil, fmt.Errorf("save run of %d: %w", dialog.ID, err)
			}
			rep.Runs = append(rep.Runs, run)
		}
	}

	if e.vocabDir != "" {
		path := filepath.Join(e.vocabDir, VocabularyFile(dialog))
		if err := vocab.DumpFile(path, v); err != nil {
			return nil, err
		}
		e.logger.Debug("vocabulary written", "dialog", dialog.ID, "path", path)
	}

	return rep, nil
}

// coherence scores every topic against document co-occurrence in the
// encoded corpus.
func coherence(texts []string, results []inference.Result) [][]float64 {
	counts := pmi.FromTexts(texts)
	calc := pmi.NewCalculator(0)

	out := make([][]float64, len(results))
	for i, res := range results {
		out[i] = make([]float64, len(res.Topics))
		for k, topic := range res.Topics {
			words := make([]string, len(topic))
			for j, ww := range topic {
				words[j] = ww.Word
			}
			out[i][k] = calc.Coherence(counts, words)
		}
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// VocabularyFile names the vocabulary dump of a dialog.
func VocabularyFile(dialog store.Dialog) string {
	return fmt.Sprintf("words_%d.txt", dialog.ID)
}

// infer runs every configured engine over the encoded corpus. Results keep
// engine order.
func (e *Extractor) infer(ctx context.Context, texts []string) ([]inference.Result, error) {
	results := make([]inference.Result, len(e.engines))

	run := func(ctx context.Context, i int) error {
		er := e.engines[i]
		if e.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, e.timeout)
			defer cancel()
		}

		start := time.Now()
		res, err := er.Engine.Infer(ctx, texts, er.Params)
		if err != nil {
			return fmt.Errorf("%s: %w", er.Engine.Name(), err)
		}
		e.logger.Debug("inference done",
			"engine", er.Engine.Name(),
			"params", er.Params.String(),
			"documents", res.Documents,
			"elapsed", time.Since(start))
		results[i] = res
		return nil
	}

	if !e.concurrent {
		for i := range e.engines {
			if err := run(ctx, i); err != nil {
				return nil, err
			}
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range e.engines {
		g.Go(func() error { return run(gctx, i) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Outcome is the per-dialog entry of a batch run. Exactly one of Report,
// Skipped or Err is set.
type Outcome struct {
	Dialog  store.Dialog
	Report  *Report
	Skipped error
	Err     error
}

// ExtractAll runs Extract for every dialog in the store. Dialogs without
// messages or documents are skipped; other failures are recorded and the
// batch continues. Outcomes are in store order.
func (e *Extractor) ExtractAll(ctx context.Context) ([]Outcome, error) {
	dialogs, err := e.store.GetDialogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("get dialogs: %w", err)
	}
	if len(dialogs) == 0 {
		return nil, internalerr.ErrNoDialogs
	}

	outcomes := make([]Outcome, len(dialogs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, d := range dialogs {
		g.Go(func() error {
			outcomes[i] = e.outcome(gctx, d)
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func (e *Extractor) outcome(ctx context.Context, d store.Dialog) Outcome {
	out := Outcome{Dialog: d}
	rep, err := e.Extract(ctx, d)
	switch {
	case err == nil:
		out.Report = rep
	case internalerr.IsMissingData(err):
		e.logger.Warn("dialog skipped", "dialog", d.ID, "name", d.Name(), "reason", err)
		out.Skipped = err
	default:
		e.logger.Error("dialog failed", "dialog", d.ID, "name", d.Name(), "err", err)
		out.Err = err
	}
	return out
}
