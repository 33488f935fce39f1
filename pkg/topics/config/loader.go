package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/comrados/crawlergram/pkg/topics/inference"
	"github.com/comrados/crawlergram/pkg/topics/inference/dmm"
	"github.com/comrados/crawlergram/pkg/topics/inference/lda"
	"github.com/comrados/crawlergram/pkg/topics/inference/vblda"
	"github.com/comrados/crawlergram/pkg/topics/ingest"
	"github.com/comrados/crawlergram/pkg/topics/stem"
	"github.com/comrados/crawlergram/pkg/topics/stoplist"
	"github.com/comrados/crawlergram/pkg/topics/vocab"
)

// Loader loads the resources a configuration refers to and constructs
// components
type Loader struct {
	Config *Config
	Logger *slog.Logger
}

// Components holds all loaded runtime components
type Components struct {
	Assemble   ingest.AssembleOptions
	Tokenizer  *ingest.Tokenizer
	Stopwords  *stoplist.Sets
	Stemmer    stem.Stemmer
	StemParams stem.Params
	Engines    []EngineRun
	Timeout    time.Duration
	Concurrent bool
}

// EngineRun pairs an engine with the parameters it is invoked with.
type EngineRun struct {
	Engine inference.Engine
	Params inference.Params
}

// Load reads stopword lists and stem overrides and returns initialized
// components. Missing stopword lists are logged and leave the language
// unfiltered; everything else fails the load.
func (l *Loader) Load() (*Components, error) {
	cfg := l.Config
	if cfg == nil {
		cfg = Default()
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	comp := &Components{Concurrent: cfg.Inference.Concurrent}

	window, _ := cfg.MergeWindow()
	comp.Assemble = ingest.AssembleOptions{Threshold: cfg.Merge.Threshold, Window: window}
	comp.Timeout, _ = cfg.InferenceTimeout()

	// Tokenizer
	policy, err := ingest.ParsePolicy(cfg.Tokenizer.NumericPolicy)
	if err != nil {
		return nil, err
	}
	comp.Tokenizer = ingest.NewTokenizer(ingest.TokenizerOptions{
		MinLength: cfg.Tokenizer.MinLength,
		MaxLength: cfg.Tokenizer.MaxLength,
		Policy:    policy,
	})

	// Stopwords
	comp.Stopwords = stoplist.Load(cfg.Stopwords.Dir, cfg.Stopwords.Languages, logger)

	// Stemmer
	stemmer, err := stem.New(cfg.Stemming.Method, cfg.Stemming.Languages)
	if err != nil {
		return nil, err
	}
	if cfg.Stemming.Overrides != "" {
		overrides, err := vocab.LoadOverrides(cfg.Stemming.Overrides)
		if err != nil {
			return nil, fmt.Errorf("load stem overrides: %w", err)
		}
		logger.Debug("loaded stem overrides", "path", cfg.Stemming.Overrides, "variants", overrides.Len())
		stemmer = stem.WithOverrides(stemmer, overrides)
	}
	comp.Stemmer = stemmer
	comp.StemParams = stem.Params{
		MinOccurrence:       cfg.Stemming.MinOccurrence,
		MaxEditDistance:     cfg.Stemming.MaxEditDistance,
		SimilarityThreshold: cfg.Stemming.SimilarityThreshold,
	}

	// Engines
	for _, e := range cfg.Inference.Engines {
		engine, err := NewEngine(e.Name, cfg.Workers)
		if err != nil {
			return nil, err
		}
		comp.Engines = append(comp.Engines, EngineRun{Engine: engine, Params: e.Params(cfg.Inference.Seed)})
	}

	return comp, nil
}

// NewEngine constructs an inference engine by name.
func NewEngine(name string, workers int) (inference.Engine, error) {
	switch strings.ToLower(name) {
	case dmm.Name:
		return dmm.New(), nil
	case lda.Name:
		return lda.New(), nil
	case vblda.Name:
		return vblda.New(workers), nil
	}
	return nil, fmt.Errorf("unknown engine %q", name)
}
