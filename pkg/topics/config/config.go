package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/comrados/crawlergram/pkg/topics/inference"
	"github.com/comrados/crawlergram/pkg/topics/internalerr"
)

// Config is the full configuration of the topic extractor.
type Config struct {
	Storage   Storage   `yaml:"storage" toml:"storage"`
	Range     Range     `yaml:"range" toml:"range"`
	Merge     Merge     `yaml:"merge" toml:"merge"`
	Tokenizer Tokenizer `yaml:"tokenizer" toml:"tokenizer"`
	Stopwords Stopwords `yaml:"stopwords" toml:"stopwords"`
	Stemming  Stemming  `yaml:"stemming" toml:"stemming"`
	Inference Inference `yaml:"inference" toml:"inference"`
	Output    Output    `yaml:"output" toml:"output"`
	Workers   int       `yaml:"workers" toml:"workers"`
	Log       Log       `yaml:"log" toml:"log"`
}

// Storage locates the message database.
type Storage struct {
	Path string `yaml:"path" toml:"path"`
}

// Range limits messages by date, epoch seconds. Both zero, or from >= to,
// reads everything.
type Range struct {
	From int64 `yaml:"from" toml:"from"`
	To   int64 `yaml:"to" toml:"to"`
}

// Merge controls document assembly.
type Merge struct {
	Threshold int `yaml:"threshold" toml:"threshold"`
	// Window splits merged dialogs by time, e.g. "24h". Empty keeps one document.
	Window string `yaml:"window,omitempty" toml:"window,omitempty"`
}

// Tokenizer bounds compound lengths and picks the numeric policy.
type Tokenizer struct {
	MinLength int `yaml:"min_length" toml:"min_length"`
	MaxLength int `yaml:"max_length" toml:"max_length"`
	// NumericPolicy is marker or drop.
	NumericPolicy string `yaml:"numeric_policy" toml:"numeric_policy"`
}

// Stopwords locates the per-language stopword lists.
type Stopwords struct {
	Dir       string   `yaml:"dir" toml:"dir"`
	Languages []string `yaml:"languages" toml:"languages"`
}

// Stemming selects the stemmer and its thresholds.
type Stemming struct {
	// Method is gras, snowball or identity.
	Method              string  `yaml:"method" toml:"method"`
	MinOccurrence       int     `yaml:"min_occurrence" toml:"min_occurrence"`
	MaxEditDistance     int     `yaml:"max_edit_distance" toml:"max_edit_distance"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" toml:"similarity_threshold"`

	// Languages are snowball language names.
	Languages []string `yaml:"languages,omitempty" toml:"languages,omitempty"`
	// Overrides is a YAML file of curated stems.
	Overrides string `yaml:"overrides,omitempty" toml:"overrides,omitempty"`
}

// Inference lists the engines to run per dialog.
type Inference struct {
	// Timeout bounds each engine call, e.g. "30m". The vblda fit cannot be
	// interrupted: a timed out fit keeps running in the background and the
	// next vblda call waits for it.
	Timeout    string   `yaml:"timeout" toml:"timeout"`
	Seed       uint64   `yaml:"seed" toml:"seed"`
	Concurrent bool     `yaml:"concurrent" toml:"concurrent"`
	Engines    []Engine `yaml:"engines" toml:"engines"`
}

// Engine is one engine invocation: gsdmm, gslda or vblda.
type Engine struct {
	Name       string  `yaml:"name" toml:"name"`
	Topics     int     `yaml:"topics" toml:"topics"`
	Alpha      float64 `yaml:"alpha" toml:"alpha"`
	Beta       float64 `yaml:"beta" toml:"beta"`
	Iterations int     `yaml:"iterations" toml:"iterations"`
	TopWords   int     `yaml:"top_words" toml:"top_words"`
}

// Params returns the engine hyperparameters with the run seed.
func (e Engine) Params(seed uint64) inference.Params {
	return inference.Params{
		Topics:     e.Topics,
		Alpha:      e.Alpha,
		Beta:       e.Beta,
		Iterations: e.Iterations,
		TopWords:   e.TopWords,
		Seed:       seed,
	}
}

// Output controls side artifacts.
type Output struct {
	VocabularyDir string `yaml:"vocabulary_dir,omitempty" toml:"vocabulary_dir,omitempty"`
	SaveResults   bool   `yaml:"save_results" toml:"save_results"`
}

// Log configures the logger: level debug, info, warn or error; format
// text or json.
type Log struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Storage: Storage{Path: "crawlergram.db"},
		Merge:   Merge{Threshold: 200},
		Tokenizer: Tokenizer{
			MinLength:     2,
			MaxLength:     30,
			NumericPolicy: "marker",
		},
		Stopwords: Stopwords{
			Dir:       "stopwords",
			Languages: []string{"en", "ru"},
		},
		Stemming: Stemming{
			Method:              "gras",
			MinOccurrence:       5,
			MaxEditDistance:     4,
			SimilarityThreshold: 0.8,
		},
		Inference: Inference{
			Timeout: "30m",
			Engines: []Engine{
				{Name: "gsdmm", Topics: 10, Alpha: 0.1, Beta: 0.1, Iterations: 1000, TopWords: 10},
				{Name: "gslda", Topics: 10, Alpha: 0.01, Beta: 0.1, Iterations: 1000, TopWords: 10},
			},
		},
		Workers: 1,
		Log:     Log{Level: "info", Format: "text"},
	}
}

// Load reads a YAML (.yaml, .yml) or TOML (.toml) file over the defaults
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		// Decoding into a populated slice would merge engine lists
		cfg.Inference.Engines = nil
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml", "":
		cfg.Inference.Engines = nil
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q: %w", filepath.Ext(path), internalerr.ErrInvalidConfig)
	}
	if len(cfg.Inference.Engines) == 0 {
		cfg.Inference.Engines = Default().Inference.Engines
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Write encodes the configuration as "yaml" or "toml".
func (c *Config) Write(w io.Writer, format string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(format) {
	case "toml":
		data, err = toml.Marshal(c)
	case "yaml", "yml", "":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err = enc.Encode(c); err == nil {
			err = enc.Close()
		}
		data = buf.Bytes()
	default:
		return fmt.Errorf("unsupported config format %q: %w", format, internalerr.ErrInvalidConfig)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// MergeWindow parses merge.window. Empty means no windowing.
func (c *Config) MergeWindow() (time.Duration, error) {
	if c.Merge.Window == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Merge.Window)
}

// InferenceTimeout parses inference.timeout. Empty means no timeout.
func (c *Config) InferenceTimeout() (time.Duration, error) {
	if c.Inference.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Inference.Timeout)
}

var knownEngines = map[string]bool{"gsdmm": true, "gslda": true, "vblda": true}

// Validate checks the configuration for values no component can work with.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), internalerr.ErrInvalidConfig)
	}

	if c.Tokenizer.MinLength < 1 {
		return invalid("tokenizer.min_length must be at least 1, got %d", c.Tokenizer.MinLength)
	}
	if c.Tokenizer.MaxLength < c.Tokenizer.MinLength {
		return invalid("tokenizer.max_length %d is below min_length %d", c.Tokenizer.MaxLength, c.Tokenizer.MinLength)
	}
	switch strings.ToLower(c.Tokenizer.NumericPolicy) {
	case "", "marker", "rewrite", "drop", "delete":
	default:
		return invalid("tokenizer.numeric_policy %q is not marker or drop", c.Tokenizer.NumericPolicy)
	}

	if w, err := c.MergeWindow(); err != nil || w < 0 {
		return invalid("merge.window %q is not a positive duration", c.Merge.Window)
	}
	if d, err := c.InferenceTimeout(); err != nil || d < 0 {
		return invalid("inference.timeout %q is not a positive duration", c.Inference.Timeout)
	}

	if c.Stemming.SimilarityThreshold < 0 || c.Stemming.SimilarityThreshold > 1 {
		return invalid("stemming.similarity_threshold must be within [0, 1], got %g", c.Stemming.SimilarityThreshold)
	}
	if c.Stemming.MinOccurrence < 0 || c.Stemming.MaxEditDistance < 0 {
		return invalid("stemming thresholds must not be negative")
	}

	if len(c.Inference.Engines) == 0 {
		return invalid("inference.engines is empty")
	}
	for i, e := range c.Inference.Engines {
		if !knownEngines[strings.ToLower(e.Name)] {
			return invalid("inference.engines[%d]: unknown engine %q", i, e.Name)
		}
		if err := e.Params(0).Validate(); err != nil {
			return invalid("inference.engines[%d] (%s): %v", i, e.Name, err)
		}
	}

	if c.Workers < 0 {
		return invalid("workers must not be negative, got %d", c.Workers)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return invalid("log.format %q is not text or json", c.Log.Format)
	}
	return nil
}
