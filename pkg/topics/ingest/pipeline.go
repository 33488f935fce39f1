package ingest

import (
	"log/slog"

	"github.com/comrados/crawlergram/pkg/topics/stoplist"
)

// Pipeline orchestrates the lexical flow of one corpus:
// tokenization → normalization → stopword filtering per language
type Pipeline struct {
	tokenizer *Tokenizer
	stops     *stoplist.Sets
	logger    *slog.Logger
}

// NewPipeline creates a pipeline. stops may be nil to skip filtering.
func NewPipeline(tokenizer *Tokenizer, stops *stoplist.Sets, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		tokenizer: tokenizer,
		stops:     stops,
		logger:    logger,
	}
}

// Result summarizes one Process call.
type Result struct {
	Tokens    int // tokens kept after the rejection check
	Compounds int // compounds surviving stopword removal
	Stopwords int // compounds removed as stopwords
	Dropped   int // documents left without any compound
}

// Process tokenizes every document in place, filters stopwords for each
// configured language and returns the documents that still carry at least
// one compound, in their original order.
func (p *Pipeline) Process(docs []*Document) ([]*Document, Result) {
	var res Result

	for _, doc := range docs {
		doc.Tokens = p.tokenizer.Tokenize(doc.Text)
		res.Tokens += len(doc.Tokens)
	}

	for _, lang := range p.stops.Languages() {
		n := FilterStopwords(docs, lang, p.stops)
		res.Stopwords += n
		p.logger.Debug("stopwords removed", "lang", lang, "count", n)
	}

	kept := make([]*Document, 0, len(docs))
	for _, doc := range docs {
		n := doc.CompoundCount()
		if n == 0 {
			res.Dropped++
			continue
		}
		res.Compounds += n
		kept = append(kept, doc)
	}
	if res.Dropped > 0 {
		p.logger.Debug("documents without compounds dropped", "count", res.Dropped)
	}
	return kept, res
}
