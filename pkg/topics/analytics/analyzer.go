package analytics

import (
	"sort"
	"unicode/utf8"

	"github.com/comrados/crawlergram/pkg/topics/ingest"
	"github.com/comrados/crawlergram/pkg/topics/vocab"
)

// DefaultTopTerms is how many document-frequency leaders a snapshot keeps.
const DefaultTopTerms = 10

// Analyzer aggregates document-level compound stats.
type Analyzer struct {
	totalDocs      int
	totalCompounds int
	docFreq        map[string]int
	topN           int
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		docFreq: make(map[string]int),
		topN:    DefaultTopTerms,
	}
}

// Process consumes one document's surviving compounds.
func (a *Analyzer) Process(compounds []string) {
	a.totalDocs++
	a.totalCompounds += len(compounds)

	seen := make(map[string]struct{}, len(compounds))
	for _, c := range compounds {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		a.docFreq[c]++
	}
}

// Stats describes one prepared corpus.
type Stats struct {
	Documents     int
	Compounds     int     // surviving compounds over all documents
	UniqueWords   int     // vocabulary size
	Stems         int     // distinct stems, 0 before stemming
	AvgWordLength float64 // mean rune length of vocabulary keys
	TokensPerDoc  float64 // mean surviving compounds per document
	Ratio         float64 // TokensPerDoc / UniqueWords * 100
	TopTerms      []TermStat
}

// TermStat is a word with its document frequency.
type TermStat struct {
	Word string
	DF   int
}

// Snapshot returns the statistics of the processed documents against
// their vocabulary.
func (a *Analyzer) Snapshot(v *vocab.Vocabulary) Stats {
	s := Stats{
		Documents: a.totalDocs,
		Compounds: a.totalCompounds,
	}

	keys := v.Keys()
	s.UniqueWords = len(keys)
	s.Stems = v.Stems()
	if len(keys) > 0 {
		total := 0
		for _, k := range keys {
			total += utf8.RuneCountInString(k)
		}
		s.AvgWordLength = float64(total) / float64(len(keys))
	}
	if a.totalDocs > 0 {
		s.TokensPerDoc = float64(a.totalCompounds) / float64(a.totalDocs)
	}
	if s.UniqueWords > 0 {
		s.Ratio = s.TokensPerDoc / float64(s.UniqueWords) * 100
	}

	s.TopTerms = a.topTerms()
	return s
}

func (a *Analyzer) topTerms() []TermStat {
	terms := make([]TermStat, 0, len(a.docFreq))
	for w, df := range a.docFreq {
		terms = append(terms, TermStat{Word: w, DF: df})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].DF != terms[j].DF {
			return terms[i].DF > terms[j].DF
		}
		return terms[i].Word < terms[j].Word
	})
	if len(terms) > a.topN {
		terms = terms[:a.topN]
	}
	return terms
}

// Compute runs an Analyzer over documents and snapshots it.
func Compute(docs []*ingest.Document, v *vocab.Vocabulary) Stats {
	a := NewAnalyzer()
	for _, doc := range docs {
		a.Process(doc.Compounds())
	}
	return a.Snapshot(v)
}
