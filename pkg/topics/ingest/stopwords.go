package ingest

import "github.com/comrados/crawlergram/pkg/topics/stoplist"

// FilterStopwords removes every compound found in the stopword set of lang
// from all tokens of all documents and returns how many were removed.
// Tokens left with no compounds stay in place.
func FilterStopwords(docs []*Document, lang string, sets *stoplist.Sets) int {
	set := sets.Get(lang)
	if set.Len() == 0 {
		return 0
	}

	removed := 0
	for _, doc := range docs {
		for i := range doc.Tokens {
			kept := doc.Tokens[i].Compounds[:0]
			for _, c := range doc.Tokens[i].Compounds {
				if set.IsStop(c) {
					removed++
					continue
				}
				kept = append(kept, c)
			}
			doc.Tokens[i].Compounds = kept
		}
	}
	return removed
}
