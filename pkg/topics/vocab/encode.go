package vocab

import (
	"fmt"
	"strings"

	"github.com/comrados/crawlergram/pkg/topics/ingest"
	"github.com/comrados/crawlergram/pkg/topics/internalerr"
)

// Encode sets each document's stemmed text: the stems of its surviving
// compounds in token order, joined by single spaces.
//
// The vocabulary must be complete. Encoding against a partial mapping, or a
// document holding a compound the vocabulary never saw, fails with
// ErrUnstemmed and leaves every document untouched.
func Encode(docs []*ingest.Document, v *Vocabulary) error {
	if !v.Complete() {
		missing := v.Unstemmed()
		return fmt.Errorf("encode: %d keys without stem (first %q): %w",
			len(missing), missing[0], internalerr.ErrUnstemmed)
	}

	encoded := make([]string, len(docs))
	for i, doc := range docs {
		var b strings.Builder
		for _, tok := range doc.Tokens {
			for _, c := range tok.Compounds {
				stem, ok := v.Stem(c)
				if !ok {
					return fmt.Errorf("encode: compound %q not in vocabulary: %w", c, internalerr.ErrUnstemmed)
				}
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(stem)
			}
		}
		encoded[i] = strings.TrimSpace(b.String())
	}

	for i, doc := range docs {
		doc.Stemmed = encoded[i]
	}
	return nil
}

// Texts returns the stemmed text of every document.
func Texts(docs []*ingest.Document) []string {
	out := make([]string, len(docs))
	for i, doc := range docs {
		out[i] = doc.Stemmed
	}
	return out
}
