package ingest

import "strings"

// Document is the unit submitted to tokenization and later to inference:
// either one message or a merged run of messages from one dialog.
type Document struct {
	DialogID  int64
	MessageID int64 // 0 for merged documents
	From      int64 // earliest message date, epoch seconds
	To        int64 // latest message date, epoch seconds
	Merged    bool

	Text    string
	Tokens  []Token
	Stemmed string // set by vocab.Encode
}

// Token is a whitespace-delimited piece of a document's text together with
// its punctuation-split, normalized compounds. A token whose compounds were
// all rejected stays in place with an empty list.
type Token struct {
	Raw       string
	Compounds []string
}

// Compounds returns every surviving compound of the document in order.
func (d *Document) Compounds() []string {
	var out []string
	for _, tok := range d.Tokens {
		out = append(out, tok.Compounds...)
	}
	return out
}

// CompoundCount returns the number of surviving compounds.
func (d *Document) CompoundCount() int {
	n := 0
	for _, tok := range d.Tokens {
		n += len(tok.Compounds)
	}
	return n
}

// IsBlank reports whether the raw text has no visible content.
func (d *Document) IsBlank() bool {
	return strings.TrimSpace(d.Text) == ""
}
