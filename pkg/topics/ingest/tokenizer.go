package ingest

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultMinLength = 2
	DefaultMaxLength = 30

	// maxRune is the last code point kept in a compound. Emoji and other
	// symbols above it are stripped.
	maxRune = 0x1FFF
)

var (
	schemeLink = regexp.MustCompile(`(?i)^.*(https?://|ftp://|file://|mailto:|nfs://|irc://|ssh://|telnet://|www\.).+$`)
	shortLink  = regexp.MustCompile(`^[\w~@-]+(?:\.[\w~@-]+)+(?:/\S*)?$`)
	decimal    = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
)

// extraPunct are symbols treated as compound separators in addition to
// Unicode punctuation.
const extraPunct = "$+<=>^`|~–…‹›§«»¿¡≠‘’“”⟨⟩°※©℗®℠™—"

// IsPunct reports whether r separates compounds.
func IsPunct(r rune) bool {
	return unicode.IsPunct(r) || strings.ContainsRune(extraPunct, r)
}

// TokenizerOptions configures a Tokenizer. Zero lengths take the defaults.
type TokenizerOptions struct {
	MinLength int
	MaxLength int
	Policy    Policy
}

// Tokenizer splits text into tokens and normalized compounds.
type Tokenizer struct {
	minLen     int
	maxLen     int
	normalizer *Normalizer
}

// NewTokenizer creates a tokenizer with the given options.
func NewTokenizer(opts TokenizerOptions) *Tokenizer {
	if opts.MinLength <= 0 {
		opts.MinLength = DefaultMinLength
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}
	return &Tokenizer{
		minLen:     opts.MinLength,
		maxLen:     opts.MaxLength,
		normalizer: NewNormalizer(opts.Policy),
	}
}

// Tokenize splits text on whitespace, drops rejected pieces and splits the
// rest into compounds. Safe for concurrent use.
func (t *Tokenizer) Tokenize(text string) []Token {
	lower := cases.Lower(language.Und)

	var tokens []Token
	for _, raw := range strings.Fields(text) {
		if t.Reject(raw) {
			continue
		}
		tokens = append(tokens, Token{Raw: raw, Compounds: t.compounds(raw, lower)})
	}
	return tokens
}

// compounds splits a raw token on punctuation and keeps the pieces that
// survive normalization and the rejection check.
func (t *Tokenizer) compounds(raw string, lower cases.Caser) []string {
	var out []string
	for _, part := range strings.FieldsFunc(raw, IsPunct) {
		c := strings.Map(keepRune, norm.NFC.String(lower.String(part)))
		c, ok := t.normalizer.Normalize(c)
		if !ok || t.Reject(c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Reject is the rejection predicate: empty, a link, a number once
// punctuation is stripped, or a rune length out of bounds.
func (t *Tokenizer) Reject(s string) bool {
	return s == "" ||
		IsLink(s) ||
		IsNumber(stripPunct(s)) ||
		!t.lengthOK(s)
}

func (t *Tokenizer) lengthOK(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= t.minLen && n <= t.maxLen
}

// IsLink reports whether s is a scheme-prefixed URL or a bare short link
// such as youtube.com/watch.
func IsLink(s string) bool {
	return schemeLink.MatchString(s) || shortLink.MatchString(s)
}

// IsNumber reports whether s is a finite decimal literal.
func IsNumber(s string) bool {
	return decimal.MatchString(s)
}

func stripPunct(s string) string {
	return strings.Map(func(r rune) rune {
		if IsPunct(r) {
			return -1
		}
		return r
	}, s)
}

func keepRune(r rune) rune {
	if r > maxRune {
		return -1
	}
	return r
}
