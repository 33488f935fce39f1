package stoplist

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Set is the stopword list of one language. Matching is case-sensitive;
// callers compare already lowercased compounds.
type Set struct {
	stops map[string]struct{}
}

// NewSet creates a stopword set from a word list. Blank entries are ignored.
func NewSet(words []string) *Set {
	stops := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		stops[w] = struct{}{}
	}
	return &Set{stops: stops}
}

// IsStop checks if a word is a stopword. A nil set matches nothing.
func (s *Set) IsStop(word string) bool {
	if s == nil {
		return false
	}
	_, ok := s.stops[word]
	return ok
}

// Len returns the number of stopwords
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.stops)
}

// All returns all stopwords in ascending order
func (s *Set) All() []string {
	if s == nil {
		return nil
	}
	result := make([]string, 0, len(s.stops))
	for w := range s.stops {
		result = append(result, w)
	}
	sort.Strings(result)
	return result
}

// Read parses a stopword list: one word per line, blank lines ignored.
func Read(r io.Reader) (*Set, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			words = append(words, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewSet(words), nil
}

// ReadFile loads a stopword list from a file.
func ReadFile(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	set, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read stopwords %s: %w", path, err)
	}
	return set, nil
}

// Sets maps a language code to its stopword set. It is built once per
// pipeline run and passed down explicitly.
type Sets struct {
	byLang  map[string]*Set
	order   []string
	missing []string
}

// NewSets creates Sets from already loaded lists. Language order is the
// order of the langs argument.
func NewSets(langs []string, lists map[string][]string) *Sets {
	s := &Sets{byLang: make(map[string]*Set, len(langs))}
	for _, lang := range langs {
		lang = strings.ToLower(lang)
		if _, dup := s.byLang[lang]; dup {
			continue
		}
		words, ok := lists[lang]
		if !ok {
			s.missing = append(s.missing, lang)
		}
		s.byLang[lang] = NewSet(words)
		s.order = append(s.order, lang)
	}
	return s
}

// Load reads <dir>/<lang>.txt for every language. A missing or unreadable
// file is not an error: the language gets an empty set and is listed in
// Missing.
func Load(dir string, langs []string, logger *slog.Logger) *Sets {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Sets{byLang: make(map[string]*Set, len(langs))}
	for _, lang := range langs {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang == "" {
			continue
		}
		if _, dup := s.byLang[lang]; dup {
			continue
		}
		s.order = append(s.order, lang)

		path := filepath.Join(dir, lang+".txt")
		set, err := ReadFile(path)
		if err != nil {
			logger.Warn("can't read stopwords, filter disabled", "lang", lang, "path", path, "err", err)
			s.missing = append(s.missing, lang)
			s.byLang[lang] = NewSet(nil)
			continue
		}
		logger.Debug("loaded stopwords", "lang", lang, "count", set.Len())
		s.byLang[lang] = set
	}
	return s
}

// Get returns the set of a language, or nil when it was never loaded.
func (s *Sets) Get(lang string) *Set {
	if s == nil {
		return nil
	}
	return s.byLang[strings.ToLower(lang)]
}

// Languages returns the configured languages in load order.
func (s *Sets) Languages() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

// Missing returns languages whose list could not be loaded.
func (s *Sets) Missing() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.missing...)
}
