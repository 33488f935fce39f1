package stem

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/kljensen/snowball"

	"github.com/comrados/crawlergram/pkg/topics/internalerr"
	"github.com/comrados/crawlergram/pkg/topics/vocab"
)

// Snowball stems each key with the snowball algorithm of its script:
// Cyrillic words use the Cyrillic language, everything else the Latin one.
type Snowball struct {
	Latin    string
	Cyrillic string
}

var cyrillicLanguages = map[string]bool{"russian": true}

var supportedLanguages = map[string]bool{
	"english": true, "russian": true, "spanish": true, "french": true,
	"swedish": true, "norwegian": true, "hungarian": true,
}

// NewSnowball picks the Latin and Cyrillic languages from a list of snowball
// language names. Defaults are english and russian.
func NewSnowball(languages []string) (Snowball, error) {
	s := Snowball{}
	for _, lang := range languages {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if !supportedLanguages[lang] {
			return Snowball{}, fmt.Errorf("snowball: unsupported language %q: %w", lang, internalerr.ErrInvalidConfig)
		}
		if cyrillicLanguages[lang] {
			if s.Cyrillic == "" {
				s.Cyrillic = lang
			}
		} else if s.Latin == "" {
			s.Latin = lang
		}
	}
	if s.Latin == "" {
		s.Latin = "english"
	}
	if s.Cyrillic == "" {
		s.Cyrillic = "russian"
	}
	return s, nil
}

func (Snowball) Name() string { return "snowball" }

func (s Snowball) Stem(ctx context.Context, v *vocab.Vocabulary, _ Params) (*vocab.Vocabulary, error) {
	out := v.Clone()
	for i, k := range out.Keys() {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		stem, err := snowball.Stem(k, s.language(k), true)
		if err != nil {
			return nil, fmt.Errorf("snowball %q: %w", k, err)
		}
		// Some inputs (markers, short words) stem to nothing.
		if stem == "" {
			stem = k
		}
		if err := out.SetStem(k, stem); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s Snowball) language(word string) string {
	for _, r := range word {
		if unicode.Is(unicode.Cyrillic, r) {
			return s.Cyrillic
		}
	}
	return s.Latin
}
