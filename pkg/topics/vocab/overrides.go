package vocab

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Overrides holds manually curated stems that take precedence over the
// stemmer's output.
//
// Format:
//
//	stems:
//	  - stem: run
//	    variants: [running, runs, ran]
//	  - stem: телефон
//	    variants: [телефона, телефоны]
type Overrides struct {
	// variant -> stem
	byVariant map[string]string
	// stem -> variants including the stem itself
	groups map[string][]string
}

// NewOverrides creates an empty override table.
func NewOverrides() *Overrides {
	return &Overrides{
		byVariant: make(map[string]string),
		groups:    make(map[string][]string),
	}
}

// LoadOverrides reads an override table from a YAML file.
func LoadOverrides(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file struct {
		Stems []struct {
			Stem     string   `yaml:"stem"`
			Variants []string `yaml:"variants"`
		} `yaml:"stems"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse stem overrides %s: %w", path, err)
	}

	o := NewOverrides()
	for _, entry := range file.Stems {
		if strings.TrimSpace(entry.Stem) == "" {
			continue
		}
		o.AddGroup(entry.Stem, entry.Variants)
	}
	return o, nil
}

// AddGroup maps every variant, and the stem itself, to stem. Re-adding a
// stem replaces its previous variants.
func (o *Overrides) AddGroup(stem string, variants []string) {
	stem = strings.ToLower(strings.TrimSpace(stem))

	for _, old := range o.groups[stem] {
		delete(o.byVariant, old)
	}

	group := []string{stem}
	seen := map[string]bool{stem: true}
	for _, v := range variants {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		group = append(group, v)
	}

	o.groups[stem] = group
	for _, v := range group {
		o.byVariant[v] = stem
	}
}

// Lookup returns the override stem of word.
func (o *Overrides) Lookup(word string) (string, bool) {
	if o == nil {
		return "", false
	}
	stem, ok := o.byVariant[word]
	return stem, ok
}

// Variants returns the group containing word, or nil.
func (o *Overrides) Variants(word string) []string {
	stem, ok := o.Lookup(word)
	if !ok {
		return nil
	}
	return append([]string(nil), o.groups[stem]...)
}

// Len returns the number of variants covered.
func (o *Overrides) Len() int {
	if o == nil {
		return 0
	}
	return len(o.byVariant)
}

// Apply sets the stem of every vocabulary key covered by the table and
// returns how many keys changed.
func (o *Overrides) Apply(v *Vocabulary) int {
	if o.Len() == 0 {
		return 0
	}

	keys := make([]string, 0, len(o.byVariant))
	for k := range o.byVariant {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	changed := 0
	for _, k := range keys {
		if !v.Has(k) {
			continue
		}
		if cur, _ := v.Stem(k); cur == o.byVariant[k] {
			continue
		}
		v.stems[k] = o.byVariant[k]
		changed++
	}
	return changed
}
