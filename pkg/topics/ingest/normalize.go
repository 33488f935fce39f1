package ingest

import (
	"fmt"
	"regexp"
	"strings"
)

// Category names a class of numeric or unit-like literals.
type Category string

const (
	CategoryBytes   Category = "bytes"
	CategorySeconds Category = "seconds"
	CategoryHours   Category = "hours"
	CategoryMeters  Category = "meters"
	CategoryTime    Category = "time"
	CategoryNumbers Category = "numbers"
	CategoryHex     Category = "hexadecimal"
)

// Policy decides what happens to a compound matched by a rule.
type Policy int

const (
	// Marker rewrites the compound to the rule's canonical marker.
	Marker Policy = iota
	// Drop removes the compound.
	Drop
)

// ParsePolicy maps a config value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "marker", "rewrite":
		return Marker, nil
	case "drop", "delete":
		return Drop, nil
	}
	return Marker, fmt.Errorf("unknown numeric policy %q", s)
}

func (p Policy) String() string {
	if p == Drop {
		return "drop"
	}
	return "marker"
}

// Rule is one anchored whole-string rewrite.
type Rule struct {
	Category Category
	Pattern  *regexp.Regexp
	Marker   string
}

// DefaultRules is the rewrite cascade. Specific units come before the
// generic suffixed-number rule, which would otherwise match them first.
var DefaultRules = []Rule{
	{CategoryBytes, regexp.MustCompile(`^\d+[kmgtp]?b(it|yte)?s?$`), "bytes"},
	{CategorySeconds, regexp.MustCompile(`^\d+[nm]?s(ec)?(ond)?s?$`), "seconds"},
	{CategoryHours, regexp.MustCompile(`^\d+h(our)?s?$`), "hours"},
	{CategoryMeters, regexp.MustCompile(`^\d+[kmcdn]?m(eter)?s?$`), "meters"},
	{CategoryTime, regexp.MustCompile(`^\d+[ap]m$`), "time"},
	{CategoryNumbers, regexp.MustCompile(`^\d+(k|m|th|nd|st|rd|x|ish)$`), "numbers"},
	{CategoryHex, regexp.MustCompile(`^0x[0-9a-f]+$`), "hexadecimal"},
}

// Normalizer applies run collapsing and the category cascade to a
// lowercased compound.
type Normalizer struct {
	rules  []Rule
	policy Policy
}

// NewNormalizer creates a normalizer over DefaultRules.
func NewNormalizer(policy Policy) *Normalizer {
	return &Normalizer{rules: DefaultRules, policy: policy}
}

// Normalize rewrites a compound. The boolean is false when the compound was
// matched under the Drop policy and must be discarded. The result is a
// fixpoint: normalizing it again returns it unchanged.
func (n *Normalizer) Normalize(s string) (string, bool) {
	s = collapseRuns(s)
	if _, marker, ok := n.Match(s); ok {
		if n.policy == Drop {
			return "", false
		}
		return marker, true
	}
	return s, true
}

// Match returns the first rule matching s in cascade order.
func (n *Normalizer) Match(s string) (Category, string, bool) {
	for _, r := range n.rules {
		if r.Pattern.MatchString(s) {
			return r.Category, r.Marker, true
		}
	}
	return "", "", false
}

// collapseRuns limits repeated runes: a leading run of three or more becomes
// one rune, any later run of three or more becomes two.
func collapseRuns(s string) string {
	runes := []rune(s)
	if len(runes) < 3 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(runes); {
		j := i
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		n := j - i
		switch {
		case n >= 3 && i == 0:
			n = 1
		case n >= 3:
			n = 2
		}
		for k := 0; k < n; k++ {
			b.WriteRune(runes[i])
		}
		i = j
	}
	return b.String()
}
