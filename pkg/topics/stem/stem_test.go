package stem

import (
	"context"
	"errors"
	"testing"

	"github.com/comrados/crawlergram/pkg/topics/internalerr"
	"github.com/comrados/crawlergram/pkg/topics/vocab"
)

func vocabOf(words ...string) *vocab.Vocabulary {
	v := vocab.New()
	for _, w := range words {
		v.Add(w)
	}
	return v
}

func stemOf(t *testing.T, v *vocab.Vocabulary, key string) string {
	t.Helper()
	s, ok := v.Stem(key)
	if !ok {
		t.Fatalf("Key %q has no stem", key)
	}
	return s
}

func TestGRASClasses(t *testing.T) {
	var words []string
	for _, base := range []string{"walk", "jump", "talk", "play", "cook"} {
		words = append(words, base, base+"s", base+"ed", base+"ing")
	}
	words = append(words, "walkway", "cat", "car")
	v := vocabOf(words...)

	out, err := GRAS{}.Stem(context.Background(), v, DefaultParams)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Complete() {
		t.Fatalf("Every key needs a stem, missing %v", out.Unstemmed())
	}

	for _, w := range []string{"walk", "walks", "walked", "walking"} {
		if got := stemOf(t, out, w); got != "walk" {
			t.Errorf("Stem(%q) = %q, want walk", w, got)
		}
	}
	for _, w := range []string{"walkway", "cat", "car"} {
		if got := stemOf(t, out, w); got != w {
			t.Errorf("Unlinked word %q should stem to itself, got %q", w, got)
		}
	}
	if v.Complete() {
		t.Error("Input vocabulary must not be modified")
	}
}

func TestGRASRareSuffixesStayApart(t *testing.T) {
	// Each suffix pair occurs once, below the occurrence threshold
	v := vocabOf("walk", "walking", "jumped", "jump")

	out, err := GRAS{}.Stem(context.Background(), v, DefaultParams)
	if err != nil {
		t.Fatal(err)
	}
	if got := stemOf(t, out, "walking"); got != "walking" {
		t.Errorf("Expected walking to stay unstemmed, got %q", got)
	}

	lenient := Params{MinOccurrence: 1, MaxEditDistance: 4, SimilarityThreshold: 0.8}
	out, err = GRAS{}.Stem(context.Background(), v, lenient)
	if err != nil {
		t.Fatal(err)
	}
	if got := stemOf(t, out, "walking"); got != "walk" {
		t.Errorf("With MinOccurrence 1 expected walk, got %q", got)
	}
}

func TestGRASLongSuffix(t *testing.T) {
	v := vocabOf("nation", "national", "nationalization")
	p := Params{MinOccurrence: 1, MaxEditDistance: 2, SimilarityThreshold: 0.5}

	out, err := GRAS{}.Stem(context.Background(), v, p)
	if err != nil {
		t.Fatal(err)
	}
	if got := stemOf(t, out, "nationalization"); got != "nationalization" {
		t.Errorf("Suffix longer than the edit distance must not link, got %q", got)
	}
	if got := stemOf(t, out, "national"); got != "nation" {
		t.Errorf("Expected national -> nation, got %q", got)
	}
}

func TestGRASCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := (GRAS{}).Stem(ctx, vocabOf("walk", "walking"), DefaultParams); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestIdentity(t *testing.T) {
	out, err := Identity{}.Stem(context.Background(), vocabOf("running", "fast"), Params{})
	if err != nil {
		t.Fatal(err)
	}
	if got := stemOf(t, out, "running"); got != "running" {
		t.Errorf("Expected identity stem, got %q", got)
	}
}

func TestSnowball(t *testing.T) {
	s, err := NewSnowball(nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.Latin != "english" || s.Cyrillic != "russian" {
		t.Errorf("Unexpected defaults %+v", s)
	}
	if s.language("книги") != "russian" || s.language("books") != "english" {
		t.Error("Language should follow the script of the word")
	}

	out, err := s.Stem(context.Background(), vocabOf("running", "cats", "книги"), Params{})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Complete() {
		t.Fatalf("Missing stems: %v", out.Unstemmed())
	}
	if got := stemOf(t, out, "running"); got != "run" {
		t.Errorf("Expected run, got %q", got)
	}
	if got := stemOf(t, out, "cats"); got != "cat" {
		t.Errorf("Expected cat, got %q", got)
	}
}

func TestNewSnowballUnsupported(t *testing.T) {
	if _, err := NewSnowball([]string{"klingon"}); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestNew(t *testing.T) {
	for method, want := range map[string]string{"": "gras", "GRAS": "gras", "snowball": "snowball", "identity": "identity"} {
		s, err := New(method, nil)
		if err != nil {
			t.Fatalf("New(%q): %v", method, err)
		}
		if s.Name() != want {
			t.Errorf("New(%q) = %s, want %s", method, s.Name(), want)
		}
	}
	if _, err := New("porter", nil); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestWithOverrides(t *testing.T) {
	o := vocab.NewOverrides()
	o.AddGroup("go", []string{"golang"})

	s := WithOverrides(Identity{}, o)
	out, err := s.Stem(context.Background(), vocabOf("golang", "rust"), Params{})
	if err != nil {
		t.Fatal(err)
	}
	if got := stemOf(t, out, "golang"); got != "go" {
		t.Errorf("Expected override stem go, got %q", got)
	}
	if got := stemOf(t, out, "rust"); got != "rust" {
		t.Errorf("Expected base stem, got %q", got)
	}

	if WithOverrides(Identity{}, nil).Name() != "identity" {
		t.Error("Empty overrides should return the base stemmer")
	}
}
