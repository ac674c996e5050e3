package relevance

import (
	"math"
	"testing"
)

func TestScore_SelfSimilarityIsMaximal(t *testing.T) {
	texts := []string{
		"Paris is the capital of France.",
		"qual a capital da frança",
		"one two three",
	}
	for _, text := range texts {
		got := Score(text, text)
		if math.Abs(got-1.0) > 1e-9 {
			t.Fatalf("self similarity for %q: expected 1.0, got %f", text, got)
		}
	}
}

func TestScore_DisjointVocabularyIsZero(t *testing.T) {
	got := Score("apples oranges bananas", "cars trains planes")
	if got != 0.0 {
		t.Fatalf("expected 0.0 for disjoint texts, got %f", got)
	}
}

func TestScore_EmptyInputIsZero(t *testing.T) {
	if got := Score("", "something"); got != 0.0 {
		t.Fatalf("expected 0.0 for empty first arg, got %f", got)
	}
	if got := Score("something", ""); got != 0.0 {
		t.Fatalf("expected 0.0 for empty second arg, got %f", got)
	}
	if got := Score("", ""); got != 0.0 {
		t.Fatalf("expected 0.0 for both empty, got %f", got)
	}
	// punctuation-only input tokenizes to nothing
	if got := Score("?!...", "something"); got != 0.0 {
		t.Fatalf("expected 0.0 for punctuation-only input, got %f", got)
	}
}

func TestScore_Symmetric(t *testing.T) {
	a := "Paris is the capital of France"
	b := "The capital of France is Paris"
	if s1, s2 := Score(a, b), Score(b, a); math.Abs(s1-s2) > 1e-9 {
		t.Fatalf("score not symmetric: %f vs %f", s1, s2)
	}
}

func TestScore_RangeAndOrdering(t *testing.T) {
	question := "What is the capital of France?"
	relevant := "Paris is the capital of France."
	vague := "France is a country in western Europe with many cities."

	sr := Score(relevant, question)
	sv := Score(vague, question)
	for name, s := range map[string]float64{"relevant": sr, "vague": sv} {
		if s < 0 || s > 1 {
			t.Fatalf("%s score out of range: %f", name, s)
		}
	}
	if sr <= sv {
		t.Fatalf("expected relevant (%f) > vague (%f)", sr, sv)
	}
}

func TestScore_AccentInsensitive(t *testing.T) {
	got := Score("capital da França", "capital da Franca")
	if math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("expected accent-folded match to score 1.0, got %f", got)
	}
}

func TestIsDuplicate_NearIdenticalSentences(t *testing.T) {
	a := "Paris is the capital of France."
	b := "The capital of France is Paris."
	if !IsDuplicate(a, b, 0.7) {
		t.Fatalf("expected %q and %q to be duplicates at 0.7 (score %f)", a, b, Score(a, b))
	}
	c := "Berlin has a famous television tower."
	if IsDuplicate(a, c, 0.7) {
		t.Fatalf("unrelated sentences flagged as duplicates (score %f)", Score(a, c))
	}
}

func TestIsDuplicate_DefaultThreshold(t *testing.T) {
	if !IsDuplicate("same words here", "same words here", 0) {
		t.Fatal("identical text must always be a duplicate")
	}
}
