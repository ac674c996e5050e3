// Package relevance implements the single text-similarity primitive shared
// by ranking, sentence selection and near-duplicate detection: cosine
// similarity between TF-IDF vectors built over exactly the two input texts.
package relevance

import (
	"math"
	"strings"
	"unicode"

	"github.com/oraculo-ai/oraculo/internal/textutil"
)

// DuplicateThreshold is the default similarity at or above which two
// sentences are considered near-duplicates.
const DuplicateThreshold = 0.7

// Score returns the TF-IDF cosine similarity between a and b in [0, 1].
// Identical non-empty texts score 1.0; texts with disjoint vocabularies, or
// any empty input, score 0.0. Never fails.
func Score(a, b string) float64 {
	ta := tokenize(a)
	tb := tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0.0
	}

	tfA := termFreq(ta)
	tfB := termFreq(tb)

	// Smoothed idf over the two-document corpus, the way a standard
	// vectorizer computes it: idf = ln((1+n)/(1+df)) + 1 with n = 2.
	vocab := make(map[string]float64, len(tfA)+len(tfB))
	for term := range tfA {
		df := 1.0
		if _, ok := tfB[term]; ok {
			df = 2.0
		}
		vocab[term] = math.Log(3.0/(1.0+df)) + 1.0
	}
	for term := range tfB {
		if _, ok := vocab[term]; !ok {
			vocab[term] = math.Log(3.0/2.0) + 1.0
		}
	}

	var dot, normA, normB float64
	for term, idf := range vocab {
		wa := tfA[term] * idf
		wb := tfB[term] * idf
		dot += wa * wb
		normA += wa * wa
		normB += wb * wb
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// guard against float drift outside [0,1]
	if sim < 0 {
		return 0.0
	}
	if sim > 1 {
		return 1.0
	}
	return sim
}

// IsDuplicate reports whether candidate is a near-duplicate of existing at
// the given threshold; a non-positive threshold falls back to
// DuplicateThreshold.
func IsDuplicate(candidate, existing string, threshold float64) bool {
	if threshold <= 0 {
		threshold = DuplicateThreshold
	}
	return Score(candidate, existing) >= threshold
}

func tokenize(text string) []string {
	text = textutil.Normalize(text)
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func termFreq(tokens []string) map[string]float64 {
	tf := make(map[string]float64, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}
	n := float64(len(tokens))
	for tok := range tf {
		tf[tok] /= n
	}
	return tf
}
