// Package fusion turns the per-source answer texts of one question into a
// single response. The strategy follows the question category: factual
// questions take the single best source, explanatory ones pool sentences
// from several, everything else sits in between.
package fusion

import (
	"log"
	"sort"
	"strings"
	"unicode"

	"github.com/oraculo-ai/oraculo/internal/analysis"
	"github.com/oraculo-ai/oraculo/internal/relevance"
	"github.com/oraculo-ai/oraculo/internal/sources"
	"github.com/oraculo-ai/oraculo/internal/textutil"
)

// Options tunes fusion; zero values get the defaults.
type Options struct {
	MaxSentences       int
	DuplicateThreshold float64
}

// Answer is the fused result.
type Answer struct {
	Text    string
	Sources []sources.Name
}

// Label names the answer's provenance, "+"-joining contributing sources.
func (a Answer) Label() string {
	parts := make([]string, len(a.Sources))
	for i, s := range a.Sources {
		parts[i] = string(s)
	}
	return strings.Join(parts, "+")
}

// Fuser combines per-source texts. Safe for concurrent use.
type Fuser struct {
	opts   Options
	logger *log.Logger
}

func New(opts Options, logger *log.Logger) *Fuser {
	if opts.MaxSentences <= 0 {
		opts.MaxSentences = 6
	}
	if opts.DuplicateThreshold <= 0 {
		opts.DuplicateThreshold = relevance.DuplicateThreshold
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[FUSION] ", log.LstdFlags)
	}
	return &Fuser{opts: opts, logger: logger}
}

type ranked struct {
	source sources.Name
	text   string
	score  float64
}

// Fuse combines the texts into one answer for the analyzed question.
// Returns nil when no source produced anything usable.
func (f *Fuser) Fuse(a analysis.Analysis, texts map[sources.Name]string) *Answer {
	candidates := rank(a.Question, texts)
	if len(candidates) == 0 {
		return nil
	}
	if len(candidates) == 1 {
		return f.single(a.Question, candidates[0])
	}

	switch {
	case a.Category.Factual():
		best := candidates[0]
		f.logger.Printf("factual question: using %s alone (score %.3f)", best.source, best.score)
		return f.best(a.Question, best)
	case a.Category.Explanatory():
		return f.pool(a.Question, candidates, 3, 0.1, f.opts.DuplicateThreshold)
	default:
		return f.pool(a.Question, candidates, 2, 0.05, f.opts.DuplicateThreshold+0.05)
	}
}

// rank scores each usable source text against the question, best first.
// Ties break on source name so the result does not depend on map order.
func rank(question string, texts map[sources.Name]string) []ranked {
	var out []ranked
	for source, text := range texts {
		text = strings.TrimSpace(text)
		if len(text) < textutil.MinSentenceLen {
			continue
		}
		out = append(out, ranked{source: source, text: text, score: relevance.Score(text, question)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].source < out[j].source
	})
	return out
}

// pool merges sentences from the top sources: up to three of each source's
// most relevant sentences, skipping near-duplicates of what is already in,
// until the sentence cap fills up.
func (f *Fuser) pool(question string, candidates []ranked, topN int, floor, dupThreshold float64) *Answer {
	if len(candidates) > topN {
		candidates = candidates[:topN]
	}

	// the label names every source above the floor, even when its
	// sentences turn out to be duplicates of earlier picks
	var used []sources.Name
	for _, c := range candidates {
		if c.score >= floor {
			used = append(used, c.source)
		}
	}

	var picked []string
	for _, c := range candidates {
		if c.score < floor {
			continue
		}
		added := 0
		for _, sentence := range bestSentences(question, textutil.Sentences(c.text)) {
			if len(picked) == f.opts.MaxSentences || added == 3 {
				break
			}
			if isDuplicateOfAny(sentence, picked, dupThreshold) {
				continue
			}
			picked = append(picked, sentence)
			added++
		}
		if len(picked) == f.opts.MaxSentences {
			break
		}
	}

	picked = filterNoise(picked)
	if len(picked) == 0 {
		return nil
	}
	return &Answer{Text: textutil.Join(picked), Sources: used}
}

// bestSentences orders sentences by relevance to the question, most
// relevant first. Ties keep their original text order.
func bestSentences(question string, sentences []string) []string {
	if len(sentences) < 2 {
		return sentences
	}
	type scored struct {
		text  string
		score float64
	}
	out := make([]scored, len(sentences))
	for i, s := range sentences {
		out[i] = scored{text: s, score: relevance.Score(s, question)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	result := make([]string, len(out))
	for i, s := range out {
		result[i] = s.text
	}
	return result
}

func isDuplicateOfAny(sentence string, existing []string, threshold float64) bool {
	for _, e := range existing {
		if relevance.IsDuplicate(sentence, e, threshold) {
			return true
		}
	}
	return false
}

// best shapes an answer from the top-ranked source alone: its most relevant
// sentences up to the cap, noise-filtered, terminally punctuated. Nil when
// nothing survives the filter.
func (f *Fuser) best(question string, c ranked) *Answer {
	sentences := f.extract(question, c.text)
	if len(sentences) == 0 {
		return nil
	}
	return &Answer{Text: textutil.Join(sentences), Sources: []sources.Name{c.source}}
}

// single handles the only usable result. Unlike the multi-source paths it
// tolerates text too fragmented to split, serving it raw when it carries
// weight.
func (f *Fuser) single(question string, c ranked) *Answer {
	used := []sources.Name{c.source}
	sentences := f.extract(question, c.text)
	if len(sentences) == 0 {
		text := strings.TrimSpace(c.text)
		if len(text) < textutil.MinSentenceLen || looksNoisy(text) {
			return nil
		}
		return &Answer{Text: textutil.Join([]string{text}), Sources: used}
	}
	return &Answer{Text: textutil.Join(sentences), Sources: used}
}

func (f *Fuser) extract(question, text string) []string {
	sentences := bestSentences(question, textutil.Sentences(text))
	if len(sentences) > f.opts.MaxSentences {
		sentences = sentences[:f.opts.MaxSentences]
	}
	return filterNoise(sentences)
}

// filterNoise drops sentences that read like scraps: mostly digits, too
// short, or starting mid-markup.
func filterNoise(sentences []string) []string {
	var out []string
	for _, s := range sentences {
		if len(s) < 20 || looksNoisy(s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func looksNoisy(s string) bool {
	runes := []rune(s)
	if len(runes) == 0 {
		return true
	}
	first := runes[0]
	if !unicode.IsLetter(first) && !unicode.IsNumber(first) {
		return true
	}
	digits := 0
	for _, r := range runes {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return float64(digits)/float64(len(runes)) > 0.3
}
