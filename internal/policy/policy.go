// Package policy decides which knowledge providers to query for a given
// question and which query strings to send them. Selection is adaptive: a
// trained classifier and historical source stats refine a static table of
// per-question-type priorities, and the static table alone carries cold
// starts.
package policy

import (
	"context"
	"log"
	"sort"
	"strings"

	"github.com/oraculo-ai/oraculo/internal/analysis"
	"github.com/oraculo-ai/oraculo/internal/sources"
	"github.com/oraculo-ai/oraculo/internal/stats"
	"github.com/oraculo-ai/oraculo/internal/textutil"
)

// Weighting of the two adaptive signals.
const (
	classifierWeight = 0.7
	historyWeight    = 0.3
)

// staticPriorities maps each specialized question type to the providers
// that answer it best, in priority order.
var staticPriorities = map[string][]sources.Name{
	analysis.SpecCalculation: {sources.Wolfram},
	analysis.SpecConversion:  {sources.Wolfram},
	analysis.SpecComparison:  {sources.Wikipedia, sources.Google, sources.DuckDuckGo},
	analysis.SpecDefinition:  {sources.Wikipedia, sources.DuckDuckGo, sources.Google},
	analysis.SpecList:        {sources.Wikipedia, sources.Google},
	analysis.SpecCause:       {sources.Wikipedia, sources.Wolfram, sources.Google},
	analysis.SpecProcess:     {sources.Wikipedia, sources.YouTube, sources.Google},
	analysis.SpecHistorical:  {sources.Wikipedia, sources.DBpedia, sources.Google},
	analysis.SpecLocation:    {sources.Wolfram, sources.Wikipedia, sources.Google},
	analysis.SpecScientific:  {sources.Wolfram, sources.Arxiv, sources.Wikipedia},
}

// Classifier predicts, per provider, the probability that it answers
// questions like the analyzed one. Implementations may return partial maps;
// missing providers count as zero.
type Classifier interface {
	Probabilities(a analysis.Analysis) map[sources.Name]float64
}

// Selector picks providers for a question. Classifier and stats are both
// optional; with neither, selection is purely static.
type Selector struct {
	classifier Classifier
	stats      stats.Store
	maxSources int
	logger     *log.Logger
}

func NewSelector(classifier Classifier, statsStore stats.Store, maxSources int, logger *log.Logger) *Selector {
	if maxSources <= 0 {
		maxSources = 4
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[POLICY] ", log.LstdFlags)
	}
	return &Selector{classifier: classifier, stats: statsStore, maxSources: maxSources, logger: logger}
}

// Select returns the providers to query, best first, never more than the
// configured maximum and never empty.
func (s *Selector) Select(ctx context.Context, a analysis.Analysis) []sources.Name {
	var snap stats.Snapshot
	if s.stats != nil {
		var err error
		snap, err = s.stats.Snapshot(ctx)
		if err != nil {
			s.logger.Printf("stats snapshot unavailable, falling back: %v", err)
			snap = nil
		}
	}

	if s.classifier != nil {
		if picked := s.blended(a, snap); len(picked) > 0 {
			return picked
		}
	}
	if len(snap) > 0 {
		if picked := s.byReliability(a, snap); len(picked) > 0 {
			return picked
		}
	}
	return s.static(a)
}

// blended ranks by 0.7 x classifier probability + 0.3 x historical success
// rate, the adaptive strategy proper.
func (s *Selector) blended(a analysis.Analysis, snap stats.Snapshot) []sources.Name {
	probs := s.classifier.Probabilities(a)
	if len(probs) == 0 {
		return nil
	}
	type scored struct {
		name  sources.Name
		score float64
	}
	var ranked []scored
	for _, name := range sources.All() {
		score := classifierWeight * probs[name]
		if st, ok := snap[name]; ok {
			score += historyWeight * st.SuccessRate()
		}
		if score > 0 {
			ranked = append(ranked, scored{name, score})
		}
	}
	if len(ranked) == 0 {
		return nil
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	picked := make([]sources.Name, 0, s.maxSources)
	for _, r := range ranked {
		picked = append(picked, r.name)
		if len(picked) == s.maxSources {
			break
		}
	}
	return s.applyTemporal(a, picked)
}

// byReliability ranks the static candidates for the question type by
// success rate x average quality, used when there are stats but no
// classifier.
func (s *Selector) byReliability(a analysis.Analysis, snap stats.Snapshot) []sources.Name {
	candidates := s.static(a)
	sort.SliceStable(candidates, func(i, j int) bool {
		return snap[candidates[i]].Reliability() > snap[candidates[j]].Reliability()
	})
	if len(candidates) > s.maxSources {
		candidates = candidates[:s.maxSources]
	}
	return candidates
}

// static returns the priority-table selection with temporal adjustments.
func (s *Selector) static(a analysis.Analysis) []sources.Name {
	picked, ok := staticPriorities[a.Specialized]
	if !ok {
		picked = sources.All()
	}
	out := make([]sources.Name, len(picked))
	copy(out, picked)
	out = s.applyTemporal(a, out)
	if len(out) > s.maxSources {
		out = out[:s.maxSources]
	}
	return out
}

// applyTemporal biases the pick for time-sensitive questions: questions
// about the present need live web sources up front, historical ones benefit
// from the encyclopedic stores.
func (s *Selector) applyTemporal(a analysis.Analysis, picked []sources.Name) []sources.Name {
	switch a.Temporal {
	case analysis.TemporalCurrent:
		picked = prepend(picked, sources.Google, sources.DuckDuckGo)
	case analysis.TemporalHistorical:
		picked = ensure(picked, sources.Wikipedia, sources.DBpedia)
	}
	return picked
}

// prepend moves names to the front, preserving the relative order of the
// rest and avoiding duplicates.
func prepend(picked []sources.Name, names ...sources.Name) []sources.Name {
	out := make([]sources.Name, 0, len(picked)+len(names))
	out = append(out, names...)
	for _, p := range picked {
		if !contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// ensure appends names that are missing.
func ensure(picked []sources.Name, names ...sources.Name) []sources.Name {
	for _, n := range names {
		if !contains(picked, n) {
			picked = append(picked, n)
		}
	}
	return picked
}

func contains(list []sources.Name, name sources.Name) bool {
	for _, n := range list {
		if n == name {
			return true
		}
	}
	return false
}

// BuildQueries derives the query strings to fan out for a question: the
// question itself first, then reformulations that match how the providers
// index their content. Deduplicated, capped at max.
func BuildQueries(a analysis.Analysis, max int) []string {
	if max <= 0 {
		max = 5
	}
	queries := []string{a.Question}

	switch a.Specialized {
	case analysis.SpecDefinition:
		if topic := definitionTopic(a.Question); topic != "" {
			queries = append(queries, "what is "+topic, topic+" definition", topic+" meaning")
		}
	case analysis.SpecComparison:
		queries = append(queries, comparisonSides(a.Question)...)
	}

	for _, sub := range a.SubQuestions {
		if sub != a.Question {
			queries = append(queries, sub)
		}
	}

	seen := make(map[string]struct{}, len(queries))
	var out []string
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		key := textutil.Normalize(strings.TrimRight(q, "?!. "))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
		if len(out) == max {
			break
		}
	}
	return out
}

var definitionLeads = []string{
	"o que e ", "what is ", "defina ", "definicao de ",
	"significado de ", "conceito de ", "meaning of ",
}

// definitionTopic strips the definition lead-in and returns the bare topic.
func definitionTopic(question string) string {
	q := textutil.Normalize(strings.TrimRight(question, "?!. "))
	for _, lead := range definitionLeads {
		if idx := strings.Index(q, lead); idx >= 0 {
			return strings.TrimSpace(q[idx+len(lead):])
		}
	}
	return ""
}

// comparisonSides splits "diferença entre A e B" into one query per side.
func comparisonSides(question string) []string {
	q := textutil.Normalize(strings.TrimRight(question, "?!. "))
	marker := " entre "
	idx := strings.Index(q, marker)
	if idx < 0 {
		marker = " between "
		idx = strings.Index(q, marker)
	}
	if idx < 0 {
		return nil
	}
	rest := q[idx+len(marker):]
	for _, conj := range []string{" e ", " and "} {
		if parts := strings.SplitN(rest, conj, 2); len(parts) == 2 {
			a, b := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
			if a != "" && b != "" {
				return []string{"o que e " + a, "o que e " + b}
			}
		}
	}
	return nil
}
