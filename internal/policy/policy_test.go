package policy

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/oraculo-ai/oraculo/internal/analysis"
	"github.com/oraculo-ai/oraculo/internal/sources"
	"github.com/oraculo-ai/oraculo/internal/stats"
)

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

type fixedClassifier map[sources.Name]float64

func (f fixedClassifier) Probabilities(analysis.Analysis) map[sources.Name]float64 { return f }

func an(specialized, temporal string) analysis.Analysis {
	return analysis.Analysis{Specialized: specialized, Temporal: temporal}
}

func TestSelect_StaticTable(t *testing.T) {
	s := NewSelector(nil, nil, 4, quiet())
	ctx := context.Background()

	got := s.Select(ctx, an(analysis.SpecCalculation, analysis.TemporalNeutral))
	if len(got) != 1 || got[0] != sources.Wolfram {
		t.Fatalf("calculation should go to wolfram only, got %v", got)
	}

	got = s.Select(ctx, an(analysis.SpecDefinition, analysis.TemporalNeutral))
	want := []sources.Name{sources.Wikipedia, sources.DuckDuckGo, sources.Google}
	if len(got) != len(want) {
		t.Fatalf("unexpected selection %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("definition priorities wrong: got %v, want %v", got, want)
		}
	}
}

func TestSelect_UnknownTypeUsesAllSourcesCapped(t *testing.T) {
	s := NewSelector(nil, nil, 4, quiet())
	got := s.Select(context.Background(), an(analysis.SpecGeneral, analysis.TemporalNeutral))
	if len(got) != 4 {
		t.Fatalf("expected the cap of 4, got %v", got)
	}
	for _, n := range got {
		if !sources.Valid(n) {
			t.Fatalf("invalid source %s in %v", n, got)
		}
	}
}

func TestSelect_NeverEmpty(t *testing.T) {
	s := NewSelector(nil, nil, 4, quiet())
	if got := s.Select(context.Background(), analysis.Analysis{}); len(got) == 0 {
		t.Fatal("selection must never be empty")
	}
}

func TestSelect_TemporalCurrentPrependsLiveSources(t *testing.T) {
	s := NewSelector(nil, nil, 5, quiet())
	got := s.Select(context.Background(), an(analysis.SpecDefinition, analysis.TemporalCurrent))
	if got[0] != sources.Google || got[1] != sources.DuckDuckGo {
		t.Fatalf("current questions should lead with live web sources, got %v", got)
	}
	seen := map[sources.Name]int{}
	for _, n := range got {
		seen[n]++
		if seen[n] > 1 {
			t.Fatalf("duplicate source %s in %v", n, got)
		}
	}
}

func TestSelect_TemporalHistoricalEnsuresEncyclopedias(t *testing.T) {
	s := NewSelector(nil, nil, 5, quiet())
	got := s.Select(context.Background(), an(analysis.SpecCalculation, analysis.TemporalHistorical))
	var wiki, dbp bool
	for _, n := range got {
		wiki = wiki || n == sources.Wikipedia
		dbp = dbp || n == sources.DBpedia
	}
	if !wiki || !dbp {
		t.Fatalf("historical questions must include encyclopedic sources, got %v", got)
	}
}

func TestSelect_BlendsClassifierWithHistory(t *testing.T) {
	ctx := context.Background()
	st := stats.NewMemoryStore()
	// wikipedia has perfect history, arxiv none
	for i := 0; i < 5; i++ {
		_ = st.Record(ctx, sources.Wikipedia, true, time.Millisecond, 0.9)
		_ = st.Record(ctx, sources.Arxiv, false, time.Millisecond, 0)
	}
	// classifier slightly prefers arxiv
	clf := fixedClassifier{sources.Arxiv: 0.6, sources.Wikipedia: 0.5}

	s := NewSelector(clf, st, 2, quiet())
	got := s.Select(ctx, an(analysis.SpecScientific, analysis.TemporalNeutral))
	// 0.7*0.5 + 0.3*1.0 = 0.65 beats 0.7*0.6 + 0 = 0.42
	if got[0] != sources.Wikipedia {
		t.Fatalf("history should outweigh the slim classifier edge, got %v", got)
	}
	if len(got) != 2 {
		t.Fatalf("max sources not honoured: %v", got)
	}
}

func TestSelect_StatsOnlyRanksByReliability(t *testing.T) {
	ctx := context.Background()
	st := stats.NewMemoryStore()
	_ = st.Record(ctx, sources.Google, true, time.Millisecond, 0.9)
	_ = st.Record(ctx, sources.Wikipedia, false, time.Millisecond, 0)

	s := NewSelector(nil, st, 3, quiet())
	got := s.Select(ctx, an(analysis.SpecDefinition, analysis.TemporalNeutral))
	if got[0] != sources.Google {
		t.Fatalf("most reliable candidate should rank first, got %v", got)
	}
}

func TestBuildQueries_DefinitionVariants(t *testing.T) {
	a := analysis.Analysis{
		Question:     "O que é fotossíntese?",
		Specialized:  analysis.SpecDefinition,
		SubQuestions: []string{"O que é fotossíntese?"},
	}
	got := BuildQueries(a, 5)
	if got[0] != "O que é fotossíntese?" {
		t.Fatalf("original question must come first, got %v", got)
	}
	var hasWhatIs bool
	for _, q := range got {
		if q == "what is fotossintese" {
			hasWhatIs = true
		}
	}
	if !hasWhatIs {
		t.Fatalf("missing english definition variant in %v", got)
	}
}

func TestBuildQueries_ComparisonSplits(t *testing.T) {
	a := analysis.Analysis{
		Question:    "Qual a diferença entre vírus e bactéria?",
		Specialized: analysis.SpecComparison,
	}
	got := BuildQueries(a, 5)
	var left, right bool
	for _, q := range got {
		if q == "o que e virus" {
			left = true
		}
		if q == "o que e bacteria" {
			right = true
		}
	}
	if !left || !right {
		t.Fatalf("comparison sides missing in %v", got)
	}
}

func TestBuildQueries_DedupAndCap(t *testing.T) {
	a := analysis.Analysis{
		Question:     "Qual a capital da França?",
		SubQuestions: []string{"qual a capital da frança"},
	}
	got := BuildQueries(a, 5)
	if len(got) != 1 {
		t.Fatalf("normalized duplicates must collapse, got %v", got)
	}

	a = analysis.Analysis{
		Question:     "q",
		SubQuestions: []string{"a", "b", "c", "d", "e", "f"},
	}
	if got := BuildQueries(a, 5); len(got) != 5 {
		t.Fatalf("cap not honoured: %v", got)
	}
}
