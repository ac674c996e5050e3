package engine

import (
	"context"
	"io"
	"log"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oraculo-ai/oraculo/internal/analysis"
	"github.com/oraculo-ai/oraculo/internal/fanout"
	"github.com/oraculo-ai/oraculo/internal/fusion"
	"github.com/oraculo-ai/oraculo/internal/learned"
	"github.com/oraculo-ai/oraculo/internal/policy"
	"github.com/oraculo-ai/oraculo/internal/sources"
	"github.com/oraculo-ai/oraculo/internal/stats"
)

type stubAdapter struct {
	name  sources.Name
	text  string
	calls int64
}

func (s *stubAdapter) Name() sources.Name     { return s.name }
func (s *stubAdapter) Timeout() time.Duration { return time.Second }

func (s *stubAdapter) Fetch(ctx context.Context, query string) (string, error) {
	atomic.AddInt64(&s.calls, 1)
	return s.text, nil
}

func (s *stubAdapter) callCount() int64 { return atomic.LoadInt64(&s.calls) }

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func newTestEngine(t *testing.T, adapters ...*stubAdapter) (*Engine, *learned.Store) {
	t.Helper()
	registry := sources.NewRegistry()
	for _, a := range adapters {
		registry.Register(a)
	}
	learnedStore, err := learned.NewStore(learned.Options{}, quiet())
	if err != nil {
		t.Fatalf("learned store: %v", err)
	}
	deps := Deps{
		Analyzer:  analysis.NewAnalyzer(quiet()),
		Selector:  policy.NewSelector(nil, nil, 7, quiet()),
		Scheduler: fanout.New(registry, fanout.Options{OverallTimeout: 2 * time.Second}, quiet()),
		Fuser:     fusion.New(fusion.Options{}, quiet()),
		Learned:   learnedStore,
		Stats:     stats.NewMemoryStore(),
		Logger:    quiet(),
	}
	return New(deps, Options{}), learnedStore
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	e, _ := newTestEngine(t)
	res, err := e.Answer(context.Background(), "   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != nil {
		t.Fatalf("empty question must yield no answer, got %+v", res)
	}
}

func TestAnswer_RoundTrip(t *testing.T) {
	wiki := &stubAdapter{name: sources.Wikipedia, text: "Paris é a capital da França e sua maior cidade, com mais de dois milhões de habitantes."}
	e, _ := newTestEngine(t, wiki)

	res, err := e.Answer(context.Background(), "Qual a capital da França?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil {
		t.Fatal("expected an answer")
	}
	if !strings.Contains(res.Text, "capital da França") {
		t.Fatalf("answer content lost: %q", res.Text)
	}
	if res.Strategy != "fused" {
		t.Fatalf("expected fused strategy, got %q", res.Strategy)
	}
	if res.Label != "wikipedia" {
		t.Fatalf("unexpected label %q", res.Label)
	}
	if res.Quality <= 0 || res.Quality > 1 {
		t.Fatalf("quality out of range: %f", res.Quality)
	}
	if e.History(0)[0].Question != "Qual a capital da França?" {
		t.Fatal("exchange not remembered in conversation context")
	}
}

func TestAnswer_CacheHitOnRepeat(t *testing.T) {
	wiki := &stubAdapter{name: sources.Wikipedia, text: "Paris é a capital da França e sua maior cidade, com mais de dois milhões de habitantes."}
	e, _ := newTestEngine(t, wiki)
	ctx := context.Background()

	first, _ := e.Answer(ctx, "Qual a capital da França?")
	if first == nil {
		t.Fatal("expected an answer")
	}
	callsAfterFirst := wiki.callCount()

	// accent/case variant must hit the same cache entry
	second, _ := e.Answer(ctx, "qual a capital da FRANCA?")
	if second == nil {
		t.Fatal("expected a cached answer")
	}
	if second.Strategy != "cache" {
		t.Fatalf("expected cache strategy, got %q", second.Strategy)
	}
	if second.Text != first.Text {
		t.Fatalf("cached text differs: %q vs %q", second.Text, first.Text)
	}
	if wiki.callCount() != callsAfterFirst {
		t.Fatal("cache hit must not refetch sources")
	}
}

func TestAnswer_NoUsableAnswer(t *testing.T) {
	empty := &stubAdapter{name: sources.Wikipedia, text: ""}
	e, _ := newTestEngine(t, empty)

	res, err := e.Answer(context.Background(), "Me fale sobre qualquer coisa")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != nil {
		t.Fatalf("expected no answer, got %+v", res)
	}
}

func TestAnswer_LearnedShortCircuit(t *testing.T) {
	wiki := &stubAdapter{name: sources.Wikipedia, text: "texto que não deve ser buscado"}
	e, learnedStore := newTestEngine(t, wiki)

	ok := learnedStore.Learn("Quem descobriu o Brasil?", "Pedro Álvares Cabral descobriu o Brasil em 1500.", []sources.Name{sources.Wikipedia}, 0.95)
	if !ok {
		t.Fatal("seeding the learned store failed")
	}

	res, err := e.Answer(context.Background(), "Quem descobriu o Brasil?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil || res.Strategy != "learned" {
		t.Fatalf("expected learned strategy, got %+v", res)
	}
	if wiki.callCount() != 0 {
		t.Fatal("learned hit must not reach the sources")
	}
}

func TestAnswerFrom_RestrictsSources(t *testing.T) {
	wiki := &stubAdapter{name: sources.Wikipedia, text: "Uma resposta enciclopédica bastante completa sobre o assunto perguntado."}
	ddg := &stubAdapter{name: sources.DuckDuckGo, text: "Uma resposta instantânea razoavelmente completa sobre o assunto perguntado."}
	e, _ := newTestEngine(t, wiki, ddg)

	res, err := e.AnswerFrom(context.Background(), "Me fale sobre o assunto perguntado", []sources.Name{sources.DuckDuckGo})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil {
		t.Fatal("expected an answer")
	}
	if res.Label != "duckduckgo" {
		t.Fatalf("expected duckduckgo only, got %q", res.Label)
	}
	if wiki.callCount() != 0 {
		t.Fatal("restricted fan-out must not touch other sources")
	}
}

func TestAskEach_QueriesAllRegisteredSources(t *testing.T) {
	wiki := &stubAdapter{name: sources.Wikipedia, text: "resposta da wikipedia suficientemente longa"}
	ddg := &stubAdapter{name: sources.DuckDuckGo, text: ""}
	e, _ := newTestEngine(t, wiki, ddg)

	got := e.AskEach(context.Background(), "qualquer pergunta")
	if got[sources.Wikipedia] == "" {
		t.Fatalf("wikipedia answer missing: %v", got)
	}
	if _, ok := got[sources.DuckDuckGo]; !ok {
		t.Fatalf("empty source must still have a key: %v", got)
	}
}

func TestPlan_ReportsSelectionAndQueries(t *testing.T) {
	e, _ := newTestEngine(t)

	selected, queries := e.Plan(context.Background(), "O que é fotossíntese?")
	if len(selected) == 0 {
		t.Fatal("plan selected no sources")
	}
	if selected[0] != sources.Wikipedia {
		t.Fatalf("definition questions should lead with wikipedia, got %v", selected)
	}
	if len(queries) == 0 || queries[0] != "O que é fotossíntese?" {
		t.Fatalf("original question must be the first query, got %v", queries)
	}
	if len(queries) > 2 {
		t.Fatalf("at most two fan-out queries, got %v", queries)
	}

	if sel, q := e.Plan(context.Background(), "  "); sel != nil || q != nil {
		t.Fatal("empty question must have no plan")
	}
}

func TestResetContext(t *testing.T) {
	wiki := &stubAdapter{name: sources.Wikipedia, text: "Paris é a capital da França e sua maior cidade, com mais de dois milhões de habitantes."}
	e, _ := newTestEngine(t, wiki)
	_, _ = e.Answer(context.Background(), "Qual a capital da França?")
	if len(e.History(0)) == 0 {
		t.Fatal("history should have one exchange")
	}
	e.ResetContext()
	if len(e.History(0)) != 0 {
		t.Fatal("reset did not clear the conversation")
	}
}
