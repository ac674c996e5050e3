// Package engine orchestrates the full answering pipeline: learned-answer
// reuse, the in-process cache, question analysis, source selection, the
// parallel fan-out and response fusion, plus the bookkeeping that feeds the
// adaptive policy.
package engine

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/oraculo-ai/oraculo/internal/analysis"
	"github.com/oraculo-ai/oraculo/internal/fanout"
	"github.com/oraculo-ai/oraculo/internal/fusion"
	"github.com/oraculo-ai/oraculo/internal/learned"
	"github.com/oraculo-ai/oraculo/internal/policy"
	"github.com/oraculo-ai/oraculo/internal/relevance"
	"github.com/oraculo-ai/oraculo/internal/sources"
	"github.com/oraculo-ai/oraculo/internal/stats"
	"github.com/oraculo-ai/oraculo/internal/telemetry"
)

// Result is one answered question. A nil *Result with a nil error means no
// source produced anything usable.
type Result struct {
	Question string         `json:"question"`
	Text     string         `json:"text"`
	Label    string         `json:"label"`
	Sources  []sources.Name `json:"sources"`
	Strategy string         `json:"strategy"`
	Quality  float64        `json:"quality"`
	Latency  time.Duration  `json:"latency"`
}

// Options tunes the engine; zero values get defaults.
type Options struct {
	MaxQueries   int
	ReuseQuality float64
	LearnQuality float64
	CacheEntries int
	CacheTTL     time.Duration
	ContextTurns int
}

// Deps are the engine's collaborators. Learned, Stats and Metrics are
// optional.
type Deps struct {
	Analyzer  *analysis.Analyzer
	Selector  *policy.Selector
	Scheduler *fanout.Scheduler
	Fuser     *fusion.Fuser
	Learned   *learned.Store
	Stats     stats.Store
	Metrics   *telemetry.Metrics
	Logger    *log.Logger
}

// Engine answers questions. Safe for concurrent use.
type Engine struct {
	deps         Deps
	opts         Options
	cache        *answerCache
	conversation *Conversation
	logger       *log.Logger
}

func New(deps Deps, opts Options) *Engine {
	if opts.MaxQueries <= 0 {
		opts.MaxQueries = 5
	}
	if opts.ReuseQuality <= 0 {
		opts.ReuseQuality = 0.9
	}
	if opts.LearnQuality <= 0 {
		opts.LearnQuality = 0.7
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[ENGINE] ", log.LstdFlags)
	}
	e := &Engine{
		deps:         deps,
		opts:         opts,
		cache:        newAnswerCache(opts.CacheEntries, opts.CacheTTL),
		conversation: NewConversation(opts.ContextTurns),
		logger:       logger,
	}
	// every source result feeds the stats the adaptive policy ranks by
	deps.Scheduler.OnResult(func(r fanout.Result) {
		success := r.Err == nil && r.Text != ""
		if deps.Metrics != nil {
			deps.Metrics.ObserveSource(r.Source, success, r.Elapsed)
		}
		if deps.Stats != nil {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := deps.Stats.Record(ctx, r.Source, success, r.Elapsed, lengthQuality(r.Text)); err != nil {
					logger.Printf("stats record for %s failed: %v", r.Source, err)
				}
			}()
		}
	})
	return e
}

// Answer resolves a question through the full pipeline.
func (e *Engine) Answer(ctx context.Context, question string) (*Result, error) {
	return e.answer(ctx, question, nil)
}

// AnswerFrom resolves a question but restricts the fan-out to the given
// sources, in the given priority order. Unknown names are ignored; an
// entirely invalid list falls back to normal selection.
func (e *Engine) AnswerFrom(ctx context.Context, question string, preferred []sources.Name) (*Result, error) {
	return e.answer(ctx, question, preferred)
}

func (e *Engine) answer(ctx context.Context, question string, preferred []sources.Name) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, nil
	}
	start := time.Now()

	if e.deps.Learned != nil {
		if entry, ok := e.deps.Learned.Lookup(question); ok && entry.Quality >= e.opts.ReuseQuality {
			e.deps.Metrics.ObserveLearnedHit()
			e.deps.Metrics.ObserveAnswer(telemetry.StrategyLearned)
			res := &Result{
				Question: question,
				Text:     entry.Answer,
				Label:    strings.Join(entry.Sources, "+"),
				Sources:  toNames(entry.Sources),
				Strategy: telemetry.StrategyLearned,
				Quality:  entry.Quality,
				Latency:  time.Since(start),
			}
			e.remember(res)
			return res, nil
		}
	}

	if cached, ok := e.cache.get(question); ok {
		e.deps.Metrics.ObserveCacheHit()
		e.deps.Metrics.ObserveAnswer(telemetry.StrategyCache)
		cached.Strategy = telemetry.StrategyCache
		cached.Latency = time.Since(start)
		return &cached, nil
	}

	an := e.deps.Analyzer.Analyze(question)

	selected, queries := e.plan(ctx, an, preferred)

	fanoutStart := time.Now()
	merged := e.fetch(ctx, queries, selected)
	e.deps.Metrics.ObserveFanout(time.Since(fanoutStart))

	answer := e.deps.Fuser.Fuse(an, merged)
	if answer == nil {
		e.deps.Metrics.ObserveAnswer(telemetry.StrategyNone)
		e.logger.Printf("no usable answer for %q (sources %v)", question, selected)
		return nil, nil
	}

	quality := answerQuality(question, answer)
	res := &Result{
		Question: question,
		Text:     answer.Text,
		Label:    answer.Label(),
		Sources:  answer.Sources,
		Strategy: telemetry.StrategyFused,
		Quality:  quality,
		Latency:  time.Since(start),
	}
	e.deps.Metrics.ObserveAnswer(telemetry.StrategyFused)

	e.cache.put(question, *res)
	if e.deps.Learned != nil && quality >= e.opts.LearnQuality {
		e.deps.Learned.Learn(question, answer.Text, answer.Sources, quality)
	}
	e.remember(res)
	return res, nil
}

func (e *Engine) plan(ctx context.Context, an analysis.Analysis, preferred []sources.Name) ([]sources.Name, []string) {
	selected := filterValid(preferred)
	if len(selected) == 0 {
		selected = e.deps.Selector.Select(ctx, an)
	}
	queries := policy.BuildQueries(an, e.opts.MaxQueries)
	if len(queries) > 2 {
		// more reformulations rarely add coverage, they add latency
		queries = queries[:2]
	}
	return selected, queries
}

// Plan reports which sources would be consulted and which queries would be
// sent for a question, without touching the providers. Diagnostic path
// behind the sources CLI.
func (e *Engine) Plan(ctx context.Context, question string) ([]sources.Name, []string) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, nil
	}
	return e.plan(ctx, e.deps.Analyzer.Analyze(question), nil)
}

// fetch runs up to two fan-out rounds: the primary query first, then the
// reformulation for whichever sources came back empty.
func (e *Engine) fetch(ctx context.Context, queries []string, selected []sources.Name) map[sources.Name]string {
	merged := e.deps.Scheduler.FetchAll(ctx, queries[0], selected, fanout.Options{})
	if len(queries) == 1 {
		return merged
	}
	var missing []sources.Name
	for _, name := range selected {
		if merged[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return merged
	}
	retry := e.deps.Scheduler.FetchAll(ctx, queries[1], missing, fanout.Options{})
	for name, text := range retry {
		if merged[name] == "" {
			merged[name] = text
		}
	}
	return merged
}

// AskEach queries every known source with the raw question and returns the
// per-source texts. Diagnostic path behind the sources endpoint and CLI.
func (e *Engine) AskEach(ctx context.Context, question string) map[sources.Name]string {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil
	}
	return e.deps.Scheduler.FetchAll(ctx, question, sources.All(), fanout.Options{})
}

// History returns up to n recent exchanges of the engine's conversation.
func (e *Engine) History(n int) []Exchange {
	return e.conversation.Recent(n)
}

// ResetContext clears the conversation ring.
func (e *Engine) ResetContext() {
	e.conversation.Reset()
}

func (e *Engine) remember(res *Result) {
	e.conversation.Add(Exchange{
		Question: res.Question,
		Answer:   res.Text,
		Label:    res.Label,
		At:       time.Now(),
	})
}

// answerQuality scores a fused answer: mostly topical relevance, with credit
// for substance and corroboration.
func answerQuality(question string, a *fusion.Answer) float64 {
	rel := relevance.Score(a.Text, question)
	length := lengthQuality(a.Text)
	corroboration := float64(len(a.Sources)) / 2
	if corroboration > 1 {
		corroboration = 1
	}
	q := 0.6*rel + 0.3*length + 0.1*corroboration
	if q > 1 {
		q = 1
	}
	return q
}

// lengthQuality maps answer length to [0, 1], saturating at 300 chars.
func lengthQuality(text string) float64 {
	if text == "" {
		return 0
	}
	f := float64(len(text)) / 300
	if f > 1 {
		f = 1
	}
	return f
}

func filterValid(names []sources.Name) []sources.Name {
	var out []sources.Name
	for _, n := range names {
		if sources.Valid(n) {
			out = append(out, n)
		}
	}
	return out
}

func toNames(raw []string) []sources.Name {
	out := make([]sources.Name, 0, len(raw))
	for _, r := range raw {
		out = append(out, sources.Name(r))
	}
	return out
}
