// Package fanout runs the selected source adapters in parallel under a
// shared deadline and collects whatever came back in time. A source that
// fails, times out or panics simply contributes nothing; the fan-out itself
// never fails.
package fanout

import (
	"context"
	"log"
	"time"

	"github.com/oraculo-ai/oraculo/internal/sources"
)

// Options bounds one fan-out run. Zero values fall back to the defaults
// carried by the scheduler.
type Options struct {
	MaxConcurrent      int
	PerSourceTimeout   time.Duration
	OverallTimeout     time.Duration
	EarlyStopThreshold int
	SubstantialLength  int
}

// Result is one source's outcome within a run.
type Result struct {
	Source  sources.Name
	Text    string
	Err     error
	Elapsed time.Duration
}

// Scheduler fans a query out to a set of adapters. Safe for concurrent use.
type Scheduler struct {
	registry *sources.Registry
	defaults Options
	logger   *log.Logger
	observer func(Result)
}

// OnResult registers a callback invoked for every source result that
// arrives within the run's deadline. Abandoned fetches are not reported.
// Must be called before the scheduler is shared across goroutines.
func (s *Scheduler) OnResult(fn func(Result)) { s.observer = fn }

func New(registry *sources.Registry, defaults Options, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.New(log.Writer(), "[FANOUT] ", log.LstdFlags)
	}
	if defaults.MaxConcurrent <= 0 {
		defaults.MaxConcurrent = 4
	}
	if defaults.PerSourceTimeout <= 0 {
		defaults.PerSourceTimeout = 10 * time.Second
	}
	if defaults.OverallTimeout <= 0 {
		defaults.OverallTimeout = 20 * time.Second
	}
	if defaults.EarlyStopThreshold <= 0 {
		defaults.EarlyStopThreshold = 2
	}
	if defaults.SubstantialLength <= 0 {
		defaults.SubstantialLength = 100
	}
	return &Scheduler{registry: registry, defaults: defaults, logger: logger}
}

// FetchAll queries every selected source in parallel and returns a map with
// one entry per selected name; sources that produced nothing map to "".
// The run ends when all sources answered, the overall deadline passes, or
// enough substantial answers arrived to stop early. In-flight fetches are
// abandoned, never awaited. Zero fields in opts fall back to the scheduler
// defaults.
func (s *Scheduler) FetchAll(ctx context.Context, query string, selected []sources.Name, opts Options) map[sources.Name]string {
	opts = s.defaults.merged(opts)
	results := make(map[sources.Name]string, len(selected))
	for _, name := range selected {
		results[name] = ""
	}
	if len(selected) == 0 {
		return results
	}

	ctx, cancel := context.WithTimeout(ctx, opts.OverallTimeout)
	defer cancel()

	// Buffered so abandoned fetches can deliver and exit without a reader.
	ch := make(chan Result, len(selected))
	sem := make(chan struct{}, opts.MaxConcurrent)

	launched := 0
	for _, name := range selected {
		adapter, ok := s.registry.Get(name)
		if !ok {
			continue
		}
		launched++
		go s.fetchOne(ctx, adapter, query, opts.PerSourceTimeout, sem, ch)
	}

	substantial := 0
	for received := 0; received < launched; received++ {
		select {
		case r := <-ch:
			if s.observer != nil {
				s.observer(r)
			}
			if r.Err != nil {
				s.logger.Printf("source %s failed after %v: %v", r.Source, r.Elapsed.Round(time.Millisecond), r.Err)
				continue
			}
			results[r.Source] = r.Text
			if len(r.Text) > opts.SubstantialLength {
				substantial++
			}
			if substantial >= opts.EarlyStopThreshold {
				s.logger.Printf("early stop after %d substantial answers (%d/%d sources)", substantial, received+1, launched)
				return results
			}
		case <-ctx.Done():
			s.logger.Printf("fan-out deadline reached with %d/%d sources answered", received, launched)
			return results
		}
	}
	return results
}

// merged overlays per-call overrides on the scheduler defaults; zero fields
// keep the default.
func (d Options) merged(o Options) Options {
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = d.MaxConcurrent
	}
	if o.PerSourceTimeout <= 0 {
		o.PerSourceTimeout = d.PerSourceTimeout
	}
	if o.OverallTimeout <= 0 {
		o.OverallTimeout = d.OverallTimeout
	}
	if o.EarlyStopThreshold <= 0 {
		o.EarlyStopThreshold = d.EarlyStopThreshold
	}
	if o.SubstantialLength <= 0 {
		o.SubstantialLength = d.SubstantialLength
	}
	return o
}

// fetchOne runs a single adapter under the semaphore and its own timeout.
func (s *Scheduler) fetchOne(ctx context.Context, adapter sources.Adapter, query string, perSource time.Duration, sem chan struct{}, ch chan<- Result) {
	name := adapter.Name()
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Printf("source %s panicked: %v", name, rec)
			ch <- Result{Source: name, Err: &panicError{source: name, value: rec}}
		}
	}()

	select {
	case sem <- struct{}{}:
		defer func() { <-sem }()
	case <-ctx.Done():
		ch <- Result{Source: name, Err: ctx.Err()}
		return
	}

	timeout := adapter.Timeout()
	if timeout <= 0 || timeout > perSource {
		timeout = perSource
	}
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	text, err := adapter.Fetch(fctx, query)
	ch <- Result{Source: name, Text: text, Err: err, Elapsed: time.Since(start)}
}

type panicError struct {
	source sources.Name
	value  interface{}
}

func (e *panicError) Error() string {
	return string(e.source) + " panicked during fetch"
}
