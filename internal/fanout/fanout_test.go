package fanout

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/oraculo-ai/oraculo/internal/sources"
)

type fakeAdapter struct {
	name    sources.Name
	text    string
	err     error
	delay   time.Duration
	timeout time.Duration
	panics  bool
}

func (f *fakeAdapter) Name() sources.Name     { return f.name }
func (f *fakeAdapter) Timeout() time.Duration { return f.timeout }

func (f *fakeAdapter) Fetch(ctx context.Context, query string) (string, error) {
	if f.panics {
		panic("adapter blew up")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func newScheduler(opts Options, adapters ...*fakeAdapter) *Scheduler {
	r := sources.NewRegistry()
	for _, a := range adapters {
		r.Register(a)
	}
	return New(r, opts, quietLogger())
}

func TestFetchAll_AllKeysPresent(t *testing.T) {
	s := newScheduler(Options{},
		&fakeAdapter{name: sources.Wikipedia, text: "Paris is the capital of France."},
		&fakeAdapter{name: sources.DuckDuckGo, text: ""},
		&fakeAdapter{name: sources.Google, err: errors.New("quota exceeded")},
	)
	selected := []sources.Name{sources.Wikipedia, sources.DuckDuckGo, sources.Google}
	got := s.FetchAll(context.Background(), "capital of France", selected, Options{})

	if len(got) != 3 {
		t.Fatalf("expected an entry per selected source, got %v", got)
	}
	for _, name := range selected {
		if _, ok := got[name]; !ok {
			t.Fatalf("missing key %s in %v", name, got)
		}
	}
	if got[sources.Wikipedia] == "" {
		t.Fatal("wikipedia answer lost")
	}
	if got[sources.Google] != "" {
		t.Fatalf("failed source must map to empty, got %q", got[sources.Google])
	}
}

func TestFetchAll_EmptySelection(t *testing.T) {
	s := newScheduler(Options{})
	got := s.FetchAll(context.Background(), "anything", nil, Options{})
	if len(got) != 0 {
		t.Fatalf("expected empty map, got %v", got)
	}
}

func TestFetchAll_SlowSourceAbandoned(t *testing.T) {
	long := strings.Repeat("a sentence of text ", 10)
	s := newScheduler(Options{OverallTimeout: 100 * time.Millisecond, EarlyStopThreshold: 5},
		&fakeAdapter{name: sources.Wikipedia, text: long},
		&fakeAdapter{name: sources.Arxiv, text: long, delay: 5 * time.Second},
	)
	start := time.Now()
	got := s.FetchAll(context.Background(), "q", []sources.Name{sources.Wikipedia, sources.Arxiv}, Options{})
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("fan-out did not respect the overall deadline: %v", elapsed)
	}
	if got[sources.Wikipedia] != long {
		t.Fatal("fast source answer lost")
	}
	if got[sources.Arxiv] != "" {
		t.Fatal("slow source should have been abandoned")
	}
}

func TestFetchAll_PerSourceTimeout(t *testing.T) {
	s := newScheduler(Options{OverallTimeout: 5 * time.Second, PerSourceTimeout: time.Second},
		&fakeAdapter{name: sources.Wolfram, text: "answer text here", delay: 2 * time.Second, timeout: 50 * time.Millisecond},
	)
	start := time.Now()
	got := s.FetchAll(context.Background(), "q", []sources.Name{sources.Wolfram}, Options{})
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("adapter timeout not enforced: %v", elapsed)
	}
	if got[sources.Wolfram] != "" {
		t.Fatal("timed-out source must contribute nothing")
	}
}

func TestFetchAll_EarlyStopAfterSubstantialAnswers(t *testing.T) {
	long := strings.Repeat("substantial answer text ", 10)
	s := newScheduler(Options{EarlyStopThreshold: 2, SubstantialLength: 100, OverallTimeout: 5 * time.Second},
		&fakeAdapter{name: sources.Wikipedia, text: long},
		&fakeAdapter{name: sources.DuckDuckGo, text: long, delay: 10 * time.Millisecond},
		&fakeAdapter{name: sources.Arxiv, text: long, delay: 3 * time.Second},
	)
	start := time.Now()
	got := s.FetchAll(context.Background(), "q", []sources.Name{sources.Wikipedia, sources.DuckDuckGo, sources.Arxiv}, Options{})
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("early stop did not trigger: %v", elapsed)
	}
	if got[sources.Wikipedia] == "" || got[sources.DuckDuckGo] == "" {
		t.Fatalf("substantial answers missing: %v", got)
	}
}

func TestFetchAll_ShortAnswersDoNotTriggerEarlyStop(t *testing.T) {
	s := newScheduler(Options{EarlyStopThreshold: 2, SubstantialLength: 100, OverallTimeout: 5 * time.Second},
		&fakeAdapter{name: sources.Wikipedia, text: "short one"},
		&fakeAdapter{name: sources.DuckDuckGo, text: "short two"},
		&fakeAdapter{name: sources.Wolfram, text: "short three", delay: 50 * time.Millisecond},
	)
	got := s.FetchAll(context.Background(), "q", []sources.Name{sources.Wikipedia, sources.DuckDuckGo, sources.Wolfram}, Options{})
	// all three must have been awaited, none dropped by an early stop
	for name, text := range got {
		if text == "" {
			t.Fatalf("source %s dropped: %v", name, got)
		}
	}
}

func TestFetchAll_PanicIsContained(t *testing.T) {
	s := newScheduler(Options{OverallTimeout: time.Second},
		&fakeAdapter{name: sources.DBpedia, panics: true},
		&fakeAdapter{name: sources.Wikipedia, text: "Paris is the capital of France."},
	)
	got := s.FetchAll(context.Background(), "q", []sources.Name{sources.DBpedia, sources.Wikipedia}, Options{})
	if got[sources.DBpedia] != "" {
		t.Fatal("panicking source must contribute nothing")
	}
	if got[sources.Wikipedia] == "" {
		t.Fatal("healthy source lost alongside the panic")
	}
}

func TestFetchAll_BoundedConcurrency(t *testing.T) {
	// with max_concurrent=1 and two 50ms sources, the run takes >=100ms
	s := newScheduler(Options{MaxConcurrent: 1, OverallTimeout: 5 * time.Second, EarlyStopThreshold: 5},
		&fakeAdapter{name: sources.Wikipedia, text: "first answer long enough", delay: 50 * time.Millisecond},
		&fakeAdapter{name: sources.DuckDuckGo, text: "second answer long enough", delay: 50 * time.Millisecond},
	)
	start := time.Now()
	s.FetchAll(context.Background(), "q", []sources.Name{sources.Wikipedia, sources.DuckDuckGo}, Options{})
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Fatalf("semaphore not enforced, run took %v", elapsed)
	}
}

func TestFetchAll_PerCallOverrides(t *testing.T) {
	long := strings.Repeat("a sentence of text ", 10)
	s := newScheduler(Options{OverallTimeout: 5 * time.Second, EarlyStopThreshold: 5},
		&fakeAdapter{name: sources.Wikipedia, text: long},
		&fakeAdapter{name: sources.Arxiv, text: long, delay: 3 * time.Second},
	)
	start := time.Now()
	got := s.FetchAll(context.Background(), "q", []sources.Name{sources.Wikipedia, sources.Arxiv},
		Options{OverallTimeout: 100 * time.Millisecond})
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("per-call deadline ignored: %v", elapsed)
	}
	if got[sources.Wikipedia] != long {
		t.Fatal("fast source answer lost")
	}
	if got[sources.Arxiv] != "" {
		t.Fatal("slow source should have been abandoned under the per-call deadline")
	}
}
