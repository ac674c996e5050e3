// Package sources defines the knowledge provider abstraction and the seven
// concrete adapters behind it. Each adapter turns one external service into
// the same minimal contract: a name, a latency budget and a Fetch that
// returns cleaned plain text or nothing.
package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Name identifies a knowledge provider. The set is closed; selection
// policies and statistics key on these values.
type Name string

const (
	Wolfram    Name = "wolfram"
	Google     Name = "google"
	DuckDuckGo Name = "duckduckgo"
	Wikipedia  Name = "wikipedia"
	Arxiv      Name = "arxiv"
	DBpedia    Name = "dbpedia"
	YouTube    Name = "youtube"
)

// All returns every provider name in canonical order.
func All() []Name {
	return []Name{Wolfram, Google, DuckDuckGo, Wikipedia, Arxiv, DBpedia, YouTube}
}

// Valid reports whether n is a known provider name.
func Valid(n Name) bool {
	switch n {
	case Wolfram, Google, DuckDuckGo, Wikipedia, Arxiv, DBpedia, YouTube:
		return true
	}
	return false
}

// Adapter is one knowledge provider. Fetch returns the cleaned answer text,
// or ("", nil) when the provider has nothing useful for the query; errors are
// reserved for transport and decoding failures. Implementations must honour
// ctx cancellation and be safe for concurrent use.
type Adapter interface {
	Name() Name
	Timeout() time.Duration
	Fetch(ctx context.Context, query string) (string, error)
}

// Registry holds adapters in registration order.
type Registry struct {
	order    []Name
	adapters map[Name]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[Name]Adapter, len(adapters))}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces an adapter.
func (r *Registry) Register(a Adapter) {
	if _, ok := r.adapters[a.Name()]; !ok {
		r.order = append(r.order, a.Name())
	}
	r.adapters[a.Name()] = a
}

// Get returns the adapter registered under n.
func (r *Registry) Get(n Name) (Adapter, bool) {
	a, ok := r.adapters[n]
	return a, ok
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []Name {
	out := make([]Name, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Len() int { return len(r.order) }

const maxBodyBytes = 2 << 20 // 2 MiB cap on any provider response

// getBody issues a GET and returns the response body. A non-2xx status is
// reported as an error with the provider name for log context.
func getBody(ctx context.Context, client *http.Client, name Name, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "oraculo/1.0")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &StatusError{Source: name, Code: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

// StatusError reports a non-2xx provider response.
type StatusError struct {
	Source Name
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d", e.Source, e.Code)
}
