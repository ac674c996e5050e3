// Package stats tracks per-source performance: how often each knowledge
// provider answered, how fast and how well. The selection policy reads
// snapshots of these numbers; the engine records outcomes after each run.
package stats

import (
	"context"
	"sync"
	"time"

	"github.com/oraculo-ai/oraculo/internal/sources"
)

// SourceStats is the accumulated record for one provider.
type SourceStats struct {
	TotalUses  int64         `json:"total_uses"`
	Successes  int64         `json:"successes"`
	Failures   int64         `json:"failures"`
	AvgLatency time.Duration `json:"avg_latency"`
	AvgQuality float64       `json:"avg_quality"`
}

// SuccessRate is the fraction of uses that produced an answer, 0 when the
// source was never used.
func (s SourceStats) SuccessRate() float64 {
	if s.TotalUses == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.TotalUses)
}

// Reliability blends success rate and answer quality into the single score
// the selection policy ranks by.
func (s SourceStats) Reliability() float64 {
	return s.SuccessRate() * s.AvgQuality
}

// Snapshot is a point-in-time copy of all source records.
type Snapshot map[sources.Name]SourceStats

// Store records outcomes and serves snapshots. Implementations must be safe
// for concurrent use.
type Store interface {
	Record(ctx context.Context, source sources.Name, success bool, latency time.Duration, quality float64) error
	Snapshot(ctx context.Context) (Snapshot, error)
	// Decay scales every counter down so old behaviour stops dominating
	// the averages. Called periodically by the maintenance worker.
	Decay(ctx context.Context, factor float64) error
}

// MemoryStore keeps stats in process. Used standalone in tests and the
// one-shot CLI, and as the fallback when Redis is not configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[sources.Name]*record
}

type record struct {
	totalUses  int64
	successes  int64
	failures   int64
	latencySum time.Duration
	qualitySum float64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[sources.Name]*record)}
}

func (m *MemoryStore) Record(_ context.Context, source sources.Name, success bool, latency time.Duration, quality float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.records[source]
	if r == nil {
		r = &record{}
		m.records[source] = r
	}
	r.totalUses++
	r.latencySum += latency
	if success {
		r.successes++
		r.qualitySum += quality
	} else {
		r.failures++
	}
	return nil
}

func (m *MemoryStore) Snapshot(_ context.Context) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := make(Snapshot, len(m.records))
	for name, r := range m.records {
		snap[name] = r.stats()
	}
	return snap, nil
}

func (m *MemoryStore) Decay(_ context.Context, factor float64) error {
	if factor <= 0 || factor >= 1 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		r.totalUses = int64(float64(r.totalUses) * factor)
		r.successes = int64(float64(r.successes) * factor)
		r.failures = int64(float64(r.failures) * factor)
		r.latencySum = time.Duration(float64(r.latencySum) * factor)
		r.qualitySum *= factor
	}
	return nil
}

func (r *record) stats() SourceStats {
	s := SourceStats{
		TotalUses: r.totalUses,
		Successes: r.successes,
		Failures:  r.failures,
	}
	if r.totalUses > 0 {
		s.AvgLatency = r.latencySum / time.Duration(r.totalUses)
	}
	if r.successes > 0 {
		s.AvgQuality = r.qualitySum / float64(r.successes)
	}
	return s
}
