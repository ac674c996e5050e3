// Package learned keeps high-quality question/answer pairs and serves them
// back for repeat questions, including rephrasings. Exact repeats hit a map;
// rephrasings go through an in-memory full-text index and a similarity
// check.
package learned

import (
	"log"
	"sync"
	"time"

	"github.com/blevesearch/bleve"

	"github.com/oraculo-ai/oraculo/internal/relevance"
	"github.com/oraculo-ai/oraculo/internal/sources"
	"github.com/oraculo-ai/oraculo/internal/textutil"
)

// Entry is one remembered answer.
type Entry struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Sources   []string  `json:"sources"`
	Quality   float64   `json:"quality"`
	LearnedAt time.Time `json:"learned_at"`
}

// Options tunes the store; zero values get sensible defaults.
type Options struct {
	MaxEntries          int
	MinQuality          float64
	SimilarityThreshold float64
}

// Store is the learned-answer memory. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	index   bleve.Index
	entries map[string]Entry
	opts    Options
	logger  *log.Logger
}

func NewStore(opts Options, logger *log.Logger) (*Store, error) {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 1000
	}
	if opts.MinQuality <= 0 {
		opts.MinQuality = 0.7
	}
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = 0.85
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[LEARNED] ", log.LstdFlags)
	}
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Store{
		index:   index,
		entries: make(map[string]Entry),
		opts:    opts,
		logger:  logger,
	}, nil
}

// Learn remembers the answer when its quality clears the bar. Returns
// whether the entry was stored. Re-learning the same question keeps the
// better answer.
func (s *Store) Learn(question, answer string, used []sources.Name, quality float64) bool {
	if quality < s.opts.MinQuality || answer == "" {
		return false
	}
	key := textutil.Normalize(question)
	if key == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[key]; ok && existing.Quality >= quality {
		return false
	}
	if len(s.entries) >= s.opts.MaxEntries {
		s.evictWorst()
	}

	names := make([]string, len(used))
	for i, n := range used {
		names[i] = string(n)
	}
	entry := Entry{
		Question:  question,
		Answer:    answer,
		Sources:   names,
		Quality:   quality,
		LearnedAt: time.Now(),
	}
	s.entries[key] = entry
	if err := s.index.Index(key, map[string]string{"question": key}); err != nil {
		s.logger.Printf("index update failed for %q: %v", key, err)
	}
	return true
}

// Lookup finds a remembered answer for the question, trying an exact
// normalized match first and a similarity search second.
func (s *Store) Lookup(question string) (Entry, bool) {
	key := textutil.Normalize(question)
	if key == "" {
		return Entry{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if entry, ok := s.entries[key]; ok {
		return entry, true
	}

	query := bleve.NewMatchQuery(key)
	req := bleve.NewSearchRequest(query)
	req.Size = 3
	res, err := s.index.Search(req)
	if err != nil {
		s.logger.Printf("similarity search failed: %v", err)
		return Entry{}, false
	}
	for _, hit := range res.Hits {
		entry, ok := s.entries[hit.ID]
		if !ok {
			continue
		}
		if relevance.Score(key, hit.ID) >= s.opts.SimilarityThreshold {
			return entry, true
		}
	}
	return Entry{}, false
}

// Len returns the number of remembered answers.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// evictWorst drops the lowest-quality entry, oldest first on ties. Caller
// holds the write lock.
func (s *Store) evictWorst() {
	var worstKey string
	var worst Entry
	first := true
	for key, entry := range s.entries {
		if first || entry.Quality < worst.Quality ||
			(entry.Quality == worst.Quality && entry.LearnedAt.Before(worst.LearnedAt)) {
			worstKey, worst, first = key, entry, false
		}
	}
	if worstKey == "" {
		return
	}
	delete(s.entries, worstKey)
	if err := s.index.Delete(worstKey); err != nil {
		s.logger.Printf("index delete failed for %q: %v", worstKey, err)
	}
}
