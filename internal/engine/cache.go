package engine

import (
	"container/list"
	"sync"
	"time"

	"github.com/oraculo-ai/oraculo/internal/textutil"
)

// answerCache is a TTL-bounded LRU keyed by the normalized question, so
// casing and accent variants of a repeat question hit the same entry.
type answerCache struct {
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration
	order      *list.List
	entries    map[string]*list.Element
	now        func() time.Time
}

type cacheItem struct {
	key     string
	result  Result
	expires time.Time
}

func newAnswerCache(maxEntries int, ttl time.Duration) *answerCache {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &answerCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
		now:        time.Now,
	}
}

func (c *answerCache) get(question string) (Result, bool) {
	key := textutil.Normalize(question)
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return Result{}, false
	}
	item := el.Value.(*cacheItem)
	if c.now().After(item.expires) {
		c.order.Remove(el)
		delete(c.entries, key)
		return Result{}, false
	}
	c.order.MoveToFront(el)
	return item.result, true
}

func (c *answerCache) put(question string, result Result) {
	key := textutil.Normalize(question)
	if key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		item := el.Value.(*cacheItem)
		item.result = result
		item.expires = c.now().Add(c.ttl)
		c.order.MoveToFront(el)
		return
	}
	if len(c.entries) >= c.maxEntries {
		if oldest := c.order.Back(); oldest != nil {
			item := oldest.Value.(*cacheItem)
			c.order.Remove(oldest)
			delete(c.entries, item.key)
		}
	}
	el := c.order.PushFront(&cacheItem{key: key, result: result, expires: c.now().Add(c.ttl)})
	c.entries[key] = el
}

func (c *answerCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
