package engine

import (
	"sync"
	"time"
)

// Exchange is one question/answer turn kept as conversation context.
type Exchange struct {
	Question string
	Answer   string
	Label    string
	At       time.Time
}

// Conversation is a bounded ring of recent exchanges. Oldest turns fall off
// once the capacity is reached. Safe for concurrent use.
type Conversation struct {
	mu       sync.Mutex
	turns    []Exchange
	capacity int
}

func NewConversation(capacity int) *Conversation {
	if capacity <= 0 {
		capacity = 10
	}
	return &Conversation{capacity: capacity}
}

// Add appends a turn, evicting the oldest when full.
func (c *Conversation) Add(e Exchange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.turns) == c.capacity {
		copy(c.turns, c.turns[1:])
		c.turns = c.turns[:c.capacity-1]
	}
	c.turns = append(c.turns, e)
}

// Recent returns up to n most recent turns, oldest first.
func (c *Conversation) Recent(n int) []Exchange {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= 0 || n > len(c.turns) {
		n = len(c.turns)
	}
	out := make([]Exchange, n)
	copy(out, c.turns[len(c.turns)-n:])
	return out
}

// Reset clears the ring.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
}

// Len returns the number of stored turns.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}
