package engine

import (
	"fmt"
	"testing"
	"time"
)

func TestCache_PutGetNormalizesKey(t *testing.T) {
	c := newAnswerCache(10, time.Hour)
	c.put("Qual a capital da França?", Result{Text: "Paris."})

	if _, ok := c.get("pergunta diferente"); ok {
		t.Fatal("unexpected hit for unrelated question")
	}
	got, ok := c.get("QUAL A CAPITAL DA FRANCA?")
	if !ok {
		t.Fatal("accent/case variant should hit")
	}
	if got.Text != "Paris." {
		t.Fatalf("unexpected cached value %+v", got)
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c := newAnswerCache(10, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.put("pergunta", Result{Text: "resposta"})
	if _, ok := c.get("pergunta"); !ok {
		t.Fatal("fresh entry should hit")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.get("pergunta"); ok {
		t.Fatal("expired entry should miss")
	}
	if c.len() != 0 {
		t.Fatal("expired entry should have been removed")
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newAnswerCache(2, time.Hour)
	c.put("primeira pergunta", Result{Text: "um"})
	c.put("segunda pergunta", Result{Text: "dois"})

	// touch the first so the second becomes the eviction candidate
	if _, ok := c.get("primeira pergunta"); !ok {
		t.Fatal("first entry should be present")
	}
	c.put("terceira pergunta", Result{Text: "três"})

	if _, ok := c.get("segunda pergunta"); ok {
		t.Fatal("least recently used entry should have been evicted")
	}
	if _, ok := c.get("primeira pergunta"); !ok {
		t.Fatal("recently used entry should survive")
	}
	if _, ok := c.get("terceira pergunta"); !ok {
		t.Fatal("new entry should be present")
	}
}

func TestCache_CapacityBound(t *testing.T) {
	c := newAnswerCache(5, time.Hour)
	for i := 0; i < 20; i++ {
		c.put(fmt.Sprintf("pergunta número %d", i), Result{})
	}
	if c.len() != 5 {
		t.Fatalf("cache grew past its bound: %d", c.len())
	}
}

func TestConversation_RingBehaviour(t *testing.T) {
	c := NewConversation(3)
	for i := 0; i < 5; i++ {
		c.Add(Exchange{Question: fmt.Sprintf("pergunta %d", i)})
	}
	if c.Len() != 3 {
		t.Fatalf("ring should cap at 3, got %d", c.Len())
	}
	recent := c.Recent(0)
	if recent[0].Question != "pergunta 2" || recent[2].Question != "pergunta 4" {
		t.Fatalf("oldest turns should fall off: %+v", recent)
	}
	if got := c.Recent(1); len(got) != 1 || got[0].Question != "pergunta 4" {
		t.Fatalf("Recent(1) should return the newest turn, got %+v", got)
	}
	c.Reset()
	if c.Len() != 0 {
		t.Fatal("reset should clear the ring")
	}
}
