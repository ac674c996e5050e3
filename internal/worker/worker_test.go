package worker

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/oraculo-ai/oraculo/internal/sources"
	"github.com/oraculo-ai/oraculo/internal/stats"
)

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func TestNew_RejectsBadCron(t *testing.T) {
	if _, err := New(stats.NewMemoryStore(), Options{Cron: "not a cron"}, quiet()); err == nil {
		t.Fatal("invalid cron expression must be rejected")
	}
}

func TestRunOnce_DecaysStats(t *testing.T) {
	st := stats.NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if err := st.Record(ctx, sources.Wikipedia, true, 100*time.Millisecond, 0.8); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	w, err := New(st, Options{Decay: 0.5}, quiet())
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}
	w.RunOnce(ctx)

	snap, err := st.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	got := snap[sources.Wikipedia]
	if got.TotalUses != 2 {
		t.Fatalf("expected uses halved to 2, got %d", got.TotalUses)
	}
	if got.SuccessRate() != 1 {
		t.Fatalf("decay must preserve ratios, success rate is %f", got.SuccessRate())
	}
}

func TestDue_FollowsSchedule(t *testing.T) {
	w, err := New(stats.NewMemoryStore(), Options{Cron: "0 * * * *"}, quiet())
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	w.next = base.Add(time.Hour)

	if w.due(base.Add(30 * time.Minute)) {
		t.Fatal("fired before the schedule")
	}
	if !w.due(base.Add(61 * time.Minute)) {
		t.Fatal("did not fire after the schedule passed")
	}
	if w.due(base.Add(62 * time.Minute)) {
		t.Fatal("fired twice within the same hour")
	}
}

func TestStartStop(t *testing.T) {
	w, err := New(stats.NewMemoryStore(), Options{}, quiet())
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}
	w.Start()
	w.Stop()
}
