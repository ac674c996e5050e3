// Package worker runs periodic maintenance: decaying the per-source
// statistics so old outcomes stop dominating the adaptive selection.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/oraculo-ai/oraculo/internal/stats"
)

const lockKey = "oraculo:worker:decay:lock"

// Options configures the maintenance worker.
type Options struct {
	Cron  string  // 5-field cron expression, default hourly
	Decay float64 // multiplier applied to the stats counters, default 0.95
}

// Worker periodically decays the source statistics. Rdb is optional; when
// set, a distributed lock keeps replicas from decaying twice per tick.
type Worker struct {
	Stats  stats.Store
	Rdb    *redis.Client
	Logger *log.Logger

	opts Options
	expr *cronexpr.Expression
	next time.Time
	stop chan struct{}
}

func New(statsStore stats.Store, opts Options, logger *log.Logger) (*Worker, error) {
	if opts.Cron == "" {
		opts.Cron = "0 * * * *"
	}
	if opts.Decay <= 0 || opts.Decay >= 1 {
		opts.Decay = 0.95
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[WORKER] ", log.LstdFlags)
	}
	expr, err := cronexpr.Parse(opts.Cron)
	if err != nil {
		return nil, err
	}
	return &Worker{
		Stats:  statsStore,
		Logger: logger,
		opts:   opts,
		expr:   expr,
		next:   expr.Next(time.Now()),
		stop:   make(chan struct{}),
	}, nil
}

// Start ticks every minute and fires whenever the cron schedule is due.
func (w *Worker) Start() {
	ticker := time.NewTicker(time.Minute)
	go func() {
		for {
			select {
			case <-w.stop:
				ticker.Stop()
				return
			case now := <-ticker.C:
				if w.due(now) {
					w.RunOnce(context.Background())
				}
			}
		}
	}()
}

func (w *Worker) Stop() {
	close(w.stop)
}

// due reports whether the schedule has passed and advances the next fire
// time. Not safe for concurrent use; only the Start loop calls it.
func (w *Worker) due(now time.Time) bool {
	if now.Before(w.next) {
		return false
	}
	w.next = w.expr.Next(now)
	return true
}

// RunOnce applies one decay pass. With Redis present it takes a short lock
// so only one replica does the work.
func (w *Worker) RunOnce(ctx context.Context) {
	if w.Rdb != nil {
		ok, err := w.Rdb.SetNX(ctx, lockKey, "1", 2*time.Minute).Result()
		if err != nil {
			w.Logger.Printf("decay lock: %v", err)
			return
		}
		if !ok {
			return
		}
		defer w.Rdb.Del(ctx, lockKey)
	}
	if err := w.Stats.Decay(ctx, w.opts.Decay); err != nil {
		w.Logger.Printf("stats decay failed: %v", err)
		return
	}
	w.Logger.Printf("decayed source stats by %.2f", w.opts.Decay)
}
