package main

import (
	"context"
	"log"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/oraculo-ai/oraculo/config"
	"github.com/oraculo-ai/oraculo/internal/analysis"
	"github.com/oraculo-ai/oraculo/internal/engine"
	"github.com/oraculo-ai/oraculo/internal/fanout"
	"github.com/oraculo-ai/oraculo/internal/fusion"
	"github.com/oraculo-ai/oraculo/internal/learned"
	"github.com/oraculo-ai/oraculo/internal/policy"
	"github.com/oraculo-ai/oraculo/internal/sources"
	"github.com/oraculo-ai/oraculo/internal/stats"
	"github.com/oraculo-ai/oraculo/internal/telemetry"
)

// app is the wired answering pipeline shared by the serve, ask and sources
// commands. Postgres is opened separately by the commands that need it.
type app struct {
	cfg     *config.Config
	engine  *engine.Engine
	stats   stats.Store
	metrics *telemetry.Metrics
	rdb     *redis.Client
	logger  *log.Logger
}

func newApp(cfgPath string) (*app, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	logger := log.New(log.Writer(), "[ORACULO] ", log.LstdFlags)

	client := &http.Client{Timeout: cfg.Fanout.PerSourceTimeout}
	registry := sources.FromConfig(cfg.Sources, client)

	a := &app{cfg: cfg, logger: logger}

	// Redis-backed stats survive restarts; without Redis the adaptive
	// selection still works, it just starts cold.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.Redis.Addr(),
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), cfg.Storage.Redis.Timeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Printf("redis unavailable (%v), using in-memory source stats", err)
		_ = rdb.Close()
		a.stats = stats.NewMemoryStore()
	} else {
		a.rdb = rdb
		a.stats = stats.NewRedisStore(rdb)
	}

	if cfg.Telemetry.Enabled {
		a.metrics = telemetry.New()
	}

	learnedStore, err := learned.NewStore(learned.Options{
		MaxEntries:          cfg.Learned.MaxEntries,
		MinQuality:          cfg.Learned.MinQuality,
		SimilarityThreshold: cfg.Learned.SimilarityThreshold,
	}, nil)
	if err != nil {
		return nil, err
	}

	a.engine = engine.New(engine.Deps{
		Analyzer: analysis.NewAnalyzer(nil),
		Selector: policy.NewSelector(nil, a.stats, cfg.Policy.MaxSources, nil),
		Scheduler: fanout.New(registry, fanout.Options{
			MaxConcurrent:      cfg.Fanout.MaxConcurrent,
			PerSourceTimeout:   cfg.Fanout.PerSourceTimeout,
			OverallTimeout:     cfg.Fanout.OverallTimeout,
			EarlyStopThreshold: cfg.Fanout.EarlyStopThreshold,
			SubstantialLength:  cfg.Fanout.SubstantialLength,
		}, nil),
		Fuser: fusion.New(fusion.Options{
			MaxSentences:       cfg.Fusion.MaxSentences,
			DuplicateThreshold: cfg.Fusion.DuplicateThreshold,
		}, nil),
		Learned: learnedStore,
		Stats:   a.stats,
		Metrics: a.metrics,
	}, engine.Options{
		MaxQueries:   cfg.Policy.MaxQueries,
		ReuseQuality: cfg.Learned.ReuseQuality,
		LearnQuality: cfg.Learned.MinQuality,
		CacheEntries: cfg.Cache.MaxEntries,
		CacheTTL:     cfg.Cache.TTL,
	})
	return a, nil
}

func (a *app) close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}
