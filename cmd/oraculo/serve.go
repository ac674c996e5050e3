package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oraculo-ai/oraculo/internal/server"
	"github.com/oraculo-ai/oraculo/internal/store"
	"github.com/oraculo-ai/oraculo/internal/worker"
)

func serveCMD() *cobra.Command {
	var cfgPath string
	var listen string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			if listen != "" {
				a.cfg.Server.Listen = listen
			}

			srv := server.New(a.engine, server.Options{
				Listen:    a.cfg.Server.Listen,
				JWTSecret: []byte(a.cfg.Server.JWTSecret),
			})
			srv.Stats = a.stats
			srv.Metrics = a.metrics

			// Postgres is optional: without it the API answers questions but
			// has no accounts, history or feedback.
			if dsn, err := a.cfg.Storage.Postgres.DSN(); err == nil {
				if err := store.Migrate("file://migrations", dsn, "up", 0); err != nil {
					a.logger.Printf("migrations failed: %v", err)
				}
				ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Storage.Postgres.Timeout)
				st, err := store.NewWithDSN(ctx, dsn)
				cancel()
				if err != nil {
					a.logger.Printf("postgres unavailable (%v), history disabled", err)
				} else {
					srv.Store = st
					defer st.Close()
				}
			} else {
				a.logger.Printf("postgres not configured, history disabled")
			}

			w, err := worker.New(a.stats, worker.Options{
				Cron:  a.cfg.Worker.Cron,
				Decay: a.cfg.Worker.Decay,
			}, nil)
			if err != nil {
				return err
			}
			w.Rdb = a.rdb
			w.Start()
			defer w.Stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				a.logger.Printf("received %s, shutting down", sig)
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(ctx)
			}
		},
	}
	serve.Flags().StringVar(&listen, "addr", "", "listen address (overrides config)")
	serve.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config/oraculo.yaml)")
	return serve
}
