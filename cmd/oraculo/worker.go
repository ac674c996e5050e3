package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oraculo-ai/oraculo/internal/worker"
)

// workerCMD runs the stats maintenance loop standalone, for deployments
// that keep the API replicas free of background work.
func workerCMD() *cobra.Command {
	var cfgPath string
	var cmd = &cobra.Command{
		Use:   "worker",
		Short: "Run the stats maintenance worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfgPath)
			if err != nil {
				return err
			}
			defer a.close()

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

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigCh
			a.logger.Printf("received %s, stopping worker", sig)
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config/oraculo.yaml)")
	return cmd
}
