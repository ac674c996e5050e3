package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/oraculo-ai/oraculo/internal/sources"
)

func askCMD() *cobra.Command {
	var cfgPath string
	var from []string
	var timeout time.Duration
	var ask = &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfgPath)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			question := strings.Join(args, " ")
			preferred := make([]sources.Name, 0, len(from))
			for _, f := range from {
				preferred = append(preferred, sources.Name(f))
			}

			res, err := a.engine.AnswerFrom(ctx, question, preferred)
			if err != nil {
				return err
			}
			if res == nil {
				fmt.Println("no usable answer")
				return nil
			}
			fmt.Println(res.Text)
			fmt.Printf("\n[%s] quality %.2f, %s, %v\n", res.Label, res.Quality, res.Strategy, res.Latency.Round(time.Millisecond))
			return nil
		},
	}
	ask.Flags().StringSliceVar(&from, "from", nil, "restrict to these sources, in priority order")
	ask.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall deadline")
	ask.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config/oraculo.yaml)")
	return ask
}
