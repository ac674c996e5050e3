package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/oraculo-ai/oraculo/internal/sources"
)

// sourcesCMD queries every provider with the raw question and prints each
// answer unfused. Useful to see which sources actually know something.
func sourcesCMD() *cobra.Command {
	var cfgPath string
	var timeout time.Duration
	var cmd = &cobra.Command{
		Use:   "sources [question]",
		Short: "Query every source individually",
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

			selected, queries := a.engine.Plan(ctx, question)
			fmt.Printf("selection: %v\nqueries:   %q\n\n", selected, queries)

			answers := a.engine.AskEach(ctx, question)
			for _, name := range sources.All() {
				text, ok := answers[name]
				if !ok {
					continue
				}
				if text == "" {
					text = "(nothing)"
				}
				fmt.Printf("=== %s ===\n%s\n\n", name, text)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall deadline")
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config/oraculo.yaml)")
	return cmd
}
