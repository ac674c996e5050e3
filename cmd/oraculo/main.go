package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{
		Use:   "oraculo",
		Short: "Multi-source question answering service",
	}

	root.AddCommand(serveCMD(), askCMD(), sourcesCMD(), migrateCMD(), workerCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
