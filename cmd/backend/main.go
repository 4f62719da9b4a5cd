package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build info - injected via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "backend",
	Short:         "docgate HTTP server",
	Long:          `backend connects to the document database and serves the docgate HTTP API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file (default ./config.yaml if present)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("backend_exit", "error", err)
		os.Exit(1)
	}
}
