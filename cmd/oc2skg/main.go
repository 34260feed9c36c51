// Package main provides the oc2skg CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/matsen/oc2skg/internal/config"
	"github.com/matsen/oc2skg/internal/logging"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	// verbose enables debug logging on stderr
	verbose bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "oc2skg",
	Short: "Convert OpenCitations data to SKG-IF JSON-LD",
	Long: `oc2skg converts OpenCitations Index citation links and OpenCitations
Meta bibliographic records into SKG-IF JSON-LD graphs.

Commands:
  index   Convert a file of Index citation links
  meta    Convert a file of Meta bibliographic records
  meshup  Fetch citations and metadata for a DOI and merge them

All commands output JSON status by default.
Use --human for human-readable output.

Environment Variables:
  OC_ACCESS_TOKEN  OpenCitations access token (optional)`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := log.InfoLevel
		if verbose {
			level = log.DebugLevel
		}
		logger := logging.New(os.Stderr, level)
		cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
	},
}

func init() {
	// Load .env file if present (for OC_ACCESS_TOKEN)
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug messages to stderr")
	rootCmd.Version = Version
}

// mustLoadConfig loads the global configuration, exits on error.
func mustLoadConfig() *config.Config {
	cfg, err := config.LoadGlobalConfig()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}
