package main

import (
	"github.com/matsen/oc2skg/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the effective configuration: the config file merged with defaults
and the OC_ACCESS_TOKEN environment variable. The token is redacted.

Config file: $XDG_CONFIG_HOME/oc2skg/config.yml (default ~/.config/oc2skg/config.yml)

Keys:
  index_base_url  OpenCitations Index API base URL
  meta_base_url   OpenCitations Meta API base URL
  access_token    OpenCitations access token
  rate_limit      Requests per second
  timeout         Per-request timeout (e.g. 30s)
  retries         Attempts per request for transient failures
  concurrency     Parallel metadata fetches in meshup
  cache_path      Response cache database
  cache_ttl       How long cached responses are reused (e.g. 168h)`,
	Args: cobra.NoArgs,
	Run:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig().Redacted()

	if !humanOutput {
		outputJSON(ConfigResponse{Path: config.GlobalConfigPath(), Config: cfg})
		return
	}

	outputHuman("config file:    %s\n", config.GlobalConfigPath())
	outputHuman("index_base_url: %s\n", cfg.IndexBaseURL)
	outputHuman("meta_base_url:  %s\n", cfg.MetaBaseURL)
	outputHuman("access_token:   %s\n", cfg.AccessToken)
	outputHuman("rate_limit:     %v\n", cfg.RateLimit)
	outputHuman("timeout:        %s\n", cfg.Timeout)
	outputHuman("retries:        %d\n", cfg.Retries)
	outputHuman("concurrency:    %d\n", cfg.Concurrency)
	outputHuman("cache_path:     %s\n", cfg.CachePath)
	outputHuman("cache_ttl:      %s\n", cfg.CacheTTL)
}

// ConfigResponse is the response for the config command.
type ConfigResponse struct {
	Path   string         `json:"path"`
	Config *config.Config `json:"config"`
}
