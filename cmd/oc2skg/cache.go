package main

import (
	"github.com/matsen/oc2skg/internal/cache"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the OpenCitations response cache",
	Long: `Manage the SQLite cache of OpenCitations API responses used by meshup.

The cache location and entry lifetime are set by cache_path and cache_ttl
in the config file.`,
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show cache location and size",
	Args:  cobra.NoArgs,
	Run:   runCacheInfo,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached response",
	Args:  cobra.NoArgs,
	Run:   runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

// mustOpenSQLiteCache opens the configured cache database, exits on error.
func mustOpenSQLiteCache() *cache.SQLite {
	cfg := mustLoadConfig()
	store, err := cache.OpenSQLite(cfg.CachePath)
	if err != nil {
		exitWithError(ExitError, "opening cache: %v", err)
	}
	return store
}

func runCacheInfo(cmd *cobra.Command, args []string) {
	store := mustOpenSQLiteCache()
	defer store.Close()

	stats, err := store.Stats(cmd.Context())
	if err != nil {
		exitWithError(ExitError, "reading cache: %v", err)
	}

	if !humanOutput {
		outputJSON(stats)
		return
	}
	outputHuman("path:    %s\n", stats.Path)
	outputHuman("entries: %d (%d expired)\n", stats.Entries, stats.Expired)
	outputHuman("size:    %d bytes\n", stats.Bytes)
}

func runCacheClear(cmd *cobra.Command, args []string) {
	store := mustOpenSQLiteCache()
	defer store.Close()

	n, err := store.Clear(cmd.Context())
	if err != nil {
		exitWithError(ExitError, "clearing cache: %v", err)
	}

	if !humanOutput {
		outputJSON(CacheClearResponse{Status: "cleared", Removed: n})
		return
	}
	outputHuman("Removed %d cached responses\n", n)
}

// CacheClearResponse is the response for cache clear.
type CacheClearResponse struct {
	Status  string `json:"status"`
	Removed int    `json:"removed"`
}
