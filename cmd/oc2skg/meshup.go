package main

import (
	"context"

	"github.com/matsen/oc2skg/internal/cache"
	"github.com/matsen/oc2skg/internal/config"
	"github.com/matsen/oc2skg/internal/logging"
	"github.com/matsen/oc2skg/internal/meshup"
	"github.com/matsen/oc2skg/internal/oc"
	"github.com/matsen/oc2skg/internal/skg"
	"github.com/matsen/oc2skg/internal/storage"
	"github.com/spf13/cobra"
)

var (
	meshupNoCache     bool
	meshupConcurrency int
)

var meshupCmd = &cobra.Command{
	Use:   "meshup <doi> <output>",
	Short: "Merge citations and metadata for a DOI into one JSON-LD graph",
	Long: `Fetch the references of a citing work from the OpenCitations Index and
the metadata of the work and of every cited DOI from OpenCitations Meta,
then merge them into one SKG-IF graph.

The citing product carries the cites list; it is followed by the rest of
its metadata nodes and then by the nodes of every cited work.

Responses are cached (see 'oc2skg cache'); use --no-cache to bypass.

Examples:
  oc2skg meshup doi:10.1162/qss_a_00023 meshup.jsonld
  oc2skg meshup doi:10.1162/qss_a_00023 meshup.jsonld --concurrency 8 -v`,
	Args: cobra.ExactArgs(2),
	Run:  runMeshup,
}

func init() {
	meshupCmd.Flags().BoolVar(&meshupNoCache, "no-cache", false, "Do not read or write the response cache")
	meshupCmd.Flags().IntVar(&meshupConcurrency, "concurrency", 0, "Parallel metadata fetches (default from config)")
	rootCmd.AddCommand(meshupCmd)
}

func runMeshup(cmd *cobra.Command, args []string) {
	id, output := args[0], args[1]
	cfg := mustLoadConfig()

	concurrency := cfg.Concurrency
	if meshupConcurrency > 0 {
		concurrency = meshupConcurrency
	}

	store := mustOpenCache(cfg, meshupNoCache)
	doc, err := mergeCached(cmd.Context(), cfg, store, id, concurrency)
	if err != nil {
		exitWithErr(err, id)
	}

	if err := storage.WriteDocument(output, doc); err != nil {
		exitWithError(ExitError, "%v", err)
	}
	reportSaved(output, doc)
}

// mergeCached merges id through a client backed by store. The store is
// closed before returning.
func mergeCached(ctx context.Context, cfg *config.Config, store cache.Cache, id string, concurrency int) (*skg.Document, error) {
	logger := logging.FromContext(ctx)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing cache", "err", err)
		}
	}()

	client := oc.NewClient(append(cfg.ClientOptions(), oc.WithCache(store, cfg.CacheTTLDuration()))...)

	logger.Info("merging", "id", id, "concurrency", concurrency)
	return meshup.NewMerger(client, meshup.WithConcurrency(concurrency)).Convert(ctx, id)
}

// mustOpenCache opens the configured response cache, or a null cache when
// disabled. Exits on error.
func mustOpenCache(cfg *config.Config, disabled bool) cache.Cache {
	if disabled {
		return cache.NewNull()
	}
	store, err := cache.OpenSQLite(cfg.CachePath)
	if err != nil {
		exitWithError(ExitError, "opening cache: %v", err)
	}
	return store
}
