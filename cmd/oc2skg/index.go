package main

import (
	"github.com/matsen/oc2skg/internal/index"
	"github.com/matsen/oc2skg/internal/logging"
	"github.com/matsen/oc2skg/internal/storage"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index <input> <output>",
	Short: "Convert OpenCitations Index citation links to JSON-LD",
	Long: `Convert OpenCitations Index citation links into an SKG-IF citation graph.

The input is the JSON array returned by the Index references endpoint, or
one link object per line. The first link's citing work becomes the citing
product; every link adds a cited product and a cites entry.

Examples:
  oc2skg index references.json citations.jsonld
  oc2skg index references.jsonl citations.jsonld --human`,
	Args: cobra.ExactArgs(2),
	Run:  runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) {
	input, output := args[0], args[1]
	logger := logging.FromContext(cmd.Context())

	links, err := storage.ReadLinks(input)
	if err != nil {
		exitWithErr(err, "")
	}
	logger.Debug("read links", "path", input, "links", len(links))

	graph, err := index.NewConverter().Convert(links)
	if err != nil {
		exitWithErr(err, "")
	}

	doc := graph.Document()
	if err := storage.WriteDocument(output, doc); err != nil {
		exitWithError(ExitError, "%v", err)
	}
	reportSaved(output, doc)
}
