package main

import (
	"github.com/matsen/oc2skg/internal/logging"
	"github.com/matsen/oc2skg/internal/meta"
	"github.com/matsen/oc2skg/internal/skg"
	"github.com/matsen/oc2skg/internal/storage"
	"github.com/spf13/cobra"
)

var metaCmd = &cobra.Command{
	Use:   "meta <input> <output>",
	Short: "Convert OpenCitations Meta records to JSON-LD",
	Long: `Convert OpenCitations Meta bibliographic records into SKG-IF product,
agent and venue nodes.

The input may hold a single record, an array of records (as returned by the
Meta metadata endpoint), an array wrapping one array, or one record per line.

Examples:
  oc2skg meta metadata.json metadata.jsonld
  oc2skg meta metadata.json metadata.jsonld --human`,
	Args: cobra.ExactArgs(2),
	Run:  runMeta,
}

func init() {
	rootCmd.AddCommand(metaCmd)
}

func runMeta(cmd *cobra.Command, args []string) {
	input, output := args[0], args[1]
	logger := logging.FromContext(cmd.Context())

	records, err := storage.ReadRecords(input)
	if err != nil {
		exitWithErr(err, "")
	}
	logger.Debug("read records", "path", input, "records", len(records))

	nodes, err := meta.NewConverter().Convert(records)
	if err != nil {
		exitWithErr(err, "")
	}

	doc := skg.NewDocument(nodes)
	if err := storage.WriteDocument(output, doc); err != nil {
		exitWithError(ExitError, "%v", err)
	}
	reportSaved(output, doc)
}
