package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/RexBytes/pgmonkey/internal/tools"
)

var (
	importConnConfig   string
	importTable        string
	importFile         string
	importImportConfig string
	importVerbose      bool
)

var pgimportCmd = &cobra.Command{
	Use:   "pgimport",
	Short: "Import a CSV file into a PostgreSQL table",
	Long: `pgimport loads a CSV file into a table using a pgmonkey connection
configuration. Import behavior (delimiter, headers, batch size) lives in a
small YAML file next to the CSV, created with defaults on first run.`,
	RunE: runPgimport,
}

func init() {
	pgimportCmd.Flags().StringVar(&importConnConfig, "connconfig", "", "Connection configuration file (required)")
	pgimportCmd.Flags().StringVar(&importTable, "table", "", "Target table, optionally schema-qualified (required)")
	pgimportCmd.Flags().StringVar(&importFile, "ifilepath", "", "CSV file to import (required)")
	pgimportCmd.Flags().StringVar(&importImportConfig, "iconfig", "", "Import settings YAML (default: next to the CSV)")
	pgimportCmd.Flags().BoolVar(&importVerbose, "verbose", false, "Print progress output")

	pgimportCmd.MarkFlagRequired("connconfig")
	pgimportCmd.MarkFlagRequired("table")
	pgimportCmd.MarkFlagRequired("ifilepath")
}

func runPgimport(cmd *cobra.Command, args []string) error {
	importer, err := tools.NewCSVImporter(mgr, importConnConfig, importFile, importTable, importImportConfig, importVerbose)
	if err != nil {
		return err
	}
	return importer.Run(context.Background())
}
