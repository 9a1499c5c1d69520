package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/RexBytes/pgmonkey/internal/tools"
)

var (
	exportConnConfig   string
	exportTable        string
	exportFile         string
	exportExportConfig string
	exportVerbose      bool
)

var pgexportCmd = &cobra.Command{
	Use:   "pgexport",
	Short: "Export a PostgreSQL table to a CSV file",
	Long: `pgexport writes the contents of a table to a CSV file using a pgmonkey
connection configuration. Export behavior (delimiter, headers) lives in a
small YAML file next to the CSV, created with defaults on first run.`,
	RunE: runPgexport,
}

func init() {
	pgexportCmd.Flags().StringVar(&exportConnConfig, "connconfig", "", "Connection configuration file (required)")
	pgexportCmd.Flags().StringVar(&exportTable, "table", "", "Source table, optionally schema-qualified (required)")
	pgexportCmd.Flags().StringVar(&exportFile, "ofilepath", "", "CSV file to write (required)")
	pgexportCmd.Flags().StringVar(&exportExportConfig, "oconfig", "", "Export settings YAML (default: next to the CSV)")
	pgexportCmd.Flags().BoolVar(&exportVerbose, "verbose", false, "Print progress output")

	pgexportCmd.MarkFlagRequired("connconfig")
	pgexportCmd.MarkFlagRequired("table")
	pgexportCmd.MarkFlagRequired("ofilepath")
}

func runPgexport(cmd *cobra.Command, args []string) error {
	exporter, err := tools.NewCSVExporter(mgr, exportConnConfig, exportTable, exportFile, exportExportConfig, exportVerbose)
	if err != nil {
		return err
	}
	return exporter.Run(context.Background())
}
