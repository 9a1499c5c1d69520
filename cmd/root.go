// Package cmd implements the command-line interface for pgmonkey using Cobra.
// It defines the root command and all subcommands (pgconfig, pgcodegen,
// pgimport, pgexport, pgserverconfig, version).
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RexBytes/pgmonkey/pkg/logger"
	"github.com/RexBytes/pgmonkey/pkg/manager"
)

// Version is the current version of pgmonkey, set at build time via ldflags.
var Version = "0.0.1"

// mgr is the process-wide connection manager shared by all subcommands.
// Execute closes it on the way out so cached connections are torn down.
var mgr = manager.New()

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "pgmonkey",
	Short: "Manage PostgreSQL connection configurations and lifecycles",
	Long: `pgmonkey manages PostgreSQL connections from YAML configuration files,
caching live connections per configuration fingerprint and exposing single
connections and pools behind one interface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Init(logger.Config{Level: logLevel, Encoding: "console"})
	},
}

// Execute runs the root command and returns any error encountered.
// This is called from main.go.
func Execute() error {
	defer logger.Sync()
	defer mgr.Close(context.Background())
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(pgconfigCmd)
	rootCmd.AddCommand(pgcodegenCmd)
	rootCmd.AddCommand(pgimportCmd)
	rootCmd.AddCommand(pgexportCmd)
	rootCmd.AddCommand(pgserverconfigCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pgmonkey v%s\n", Version)
	},
}
