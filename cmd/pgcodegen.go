package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RexBytes/pgmonkey/internal/tools"
	"github.com/RexBytes/pgmonkey/pkg/postgres"
)

var (
	codegenConnConfig string
	codegenConnType   string
)

var pgcodegenCmd = &cobra.Command{
	Use:   "pgcodegen",
	Short: "Print a ready-to-run Go usage example for a configuration",
	Long: `pgcodegen reads a pgmonkey connection configuration and prints a Go
snippet showing how to open and use that connection. Nothing is connected;
only the configuration file is read.`,
	RunE: runPgcodegen,
}

func init() {
	pgcodegenCmd.Flags().StringVar(&codegenConnConfig, "connconfig", "", "Connection configuration file (required)")
	pgcodegenCmd.Flags().StringVar(&codegenConnType, "connection-type", "", "Override connection_type (normal, pool, async, async_pool)")

	pgcodegenCmd.MarkFlagRequired("connconfig")
}

func runPgcodegen(cmd *cobra.Command, args []string) error {
	var typ postgres.Type
	if codegenConnType != "" {
		parsed, err := postgres.ParseType(codegenConnType)
		if err != nil {
			return err
		}
		typ = parsed
	}

	example, err := tools.GenerateExample(codegenConnConfig, typ)
	if err != nil {
		return err
	}
	fmt.Print(example)
	return nil
}
