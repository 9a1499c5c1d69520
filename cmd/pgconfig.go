package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RexBytes/pgmonkey/internal/tools"
	"github.com/RexBytes/pgmonkey/pkg/config"
	"github.com/RexBytes/pgmonkey/pkg/postgres"
)

var (
	configFilepath string
	testConnType   string
)

var pgconfigCmd = &cobra.Command{
	Use:   "pgconfig",
	Short: "Create and test connection configuration files",
}

var pgconfigCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Write a commented YAML configuration template",
	RunE:  runPgconfigCreate,
}

var pgconfigTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Test the connection described by a configuration file",
	RunE:  runPgconfigTest,
}

func init() {
	pgconfigCreateCmd.Flags().StringVar(&configFilepath, "filepath", "", "Path for the new configuration file (required)")
	pgconfigCreateCmd.MarkFlagRequired("filepath")

	pgconfigTestCmd.Flags().StringVar(&configFilepath, "filepath", "", "Path to the configuration file (required)")
	pgconfigTestCmd.Flags().StringVar(&testConnType, "connection-type", "", "Override connection_type (normal, pool, async, async_pool)")
	pgconfigTestCmd.MarkFlagRequired("filepath")

	pgconfigCmd.AddCommand(pgconfigCreateCmd)
	pgconfigCmd.AddCommand(pgconfigTestCmd)
}

func runPgconfigCreate(cmd *cobra.Command, args []string) error {
	if err := config.WriteTemplate(configFilepath); err != nil {
		return err
	}
	fmt.Printf("Wrote configuration template to %s\n", configFilepath)
	fmt.Println("Edit the connection_settings section, then run: pgmonkey pgconfig test --filepath", configFilepath)
	return nil
}

func runPgconfigTest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var typ postgres.Type
	if testConnType != "" {
		parsed, err := postgres.ParseType(testConnType)
		if err != nil {
			return err
		}
		typ = parsed
	}

	return tools.TestConnection(ctx, mgr, configFilepath, typ)
}
