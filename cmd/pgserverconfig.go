package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/RexBytes/pgmonkey/internal/tools"
)

var (
	serverConnConfig  string
	serverMemoryMB    int
	serverConnections int
)

var pgserverconfigCmd = &cobra.Command{
	Use:   "pgserverconfig",
	Short: "Audit server settings and print tuning recommendations",
	Long: `pgserverconfig reads pg_settings through a pgmonkey connection and prints
recommended values sized from the host memory and expected connection count.
It never modifies the server.`,
	RunE: runPgserverconfig,
}

func init() {
	pgserverconfigCmd.Flags().StringVar(&serverConnConfig, "connconfig", "", "Connection configuration file (required)")
	pgserverconfigCmd.Flags().IntVar(&serverMemoryMB, "memory", 0, "Total host memory in MB used for sizing recommendations")
	pgserverconfigCmd.Flags().IntVar(&serverConnections, "connections", 0, "Expected peak client connections")

	pgserverconfigCmd.MarkFlagRequired("connconfig")
}

func runPgserverconfig(cmd *cobra.Command, args []string) error {
	audit := &tools.ServerAudit{
		MemoryMB:    serverMemoryMB,
		Connections: serverConnections,
	}
	return audit.Run(context.Background(), mgr, serverConnConfig)
}
