package tools

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"github.com/RexBytes/pgmonkey/pkg/manager"
	"github.com/RexBytes/pgmonkey/pkg/postgres"
)

// TestConnection gets a connection through the manager, runs the smoke
// check, and exercises the scoped-acquisition path with a round-trip query.
// connType may be empty to use the connection_type from the config file.
func TestConnection(ctx context.Context, mgr *manager.ConnectionManager, configPath string, connType postgres.Type) error {
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	opts := []manager.GetOption{manager.WithEnvResolution()}
	if connType != "" {
		opts = append(opts, manager.WithConnectionType(connType))
	}

	conn, err := mgr.Get(ctx, configPath, opts...)
	if err != nil {
		red.Printf("✗ connection failed: %v\n", err)
		return err
	}

	fmt.Printf("Testing %s connection...\n", conn.Type())

	if err := conn.TestConnection(ctx); err != nil {
		red.Printf("✗ smoke check failed: %v\n", err)
		return err
	}
	green.Println("✓ SELECT 1 smoke check passed")

	var version string
	err = conn.Session(ctx, func(ctx context.Context) error {
		cur, err := conn.Cursor(ctx)
		if err != nil {
			return err
		}
		defer cur.Close()
		return cur.QueryRow(ctx, "SELECT version()").Scan(&version)
	})
	if err != nil {
		red.Printf("✗ session round-trip failed: %v\n", err)
		return err
	}
	green.Println("✓ session scope round-trip passed")
	fmt.Printf("Server: %s\n", version)
	return nil
}
