package tools

import (
	"fmt"
	"strings"

	"github.com/RexBytes/pgmonkey/pkg/config"
	"github.com/RexBytes/pgmonkey/pkg/pgmonkeyerrors"
	"github.com/RexBytes/pgmonkey/pkg/postgres"
)

// GenerateExample renders a ready-to-run Go snippet showing how to use the
// connection described by the config file. connType may be empty to use the
// connection_type from the file. Nothing is connected; only the config is
// read.
func GenerateExample(configPath string, connType postgres.Type) (string, error) {
	tree, err := config.Load(configPath)
	if err != nil {
		return "", err
	}

	typ := connType
	if typ == "" {
		raw := "normal"
		if v, ok := tree["connection_type"]; ok && v != nil {
			s, ok := v.(string)
			if !ok {
				return "", pgmonkeyerrors.Newf(pgmonkeyerrors.ErrorTypeConfig,
					"connection_type must be a string, got %T", v)
			}
			if s != "" {
				raw = s
			}
		}
		typ, err = postgres.ParseType(raw)
		if err != nil {
			return "", err
		}
	} else if typ, err = postgres.ParseType(string(typ)); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, exampleHeader, typ, configPath)

	switch typ {
	case postgres.TypePool, postgres.TypeAsyncPool:
		fmt.Fprintf(&sb, examplePoolBody, configPath, typeConstName(typ))
	default:
		fmt.Fprintf(&sb, exampleDirectBody, configPath, typeConstName(typ))
	}
	return sb.String(), nil
}

// typeConstName maps a connection type to its Go constant name so the
// generated snippet compiles as written.
func typeConstName(typ postgres.Type) string {
	switch typ {
	case postgres.TypePool:
		return "TypePool"
	case postgres.TypeAsync:
		return "TypeAsync"
	case postgres.TypeAsyncPool:
		return "TypeAsyncPool"
	default:
		return "TypeNormal"
	}
}

const exampleHeader = `// Example usage for connection_type: %s
// Generated from %s
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/RexBytes/pgmonkey/pkg/manager"
	"github.com/RexBytes/pgmonkey/pkg/postgres"
)

`

const exampleDirectBody = `func main() {
	ctx := context.Background()

	mgr := manager.New()
	defer mgr.Close(ctx)

	conn, err := mgr.Get(ctx, %q,
		manager.WithEnvResolution(),
		manager.WithConnectionType(postgres.%s))
	if err != nil {
		log.Fatal(err)
	}

	// Session connects, commits on clean exit (rolls back on error), and
	// disconnects afterward.
	err = conn.Session(ctx, func(ctx context.Context) error {
		cur, err := conn.Cursor(ctx)
		if err != nil {
			return err
		}
		defer cur.Close()

		var version string
		if err := cur.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
			return err
		}
		fmt.Println(version)
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}
}
`

const examplePoolBody = `func main() {
	ctx := context.Background()

	mgr := manager.New()
	defer mgr.Close(ctx)

	conn, err := mgr.Get(ctx, %q,
		manager.WithEnvResolution(),
		manager.WithConnectionType(postgres.%s))
	if err != nil {
		log.Fatal(err)
	}

	// Session borrows one connection from the pool for the duration of fn
	// and returns it afterward. The pool itself stays open, so sessions can
	// run repeatedly and concurrently.
	err = conn.Session(ctx, func(ctx context.Context) error {
		cur, err := conn.Cursor(ctx)
		if err != nil {
			return err
		}
		defer cur.Close()

		var version string
		if err := cur.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
			return err
		}
		fmt.Println(version)
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}
}
`
