package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/RexBytes/pgmonkey/pkg/manager"
)

// ServerAudit reads the running server's settings and prints recommended
// values sized from the host memory and expected connection count.
type ServerAudit struct {
	// MemoryMB is the total memory on the database host in megabytes.
	MemoryMB int
	// Connections is the expected peak number of client connections.
	Connections int
}

type settingRow struct {
	Name    string
	Setting string
	Unit    string
	Context string
}

// keys we audit, in display order
var auditedSettings = []string{
	"max_connections",
	"shared_buffers",
	"effective_cache_size",
	"work_mem",
	"maintenance_work_mem",
	"wal_buffers",
	"ssl",
	"listen_addresses",
}

// Run reports current values alongside recommendations. It never changes
// anything on the server.
func (a *ServerAudit) Run(ctx context.Context, mgr *manager.ConnectionManager, configPath string) error {
	conn, err := mgr.Get(ctx, configPath, manager.WithEnvResolution())
	if err != nil {
		return err
	}

	current := make(map[string]settingRow)
	err = conn.Session(ctx, func(ctx context.Context) error {
		cur, err := conn.Cursor(ctx)
		if err != nil {
			return err
		}
		defer cur.Close()

		rows, err := cur.Query(ctx,
			`SELECT name, setting, COALESCE(unit, ''), context
			 FROM pg_settings
			 WHERE name = ANY($1)`, auditedSettings)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var r settingRow
			if err := rows.Scan(&r.Name, &r.Setting, &r.Unit, &r.Context); err != nil {
				return err
			}
			current[r.Name] = r
		}
		return rows.Err()
	})
	if err != nil {
		return err
	}

	recs := a.recommendations()

	bold := color.New(color.Bold)
	yellow := color.New(color.FgYellow)

	bold.Printf("%-24s %-20s %-20s %s\n", "SETTING", "CURRENT", "RECOMMENDED", "RESTART")
	for _, name := range auditedSettings {
		row, ok := current[name]
		if !ok {
			continue
		}
		cur := row.Setting
		if row.Unit != "" {
			cur = cur + row.Unit
		}
		rec := recs[name]
		restart := ""
		if row.Context == "postmaster" {
			restart = "yes"
		}
		if rec != "" && rec != cur {
			yellow.Printf("%-24s %-20s %-20s %s\n", name, cur, rec, restart)
		} else {
			fmt.Printf("%-24s %-20s %-20s %s\n", name, cur, rec, restart)
		}
	}

	fmt.Println()
	fmt.Println("Suggested postgresql.conf lines:")
	names := make([]string, 0, len(recs))
	for name := range recs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if recs[name] == "" {
			continue
		}
		fmt.Printf("  %s = %s\n", name, confValue(recs[name]))
	}
	return nil
}

// recommendations follows the usual sizing rules: shared_buffers at a
// quarter of memory, effective_cache_size at three quarters, work_mem
// divided across the expected connections.
func (a *ServerAudit) recommendations() map[string]string {
	recs := make(map[string]string)
	if a.Connections > 0 {
		recs["max_connections"] = fmt.Sprintf("%d", a.Connections)
	}
	if a.MemoryMB > 0 {
		recs["shared_buffers"] = formatMB(a.MemoryMB / 4)
		recs["effective_cache_size"] = formatMB(a.MemoryMB * 3 / 4)
		recs["maintenance_work_mem"] = formatMB(min(a.MemoryMB/16, 2048))
		recs["wal_buffers"] = formatMB(min(a.MemoryMB/32, 16))
		conns := a.Connections
		if conns <= 0 {
			conns = 100
		}
		workMem := a.MemoryMB / 4 / conns
		if workMem < 1 {
			workMem = 1
		}
		recs["work_mem"] = formatMB(workMem)
	}
	return recs
}

func formatMB(mb int) string {
	if mb >= 1024 && mb%1024 == 0 {
		return fmt.Sprintf("%dGB", mb/1024)
	}
	return fmt.Sprintf("%dMB", mb)
}

func confValue(v string) string {
	if strings.ContainsAny(v, " \t") {
		return "'" + v + "'"
	}
	return v
}
