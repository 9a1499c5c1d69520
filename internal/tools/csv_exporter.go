package tools

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/RexBytes/pgmonkey/pkg/manager"
	"github.com/RexBytes/pgmonkey/pkg/pgmonkeyerrors"
)

// ExportSettings is the side-config that rides next to an exported CSV
// file, auto-created on first run.
type ExportSettings struct {
	IncludeHeaders bool   `yaml:"include_headers"`
	Delimiter      string `yaml:"delimiter"`
}

func defaultExportSettings() ExportSettings {
	return ExportSettings{
		IncludeHeaders: true,
		Delimiter:      ",",
	}
}

// CSVExporter streams a PostgreSQL table to a CSV file through a managed
// connection.
type CSVExporter struct {
	mgr        *manager.ConnectionManager
	configFile string
	csvFile    string
	schema     string
	table      string
	settings   ExportSettings
	progress   *ProgressTracker
}

// NewCSVExporter prepares an exporter. csvFile defaults to <table>.csv;
// exportConfigFile defaults to the CSV path with a .yaml extension.
func NewCSVExporter(mgr *manager.ConnectionManager, configFile, tableName, csvFile, exportConfigFile string, verbose bool) (*CSVExporter, error) {
	schema, table, err := splitTableName(tableName)
	if err != nil {
		return nil, err
	}

	if csvFile == "" {
		csvFile = table + ".csv"
	}
	if exportConfigFile == "" {
		exportConfigFile = sidecarPath(csvFile)
	}
	settings, err := loadOrCreateSettings(exportConfigFile, defaultExportSettings())
	if err != nil {
		return nil, err
	}
	if len(settings.Delimiter) != 1 {
		return nil, pgmonkeyerrors.New(pgmonkeyerrors.ErrorTypeConfig,
			"delimiter must be a single character")
	}

	return &CSVExporter{
		mgr:        mgr,
		configFile: configFile,
		csvFile:    csvFile,
		schema:     schema,
		table:      table,
		settings:   settings,
		progress:   NewProgressTracker(verbose),
	}, nil
}

// Run exports the table.
func (ex *CSVExporter) Run(ctx context.Context) error {
	file, err := os.Create(ex.csvFile)
	if err != nil {
		return fmt.Errorf("creating CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	writer.Comma = rune(ex.settings.Delimiter[0])

	conn, err := ex.mgr.Get(ctx, ex.configFile)
	if err != nil {
		return err
	}

	total := 0
	err = conn.Session(ctx, func(ctx context.Context) error {
		cur, err := conn.Cursor(ctx)
		if err != nil {
			return err
		}
		defer cur.Close()

		var expected int
		countStmt := fmt.Sprintf("SELECT COUNT(*) FROM %s.%s", ex.schema, ex.table)
		if err := cur.QueryRow(ctx, countStmt).Scan(&expected); err != nil {
			return fmt.Errorf("counting rows in %s.%s: %w", ex.schema, ex.table, err)
		}

		rows, err := cur.Query(ctx, fmt.Sprintf("SELECT * FROM %s.%s", ex.schema, ex.table))
		if err != nil {
			return fmt.Errorf("querying %s.%s: %w", ex.schema, ex.table, err)
		}
		defer rows.Close()

		if ex.settings.IncludeHeaders {
			fields := rows.FieldDescriptions()
			headers := make([]string, len(fields))
			for i, field := range fields {
				headers[i] = field.Name
			}
			if err := writer.Write(headers); err != nil {
				return fmt.Errorf("writing CSV header: %w", err)
			}
		}

		record := make([]string, 0, 16)
		for rows.Next() {
			values, err := rows.Values()
			if err != nil {
				return fmt.Errorf("reading row: %w", err)
			}
			record = record[:0]
			for _, value := range values {
				if value == nil {
					record = append(record, "")
				} else {
					record = append(record, fmt.Sprint(value))
				}
			}
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("writing CSV row: %w", err)
			}
			total++
			if expected > 0 && total%100 == 0 {
				ex.progress.Progress(total, expected, "Exporting "+ex.table)
			}
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("reading rows: %w", err)
		}

		ex.progress.FinishProgress()
		writer.Flush()
		return writer.Error()
	})
	if err != nil {
		return err
	}

	ex.progress.Complete("exported", total)
	return nil
}
