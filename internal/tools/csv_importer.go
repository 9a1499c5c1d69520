package tools

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/RexBytes/pgmonkey/pkg/manager"
	"github.com/RexBytes/pgmonkey/pkg/pgmonkeyerrors"
	"github.com/RexBytes/pgmonkey/pkg/postgres"
)

// ImportSettings is the side-config that rides next to an imported CSV
// file, auto-created on first run so defaults are visible and editable.
type ImportSettings struct {
	HasHeaders       bool   `yaml:"has_headers"`
	AutoCreateTable  bool   `yaml:"auto_create_table"`
	EnforceLowercase bool   `yaml:"enforce_lowercase"`
	BatchSize        int    `yaml:"batch_size"`
	Delimiter        string `yaml:"delimiter"`
}

func defaultImportSettings() ImportSettings {
	return ImportSettings{
		HasHeaders:       true,
		AutoCreateTable:  true,
		EnforceLowercase: true,
		BatchSize:        1000,
		Delimiter:        ",",
	}
}

// CSVImporter loads a CSV file into a PostgreSQL table through a managed
// connection, in batched multi-row INSERTs inside one session scope.
type CSVImporter struct {
	mgr        *manager.ConnectionManager
	configFile string
	csvFile    string
	schema     string
	table      string
	settings   ImportSettings
	progress   *ProgressTracker
}

// NewCSVImporter prepares an importer. importConfigFile defaults to the CSV
// path with a .yaml extension and is created with defaults when missing.
func NewCSVImporter(mgr *manager.ConnectionManager, configFile, csvFile, tableName, importConfigFile string, verbose bool) (*CSVImporter, error) {
	schema, table, err := splitTableName(tableName)
	if err != nil {
		return nil, err
	}

	if importConfigFile == "" {
		importConfigFile = sidecarPath(csvFile)
	}
	settings, err := loadOrCreateSettings(importConfigFile, defaultImportSettings())
	if err != nil {
		return nil, err
	}
	if settings.BatchSize <= 0 {
		return nil, pgmonkeyerrors.New(pgmonkeyerrors.ErrorTypeConfig,
			"batch_size must be a positive integer")
	}
	if len(settings.Delimiter) != 1 {
		return nil, pgmonkeyerrors.New(pgmonkeyerrors.ErrorTypeConfig,
			"delimiter must be a single character")
	}

	return &CSVImporter{
		mgr:        mgr,
		configFile: configFile,
		csvFile:    csvFile,
		schema:     schema,
		table:      table,
		settings:   settings,
		progress:   NewProgressTracker(verbose),
	}, nil
}

// Run imports the CSV file. Commit-on-clean-exit and teardown come from the
// connection's session scope.
func (im *CSVImporter) Run(ctx context.Context) error {
	file, err := os.Open(im.csvFile)
	if err != nil {
		return fmt.Errorf("opening CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = rune(im.settings.Delimiter[0])
	reader.ReuseRecord = true

	columns, firstRow, err := im.readHeader(reader)
	if err != nil {
		return err
	}

	conn, err := im.mgr.Get(ctx, im.configFile)
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

		if im.settings.AutoCreateTable {
			if err := im.createTable(ctx, cur, columns); err != nil {
				return err
			}
		}

		batch := make([][]any, 0, im.settings.BatchSize)
		if firstRow != nil {
			batch = append(batch, firstRow)
		}
		for {
			record, err := reader.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return fmt.Errorf("reading CSV row: %w", err)
			}
			row := make([]any, len(record))
			for i, field := range record {
				row[i] = field
			}
			batch = append(batch, row)

			if len(batch) >= im.settings.BatchSize {
				if err := im.insertBatch(ctx, cur, columns, batch); err != nil {
					return err
				}
				total += len(batch)
				im.progress.Info("imported %d rows", total)
				batch = batch[:0]
			}
		}
		if len(batch) > 0 {
			if err := im.insertBatch(ctx, cur, columns, batch); err != nil {
				return err
			}
			total += len(batch)
		}
		return nil
	})
	if err != nil {
		return err
	}

	im.progress.Complete("imported", total)
	return nil
}

// readHeader determines column names. Without headers the first data row is
// returned so it is not lost.
func (im *CSVImporter) readHeader(reader *csv.Reader) (columns []string, firstRow []any, err error) {
	record, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, pgmonkeyerrors.New(pgmonkeyerrors.ErrorTypeConfig, "CSV file is empty")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading CSV header: %w", err)
	}

	if im.settings.HasHeaders {
		columns = make([]string, len(record))
		for i, name := range record {
			name = strings.TrimSpace(name)
			if im.settings.EnforceLowercase {
				name = strings.ToLower(name)
			}
			if err := validColumn(name); err != nil {
				return nil, nil, err
			}
			columns[i] = name
		}
		return columns, nil, nil
	}

	columns = make([]string, len(record))
	firstRow = make([]any, len(record))
	for i, field := range record {
		columns[i] = fmt.Sprintf("col_%d", i+1)
		firstRow[i] = field
	}
	return columns, firstRow, nil
}

func (im *CSVImporter) createTable(ctx context.Context, cur *postgres.Cursor, columns []string) error {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = col + " TEXT"
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s.%s (%s)",
		im.schema, im.table, strings.Join(defs, ", "))
	if _, err := cur.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("creating table %s.%s: %w", im.schema, im.table, err)
	}
	return nil
}

// insertBatch issues one multi-row INSERT for the batch.
func (im *CSVImporter) insertBatch(ctx context.Context, cur *postgres.Cursor, columns []string, batch [][]any) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s.%s (%s) VALUES ",
		im.schema, im.table, strings.Join(columns, ", "))

	args := make([]any, 0, len(batch)*len(columns))
	placeholder := 1
	for rowIdx, row := range batch {
		if len(row) != len(columns) {
			return pgmonkeyerrors.Newf(pgmonkeyerrors.ErrorTypeConfig,
				"CSV row has %d fields, expected %d", len(row), len(columns))
		}
		if rowIdx > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for colIdx, value := range row {
			if colIdx > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", placeholder)
			placeholder++
			args = append(args, value)
		}
		sb.WriteString(")")
	}

	if _, err := cur.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("inserting batch into %s.%s: %w", im.schema, im.table, err)
	}
	return nil
}

// sidecarPath returns the YAML side-config path for a data file.
func sidecarPath(dataFile string) string {
	ext := filepath.Ext(dataFile)
	return strings.TrimSuffix(dataFile, ext) + ".yaml"
}

// loadOrCreateSettings loads a side-config file, writing it with defaults
// first when it does not exist yet.
func loadOrCreateSettings[T any](path string, defaults T) (T, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		data, err := yaml.Marshal(defaults)
		if err != nil {
			return defaults, err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return defaults, fmt.Errorf("creating side-config %s: %w", path, err)
		}
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return defaults, fmt.Errorf("reading side-config %s: %w", path, err)
	}
	settings := defaults
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return defaults, fmt.Errorf("parsing side-config %s: %w", path, err)
	}
	return settings, nil
}
