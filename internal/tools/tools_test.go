package tools

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RexBytes/pgmonkey/pkg/manager"
)

func TestSplitTableName(t *testing.T) {
	schema, table, err := splitTableName("users")
	require.NoError(t, err)
	assert.Equal(t, "public", schema)
	assert.Equal(t, "users", table)

	schema, table, err = splitTableName("analytics.events")
	require.NoError(t, err)
	assert.Equal(t, "analytics", schema)
	assert.Equal(t, "events", table)

	for _, bad := range []string{
		"users; DROP TABLE users",
		"bad-name",
		"schema.tab.le",
		"",
		"1starts_with_digit",
		`sch"ema.t`,
	} {
		_, _, err := splitTableName(bad)
		assert.Error(t, err, bad)
	}
}

func TestValidColumn(t *testing.T) {
	assert.NoError(t, validColumn("user_id"))
	assert.NoError(t, validColumn("_private"))
	assert.Error(t, validColumn("user id"))
	assert.Error(t, validColumn("id;--"))
	assert.Error(t, validColumn(""))
}

func TestSidecarPath(t *testing.T) {
	assert.Equal(t, "/data/users.yaml", sidecarPath("/data/users.csv"))
	assert.Equal(t, "users.yaml", sidecarPath("users.csv"))
	assert.Equal(t, "noext.yaml", sidecarPath("noext"))
}

func TestLoadOrCreateSettings_CreatesWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "import.yaml")

	settings, err := loadOrCreateSettings(path, defaultImportSettings())
	require.NoError(t, err)
	assert.Equal(t, defaultImportSettings(), settings)

	// the file now exists and round-trips
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "has_headers: true")
	assert.Contains(t, string(data), "batch_size: 1000")
}

func TestLoadOrCreateSettings_LoadsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "import.yaml")
	content := "has_headers: false\nbatch_size: 50\ndelimiter: ';'\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	settings, err := loadOrCreateSettings(path, defaultImportSettings())
	require.NoError(t, err)
	assert.False(t, settings.HasHeaders)
	assert.Equal(t, 50, settings.BatchSize)
	assert.Equal(t, ";", settings.Delimiter)
	// keys absent from the file keep their defaults
	assert.True(t, settings.AutoCreateTable)
}

func TestLoadOrCreateSettings_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "import.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not: [valid"), 0o644))

	_, err := loadOrCreateSettings(path, defaultImportSettings())
	assert.Error(t, err)
}

func writeImportFixture(t *testing.T, csvContent string, settings string) (csvPath string) {
	t.Helper()
	dir := t.TempDir()
	csvPath = filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(csvContent), 0o644))
	if settings != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "data.yaml"), []byte(settings), 0o644))
	}
	return csvPath
}

func TestNewCSVImporter_Validation(t *testing.T) {
	mgr := manager.New()

	csvPath := writeImportFixture(t, "a,b\n1,2\n", "")
	_, err := NewCSVImporter(mgr, "pg.yaml", csvPath, "users; DROP", "", false)
	assert.Error(t, err)

	csvPath = writeImportFixture(t, "a,b\n", "batch_size: 0\ndelimiter: ','\n")
	_, err = NewCSVImporter(mgr, "pg.yaml", csvPath, "users", "", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch_size")

	csvPath = writeImportFixture(t, "a,b\n", "batch_size: 10\ndelimiter: '||'\n")
	_, err = NewCSVImporter(mgr, "pg.yaml", csvPath, "users", "", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delimiter")
}

func TestNewCSVImporter_CreatesSidecar(t *testing.T) {
	mgr := manager.New()
	csvPath := writeImportFixture(t, "a,b\n1,2\n", "")

	im, err := NewCSVImporter(mgr, "pg.yaml", csvPath, "analytics.events", "", false)
	require.NoError(t, err)
	assert.Equal(t, "analytics", im.schema)
	assert.Equal(t, "events", im.table)

	_, err = os.Stat(sidecarPath(csvPath))
	assert.NoError(t, err)
}

func TestReadHeader_WithHeaders(t *testing.T) {
	im := &CSVImporter{settings: defaultImportSettings()}
	reader := csv.NewReader(strings.NewReader("User_ID, Email \n1,a@b.c\n"))

	columns, firstRow, err := im.readHeader(reader)
	require.NoError(t, err)
	assert.Equal(t, []string{"user_id", "email"}, columns)
	assert.Nil(t, firstRow)
}

func TestReadHeader_CaseKeptWhenLowercaseDisabled(t *testing.T) {
	settings := defaultImportSettings()
	settings.EnforceLowercase = false
	im := &CSVImporter{settings: settings}
	reader := csv.NewReader(strings.NewReader("User_ID\n1\n"))

	columns, _, err := im.readHeader(reader)
	require.NoError(t, err)
	assert.Equal(t, []string{"User_ID"}, columns)
}

func TestReadHeader_NoHeaders(t *testing.T) {
	settings := defaultImportSettings()
	settings.HasHeaders = false
	im := &CSVImporter{settings: settings}
	reader := csv.NewReader(strings.NewReader("1,alice\n2,bob\n"))

	columns, firstRow, err := im.readHeader(reader)
	require.NoError(t, err)
	assert.Equal(t, []string{"col_1", "col_2"}, columns)
	// the first data row is preserved, not consumed as a header
	assert.Equal(t, []any{"1", "alice"}, firstRow)
}

func TestReadHeader_InvalidColumnName(t *testing.T) {
	im := &CSVImporter{settings: defaultImportSettings()}
	reader := csv.NewReader(strings.NewReader("id,bad name\n"))

	_, _, err := im.readHeader(reader)
	assert.Error(t, err)
}

func TestReadHeader_EmptyFile(t *testing.T) {
	im := &CSVImporter{settings: defaultImportSettings()}
	reader := csv.NewReader(strings.NewReader(""))

	_, _, err := im.readHeader(reader)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestServerAuditRecommendations(t *testing.T) {
	audit := &ServerAudit{MemoryMB: 16384, Connections: 200}
	recs := audit.recommendations()

	assert.Equal(t, "200", recs["max_connections"])
	assert.Equal(t, "4GB", recs["shared_buffers"])
	assert.Equal(t, "12GB", recs["effective_cache_size"])
	assert.Equal(t, "1GB", recs["maintenance_work_mem"])
	assert.Equal(t, "16MB", recs["wal_buffers"])
	assert.Equal(t, "20MB", recs["work_mem"])
}

func TestServerAuditRecommendations_NoSizing(t *testing.T) {
	recs := (&ServerAudit{}).recommendations()
	assert.Empty(t, recs)
}

func TestFormatMB(t *testing.T) {
	assert.Equal(t, "512MB", formatMB(512))
	assert.Equal(t, "1GB", formatMB(1024))
	assert.Equal(t, "3GB", formatMB(3072))
	assert.Equal(t, "1536MB", formatMB(1536))
}

func TestConfValue(t *testing.T) {
	assert.Equal(t, "4GB", confValue("4GB"))
	assert.Equal(t, "'local all'", confValue("local all"))
}
