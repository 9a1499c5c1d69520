package tools

import (
	"regexp"
	"strings"

	"github.com/RexBytes/pgmonkey/pkg/pgmonkeyerrors"
)

// identPattern is the shape of identifiers we accept for schema, table, and
// column names. Anything else is rejected rather than quoted, which keeps
// generated SQL free of interpolation surprises.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// splitTableName splits an optionally schema-qualified table name,
// defaulting the schema to public, and validates both parts.
func splitTableName(name string) (schema, table string, err error) {
	schema = "public"
	table = name
	if i := strings.IndexByte(name, '.'); i >= 0 {
		schema = name[:i]
		table = name[i+1:]
	}
	if !identPattern.MatchString(schema) || !identPattern.MatchString(table) {
		return "", "", pgmonkeyerrors.Newf(pgmonkeyerrors.ErrorTypeConfig,
			"invalid table name: %q (expected [schema.]table with plain identifiers)", name)
	}
	return schema, table, nil
}

// validColumn validates a single column name.
func validColumn(name string) error {
	if !identPattern.MatchString(name) {
		return pgmonkeyerrors.Newf(pgmonkeyerrors.ErrorTypeConfig,
			"invalid column name: %q", name)
	}
	return nil
}
