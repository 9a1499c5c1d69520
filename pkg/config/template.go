package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/RexBytes/pgmonkey/pkg/pgmonkeyerrors"
)

// Template is the canonical starting-point configuration. Comments document
// every supported section; the file is meant to be edited in place.
const Template = `# pgmonkey PostgreSQL connection configuration.
#
# connection_type choices: normal | pool | async | async_pool
connection_type: normal

connection_settings:
  host: localhost
  port: 5432
  dbname: mydatabase
  user: myuser
  # Secrets may be inline, interpolated, or structured references:
  #   password: ${PGPASSWORD}
  #   password:
  #     from_file: /run/secrets/pgpassword
  password: ${PGPASSWORD}
  sslmode: prefer
  # sslcert: /path/to/client.crt
  # sslkey: /path/to/client.key
  # sslrootcert: /path/to/root.crt
  connect_timeout: 10
  application_name: pgmonkey
  # keepalives: 1
  # keepalives_idle: 30
  # keepalives_interval: 10
  # keepalives_count: 3

# Applied as session settings after connect for connection_type: normal | pool
sync_settings:
  # autocommit: false
  # work_mem: 64MB

# Applied as session settings after connect for connection_type: async | async_pool
async_settings:
  # autocommit: false

# Used when connection_type: pool
pool_settings:
  min_size: 1
  max_size: 10
  # check_on_checkout: true
  # max_lifetime: 30m
  # max_idle: 5m

# Used when connection_type: async_pool
async_pool_settings:
  min_size: 1
  max_size: 10
`

// WriteTemplate writes the configuration template to path, creating parent
// directories as needed. An existing file is never overwritten.
func WriteTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return pgmonkeyerrors.Newf(pgmonkeyerrors.ErrorTypeConfig,
			"configuration file already exists: %s (edit it to update settings)", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return pgmonkeyerrors.Wrap(err, pgmonkeyerrors.ErrorTypeConfig,
				fmt.Sprintf("creating directory for %s", path))
		}
	}

	if err := os.WriteFile(path, []byte(Template), 0o600); err != nil {
		return pgmonkeyerrors.Wrap(err, pgmonkeyerrors.ErrorTypeConfig,
			fmt.Sprintf("writing config template %s", path))
	}
	return nil
}
