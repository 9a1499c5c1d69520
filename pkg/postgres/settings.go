package postgres

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/RexBytes/pgmonkey/pkg/logger"
)

// applySessionSettings applies GUC session settings immediately after a
// connection is established. Each setting goes through the fully
// parameterized set_config() form, never string interpolation of the
// setting name. A setting that fails to apply is logged and skipped; the
// connection itself stays usable.
func applySessionSettings(ctx context.Context, q Querier, settings map[string]any) {
	names := make([]string, 0, len(settings))
	for name := range settings {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := fmt.Sprint(settings[name])
		if _, err := q.Exec(ctx, "SELECT set_config($1, $2, false)", name, value); err != nil {
			logger.Warn("could not apply session setting",
				zap.String("setting", name),
				zap.Error(err))
		}
	}
}

// splitSessionSettings separates the autocommit flag from the GUC settings
// in a sync_settings/async_settings section. autocommit controls statement
// transaction behavior on the client and is not a server GUC.
func splitSessionSettings(settings map[string]any) (gucs map[string]any, autocommit bool) {
	gucs = make(map[string]any, len(settings))
	for name, value := range settings {
		if name == "autocommit" {
			autocommit = asBool(value)
			continue
		}
		gucs[name] = value
	}
	return gucs, autocommit
}

func asBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		b, err := strconv.ParseBool(val)
		return err == nil && b
	default:
		return false
	}
}
