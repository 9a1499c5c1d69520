package manager

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"

	"github.com/RexBytes/pgmonkey/pkg/postgres"
)

// Fingerprint computes the cache key for a configuration tree and its
// resolved connection type: a hash of the canonicalized (key-order
// independent) tree concatenated with the type. Value-equal trees hash
// identically regardless of key order; any field difference, including the
// resolved type, changes the result.
func Fingerprint(tree map[string]any, typ postgres.Type) string {
	h := sha256.New()
	writeCanonical(h, tree)
	fmt.Fprintf(h, "|type=%s", typ)
	return hex.EncodeToString(h.Sum(nil))
}

// writeCanonical streams a deterministic, type-tagged encoding of v. Map
// keys are sorted; scalar encodings include the Go type so e.g. the int 1
// and the string "1" stay distinct.
func writeCanonical(w io.Writer, v any) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for key := range val {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		io.WriteString(w, "{")
		for _, key := range keys {
			fmt.Fprintf(w, "%q:", key)
			writeCanonical(w, val[key])
			io.WriteString(w, ",")
		}
		io.WriteString(w, "}")
	case []any:
		io.WriteString(w, "[")
		for _, item := range val {
			writeCanonical(w, item)
			io.WriteString(w, ",")
		}
		io.WriteString(w, "]")
	case string:
		fmt.Fprintf(w, "s%q", val)
	case nil:
		io.WriteString(w, "null")
	default:
		fmt.Fprintf(w, "%T(%v)", val, val)
	}
}
