package config

// Redacted is the marker that replaces sensitive values in redacted trees.
const Redacted = "***REDACTED***"

// Redact returns a deep copy of tree with sensitive values masked so the
// result is safe to print or log. Non-empty sensitive values are replaced
// with the Redacted marker; empty strings and nils pass through unchanged
// (nothing to leak). The input is never mutated and Redact never fails.
func Redact(tree map[string]any) map[string]any {
	if tree == nil {
		return nil
	}
	result := make(map[string]any, len(tree))
	for key, value := range tree {
		switch v := value.(type) {
		case map[string]any:
			result[key] = Redact(v)
		default:
			if IsSensitiveKey(key) && !isEmptyValue(v) {
				result[key] = Redacted
			} else {
				result[key] = deepCopyValue(v)
			}
		}
	}
	return result
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return Redact(val)
	case []any:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = deepCopyValue(item)
		}
		return items
	default:
		return v
	}
}
