package auditsvc

import (
	"encoding/json"

	"github.com/corray333/backend-labs/shop/internal/service/models/auditlog"
)

// RedactionMarker replaces the value of a sensitive field.
const RedactionMarker = "[REDACTED]"

var sensitiveFields = []string{"password", "token", "secret", "key"}

// Sanitize returns a copy of s in which sensitive fields carrying a value are
// replaced by RedactionMarker, at the top level and inside a nested "data"
// object. The input is never modified.
func Sanitize(s auditlog.Snapshot) auditlog.Snapshot {
	if s == nil {
		return nil
	}

	out := redact(s)
	switch data := s["data"].(type) {
	case map[string]any:
		out["data"] = map[string]any(redact(data))
	case auditlog.Snapshot:
		out["data"] = redact(data)
	}

	return out
}

func redact(m map[string]any) auditlog.Snapshot {
	out := make(auditlog.Snapshot, len(m))
	for k, v := range m {
		out[k] = v
	}

	for _, field := range sensitiveFields {
		if hasValue(out[field]) {
			out[field] = RedactionMarker
		}
	}

	return out
}

// hasValue reports whether v is set to something other than an empty value.
func hasValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}
