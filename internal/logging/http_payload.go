package logging

import (
	"bytes"
	"encoding/json"
	"strings"
)

const maxPayloadLogBytes = 4096

// FormatHTTPPayload normalizes request/response bodies for log output:
// JSON is pretty-printed without HTML escaping, anything else is trimmed
// and clipped.
func FormatHTTPPayload(raw []byte) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "<empty>"
	}

	// A JSON string wrapping JSON, e.g. the "data" field of an event.
	var quoted string
	if err := json.Unmarshal([]byte(trimmed), &quoted); err == nil {
		trimmed = strings.TrimSpace(quoted)
	}

	var value any
	if err := json.Unmarshal([]byte(trimmed), &value); err == nil {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(value); encErr == nil {
			return strings.TrimSpace(buf.String())
		}
	}

	if len(trimmed) > maxPayloadLogBytes {
		return trimmed[:maxPayloadLogBytes] + "..."
	}
	return trimmed
}
