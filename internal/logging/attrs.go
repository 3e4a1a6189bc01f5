package logging

import (
	"log/slog"
	"strings"
)

const redacted = "<redacted>"

func resolveAttr(attr slog.Attr) (string, any) {
	if attr.Key == "" {
		return "", nil
	}
	value := attr.Value.Resolve()
	if value.Kind() != slog.KindGroup {
		return attr.Key, value.Any()
	}
	inner := map[string]any{}
	for _, groupAttr := range value.Group() {
		if key, val := resolveAttr(groupAttr); key != "" {
			inner[key] = val
		}
	}
	return attr.Key, inner
}

func attrsToMap(attrs []slog.Attr) map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	values := map[string]any{}
	for _, attr := range attrs {
		key, value := resolveAttr(attr)
		if key == "" {
			continue
		}
		values[key] = value
	}
	if len(values) == 0 {
		return nil
	}
	return values
}

func isSecretKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "secret", "password", "authorization", "auth_signature", "token":
		return true
	default:
		return strings.HasSuffix(strings.ToLower(key), "_secret")
	}
}

func redactFields(fields map[string]any) map[string]any {
	for key, value := range fields {
		if isSecretKey(key) {
			fields[key] = redacted
			continue
		}
		if group, ok := value.(map[string]any); ok {
			fields[key] = redactFields(group)
		}
	}
	return fields
}
