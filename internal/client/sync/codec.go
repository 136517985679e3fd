package sync

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// decodeLocal turns a locally stored string into the value uploaded to
// the remote document: JSON if it parses, the raw string otherwise.
func decodeLocal(value string) any {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return value
	}
	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		return parsed
	}
	return value
}

// encodeRemote turns a remote document value into the string stored
// locally. Scalars keep their natural text form; structured values are
// JSON encoded.
func encodeRemote(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "null", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return formatNumber(v), nil
	case json.Number:
		return v.String(), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to encode value: %w", err)
		}
		return string(data), nil
	}
}

// formatNumber renders a JSON number the way the app stores it:
// integers without a decimal point.
func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// asNumber extracts a numeric value from a decoded JSON value.
func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// asMap extracts an object from a decoded JSON value, tolerating a
// JSON-encoded string form.
func asMap(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(v), &m); err == nil {
			return m, true
		}
		return nil, false
	default:
		return nil, false
	}
}

// asSlice extracts an array from a decoded JSON value, tolerating a
// JSON-encoded string form.
func asSlice(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case string:
		var s []any
		if err := json.Unmarshal([]byte(v), &s); err == nil {
			return s, true
		}
		return nil, false
	default:
		return nil, false
	}
}

// isFalsy mirrors the app's notion of an unusable value: nil, empty
// string, or the literal "null"/"undefined" strings.
func isFalsy(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		switch strings.TrimSpace(v) {
		case "", "null", "undefined":
			return true
		}
	}
	return false
}
