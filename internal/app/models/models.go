package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the format used for timestamps in ToMap output.
const TimestampLayout = "2006-01-02 15:04:05"

// IDKey is the raw-map key carrying the store identifier.
const IDKey = "_id"

// now is replaced in tests.
var now = func() time.Time { return time.Now().UTC() }

// formatTimestamp renders t for ToMap; a zero time renders as nil.
func formatTimestamp(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(TimestampLayout)
}

// asString coerces a raw document value to text. nil becomes "", so a
// stored null and an empty string read back the same.
func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.UTC().Format(TimestampLayout)
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, asString(e))
		}
		return strings.Join(parts, ", ")
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// asBool coerces a raw value to a flag; unrecognised values are false.
func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	case int:
		return t != 0
	case int32:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return false
	}
}

// asInt64 coerces a raw value to an integer; unrecognised values are 0.
func asInt64(v any) int64 {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case float32:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

var timeLayouts = []string{time.RFC3339Nano, TimestampLayout}

// asTime coerces a raw value to a UTC timestamp. A present but null or
// unparseable value yields the zero time ("unset").
func asTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC()
			}
		}
	}
	return time.Time{}
}

// timeOr reads key from m, defaulting to the current time when absent.
func timeOr(m map[string]any, key string) time.Time {
	v, ok := m[key]
	if !ok {
		return now()
	}
	return asTime(v)
}

// stringOr reads key from m, defaulting to def when absent.
func stringOr(m map[string]any, key, def string) string {
	v, ok := m[key]
	if !ok {
		return def
	}
	return asString(v)
}
