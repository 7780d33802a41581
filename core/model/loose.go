package model

import (
	"math"
	"strconv"
	"strings"
)

// AsString returns a trimmed, non-empty string from a loosely-typed value.
// Numbers are formatted without trailing zeros.
func AsString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	default:
		return "", false
	}
}

// AsBool interprets booleans, "true"/"false" strings and 0/1 numbers.
func AsBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return b, err == nil
	case float64:
		if t == 0 || t == 1 {
			return t == 1, true
		}
	}
	return false, false
}

// AsInt interprets integral numbers and numeric strings.
func AsInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int(t), true
	case int:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	}
	return 0, false
}

// IntField wraps AsInt into a Field.
func IntField(v any) Field[int] {
	if n, ok := AsInt(v); ok {
		return Parsed(n)
	}
	return Fallback[int]()
}
