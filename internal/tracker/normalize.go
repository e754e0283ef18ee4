// Package tracker diffs fresh snapshots against the latest persisted state
// per size and emits observation rows only for genuine transitions.
package tracker

import (
	"strconv"
	"strings"
)

// Values arrive in heterogeneous shapes: floats read back from the store,
// display strings from the page, sentinels for fields that degraded. The
// normalizers collapse all of them to one comparable form so "220", 220 and
// 220.0 never register as a change.

// NormalizeNumber coerces v to a float. The second return is false when the
// value is unknown: nil, a nil pointer, a null-like sentinel, or unparsable.
func NormalizeNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case *float64:
		if n == nil {
			return 0, false
		}
		return *n, true
	case *int:
		if n == nil {
			return 0, false
		}
		return float64(*n), true
	case string:
		s := strings.TrimSpace(n)
		if isNullLike(s) {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// NormalizeBool coerces v to a bool. The second return is false when the
// value is unknown.
func NormalizeBool(v any) (value, known bool) {
	switch b := v.(type) {
	case nil:
		return false, false
	case bool:
		return b, true
	case *bool:
		if b == nil {
			return false, false
		}
		return *b, true
	case int:
		return b != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes", "t", "y":
			return true, true
		case "false", "0", "no", "f", "n", "":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}

// NormalizeString trims and case-folds for comparison; null-like sentinels
// collapse to the empty string.
func NormalizeString(v string) string {
	s := strings.TrimSpace(v)
	if isNullLike(s) {
		return ""
	}
	return strings.ToLower(s)
}

func isNullLike(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "n/a", "none", "null", "nan":
		return true
	default:
		return false
	}
}

// numbersEqual treats two unknowns as equal; one unknown against one known
// value is a change.
func numbersEqual(a, b any) bool {
	av, aknown := NormalizeNumber(a)
	bv, bknown := NormalizeNumber(b)
	if !aknown && !bknown {
		return true
	}
	if aknown != bknown {
		return false
	}
	return av == bv
}

func boolsEqual(a, b any) bool {
	av, aknown := NormalizeBool(a)
	bv, bknown := NormalizeBool(b)
	if !aknown && !bknown {
		return true
	}
	if aknown != bknown {
		return false
	}
	return av == bv
}
