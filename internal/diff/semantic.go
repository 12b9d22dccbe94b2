package diff

import (
	"strconv"
	"strings"
)

const numericTolerance = 1e-9

// Equal reports semantic equality between two scalar leaves. A numeric
// string equals the number it denotes, and a "true"/"false" string
// (any case) equals the boolean. Coercion applies only across types;
// two strings always compare literally, so "1.10" stays distinct from
// "1.1".
func Equal(a, b any) bool {
	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			return as == bs
		}
	}
	if ab, aok := asBool(a); aok {
		if bb, bok := asBool(b); bok {
			return ab == bb
		}
	}
	if af, aok := asNumber(a); aok {
		if bf, bok := asNumber(b); bok {
			d := af - bf
			return d < numericTolerance && d > -numericTolerance
		}
	}
	return a == b
}

// sameClass reports whether two unequal scalars still share an
// equivalence class. The diff engine reports such pairs as value
// changes rather than type changes.
func sameClass(a, b any) bool {
	_, aStr := a.(string)
	_, bStr := b.(string)
	if aStr && bStr {
		return true
	}
	if _, aok := asBool(a); aok {
		if _, bok := asBool(b); bok {
			return true
		}
	}
	if _, aok := asNumber(a); aok {
		if _, bok := asNumber(b); bok {
			return true
		}
	}
	return a == nil && b == nil
}

func asBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(t) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err == nil {
			return f, true
		}
	}
	return 0, false
}

func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}
