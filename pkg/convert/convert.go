// Package convert extracts typed values from decoded YAML or JSON
// document trees (map[string]any with scalar leaves).
package convert

import (
	"fmt"
	"strconv"
)

var errNotMap = fmt.Errorf("value is not a map")
var errNotScalarValue = fmt.Errorf("map value is not a scalar")
var errNotSlice = fmt.Errorf("value is not a slice")
var errNotMapElement = fmt.Errorf("slice element is not a map[string]any")

// ToStringMap converts a decoded map to map[string]string, rendering
// scalar values (strings, booleans, numbers, null) as strings.
// Container values are an error. Returns a nil map for nil input.
func ToStringMap(data any) (map[string]string, error) {
	if data == nil {
		return nil, nil
	}
	if m, ok := data.(map[string]string); ok {
		return m, nil
	}
	mAny, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: input type %T", errNotMap, data)
	}
	result := make(map[string]string, len(mAny))
	for k, v := range mAny {
		s, ok := scalarString(v)
		if !ok {
			return nil, fmt.Errorf("key '%s': %w (type %T)", k, errNotScalarValue, v)
		}
		result[k] = s
	}
	return result, nil
}

// ToSliceOfString converts []string or []any to []string, rendering
// scalar elements as strings. Returns an empty slice for nil input.
func ToSliceOfString(data any) ([]string, error) {
	if data == nil {
		return []string{}, nil
	}
	if slice, ok := data.([]string); ok {
		return slice, nil
	}
	items, ok := data.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: input type %T", errNotSlice, data)
	}
	result := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := scalarString(item)
		if !ok {
			s = fmt.Sprintf("%v", item)
		}
		result = append(result, s)
	}
	return result, nil
}

// ToSliceOfMap converts []map[string]any or []any to []map[string]any.
// Returns an empty slice for nil input and an error for elements that
// are not maps.
func ToSliceOfMap(data any) ([]map[string]any, error) {
	if data == nil {
		return []map[string]any{}, nil
	}
	if sliceMap, ok := data.([]map[string]any); ok {
		return sliceMap, nil
	}
	items, ok := data.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: input type %T", errNotSlice, data)
	}
	result := make([]map[string]any, 0, len(items))
	for i, item := range items {
		mapItem, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("index %d: %w (type %T)", i, errNotMapElement, item)
		}
		result = append(result, mapItem)
	}
	return result, nil
}

// Dig descends nested maps along the key chain and reports whether the
// full chain exists.
func Dig(doc map[string]any, keys ...string) (any, bool) {
	var cur any = doc
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[k]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// DigString returns the string at the key chain, or "" when the chain
// is missing or the value is not a string.
func DigString(doc map[string]any, keys ...string) string {
	v, ok := Dig(doc, keys...)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// DigMap returns the map at the key chain, or nil when the chain is
// missing or the value is not a map.
func DigMap(doc map[string]any, keys ...string) map[string]any {
	v, ok := Dig(doc, keys...)
	if !ok {
		return nil
	}
	m, _ := v.(map[string]any)
	return m
}

// DigSlice returns the list at the key chain, or nil when the chain is
// missing or the value is not a list.
func DigSlice(doc map[string]any, keys ...string) []any {
	v, ok := Dig(doc, keys...)
	if !ok {
		return nil
	}
	s, _ := v.([]any)
	return s
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), true
	default:
		return "", false
	}
}
