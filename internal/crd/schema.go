package crd

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"

	"github.com/chartsafe/helm-preview/internal/core/domain"
	"github.com/chartsafe/helm-preview/pkg/convert"
)

// SchemaForVersion returns the openAPIV3Schema of the named version,
// or nil when the version or its schema is absent.
func SchemaForVersion(rec *domain.CRDRecord, version string) map[string]any {
	for _, v := range rec.Versions {
		if v.Name == version {
			return v.Schema
		}
	}
	return nil
}

// ValidateInstances checks live custom-resource documents against an
// openAPIV3Schema node. Each violation yields one human-readable
// error prefixed with the instance's namespace/name. Null values pass
// type checks (nullable fields are common and the schema rarely says
// so).
func ValidateInstances(instances []map[string]any, schema map[string]any) []string {
	var errs []string
	for _, inst := range instances {
		name := convert.DigString(inst, "metadata", "name")
		if name == "" {
			name = "<unknown>"
		}
		prefix := name
		if ns := convert.DigString(inst, "metadata", "namespace"); ns != "" {
			prefix = ns + "/" + name
		}
		for _, e := range validateNode(inst, schema, "") {
			errs = append(errs, prefix+": "+e)
		}
	}
	return errs
}

func validateNode(value any, schema map[string]any, path string) []string {
	var errs []string

	schemaType, _ := schema["type"].(string)
	if schemaType != "" && !typeMatches(value, schemaType) {
		// Wrong type; descending further would only cascade errors.
		return []string{fmt.Sprintf("At '%s': expected type '%s', got '%s'", path, schemaType, typeName(value))}
	}

	if enum, ok := schema["enum"].([]any); ok && !enumContains(enum, value) {
		errs = append(errs, fmt.Sprintf("At '%s': value '%v' not in enum %v", path, value, enum))
	}

	if pattern, ok := schema["pattern"].(string); ok {
		if s, isStr := value.(string); isStr {
			// Patterns match from the start of the value.
			if re, err := regexp.Compile(`\A(?:` + pattern + `)`); err == nil && !re.MatchString(s) {
				errs = append(errs, fmt.Sprintf("At '%s': value '%s' does not match pattern '%s'", path, s, pattern))
			}
		}
	}

	if minVal, ok := asFloat(schema["minimum"]); ok {
		if v, isNum := asFloat(value); isNum && v < minVal {
			errs = append(errs, fmt.Sprintf("At '%s': value %v < minimum %v", path, value, schema["minimum"]))
		}
	}
	if maxVal, ok := asFloat(schema["maximum"]); ok {
		if v, isNum := asFloat(value); isNum && v > maxVal {
			errs = append(errs, fmt.Sprintf("At '%s': value %v > maximum %v", path, value, schema["maximum"]))
		}
	}

	if schemaType == "object" {
		if obj, ok := value.(map[string]any); ok {
			errs = append(errs, validateObject(obj, schema, path)...)
		}
	}

	if schemaType == "array" {
		if list, ok := value.([]any); ok {
			items, _ := schema["items"].(map[string]any)
			for i, item := range list {
				errs = append(errs, validateNode(item, items, fmt.Sprintf("%s[%d]", path, i))...)
			}
		}
	}

	return errs
}

func validateObject(obj map[string]any, schema map[string]any, path string) []string {
	var errs []string
	properties, _ := schema["properties"].(map[string]any)

	required, _ := schema["required"].([]any)
	for _, r := range required {
		name, _ := r.(string)
		if name == "" {
			continue
		}
		if _, present := obj[name]; !present {
			errs = append(errs, fmt.Sprintf("At '%s': missing required field '%s'", path, name))
		}
	}

	for _, propName := range sortedKeys(properties) {
		child, present := obj[propName]
		if !present {
			continue
		}
		propSchema, _ := properties[propName].(map[string]any)
		errs = append(errs, validateNode(child, propSchema, childPath(path, propName))...)
	}

	switch additional := schema["additionalProperties"].(type) {
	case bool:
		if !additional {
			for _, key := range sortedKeys(obj) {
				if _, known := properties[key]; known {
					continue
				}
				// Top-level envelope fields are never schema properties.
				switch key {
				case "apiVersion", "kind", "metadata", "status":
					continue
				}
				errs = append(errs, fmt.Sprintf("At '%s': unknown field '%s'", path, key))
			}
		}
	case map[string]any:
		for _, key := range sortedKeys(obj) {
			if _, known := properties[key]; known {
				continue
			}
			errs = append(errs, validateNode(obj[key], additional, childPath(path, key))...)
		}
	}

	return errs
}

func typeMatches(value any, schemaType string) bool {
	if value == nil {
		return true
	}
	switch schemaType {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "integer":
		switch value.(type) {
		case int, int64:
			return true
		}
		return false
	case "number":
		switch value.(type) {
		case int, int64, float64:
			return true
		}
		return false
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	}
	// Unknown schema type, don't reject.
	return true
}

func typeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int64:
		return "integer"
	case float64:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	return fmt.Sprintf("%T", value)
}

func enumContains(enum []any, value any) bool {
	va, vok := asFloat(value)
	for _, e := range enum {
		if reflect.DeepEqual(e, value) {
			return true
		}
		if ea, eok := asFloat(e); eok && vok && ea == va {
			return true
		}
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func childPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
