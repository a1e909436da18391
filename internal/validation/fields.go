package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// lookup distinguishes an absent key from a key present with a null value
func lookup(raw map[string]interface{}, key string) (interface{}, bool) {
	if raw == nil {
		return nil, false
	}
	v, ok := raw[key]
	return v, ok
}

// asMap accepts both decoded JSON objects and YAML mappings with interface keys
func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func asSlice(v interface{}) ([]interface{}, bool) {
	switch s := v.(type) {
	case []interface{}:
		return s, true
	case []string:
		out := make([]interface{}, len(s))
		for i, str := range s {
			out[i] = str
		}
		return out, true
	case []map[string]interface{}:
		out := make([]interface{}, len(s))
		for i, m := range s {
			out[i] = m
		}
		return out, true
	default:
		return nil, false
	}
}

// asInt accepts whole numbers that fit an int
func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		if n < math.MinInt || n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case int32:
		return int(n), true
	case uint64:
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || n < math.MinInt || n >= -math.MinInt {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return asInt(i)
	default:
		return 0, false
	}
}

// normalize rewrites nested YAML mappings into map[string]interface{} so records
// encode cleanly as JSON
func normalize(v interface{}) interface{} {
	if m, ok := asMap(v); ok {
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			out[k] = normalize(val)
		}
		return out
	}
	if s, ok := v.([]interface{}); ok {
		out := make([]interface{}, len(s))
		for i, val := range s {
			out[i] = normalize(val)
		}
		return out
	}
	return v
}

// requiredString reads a required text field. Absent and null values are reported missing.
func requiredString(raw map[string]interface{}, key, path string, errs *fieldErrors) string {
	v, ok := lookup(raw, key)
	if !ok || v == nil {
		errs.missing(path)
		return ""
	}
	s, ok := v.(string)
	if !ok {
		errs.mismatch(path, "string", v)
		return ""
	}
	return s
}

func optionalString(raw map[string]interface{}, key, path string, errs *fieldErrors) string {
	v, ok := lookup(raw, key)
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		errs.mismatch(path, "string", v)
		return ""
	}
	return s
}

func optionalBool(raw map[string]interface{}, key, path string, def bool, errs *fieldErrors) bool {
	v, ok := lookup(raw, key)
	if !ok || v == nil {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		errs.mismatch(path, "boolean", v)
		return def
	}
	return b
}

func index(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
