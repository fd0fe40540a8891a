package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"unicode/utf8"
)

// Property describes one tool parameter.
type Property struct {
	Type        string
	Description string
	Minimum     *float64
	Maximum     *float64
	MinLength   *int
	MaxLength   *int
	Enum        []any
	Items       *Property
}

// Schema is the object schema a tool accepts. It is built once when the tool
// is constructed and never changed afterwards.
type Schema struct {
	Properties map[string]Property
	Required   []string
}

// Bound returns a pointer for Property.Minimum and Property.Maximum.
func Bound(v float64) *float64 { return &v }

// Length returns a pointer for Property.MinLength and Property.MaxLength.
func Length(v int) *int { return &v }

// Map renders the schema in JSON Schema form for model function definitions.
func (s Schema) Map() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name, prop := range s.Properties {
		props[name] = prop.Map()
	}
	required := s.Required
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Map renders a single property.
func (p Property) Map() map[string]any {
	out := map[string]any{"type": p.Type}
	if p.Description != "" {
		out["description"] = p.Description
	}
	if p.Minimum != nil {
		out["minimum"] = schemaNumber(p.Type, *p.Minimum)
	}
	if p.Maximum != nil {
		out["maximum"] = schemaNumber(p.Type, *p.Maximum)
	}
	if p.MinLength != nil {
		out["minLength"] = *p.MinLength
	}
	if p.MaxLength != nil {
		out["maxLength"] = *p.MaxLength
	}
	if len(p.Enum) > 0 {
		out["enum"] = p.Enum
	}
	if p.Items != nil {
		out["items"] = p.Items.Map()
	}
	return out
}

func schemaNumber(kind string, v float64) any {
	if kind == "integer" {
		return int(v)
	}
	return v
}

// Validate checks args against the schema and returns one message per
// problem. An empty slice means the arguments are acceptable.
func (s Schema) Validate(args map[string]any) []string {
	errs := []string{}
	for _, name := range s.Required {
		if v, ok := args[name]; !ok || v == nil {
			errs = append(errs, "missing required "+name)
		}
	}
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		prop, ok := s.Properties[name]
		if !ok || args[name] == nil {
			continue
		}
		errs = append(errs, prop.validate(args[name], name)...)
	}
	return errs
}

func (p Property) validate(value any, label string) []string {
	if p.Type != "" && !matchesType(p.Type, value) {
		return []string{fmt.Sprintf("%s should be %s", label, p.Type)}
	}

	var errs []string
	if len(p.Enum) > 0 && !inEnum(p.Enum, value) {
		errs = append(errs, fmt.Sprintf("%s must be one of %v", label, p.Enum))
	}
	if p.Type == "integer" || p.Type == "number" {
		n, _ := toFloat(value)
		if p.Minimum != nil && n < *p.Minimum {
			errs = append(errs, fmt.Sprintf("%s must be >= %s", label, formatBound(*p.Minimum)))
		}
		if p.Maximum != nil && n > *p.Maximum {
			errs = append(errs, fmt.Sprintf("%s must be <= %s", label, formatBound(*p.Maximum)))
		}
	}
	if p.Type == "string" {
		length := utf8.RuneCountInString(value.(string))
		if p.MinLength != nil && length < *p.MinLength {
			errs = append(errs, fmt.Sprintf("%s must be at least %d chars", label, *p.MinLength))
		}
		if p.MaxLength != nil && length > *p.MaxLength {
			errs = append(errs, fmt.Sprintf("%s must be at most %d chars", label, *p.MaxLength))
		}
	}
	if p.Type == "array" && p.Items != nil {
		for i, item := range value.([]any) {
			errs = append(errs, p.Items.validate(item, fmt.Sprintf("%s[%d]", label, i))...)
		}
	}
	return errs
}

func matchesType(kind string, value any) bool {
	switch kind {
	case "string":
		_, ok := value.(string)
		return ok
	case "integer":
		n, ok := toFloat(value)
		return ok && n == math.Trunc(n)
	case "number":
		_, ok := toFloat(value)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	}
	return true
}

func inEnum(enum []any, value any) bool {
	for _, candidate := range enum {
		switch value.(type) {
		case string, bool:
			if candidate == value {
				return true
			}
		}
		if a, ok := toFloat(candidate); ok {
			if b, ok := toFloat(value); ok && a == b {
				return true
			}
		}
	}
	return false
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func stringArg(args map[string]any, name string) (string, bool) {
	v, ok := args[name].(string)
	return v, ok
}

// intArg reads an integral argument; fractional numbers are truncated.
func intArg(args map[string]any, name string) (int, bool) {
	n, ok := toFloat(args[name])
	if !ok || math.IsNaN(n) {
		return 0, false
	}
	if n > math.MaxInt32 {
		return math.MaxInt32, true
	}
	if n < math.MinInt32 {
		return math.MinInt32, true
	}
	return int(n), true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
