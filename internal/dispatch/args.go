package dispatch

import (
	"encoding/json"
	"math"
	"slices"
	"strings"

	"github.com/canre-io/canre/pkg/protocol"
)

// Args reads tool arguments and keeps the first validation failure. A key
// holding JSON null counts as absent.
type Args struct {
	raw map[string]any
	err *protocol.ToolError
}

// NewArgs wraps an argument bag. A nil map is treated as empty.
func NewArgs(raw map[string]any) *Args {
	if raw == nil {
		raw = map[string]any{}
	}
	return &Args{raw: raw}
}

// Err returns the first validation failure, or nil.
func (a *Args) Err() error {
	if a.err == nil {
		return nil
	}
	return a.err
}

func (a *Args) fail(format string, args ...any) {
	if a.err == nil {
		a.err = protocol.InvalidParams(format, args...)
	}
}

func (a *Args) lookup(key string) (any, bool) {
	v, ok := a.raw[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// City reads the required "city" argument.
func (a *Args) City() string {
	v, _ := a.lookup("city")
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		a.fail("City is required")
		return ""
	}
	return s
}

// Cities reads the required "cities" argument: between lo and hi
// non-empty strings.
func (a *Args) Cities(lo, hi int) []string {
	v, _ := a.lookup("cities")
	list, ok := v.([]any)
	if !ok {
		if typed, isStrings := v.([]string); isStrings {
			list = make([]any, len(typed))
			for i, s := range typed {
				list[i] = s
			}
			ok = true
		}
	}
	if !ok || len(list) < lo {
		a.fail("At least %d cities are required for comparison", lo)
		return nil
	}
	if len(list) > hi {
		a.fail("At most %d cities can be compared", hi)
		return nil
	}
	cities := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok || strings.TrimSpace(s) == "" {
			a.fail("Each city must be a non-empty string")
			return nil
		}
		cities = append(cities, s)
	}
	return cities
}

// String reads an optional free-form string.
func (a *Args) String(key string) string {
	v, present := a.lookup(key)
	if !present {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		a.fail("%s must be a string", key)
		return ""
	}
	return s
}

// Enum reads an optional string restricted to allowed, defaulting to def.
func (a *Args) Enum(key string, allowed []string, def string) string {
	v, present := a.lookup(key)
	if !present {
		return def
	}
	s, ok := v.(string)
	if !ok || !slices.Contains(allowed, s) {
		a.fail("%s must be one of %s", key, strings.Join(allowed, ", "))
		return def
	}
	return s
}

// EnumList reads an optional array of strings restricted to allowed.
func (a *Args) EnumList(key string, allowed, def []string) []string {
	v, present := a.lookup(key)
	if !present {
		return def
	}
	var items []string
	switch list := v.(type) {
	case []string:
		items = list
	case []any:
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				a.fail("%s must be an array of strings", key)
				return def
			}
			items = append(items, s)
		}
	default:
		a.fail("%s must be an array of strings", key)
		return def
	}
	for _, s := range items {
		if !slices.Contains(allowed, s) {
			a.fail("%s must only contain %s", key, strings.Join(allowed, ", "))
			return def
		}
	}
	if items == nil {
		items = []string{}
	}
	return items
}

// Number reads an optional number within [lo, hi], defaulting to def.
// A NaN bound means unbounded on that side.
func (a *Args) Number(key string, def, lo, hi float64) float64 {
	v, present := a.lookup(key)
	if !present {
		return def
	}
	f, ok := toFloat(v)
	if !ok {
		a.fail("%s must be a number", key)
		return def
	}
	if !math.IsNaN(lo) && f < lo {
		a.fail("%s must be at least %v", key, lo)
		return def
	}
	if !math.IsNaN(hi) && f > hi {
		a.fail("%s must be at most %v", key, hi)
		return def
	}
	return f
}

// PriceRange is the optional listing price filter. A zero or missing bound
// does not filter.
type PriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// PriceRange reads the optional "priceRange" object.
func (a *Args) PriceRange() *PriceRange {
	v, present := a.lookup("priceRange")
	if !present {
		return nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		a.fail("priceRange must be an object")
		return nil
	}
	pr := &PriceRange{}
	bounds := []struct {
		key string
		dst **float64
	}{{"min", &pr.Min}, {"max", &pr.Max}}
	for _, b := range bounds {
		key := b.key
		raw, present := obj[key]
		if !present || raw == nil {
			continue
		}
		f, ok := toFloat(raw)
		if !ok || f < 0 {
			a.fail("priceRange.%s must be a non-negative number", key)
			return nil
		}
		*b.dst = &f
	}
	return pr
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
