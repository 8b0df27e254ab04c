// Package weights validates and rescales per-field weightings.
package weights

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Map assigns a weight to a field name.
type Map map[string]float64

// Keys returns the field names in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone copies the map.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Sum adds the weights in sorted key order.
func (m Map) Sum() float64 {
	var total float64
	for _, k := range m.Keys() {
		total += m[k]
	}
	return total
}

// Normalize validates w and returns a new map with the same keys whose
// values sum to 1. The input is never modified.
func Normalize(w Map) (Map, error) {
	if len(w) == 0 {
		return nil, ErrEmptyWeights
	}
	for _, k := range w.Keys() {
		v := w[k]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s", ErrNonFiniteWeight, k)
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: %s=%g", ErrNegativeWeight, k, v)
		}
	}
	peak := 0.0
	for _, v := range w {
		peak = math.Max(peak, v)
	}
	if peak <= 0 {
		return nil, ErrNonPositiveTotal
	}
	// Scaling by the largest weight first keeps the sum finite.
	scaled := make(Map, len(w))
	for k, v := range w {
		scaled[k] = v / peak
	}
	total := scaled.Sum()
	out := make(Map, len(w))
	for k, v := range scaled {
		out[k] = v / total
	}
	return out, nil
}

// Parse reads "field=weight" pairs separated by commas, e.g.
// "quiz_avg=0.2,quarter_exam=0.3". Validation is left to Normalize.
func Parse(s string) (Map, error) {
	out := make(Map)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("weight %q: expected field=value", part)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, fmt.Errorf("weight %q: %w", part, err)
		}
		out[key] = f
	}
	return out, nil
}
