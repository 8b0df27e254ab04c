// Package mapping assigns spreadsheet columns to canonical schema fields and
// converts a raw table into a canonical dataset.
package mapping

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/gradelens/internal/domain/dataset"
	"github.com/okian/gradelens/internal/domain/model"
	"github.com/okian/gradelens/internal/domain/schema"
)

// None marks a canonical field as deliberately unmapped.
const None = "(none)"

// ErrMissingRequired is returned when a required field has no source column.
var ErrMissingRequired = errors.New("required fields are not mapped")

// Mapping assigns a source column header to each canonical key.
type Mapping map[string]string

// Source returns the mapped header of key, or false when unmapped.
func (m Mapping) Source(key string) (string, bool) {
	h, ok := m[key]
	if !ok || h == "" || h == None {
		return "", false
	}
	return h, true
}

// Suggest proposes a mapping: for each field, the first header that contains
// one of the field's example hints (case-insensitive). Fields with no match
// map to None.
func Suggest(s *schema.Schema, headers []string) Mapping {
	out := make(Mapping, len(s.Fields))
	for _, f := range s.Fields {
		out[f.Key] = None
		for _, h := range headers {
			if matches(h, f) {
				out[f.Key] = h
				break
			}
		}
	}
	return out
}

func matches(header string, f schema.Field) bool {
	h := strings.ToLower(strings.TrimSpace(header))
	if h == "" {
		return false
	}
	if h == f.Key {
		return true
	}
	for _, ex := range f.Examples {
		ex = strings.ToLower(strings.TrimSpace(ex))
		if ex != "" && strings.Contains(h, ex) {
			return true
		}
	}
	return false
}

// MissingRequired returns the display labels of required fields m leaves unmapped.
func MissingRequired(s *schema.Schema, m Mapping) []string {
	var out []string
	for _, f := range s.Required() {
		if _, ok := m.Source(f.Key); !ok {
			out = append(out, f.DisplayLabel())
		}
	}
	return out
}

// Validate fails with ErrMissingRequired when a required field is unmapped.
func Validate(s *schema.Schema, m Mapping) error {
	if missing := MissingRequired(s, m); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(missing, ", "))
	}
	return nil
}

// Columns renames the mapped source columns to canonical keys, in schema
// order. Mapped headers that do not exist in the table are skipped. Empty
// cells become absent values; everything else stays text.
func Columns(t dataset.Table, m Mapping, s *schema.Schema) dataset.Dataset {
	type pick struct{ key, header string }
	var picks []pick
	for _, key := range s.Keys() {
		h, ok := m.Source(key)
		if !ok || !hasHeader(t, h) {
			continue
		}
		picks = append(picks, pick{key, h})
	}

	cols := make([]string, len(picks))
	for i, p := range picks {
		cols[i] = p.key
	}
	rows := make([]dataset.Record, 0, len(t.Rows))
	for i := range t.Rows {
		r := make(dataset.Record, len(picks))
		for _, p := range picks {
			cell, _ := t.Cell(i, p.header)
			if cell = strings.TrimSpace(cell); cell != "" {
				r[p.key] = cell
			}
		}
		rows = append(rows, r)
	}
	return dataset.New(cols, rows)
}

// Normalize applies Columns and coerces the schema's numeric fields to
// float64. Cells that do not parse to a finite number become absent.
func Normalize(t dataset.Table, m Mapping, s *schema.Schema) dataset.Dataset {
	ds := Columns(t, m, s)
	for _, key := range s.NumericKeys() {
		if !ds.HasColumn(key) {
			continue
		}
		ds = ds.WithColumn(key, func(_ int, r dataset.Record) any {
			return toNumber(r[key])
		})
	}
	return ds
}

// toNumber keeps finite reals only; NaN and infinities become absent.
func toNumber(v any) any {
	f, ok := model.Number(v)
	if !ok {
		return nil
	}
	return f
}

func hasHeader(t dataset.Table, h string) bool {
	for _, x := range t.Headers {
		if x == h {
			return true
		}
	}
	return false
}
