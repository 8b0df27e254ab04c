// Package dataset holds the tabular structure the analytics pipeline operates on.
//
// A Dataset is an ordered sequence of records plus an explicit, ordered column
// set. Operations never mutate their receiver: every derived column is added to
// a clone.
package dataset

import (
	"slices"
	"sort"
)

// Record maps a field name to a scalar value (float64, string, bool) or nil.
// A missing key and a nil value both mean "absent".
type Record map[string]any

// Clone returns a shallow copy; values are scalars so this is a full copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Dataset is an immutable-by-convention table.
type Dataset struct {
	columns []string
	index   map[string]struct{}
	rows    []Record
}

// New builds a dataset with an explicit column order. Row maps are copied.
// Keys found in rows but not listed in columns are appended in sorted order.
func New(columns []string, rows []Record) Dataset {
	d := Dataset{index: make(map[string]struct{}, len(columns))}
	for _, c := range columns {
		d.addColumn(c)
	}
	d.rows = make([]Record, len(rows))
	var extra []string
	for i, r := range rows {
		d.rows[i] = r.Clone()
		for k := range r {
			if _, ok := d.index[k]; !ok && !slices.Contains(extra, k) {
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	for _, c := range extra {
		d.addColumn(c)
	}
	return d
}

// FromRecords builds a dataset whose columns are the union of record keys.
func FromRecords(rows []Record) Dataset {
	return New(nil, rows)
}

func (d *Dataset) addColumn(name string) {
	if d.index == nil {
		d.index = make(map[string]struct{})
	}
	if _, ok := d.index[name]; ok {
		return
	}
	d.index[name] = struct{}{}
	d.columns = append(d.columns, name)
}

// Len returns the number of records.
func (d Dataset) Len() int { return len(d.rows) }

// Empty reports whether the dataset has no records.
func (d Dataset) Empty() bool { return len(d.rows) == 0 }

// Columns returns a copy of the ordered column set.
func (d Dataset) Columns() []string { return slices.Clone(d.columns) }

// HasColumn reports whether name is a column of the dataset.
func (d Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Row returns a copy of record i.
func (d Dataset) Row(i int) Record { return d.rows[i].Clone() }

// Value returns the raw value of field in record i, nil when absent.
func (d Dataset) Value(i int, field string) any { return d.rows[i][field] }

// Rows returns copies of every record.
func (d Dataset) Rows() []Record {
	out := make([]Record, len(d.rows))
	for i, r := range d.rows {
		out[i] = r.Clone()
	}
	return out
}

// Clone deep-copies the dataset.
func (d Dataset) Clone() Dataset {
	out := Dataset{
		columns: slices.Clone(d.columns),
		index:   make(map[string]struct{}, len(d.index)),
		rows:    make([]Record, len(d.rows)),
	}
	for k := range d.index {
		out.index[k] = struct{}{}
	}
	for i, r := range d.rows {
		out.rows[i] = r.Clone()
	}
	return out
}

// WithColumn returns a clone with column name set from fn for every record.
// A nil result leaves the record without a value for that column while the
// column itself still exists.
func (d Dataset) WithColumn(name string, fn func(i int, r Record) any) Dataset {
	out := d.Clone()
	out.addColumn(name)
	for i, r := range out.rows {
		v := fn(i, d.rows[i])
		if v == nil {
			delete(r, name)
			continue
		}
		r[name] = v
	}
	return out
}

// Filter returns a dataset with the records keep accepts, preserving columns.
func (d Dataset) Filter(keep func(r Record) bool) Dataset {
	out := Dataset{
		columns: slices.Clone(d.columns),
		index:   make(map[string]struct{}, len(d.index)),
	}
	for k := range d.index {
		out.index[k] = struct{}{}
	}
	for _, r := range d.rows {
		if keep(r) {
			out.rows = append(out.rows, r.Clone())
		}
	}
	return out
}

// Select returns a dataset restricted to the listed columns that exist, in that order.
func (d Dataset) Select(columns ...string) Dataset {
	var keep []string
	for _, c := range columns {
		if d.HasColumn(c) && !slices.Contains(keep, c) {
			keep = append(keep, c)
		}
	}
	rows := make([]Record, len(d.rows))
	for i, r := range d.rows {
		nr := make(Record, len(keep))
		for _, c := range keep {
			if v, ok := r[c]; ok {
				nr[c] = v
			}
		}
		rows[i] = nr
	}
	return New(keep, rows)
}

// SortStable returns a clone whose records are stably ordered by less.
func (d Dataset) SortStable(less func(a, b Record) bool) Dataset {
	out := d.Clone()
	sort.SliceStable(out.rows, func(i, j int) bool { return less(out.rows[i], out.rows[j]) })
	return out
}

// Table is a raw spreadsheet: a header row plus string cells, before any
// column mapping is applied.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Cell returns the cell of row i under header h and whether the header exists.
func (t Table) Cell(i int, h string) (string, bool) {
	idx := slices.Index(t.Headers, h)
	if idx < 0 {
		return "", false
	}
	row := t.Rows[i]
	if idx >= len(row) {
		return "", true
	}
	return row[idx], true
}
