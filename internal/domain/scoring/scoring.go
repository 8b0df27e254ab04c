// Package scoring computes the weighted overall score of each record.
package scoring

import (
	"github.com/okian/gradelens/internal/domain/dataset"
	"github.com/okian/gradelens/internal/domain/model"
	"github.com/okian/gradelens/internal/domain/weights"
)

// Contribution is one weighted field's share of a record's overall score.
type Contribution struct {
	Field  string  `json:"field"`
	Weight float64 `json:"weight"`
	Value  float64 `json:"value"`
	// Missing is true when the record has no usable value for the field.
	Missing bool    `json:"missing"`
	Points  float64 `json:"points"`
}

// OverallScore returns a copy of ds with an overall_score column, the weighted
// sum of the weighted fields present as columns.
//
// A weighted field that is not a column is skipped: the remaining weights are
// not renormalized. A present column whose value is absent or not a number
// contributes zero. When ds is empty or no weighted field is a column, ds is
// returned unchanged.
func OverallScore(ds dataset.Dataset, w weights.Map) dataset.Dataset {
	if ds.Empty() {
		return ds
	}
	fields := presentFields(ds.Columns(), w)
	if len(fields) == 0 {
		return ds
	}
	return ds.WithColumn(model.FieldOverallScore, func(_ int, r dataset.Record) any {
		var total float64
		for _, f := range fields {
			total += w[f] * valueOrZero(r[f])
		}
		return total
	})
}

// Contributions breaks down a single record's score under the same policies
// as OverallScore. columns is the dataset column set the record belongs to.
func Contributions(r dataset.Record, columns []string, w weights.Map) []Contribution {
	fields := presentFields(columns, w)
	out := make([]Contribution, 0, len(fields))
	for _, f := range fields {
		v, ok := model.Number(r[f])
		c := Contribution{Field: f, Weight: w[f], Missing: !ok}
		if ok {
			c.Value = v
			c.Points = w[f] * v
		}
		out = append(out, c)
	}
	return out
}

// presentFields lists, in sorted order, the weighted fields that are columns.
// Fields absent from the column set never reach the per-record sum.
func presentFields(columns []string, w weights.Map) []string {
	cols := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		cols[c] = struct{}{}
	}
	var out []string
	for _, k := range w.Keys() {
		if _, ok := cols[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// valueOrZero resolves a value inside a present column: absent or
// unparseable values count as zero.
func valueOrZero(v any) float64 {
	f, ok := model.Number(v)
	if !ok {
		return 0
	}
	return f
}
