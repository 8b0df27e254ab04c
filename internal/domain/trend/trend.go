// Package trend computes per-student deltas between the two semesters.
package trend

import (
	"github.com/okian/gradelens/internal/domain/dataset"
	"github.com/okian/gradelens/internal/domain/model"
)

// Fields returns the subset of candidates that are columns of ds, keeping
// the order of candidates.
func Fields(ds dataset.Dataset, candidates []string) []string {
	var out []string
	for _, f := range candidates {
		if ds.HasColumn(f) {
			out = append(out, f)
		}
	}
	return out
}

// Compute returns a copy of ds with a delta_<field> column per trend field
// that has means in both semesters, plus the trend fields themselves.
//
// Deltas are per student: every record of a student receives the same value
// regardless of its own semester. A student lacking a mean in either
// semester gets no value. When ds lacks student_name or semester, or no
// candidate field is a column, ds is returned unchanged.
func Compute(ds dataset.Dataset, candidates []string, labels model.PeriodLabels) (dataset.Dataset, []string) {
	fields := Fields(ds, candidates)
	if !ds.HasColumn(model.FieldStudentName) || !ds.HasColumn(model.FieldSemester) || len(fields) == 0 {
		return ds, fields
	}

	pivot := BuildPivot(ds, fields, labels)
	out := ds
	for _, f := range fields {
		if !pivot.HasBoth(f) {
			continue
		}
		field := f
		out = out.WithColumn(model.DeltaField(field), func(_ int, r dataset.Record) any {
			name, ok := model.Text(r[model.FieldStudentName])
			if !ok {
				return nil
			}
			d, ok := pivot.Delta(name, field)
			if !ok {
				return nil
			}
			return d
		})
	}
	return out, fields
}
