package trend

import (
	"sort"

	"github.com/okian/gradelens/internal/domain/dataset"
	"github.com/okian/gradelens/internal/domain/model"
)

type cellKey struct {
	field  string
	period model.Period
}

type meanAcc struct {
	sum   float64
	count int
}

// Pivot holds per-student, per-period means of the trend fields.
type Pivot struct {
	fields   []string
	students map[string]map[cellKey]*meanAcc
	// present marks (field, period) pairs for which any student has a mean.
	present map[cellKey]bool
}

// BuildPivot groups ds by student and period and averages each field,
// ignoring absent and unparseable values. Records without a student name or
// with an unrecognized semester label are left out.
func BuildPivot(ds dataset.Dataset, fields []string, labels model.PeriodLabels) Pivot {
	p := Pivot{
		fields:   append([]string(nil), fields...),
		students: make(map[string]map[cellKey]*meanAcc),
		present:  make(map[cellKey]bool),
	}
	for i := 0; i < ds.Len(); i++ {
		name, ok := model.Text(ds.Value(i, model.FieldStudentName))
		if !ok {
			continue
		}
		period := labels.Parse(ds.Value(i, model.FieldSemester))
		if period == model.PeriodUnknown {
			continue
		}
		cells, ok := p.students[name]
		if !ok {
			cells = make(map[cellKey]*meanAcc)
			p.students[name] = cells
		}
		for _, f := range fields {
			v, ok := model.Number(ds.Value(i, f))
			if !ok {
				continue
			}
			k := cellKey{field: f, period: period}
			acc, ok := cells[k]
			if !ok {
				acc = &meanAcc{}
				cells[k] = acc
			}
			acc.sum += v
			acc.count++
			p.present[k] = true
		}
	}
	return p
}

// Students returns the pivot's student names in sorted order.
func (p Pivot) Students() []string {
	out := make([]string, 0, len(p.students))
	for s := range p.students {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Fields returns the fields the pivot was built over.
func (p Pivot) Fields() []string { return append([]string(nil), p.fields...) }

// Mean returns the mean of field for student in period.
func (p Pivot) Mean(student, field string, period model.Period) (float64, bool) {
	acc, ok := p.students[student][cellKey{field: field, period: period}]
	if !ok || acc.count == 0 {
		return 0, false
	}
	return acc.sum / float64(acc.count), true
}

// HasBoth reports whether some student has a first-period mean of field and
// some student has a second-period mean of it.
func (p Pivot) HasBoth(field string) bool {
	return p.present[cellKey{field, model.PeriodFirst}] && p.present[cellKey{field, model.PeriodSecond}]
}

// Delta returns mean(second) - mean(first) of field for student.
func (p Pivot) Delta(student, field string) (float64, bool) {
	first, ok := p.Mean(student, field, model.PeriodFirst)
	if !ok {
		return 0, false
	}
	second, ok := p.Mean(student, field, model.PeriodSecond)
	if !ok {
		return 0, false
	}
	return second - first, true
}
