// Package view projects analyzed datasets into what each role may see.
package view

import (
	"errors"
	"strings"

	"github.com/okian/gradelens/internal/domain/dataset"
	"github.com/okian/gradelens/internal/domain/model"
)

// ErrStudentRequired is returned when a student view has no student identity.
var ErrStudentRequired = errors.New("student view requires a student name")

// DashboardColumns is the compact column set of the class dashboard.
var DashboardColumns = []string{
	model.FieldStudentName,
	model.FieldClassName,
	model.FieldSemester,
	model.FieldOverallScore,
	model.FieldQuizAvg,
	model.FieldQuarterExam,
	model.FieldMidtermMock,
	model.FieldHalfSemesterFinal,
	model.FieldNationalPercentile,
	model.FieldFlagged,
}

// Project returns the rows and columns role may see, sorted flagged first
// then by descending overall score.
//
// Coordinators see every column. Teachers see the dashboard columns plus
// trend deltas. Students see only their own rows, without the flag.
func Project(ds dataset.Dataset, role model.Role, student string) (dataset.Dataset, error) {
	switch role {
	case model.RoleCoordinator:
		return Sort(ds), nil
	case model.RoleTeacher:
		cols := append([]string(nil), DashboardColumns...)
		for _, c := range ds.Columns() {
			if strings.HasPrefix(c, model.DeltaPrefix) {
				cols = append(cols, c)
			}
		}
		return Sort(ds.Select(cols...)), nil
	case model.RoleStudent:
		student = strings.TrimSpace(student)
		if student == "" {
			return dataset.Dataset{}, ErrStudentRequired
		}
		own := ds.Filter(func(r dataset.Record) bool {
			name, ok := model.Text(r[model.FieldStudentName])
			return ok && name == student
		})
		var cols []string
		for _, c := range DashboardColumns {
			if c != model.FieldFlagged {
				cols = append(cols, c)
			}
		}
		for _, c := range own.Columns() {
			if strings.HasPrefix(c, model.DeltaPrefix) {
				cols = append(cols, c)
			}
		}
		return own.Select(cols...), nil
	default:
		return dataset.Dataset{}, errors.New("unknown role " + string(role))
	}
}

// Sort orders flagged records first, then by overall score descending.
// Records without a score sort after scored ones; ties keep input order.
func Sort(ds dataset.Dataset) dataset.Dataset {
	return ds.SortStable(func(a, b dataset.Record) bool {
		fa, fb := model.Bool(a[model.FieldFlagged]), model.Bool(b[model.FieldFlagged])
		if fa != fb {
			return fa
		}
		sa, okA := model.Number(a[model.FieldOverallScore])
		sb, okB := model.Number(b[model.FieldOverallScore])
		switch {
		case okA && okB:
			return sa > sb
		case okA != okB:
			return okA
		default:
			return false
		}
	})
}

// FlaggedOnly keeps flagged records.
func FlaggedOnly(ds dataset.Dataset) dataset.Dataset {
	return ds.Filter(func(r dataset.Record) bool { return model.Bool(r[model.FieldFlagged]) })
}
