package trend_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/gradelens/internal/domain/dataset"
	"github.com/okian/gradelens/internal/domain/model"
	"github.com/okian/gradelens/internal/domain/trend"
)

func TestCompute(t *testing.T) {
	labels := model.DefaultPeriodLabels()

	Convey("Given two students across both semesters", t, func() {
		ds := dataset.FromRecords([]dataset.Record{
			{"student_name": "Dana", "semester": "א", "quiz_avg": 80.0},
			{"student_name": "Dana", "semester": "ב", "quiz_avg": 70.0},
			{"student_name": "Omer", "semester": "א", "quiz_avg": 60.0},
			{"student_name": "Omer", "semester": "ב", "quiz_avg": 75.0},
		})

		out, fields := trend.Compute(ds, []string{"quiz_avg", "quarter_exam"}, labels)

		Convey("Trend fields are the candidates present as columns", func() {
			So(fields, ShouldResemble, []string{"quiz_avg"})
		})

		Convey("Every record carries its student's delta", func() {
			So(out.Len(), ShouldEqual, 4)
			So(out.Value(0, "delta_quiz_avg"), ShouldAlmostEqual, -10.0, 1e-9)
			So(out.Value(1, "delta_quiz_avg"), ShouldAlmostEqual, -10.0, 1e-9)
			So(out.Value(2, "delta_quiz_avg"), ShouldAlmostEqual, 15.0, 1e-9)
			So(out.Value(3, "delta_quiz_avg"), ShouldAlmostEqual, 15.0, 1e-9)
		})

		Convey("The input is untouched", func() {
			So(ds.HasColumn("delta_quiz_avg"), ShouldBeFalse)
		})
	})

	Convey("Multiple records per semester are averaged and unparseable values ignored", t, func() {
		ds := dataset.FromRecords([]dataset.Record{
			{"student_name": "Dana", "semester": "א", "quiz_avg": 80.0},
			{"student_name": "Dana", "semester": "א", "quiz_avg": 60.0},
			{"student_name": "Dana", "semester": "א", "quiz_avg": "absent"},
			{"student_name": "Dana", "semester": "ב", "quiz_avg": 90.0},
		})
		out, _ := trend.Compute(ds, []string{"quiz_avg"}, labels)
		So(out.Value(2, "delta_quiz_avg"), ShouldAlmostEqual, 20.0, 1e-9)
	})

	Convey("A student with a single semester gets no delta while others do", t, func() {
		ds := dataset.FromRecords([]dataset.Record{
			{"student_name": "Dana", "semester": "א", "quiz_avg": 80.0},
			{"student_name": "Dana", "semester": "ב", "quiz_avg": 85.0},
			{"student_name": "Noa", "semester": "א", "quiz_avg": 50.0},
		})
		out, _ := trend.Compute(ds, []string{"quiz_avg"}, labels)
		So(out.HasColumn("delta_quiz_avg"), ShouldBeTrue)
		So(out.Value(0, "delta_quiz_avg"), ShouldAlmostEqual, 5.0, 1e-9)
		So(out.Value(2, "delta_quiz_avg"), ShouldBeNil)
	})

	Convey("Only one semester overall produces no delta column", t, func() {
		ds := dataset.FromRecords([]dataset.Record{
			{"student_name": "Dana", "semester": "א", "quiz_avg": 80.0},
			{"student_name": "Omer", "semester": "א", "quiz_avg": 70.0},
		})
		out, fields := trend.Compute(ds, []string{"quiz_avg"}, labels)
		So(fields, ShouldResemble, []string{"quiz_avg"})
		So(out.HasColumn("delta_quiz_avg"), ShouldBeFalse)
	})

	Convey("Missing identity or semester columns leave the dataset unchanged", t, func() {
		noSemester := dataset.FromRecords([]dataset.Record{{"student_name": "Dana", "quiz_avg": 80.0}})
		out, _ := trend.Compute(noSemester, []string{"quiz_avg"}, labels)
		So(out.Columns(), ShouldResemble, noSemester.Columns())

		noName := dataset.FromRecords([]dataset.Record{{"semester": "א", "quiz_avg": 80.0}})
		out, _ = trend.Compute(noName, []string{"quiz_avg"}, labels)
		So(out.Columns(), ShouldResemble, noName.Columns())
	})

	Convey("Configured labels drive the semester mapping", t, func() {
		ds := dataset.FromRecords([]dataset.Record{
			{"student_name": "Dana", "semester": "Fall", "quiz_avg": 80.0},
			{"student_name": "Dana", "semester": "Spring", "quiz_avg": 88.0},
			{"student_name": "Dana", "semester": "Summer", "quiz_avg": 10.0},
		})
		out, _ := trend.Compute(ds, []string{"quiz_avg"}, model.PeriodLabels{First: "Fall", Second: "Spring"})
		So(out.Value(2, "delta_quiz_avg"), ShouldAlmostEqual, 8.0, 1e-9)
	})
}

func TestPivot(t *testing.T) {
	Convey("The pivot exposes per-period means", t, func() {
		ds := dataset.FromRecords([]dataset.Record{
			{"student_name": "Dana", "semester": "א", "quiz_avg": 80.0, "quarter_exam": 70.0},
			{"student_name": "Dana", "semester": "ב", "quiz_avg": 90.0},
			{"student_name": nil, "semester": "ב", "quiz_avg": 10.0},
		})
		p := trend.BuildPivot(ds, []string{"quiz_avg", "quarter_exam"}, model.DefaultPeriodLabels())

		So(p.Students(), ShouldResemble, []string{"Dana"})
		m, ok := p.Mean("Dana", "quarter_exam", model.PeriodFirst)
		So(ok, ShouldBeTrue)
		So(m, ShouldEqual, 70.0)
		_, ok = p.Mean("Dana", "quarter_exam", model.PeriodSecond)
		So(ok, ShouldBeFalse)
		So(p.HasBoth("quiz_avg"), ShouldBeTrue)
		So(p.HasBoth("quarter_exam"), ShouldBeFalse)
	})
}
