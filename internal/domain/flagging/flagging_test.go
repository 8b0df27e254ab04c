package flagging_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/gradelens/internal/domain/dataset"
	"github.com/okian/gradelens/internal/domain/flagging"
)

func TestApply(t *testing.T) {
	th := flagging.Thresholds{LowPercentile: 20, Drop: 10}

	Convey("Given records around the thresholds", t, func() {
		ds := dataset.New([]string{"national_percentile", "delta_quiz_avg"}, []dataset.Record{
			{"national_percentile": 19.0, "delta_quiz_avg": 0.0},
			{"national_percentile": 20.0, "delta_quiz_avg": -9.99},
			{"national_percentile": 50.0, "delta_quiz_avg": -10.0},
			{"national_percentile": nil, "delta_quiz_avg": nil},
			{"national_percentile": "n/a", "delta_quiz_avg": "n/a"},
		})
		out := flagging.Apply(ds, th, []string{"quiz_avg"})

		Convey("Percentile is strictly below the floor", func() {
			So(out.Value(0, "flagged"), ShouldEqual, true)
			So(out.Value(1, "flagged"), ShouldEqual, false)
		})

		Convey("A drop equal to the magnitude flags", func() {
			So(out.Value(2, "flagged"), ShouldEqual, true)
		})

		Convey("Absent and unparseable values never flag", func() {
			So(out.Value(3, "flagged"), ShouldEqual, false)
			So(out.Value(4, "flagged"), ShouldEqual, false)
		})

		Convey("Every record has the column and the input is untouched", func() {
			for i := 0; i < out.Len(); i++ {
				So(out.Value(i, "flagged"), ShouldNotBeNil)
			}
			So(ds.HasColumn("flagged"), ShouldBeFalse)
		})
	})

	Convey("A negative drop threshold uses its magnitude", t, func() {
		ds := dataset.FromRecords([]dataset.Record{{"delta_quiz_avg": -12.0}})
		out := flagging.Apply(ds, flagging.Thresholds{Drop: -10}, []string{"quiz_avg"})
		So(out.Value(0, "flagged"), ShouldEqual, true)
	})

	Convey("Without the relevant columns nothing is flagged", t, func() {
		ds := dataset.FromRecords([]dataset.Record{{"student_name": "Dana"}, {"student_name": "Omer"}})
		out := flagging.Apply(ds, th, []string{"quiz_avg"})
		So(out.Value(0, "flagged"), ShouldEqual, false)
		So(out.Value(1, "flagged"), ShouldEqual, false)
	})

	Convey("Trend fields without a delta column are skipped", t, func() {
		ds := dataset.FromRecords([]dataset.Record{{"delta_quarter_exam": -50.0}})
		out := flagging.Apply(ds, th, []string{"quiz_avg"})
		So(out.Value(0, "flagged"), ShouldEqual, false)
	})

	Convey("An empty dataset still gains the column", t, func() {
		out := flagging.Apply(dataset.New(nil, nil), th, nil)
		So(out.HasColumn("flagged"), ShouldBeTrue)
		So(out.Len(), ShouldEqual, 0)
	})
}

func TestReasons(t *testing.T) {
	Convey("Reasons report every criterion that fired", t, func() {
		r := dataset.Record{"national_percentile": 5.0, "delta_quiz_avg": -20.0, "delta_midterm_mock": -1.0}
		cols := []string{"national_percentile", "delta_quiz_avg", "delta_midterm_mock"}
		reasons := flagging.Reasons(r, cols, flagging.Thresholds{LowPercentile: 10, Drop: 15},
			[]string{"quiz_avg", "midterm_mock"})

		So(len(reasons), ShouldEqual, 2)
		So(reasons[0].Kind, ShouldEqual, flagging.ReasonLowPercentile)
		So(reasons[1].Kind, ShouldEqual, flagging.ReasonDrop)
		So(reasons[1].Field, ShouldEqual, "delta_quiz_avg")
		So(reasons[1].Threshold, ShouldEqual, -15.0)
	})
}
