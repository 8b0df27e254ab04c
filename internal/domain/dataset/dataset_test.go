package dataset_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/gradelens/internal/domain/dataset"
)

func TestDataset(t *testing.T) {
	Convey("Given a dataset built from records", t, func() {
		src := []dataset.Record{
			{"student_name": "Dana", "quiz_avg": 80.0},
			{"student_name": "Omer", "semester": "א"},
		}
		ds := dataset.New([]string{"student_name"}, src)

		Convey("Columns keep the declared order and append unseen keys sorted", func() {
			So(ds.Columns(), ShouldResemble, []string{"student_name", "quiz_avg", "semester"})
			So(ds.HasColumn("semester"), ShouldBeTrue)
			So(ds.HasColumn("overall_score"), ShouldBeFalse)
			So(ds.Len(), ShouldEqual, 2)
		})

		Convey("Source maps are not shared", func() {
			src[0]["quiz_avg"] = 1.0
			So(ds.Value(0, "quiz_avg"), ShouldEqual, 80.0)

			row := ds.Row(0)
			row["quiz_avg"] = 2.0
			So(ds.Value(0, "quiz_avg"), ShouldEqual, 80.0)
		})

		Convey("WithColumn adds to a copy and keeps the column for nil values", func() {
			out := ds.WithColumn("flagged", func(i int, r dataset.Record) any {
				if i == 0 {
					return true
				}
				return nil
			})
			So(out.HasColumn("flagged"), ShouldBeTrue)
			So(ds.HasColumn("flagged"), ShouldBeFalse)
			So(out.Value(0, "flagged"), ShouldEqual, true)
			So(out.Value(1, "flagged"), ShouldBeNil)
		})

		Convey("Select and Filter project without mutating", func() {
			sel := ds.Select("semester", "missing", "student_name")
			So(sel.Columns(), ShouldResemble, []string{"semester", "student_name"})

			f := ds.Filter(func(r dataset.Record) bool { return r["student_name"] == "Omer" })
			So(f.Len(), ShouldEqual, 1)
			So(f.Columns(), ShouldResemble, ds.Columns())
			So(ds.Len(), ShouldEqual, 2)
		})

		Convey("SortStable orders a clone", func() {
			sorted := ds.SortStable(func(a, b dataset.Record) bool {
				return a["student_name"].(string) > b["student_name"].(string)
			})
			So(sorted.Value(0, "student_name"), ShouldEqual, "Omer")
			So(ds.Value(0, "student_name"), ShouldEqual, "Dana")
		})
	})

	Convey("Table cells tolerate ragged rows", t, func() {
		tbl := dataset.Table{Headers: []string{"a", "b"}, Rows: [][]string{{"1"}}}
		v, ok := tbl.Cell(0, "b")
		So(ok, ShouldBeTrue)
		So(v, ShouldEqual, "")
		_, ok = tbl.Cell(0, "c")
		So(ok, ShouldBeFalse)
	})
}
