package tabular_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/xuri/excelize/v2"

	"github.com/okian/gradelens/internal/adapters/tabular"
	"github.com/okian/gradelens/internal/domain/dataset"
)

func TestReadCSV(t *testing.T) {
	Convey("Given a BOM-prefixed comma separated file", t, func() {
		in := "\ufeffשם,מחצית,בחנים\nדנה,א,80\n\nעומר,ב\n"
		tbl, err := tabular.Read("grades.csv", strings.NewReader(in))

		So(err, ShouldBeNil)
		So(tbl.Headers, ShouldResemble, []string{"שם", "מחצית", "בחנים"})
		So(len(tbl.Rows), ShouldEqual, 2)
		So(tbl.Rows[1], ShouldResemble, []string{"עומר", "ב", ""})
	})

	Convey("Semicolon and tab delimiters are detected", t, func() {
		tbl, err := tabular.ReadCSV(strings.NewReader("a;b;c\n1;2;3\n"))
		So(err, ShouldBeNil)
		So(tbl.Headers, ShouldResemble, []string{"a", "b", "c"})

		tbl, err = tabular.ReadCSV(strings.NewReader("a\tb\n1\t2\n"))
		So(err, ShouldBeNil)
		So(tbl.Rows[0], ShouldResemble, []string{"1", "2"})
	})

	Convey("Empty input has no header", t, func() {
		_, err := tabular.ReadCSV(strings.NewReader(""))
		So(errors.Is(err, tabular.ErrEmptyFile), ShouldBeTrue)
	})

	Convey("Legacy .xls and unknown extensions are rejected", t, func() {
		for _, name := range []string{"grades.xls", "grades.pdf", "grades"} {
			_, err := tabular.Read(name, strings.NewReader("x"))
			So(errors.Is(err, tabular.ErrUnsupportedFormat), ShouldBeTrue)
		}
	})
}

func TestReadXLSX(t *testing.T) {
	Convey("Given a workbook written with excelize", t, func() {
		f := excelize.NewFile()
		sheet := f.GetSheetName(0)
		So(f.SetSheetRow(sheet, "A1", &[]any{"Name", "Semester", "Quiz"}), ShouldBeNil)
		So(f.SetSheetRow(sheet, "A2", &[]any{"Dana", "א", 91.5}), ShouldBeNil)
		So(f.SetSheetRow(sheet, "A3", &[]any{"Omer", "ב"}), ShouldBeNil)
		buf, err := f.WriteToBuffer()
		So(err, ShouldBeNil)
		So(f.Close(), ShouldBeNil)

		tbl, err := tabular.Read("class.xlsx", bytes.NewReader(buf.Bytes()))
		So(err, ShouldBeNil)
		So(tbl.Headers, ShouldResemble, []string{"Name", "Semester", "Quiz"})
		So(tbl.Rows[0], ShouldResemble, []string{"Dana", "א", "91.5"})
		So(tbl.Rows[1], ShouldResemble, []string{"Omer", "ב", ""})
	})

	Convey("Garbage bytes are not a workbook", t, func() {
		_, err := tabular.ReadXLSX(strings.NewReader("not a zip"), "")
		So(err, ShouldNotBeNil)
	})
}

func TestWriteCSV(t *testing.T) {
	Convey("Datasets are written with a BOM and formatted cells", t, func() {
		ds := dataset.New([]string{"student_name", "overall_score", "flagged"}, []dataset.Record{
			{"student_name": "Dana", "overall_score": 82.5, "flagged": true},
			{"student_name": "Omer", "flagged": false},
		})
		var buf bytes.Buffer
		So(tabular.WriteCSV(&buf, ds), ShouldBeNil)

		out := buf.String()
		So(strings.HasPrefix(out, "\ufeff"), ShouldBeTrue)
		So(out, ShouldContainSubstring, "student_name,overall_score,flagged\n")
		So(out, ShouldContainSubstring, "Dana,82.5,true\n")
		So(out, ShouldContainSubstring, "Omer,,false\n")
	})

	Convey("An explicit column list selects and orders the output", t, func() {
		ds := dataset.FromRecords([]dataset.Record{{"a": "1", "b": "2"}})
		var buf bytes.Buffer
		So(tabular.WriteCSV(&buf, ds, "b", "a"), ShouldBeNil)
		So(buf.String(), ShouldEqual, "\ufeffb,a\n2,1\n")
	})
}

func TestWriteXLSX(t *testing.T) {
	Convey("A written workbook reads back through Read", t, func() {
		ds := dataset.New([]string{"student_name", "semester", "quiz_avg"}, []dataset.Record{
			{"student_name": "Dana", "semester": "א", "quiz_avg": 82.5},
			{"student_name": "Omer", "semester": "ב"},
		})
		var buf bytes.Buffer
		So(tabular.WriteXLSX(&buf, ds), ShouldBeNil)

		tbl, err := tabular.Read("out.xlsx", bytes.NewReader(buf.Bytes()))
		So(err, ShouldBeNil)
		So(tbl.Headers, ShouldResemble, []string{"student_name", "semester", "quiz_avg"})
		So(tbl.Rows[0], ShouldResemble, []string{"Dana", "א", "82.5"})
		So(tbl.Rows[1], ShouldResemble, []string{"Omer", "ב", ""})
	})
}
