package model_test

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/gradelens/internal/domain/model"
)

func TestNumber(t *testing.T) {
	Convey("Number accepts finite numerics and numeric text", t, func() {
		for _, v := range []any{82.5, "82.5", " 82.5 ", float32(82.5)} {
			f, ok := model.Number(v)
			So(ok, ShouldBeTrue)
			So(f, ShouldEqual, 82.5)
		}
		f, ok := model.Number(7)
		So(ok, ShouldBeTrue)
		So(f, ShouldEqual, 7)
	})

	Convey("Number rejects absent and non-numeric values", t, func() {
		for _, v := range []any{nil, "", "abc", math.NaN(), math.Inf(1), true, []int{1}} {
			_, ok := model.Number(v)
			So(ok, ShouldBeFalse)
		}
	})
}

func TestPeriodLabels(t *testing.T) {
	Convey("Given the default semester labels", t, func() {
		labels := model.DefaultPeriodLabels()

		So(labels.Parse("א"), ShouldEqual, model.PeriodFirst)
		So(labels.Parse(" ב "), ShouldEqual, model.PeriodSecond)
		So(labels.Parse("ג"), ShouldEqual, model.PeriodUnknown)
		So(labels.Parse(nil), ShouldEqual, model.PeriodUnknown)
		So(labels.Label(model.PeriodSecond), ShouldEqual, "ב")
		So(labels.Validate(), ShouldBeNil)
	})

	Convey("Custom labels match case-insensitively", t, func() {
		labels := model.PeriodLabels{First: "Fall", Second: "Spring"}
		So(labels.Parse("fall"), ShouldEqual, model.PeriodFirst)
		So(labels.Parse("SPRING"), ShouldEqual, model.PeriodSecond)
	})

	Convey("Invalid label pairs are rejected", t, func() {
		So(model.PeriodLabels{First: "", Second: "b"}.Validate(), ShouldNotBeNil)
		So(model.PeriodLabels{First: "A", Second: "a"}.Validate(), ShouldNotBeNil)
	})
}

func TestRoles(t *testing.T) {
	Convey("ParseRole defaults to coordinator", t, func() {
		r, err := model.ParseRole("")
		So(err, ShouldBeNil)
		So(r, ShouldEqual, model.RoleCoordinator)

		r, err = model.ParseRole("Teacher")
		So(err, ShouldBeNil)
		So(r, ShouldEqual, model.RoleTeacher)
		So(r.CanComment(), ShouldBeTrue)

		r, err = model.ParseRole("student")
		So(err, ShouldBeNil)
		So(r.CanComment(), ShouldBeFalse)

		_, err = model.ParseRole("principal")
		So(err, ShouldNotBeNil)
	})
}
