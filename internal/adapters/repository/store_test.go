package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/gradelens/internal/adapters/repository"
	"github.com/okian/gradelens/internal/domain/dataset"
	"github.com/okian/gradelens/internal/domain/model"
	"github.com/okian/gradelens/internal/domain/schema"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type storeFactory func(t *testing.T) repository.Store

func factories() map[string]storeFactory {
	s := schema.Default()
	return map[string]storeFactory{
		"memory": func(*testing.T) repository.Store {
			return repository.NewMemoryStore(s.Keys(), repository.WithClock(func() time.Time { return fixedNow }))
		},
		"sqlite": func(t *testing.T) repository.Store {
			path := filepath.Join(t.TempDir(), "grades.db")
			st, err := repository.OpenSQL(context.Background(), repository.DriverSQLite, path, repository.Columns(s),
				repository.WithClock(func() time.Time { return fixedNow }), repository.WithBatchSize(2))
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			return st
		},
	}
}

func TestStores(t *testing.T) {
	ctx := context.Background()

	for name, open := range factories() {
		Convey("Given an empty "+name+" store", t, func() {
			st := open(t)
			defer st.Close()

			first := []dataset.Record{
				{"student_name": "Dana", "semester": "א", "class_name": "10A", "quiz_avg": 80.0},
				{"student_name": "Omer", "semester": "א", "class_name": "10B", "quiz_avg": nil},
				{"student_name": "Dana", "semester": "ב", "class_name": "10A", "quiz_avg": 70.0},
			}
			imp := repository.Import{
				ID: "imp-1", FileName: "a.csv", Checksum: "sum-1",
				Columns: []string{"student_name", "class_name", "semester", "quiz_avg"},
			}
			So(st.SaveImport(ctx, imp, first), ShouldBeNil)

			Convey("Records come back in insertion order with the import's columns", func() {
				ds, err := st.Records(ctx, repository.Filter{})
				So(err, ShouldBeNil)
				So(ds.Len(), ShouldEqual, 3)
				So(ds.Columns(), ShouldResemble, []string{"student_name", "class_name", "semester", "quiz_avg"})
				So(ds.Value(0, "quiz_avg"), ShouldEqual, 80.0)
				So(ds.Value(1, "quiz_avg"), ShouldBeNil)
				So(ds.Value(2, "semester"), ShouldEqual, "ב")
			})

			Convey("Filters narrow by student and class", func() {
				ds, err := st.Records(ctx, repository.Filter{Student: "Dana"})
				So(err, ShouldBeNil)
				So(ds.Len(), ShouldEqual, 2)

				ds, err = st.Records(ctx, repository.Filter{Class: "10B"})
				So(err, ShouldBeNil)
				So(ds.Len(), ShouldEqual, 1)
				So(ds.Value(0, "student_name"), ShouldEqual, "Omer")
			})

			Convey("A second import widens the column set", func() {
				second := []dataset.Record{{"student_name": "Noa", "national_percentile": 12.0}}
				So(st.SaveImport(ctx, repository.Import{
					ID: "imp-2", FileName: "b.csv", Checksum: "sum-2",
					Columns: []string{"student_name", "national_percentile"},
				}, second), ShouldBeNil)

				ds, err := st.Records(ctx, repository.Filter{})
				So(err, ShouldBeNil)
				So(ds.Len(), ShouldEqual, 4)
				So(ds.HasColumn("national_percentile"), ShouldBeTrue)

				only, err := st.Records(ctx, repository.Filter{ImportID: "imp-2"})
				So(err, ShouldBeNil)
				So(only.Columns(), ShouldResemble, []string{"student_name", "national_percentile"})

				imps, err := st.Imports(ctx)
				So(err, ShouldBeNil)
				So(len(imps), ShouldEqual, 2)
				So(imps[0].Rows, ShouldEqual, 3)
			})

			Convey("Imports are found by checksum", func() {
				got, err := st.ImportByChecksum(ctx, "sum-1")
				So(err, ShouldBeNil)
				So(got.ID, ShouldEqual, "imp-1")
				So(got.Created.Equal(fixedNow), ShouldBeTrue)

				_, err = st.ImportByChecksum(ctx, "nope")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("Students are distinct and sorted", func() {
				names, err := st.Students(ctx)
				So(err, ShouldBeNil)
				So(names, ShouldResemble, []string{"Dana", "Omer"})
			})

			Convey("Comments are kept per student in order", func() {
				c1, err := st.AppendComment(ctx, repository.Comment{Student: "Dana", Role: model.RoleTeacher, Author: "Ms. Levi", Body: "improving"})
				So(err, ShouldBeNil)
				So(c1.ID, ShouldBeGreaterThan, 0)
				_, err = st.AppendComment(ctx, repository.Comment{Student: "Dana", Role: model.RoleCoordinator, Body: "call parents"})
				So(err, ShouldBeNil)
				_, err = st.AppendComment(ctx, repository.Comment{Student: "Omer", Role: model.RoleTeacher, Body: "ok"})
				So(err, ShouldBeNil)

				list, err := st.Comments(ctx, "Dana")
				So(err, ShouldBeNil)
				So(len(list), ShouldEqual, 2)
				So(list[0].Body, ShouldEqual, "improving")
				So(list[1].Role, ShouldEqual, model.RoleCoordinator)
				So(list[0].Created.Equal(fixedNow), ShouldBeTrue)
			})
		})
	}
}

func TestOpenSQL(t *testing.T) {
	Convey("Unknown drivers are rejected", t, func() {
		_, err := repository.OpenSQL(context.Background(), "oracle", "x", nil)
		So(errors.Is(err, repository.ErrUnsupportedDriver), ShouldBeTrue)
	})

	Convey("Reopening an existing sqlite file keeps its data", t, func() {
		ctx := context.Background()
		s := schema.Default()
		path := filepath.Join(t.TempDir(), "grades.db")

		st, err := repository.OpenSQL(ctx, repository.DriverSQLite, path, repository.Columns(s))
		So(err, ShouldBeNil)
		So(st.SaveImport(ctx, repository.Import{ID: "i", Checksum: "c", Columns: []string{"student_name"}},
			[]dataset.Record{{"student_name": "Dana"}}), ShouldBeNil)
		So(st.Close(), ShouldBeNil)

		st, err = repository.OpenSQL(ctx, repository.DriverSQLite, path, repository.Columns(s))
		So(err, ShouldBeNil)
		defer st.Close()
		names, err := st.Students(ctx)
		So(err, ShouldBeNil)
		So(names, ShouldResemble, []string{"Dana"})
	})
}

func TestOpen(t *testing.T) {
	Convey("Open picks the store by driver", t, func() {
		ctx := context.Background()
		s := schema.Default()

		st, err := repository.Open(ctx, repository.DriverMemory, "", s)
		So(err, ShouldBeNil)
		_, isMemory := st.(*repository.MemoryStore)
		So(isMemory, ShouldBeTrue)
		So(st.Close(), ShouldBeNil)

		st, err = repository.Open(ctx, repository.DriverSQLite, filepath.Join(t.TempDir(), "g.db"), s)
		So(err, ShouldBeNil)
		_, isSQL := st.(*repository.SQLStore)
		So(isSQL, ShouldBeTrue)
		So(st.Close(), ShouldBeNil)

		So(repository.Columns(s)[0], ShouldResemble, repository.Column{Name: "student_name", Numeric: false})
	})
}
