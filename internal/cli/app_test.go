package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"gopkg.in/yaml.v3"

	"github.com/okian/gradelens/internal/adapters/tabular"
	"github.com/okian/gradelens/internal/cli"
	"github.com/okian/gradelens/internal/domain/weights"
)

// A holds steady, B sits in a low percentile and C drops 20 points.
const classCSV = "שם,כיתה,מחצית,ממוצע בחנים,אחוזון ארצי\n" +
	"A,10A,א,80,50\n" +
	"A,10A,ב,78,50\n" +
	"B,10A,א,70,10\n" +
	"B,10A,ב,72,10\n" +
	"C,10B,א,90,60\n" +
	"C,10B,ב,70,60\n"

type analysis struct {
	Columns     []string         `json:"columns"`
	Rows        []map[string]any `json:"rows"`
	TrendFields []string         `json:"trend_fields"`
	Total       int              `json:"total"`
	Flagged     int              `json:"flagged"`
	Thresholds  struct {
		LowPercentile int `json:"low_percentile"`
		Drop          int `json:"drop"`
	} `json:"thresholds"`
}

func run(args ...string) (string, error) {
	var out bytes.Buffer
	err := cli.NewApp(&out, io.Discard).Run(context.Background(), append([]string{"gradectl"}, args...))
	return out.String(), err
}

func writeFile(dir, name, content string) string {
	p := filepath.Join(dir, name)
	So(os.WriteFile(p, []byte(content), 0600), ShouldBeNil)
	return p
}

func decodeAnalysis(s string) analysis {
	var a analysis
	So(json.Unmarshal([]byte(s), &a), ShouldBeNil)
	return a
}

func TestSchemaCommand(t *testing.T) {
	Convey("Given the schema command", t, func() {
		Convey("When printed as JSON", func() {
			out, err := run("schema")
			So(err, ShouldBeNil)

			var got struct {
				Fields []struct {
					Key string `json:"key"`
				} `json:"fields"`
				Weights weights.Map `json:"weights"`
			}
			So(json.Unmarshal([]byte(out), &got), ShouldBeNil)

			Convey("Then it lists the canonical fields and default weights", func() {
				So(got.Fields[0].Key, ShouldEqual, "student_name")
				So(got.Weights, ShouldContainKey, "quiz_avg")
			})
		})

		Convey("When printed as YAML", func() {
			out, err := run("--format", "yaml", "schema")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "low_percentile: 20")
		})

		Convey("When the format is unknown", func() {
			_, err := run("--format", "toml", "schema")
			So(errors.Is(err, cli.ErrUnknownFormat), ShouldBeTrue)
		})
	})
}

func TestSuggestCommand(t *testing.T) {
	Convey("Given a Hebrew sheet", t, func() {
		path := writeFile(t.TempDir(), "class.csv", classCSV)

		Convey("When a mapping is suggested", func() {
			out, err := run("suggest", path)
			So(err, ShouldBeNil)

			var got struct {
				Mapping         map[string]string `json:"mapping"`
				MissingRequired []string          `json:"missing_required"`
				Rows            int               `json:"rows"`
			}
			So(json.Unmarshal([]byte(out), &got), ShouldBeNil)

			Convey("Then headers are matched by their hints", func() {
				So(got.Mapping["student_name"], ShouldEqual, "שם")
				So(got.Mapping["quiz_avg"], ShouldEqual, "ממוצע בחנים")
				So(got.MissingRequired, ShouldBeEmpty)
				So(got.Rows, ShouldEqual, 6)
			})
		})

		Convey("When only the mapping is requested as YAML", func() {
			out, err := run("--format", "yaml", "suggest", "--mapping-only", path)
			So(err, ShouldBeNil)

			var m map[string]string
			So(yaml.Unmarshal([]byte(out), &m), ShouldBeNil)
			So(m["semester"], ShouldEqual, "מחצית")
		})

		Convey("When no file is given", func() {
			_, err := run("suggest")
			So(err, ShouldBeNil)
		})
	})
}

func TestAnalyzeCommand(t *testing.T) {
	Convey("Given a class sheet", t, func() {
		dir := t.TempDir()
		path := writeFile(dir, "class.csv", classCSV)

		Convey("When analyzed with defaults", func() {
			out, err := run("analyze", path)
			So(err, ShouldBeNil)
			a := decodeAnalysis(out)

			Convey("Then every row is scored, trended and flagged", func() {
				So(a.Total, ShouldEqual, 6)
				So(a.Rows, ShouldHaveLength, 6)
				So(a.Columns, ShouldContain, "overall_score")
				So(a.Columns, ShouldContain, "delta_quiz_avg")
				So(a.TrendFields, ShouldResemble, []string{"quiz_avg"})
				So(a.Flagged, ShouldEqual, 4)
			})

			Convey("Then flagged rows sort first", func() {
				So(a.Rows[0]["flagged"], ShouldEqual, true)
				So(a.Rows[5]["student_name"], ShouldEqual, "A")
			})
		})

		Convey("When the percentile threshold is lowered", func() {
			out, err := run("analyze", "--low-percentile", "5", path)
			So(err, ShouldBeNil)
			a := decodeAnalysis(out)
			So(a.Flagged, ShouldEqual, 2)
			So(a.Thresholds.LowPercentile, ShouldEqual, 5)
			So(a.Thresholds.Drop, ShouldEqual, 10)
		})

		Convey("When filtered to a class", func() {
			out, err := run("analyze", "--class", "10B", path)
			So(err, ShouldBeNil)
			So(decodeAnalysis(out).Total, ShouldEqual, 2)
		})

		Convey("When only flagged rows are written as CSV", func() {
			out, err := run("--format", "csv", "analyze", "--flagged-only", path)
			So(err, ShouldBeNil)

			table, err := tabular.ReadCSV(strings.NewReader(out))
			So(err, ShouldBeNil)
			So(table.Rows, ShouldHaveLength, 4)
			So(table.Headers, ShouldContain, "flagged")
		})

		Convey("When written as a workbook", func() {
			_, err := run("--format", "xlsx", "analyze", path)
			So(errors.Is(err, cli.ErrBinaryToStdout), ShouldBeTrue)

			target := filepath.Join(dir, "out", "result.xlsx")
			_, err = run("--format", "xlsx", "--output", target, "analyze", path)
			So(err, ShouldBeNil)

			f, err := os.Open(target)
			So(err, ShouldBeNil)
			defer f.Close()
			table, err := tabular.Read(target, f)
			So(err, ShouldBeNil)
			So(table.Rows, ShouldHaveLength, 6)
		})

		Convey("When weights are invalid", func() {
			_, err := run("analyze", "--weights", "quiz_avg=-1", path)
			So(errors.Is(err, weights.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When weights cannot be parsed", func() {
			_, err := run("analyze", "--weights", "quiz_avg", path)
			So(err, ShouldNotBeNil)
		})

		Convey("When a mapping file renames the headers", func() {
			renamed := writeFile(dir, "renamed.csv", "who,term,q,pct\n"+
				"A,א,80,50\nA,ב,60,50\n")
			mappingPath := writeFile(dir, "map.yaml",
				"student_name: who\nsemester: term\nquiz_avg: q\nnational_percentile: pct\n")

			out, err := run("analyze", "--mapping", mappingPath, renamed)
			So(err, ShouldBeNil)
			a := decodeAnalysis(out)
			So(a.Total, ShouldEqual, 2)
			So(a.Flagged, ShouldEqual, 2)
		})

		Convey("When the mapping names an unknown field", func() {
			mappingPath := writeFile(dir, "bad.json", `{"nickname": "שם"}`)
			_, err := run("analyze", "--mapping", mappingPath, path)
			So(err, ShouldNotBeNil)
		})

		Convey("When custom semester labels are used", func() {
			custom := writeFile(dir, "custom.csv", "שם,מחצית,ממוצע בחנים\nA,S1,80\nA,S2,60\n")
			out, err := run("analyze", "--first", "S1", "--second", "S2", custom)
			So(err, ShouldBeNil)
			So(decodeAnalysis(out).Flagged, ShouldEqual, 2)
		})

		Convey("When no input is given", func() {
			_, err := run("analyze")
			So(errors.Is(err, cli.ErrNoInput), ShouldBeTrue)
		})

		Convey("When the file does not exist", func() {
			_, err := run("analyze", filepath.Join(dir, "missing.csv"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestImportCommand(t *testing.T) {
	Convey("Given a sqlite database path", t, func() {
		dir := t.TempDir()
		db := filepath.Join(dir, "grades.db")
		path := writeFile(dir, "class.csv", classCSV)

		Convey("When a sheet is imported", func() {
			out, err := run("import", "--db", db, path)
			So(err, ShouldBeNil)

			var got []struct {
				ID        string `json:"id"`
				Rows      int    `json:"rows"`
				Duplicate bool   `json:"duplicate"`
			}
			So(json.Unmarshal([]byte(out), &got), ShouldBeNil)
			So(got, ShouldHaveLength, 1)
			So(got[0].Rows, ShouldEqual, 6)
			So(got[0].ID, ShouldNotBeEmpty)

			Convey("Then a second import of the same file is a duplicate", func() {
				out, err := run("import", "--db", db, path)
				So(err, ShouldBeNil)
				So(json.Unmarshal([]byte(out), &got), ShouldBeNil)
				So(got[0].Duplicate, ShouldBeTrue)
			})

			Convey("Then the import is listed", func() {
				out, err := run("imports", "--db", db)
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "class.csv")
			})

			Convey("Then the stored records can be analyzed", func() {
				out, err := run("analyze", "--db", db, "--class", "10A")
				So(err, ShouldBeNil)
				a := decodeAnalysis(out)
				So(a.Total, ShouldEqual, 4)
				So(a.Flagged, ShouldEqual, 2)
			})

			Convey("Then files and a database are not mixed", func() {
				_, err := run("analyze", "--db", db, path)
				So(errors.Is(err, cli.ErrFilesWithDB), ShouldBeTrue)
			})
		})

		Convey("When no database is given", func() {
			_, err := run("import", path)
			So(errors.Is(err, cli.ErrDBRequired), ShouldBeTrue)
		})
	})
}
