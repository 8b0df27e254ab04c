package repository

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// Driver names accepted by OpenSQL.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type dialect struct {
	driver      string
	placeholder sq.PlaceholderFormat
	autoID      string
	realType    string
	bigintType  string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite:
		return dialect{
			driver:      DriverSQLite,
			placeholder: sq.Question,
			autoID:      "INTEGER PRIMARY KEY AUTOINCREMENT",
			realType:    "REAL",
			bigintType:  "INTEGER",
		}, nil
	case DriverPostgres:
		return dialect{
			driver:      DriverPostgres,
			placeholder: sq.Dollar,
			autoID:      "BIGSERIAL PRIMARY KEY",
			realType:    "DOUBLE PRECISION",
			bigintType:  "BIGINT",
		}, nil
	default:
		return dialect{}, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// ddl returns the CREATE TABLE statements for the given record columns.
// Column names come from a validated schema and are plain identifiers.
func (d dialect) ddl(columns []Column) []string {
	records := "CREATE TABLE IF NOT EXISTS records (\n  id " + d.autoID + ",\n  import_id TEXT NOT NULL"
	for _, c := range columns {
		typ := "TEXT"
		if c.Numeric {
			typ = d.realType
		}
		records += ",\n  " + c.Name + " " + typ
	}
	records += "\n)"

	return []string{
		`CREATE TABLE IF NOT EXISTS imports (
  id TEXT PRIMARY KEY,
  file_name TEXT NOT NULL,
  checksum TEXT NOT NULL,
  columns TEXT NOT NULL,
  row_count ` + d.bigintType + ` NOT NULL,
  created_at ` + d.bigintType + ` NOT NULL
)`,
		records,
		`CREATE INDEX IF NOT EXISTS records_student_idx ON records (student_name)`,
		`CREATE TABLE IF NOT EXISTS comments (
  id ` + d.autoID + `,
  student_name TEXT NOT NULL,
  role TEXT NOT NULL,
  author TEXT NOT NULL,
  body TEXT NOT NULL,
  created_at ` + d.bigintType + ` NOT NULL
)`,
	}
}
