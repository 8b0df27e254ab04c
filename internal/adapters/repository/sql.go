package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"   // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/okian/gradelens/internal/domain/dataset"
	"github.com/okian/gradelens/internal/domain/model"
	"github.com/okian/gradelens/pkg/metrics"
)

const defaultBatchSize = 200

// Column is a canonical record column and its storage type.
type Column struct {
	Name    string
	Numeric bool
}

// SQLStore persists to SQLite or PostgreSQL through database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	builder sq.StatementBuilderType
	columns []Column
	opts    options
}

var _ Store = (*SQLStore)(nil)

// OpenSQL opens the database, checks connectivity and creates missing tables.
// columns must contain student_name and come from a validated schema.
func OpenSQL(ctx context.Context, driver, dsn string, columns []Column, opts ...Option) (*SQLStore, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if d.driver == DriverSQLite {
		// sqlite allows one writer at a time
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	s := &SQLStore{
		db:      db,
		dialect: d,
		builder: sq.StatementBuilder.PlaceholderFormat(d.placeholder),
		columns: append([]Column(nil), columns...),
		opts:    o,
	}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.ddl(s.columns) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) columnNames() []string {
	out := make([]string, len(s.columns))
	for i, c := range s.columns {
		out[i] = c.Name
	}
	return out
}

func observe(op string, start time.Time, err error) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000, err)
}

func (s *SQLStore) SaveImport(ctx context.Context, imp Import, rows []dataset.Record) (err error) {
	start := time.Now()
	defer func() { observe("save_import", start, err) }()

	if imp.Created.IsZero() {
		imp.Created = s.opts.now()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	q, args, err := s.builder.Insert("imports").
		Columns("id", "file_name", "checksum", "columns", "row_count", "created_at").
		Values(imp.ID, imp.FileName, imp.Checksum, encodeColumns(imp.Columns), len(rows), imp.Created.UnixMilli()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build import insert: %w", err)
	}
	if _, err = tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert import: %w", err)
	}

	names := append([]string{"import_id"}, s.columnNames()...)
	for lo := 0; lo < len(rows); lo += s.opts.batchSize {
		hi := min(lo+s.opts.batchSize, len(rows))
		ins := s.builder.Insert("records").Columns(names...)
		for _, r := range rows[lo:hi] {
			ins = ins.Values(s.rowValues(imp.ID, r)...)
		}
		q, args, err = ins.ToSql()
		if err != nil {
			return fmt.Errorf("build record insert: %w", err)
		}
		if _, err = tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert records: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLStore) rowValues(importID string, r dataset.Record) []any {
	vals := make([]any, 0, len(s.columns)+1)
	vals = append(vals, importID)
	for _, c := range s.columns {
		v := r[c.Name]
		switch {
		case v == nil:
			vals = append(vals, nil)
		case c.Numeric:
			if f, ok := model.Number(v); ok {
				vals = append(vals, f)
			} else {
				vals = append(vals, nil)
			}
		default:
			if t, ok := model.Text(v); ok {
				vals = append(vals, t)
			} else {
				vals = append(vals, nil)
			}
		}
	}
	return vals
}

func (s *SQLStore) ImportByChecksum(ctx context.Context, checksum string) (Import, error) {
	imps, err := s.queryImports(ctx, sq.Eq{"checksum": checksum})
	if err != nil {
		return Import{}, err
	}
	if len(imps) == 0 {
		return Import{}, ErrNotFound
	}
	return imps[0], nil
}

func (s *SQLStore) Imports(ctx context.Context) ([]Import, error) {
	return s.queryImports(ctx, nil)
}

func (s *SQLStore) queryImports(ctx context.Context, where sq.Sqlizer) (out []Import, err error) {
	start := time.Now()
	defer func() { observe("imports", start, err) }()

	sel := s.builder.Select("id", "file_name", "checksum", "columns", "row_count", "created_at").
		From("imports").OrderBy("created_at", "id")
	if where != nil {
		sel = sel.Where(where)
	}
	q, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build imports query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query imports: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			imp  Import
			cols string
			ms   int64
		)
		if err = rows.Scan(&imp.ID, &imp.FileName, &imp.Checksum, &cols, &imp.Rows, &ms); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		imp.Columns = decodeColumns(cols)
		imp.Created = time.UnixMilli(ms).UTC()
		out = append(out, imp)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate imports: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Records(ctx context.Context, f Filter) (ds dataset.Dataset, err error) {
	imps, err := s.Imports(ctx)
	if err != nil {
		return dataset.Dataset{}, err
	}

	start := time.Now()
	defer func() { observe("records", start, err) }()

	sel := s.builder.Select(append([]string{"import_id"}, s.columnNames()...)...).From("records").OrderBy("id")
	if f.Student != "" {
		sel = sel.Where(sq.Eq{model.FieldStudentName: f.Student})
	}
	if f.Class != "" && s.hasColumn(model.FieldClassName) {
		sel = sel.Where(sq.Eq{model.FieldClassName: f.Class})
	}
	if f.ImportID != "" {
		sel = sel.Where(sq.Eq{"import_id": f.ImportID})
	}
	q, args, err := sel.ToSql()
	if err != nil {
		return dataset.Dataset{}, fmt.Errorf("build records query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return dataset.Dataset{}, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var (
		out  []dataset.Record
		used = make(map[string]struct{})
	)
	for rows.Next() {
		var importID string
		dest := make([]any, len(s.columns)+1)
		dest[0] = &importID
		for i, c := range s.columns {
			if c.Numeric {
				dest[i+1] = new(sql.NullFloat64)
			} else {
				dest[i+1] = new(sql.NullString)
			}
		}
		if err = rows.Scan(dest...); err != nil {
			return dataset.Dataset{}, fmt.Errorf("scan record: %w", err)
		}
		used[importID] = struct{}{}
		out = append(out, toRecord(s.columns, dest[1:]))
	}
	if err = rows.Err(); err != nil {
		return dataset.Dataset{}, fmt.Errorf("iterate records: %w", err)
	}

	cols := make(map[string][]string, len(imps))
	for _, imp := range imps {
		cols[imp.ID] = imp.Columns
	}
	return dataset.New(mergeColumns(s.columnNames(), cols, used), out), nil
}

func toRecord(columns []Column, dest []any) dataset.Record {
	r := make(dataset.Record, len(columns))
	for i, c := range columns {
		switch v := dest[i].(type) {
		case *sql.NullFloat64:
			if v.Valid {
				r[c.Name] = v.Float64
			}
		case *sql.NullString:
			if v.Valid {
				r[c.Name] = v.String
			}
		}
	}
	return r
}

func (s *SQLStore) hasColumn(name string) bool {
	for _, c := range s.columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

func (s *SQLStore) Students(ctx context.Context) (out []string, err error) {
	start := time.Now()
	defer func() { observe("students", start, err) }()

	q, args, err := s.builder.Select(model.FieldStudentName).Distinct().From("records").
		Where(sq.NotEq{model.FieldStudentName: nil}).OrderBy(model.FieldStudentName).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build students query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (s *SQLStore) AppendComment(ctx context.Context, c Comment) (_ Comment, err error) {
	start := time.Now()
	defer func() { observe("append_comment", start, err) }()

	c.Created = s.opts.now()
	ins := s.builder.Insert("comments").
		Columns("student_name", "role", "author", "body", "created_at").
		Values(c.Student, string(c.Role), c.Author, c.Body, c.Created.UnixMilli())

	var (
		q    string
		args []any
	)
	if s.dialect.driver == DriverPostgres {
		if q, args, err = ins.Suffix("RETURNING id").ToSql(); err != nil {
			return Comment{}, fmt.Errorf("build comment insert: %w", err)
		}
		if err = s.db.QueryRowContext(ctx, q, args...).Scan(&c.ID); err != nil {
			return Comment{}, fmt.Errorf("insert comment: %w", err)
		}
		return c, nil
	}

	if q, args, err = ins.ToSql(); err != nil {
		return Comment{}, fmt.Errorf("build comment insert: %w", err)
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return Comment{}, fmt.Errorf("comment id: %w", err)
	}
	return c, nil
}

func (s *SQLStore) Comments(ctx context.Context, student string) (out []Comment, err error) {
	start := time.Now()
	defer func() { observe("comments", start, err) }()

	q, args, err := s.builder.Select("id", "student_name", "role", "author", "body", "created_at").
		From("comments").Where(sq.Eq{"student_name": student}).OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build comments query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			c    Comment
			role string
			ms   int64
		)
		if err = rows.Scan(&c.ID, &c.Student, &role, &c.Author, &c.Body, &ms); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		c.Role = model.Role(role)
		c.Created = time.UnixMilli(ms).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// IsNotFound reports whether err means a missing entity.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
