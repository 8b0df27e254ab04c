package repository

import (
	"context"

	"github.com/okian/gradelens/internal/domain/schema"
)

// DriverMemory selects the in-process store.
const DriverMemory = "memory"

// Columns derives storage columns from the schema fields.
func Columns(sc *schema.Schema) []Column {
	out := make([]Column, 0, len(sc.Fields))
	for _, f := range sc.Fields {
		out = append(out, Column{Name: f.Key, Numeric: f.Numeric})
	}
	return out
}

// Open returns the store for driver: memory, sqlite or postgres.
func Open(ctx context.Context, driver, dsn string, sc *schema.Schema, opts ...Option) (Store, error) {
	if driver == DriverMemory || driver == "" {
		return NewMemoryStore(sc.Keys(), opts...), nil
	}
	return OpenSQL(ctx, driver, dsn, Columns(sc), opts...)
}
