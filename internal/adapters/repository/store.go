// Package repository persists imported grade records and free-text comments.
package repository

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/okian/gradelens/internal/domain/dataset"
	"github.com/okian/gradelens/internal/domain/model"
)

// Import describes one uploaded file.
type Import struct {
	ID       string    `json:"id"`
	FileName string    `json:"file_name"`
	Checksum string    `json:"checksum"`
	Columns  []string  `json:"columns"`
	Rows     int       `json:"rows"`
	Created  time.Time `json:"created_at"`
}

// Filter narrows a record query. Empty fields match everything.
type Filter struct {
	Student  string `json:"student,omitempty"`
	Class    string `json:"class_name,omitempty"`
	ImportID string `json:"import_id,omitempty"`
}

// Comment is a free-text note about a student.
type Comment struct {
	ID      int64      `json:"id"`
	Student string     `json:"student_name"`
	Role    model.Role `json:"role"`
	Author  string     `json:"author,omitempty"`
	Body    string     `json:"body"`
	Created time.Time  `json:"created_at"`
}

// Store provides read/write access to imported records and comments.
type Store interface {
	// SaveImport persists an import and its canonical records atomically.
	SaveImport(ctx context.Context, imp Import, rows []dataset.Record) error
	// ImportByChecksum returns a previous import of identical content, or ErrNotFound.
	ImportByChecksum(ctx context.Context, checksum string) (Import, error)
	// Imports lists imports, oldest first.
	Imports(ctx context.Context) ([]Import, error)

	// Records returns matching records in insertion order. The column set is
	// the union of the columns of the imports the records came from.
	Records(ctx context.Context, f Filter) (dataset.Dataset, error)
	// Students lists distinct student names, sorted.
	Students(ctx context.Context) ([]string, error)

	// AppendComment stores a comment and returns it with ID and timestamp set.
	AppendComment(ctx context.Context, c Comment) (Comment, error)
	// Comments lists a student's comments, oldest first.
	Comments(ctx context.Context, student string) ([]Comment, error)

	Close() error
}

// mergeColumns returns the union of the imports' columns, ordered by keys.
func mergeColumns(keys []string, imports map[string][]string, used map[string]struct{}) []string {
	present := make(map[string]struct{})
	for id := range used {
		for _, c := range imports[id] {
			present[c] = struct{}{}
		}
	}
	var out []string
	for _, k := range keys {
		if _, ok := present[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

func encodeColumns(cols []string) string { return strings.Join(cols, ",") }

func decodeColumns(s string) []string {
	if s == "" {
		return nil
	}
	return slices.Clone(strings.Split(s, ","))
}
