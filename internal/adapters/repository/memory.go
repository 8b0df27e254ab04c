package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/okian/gradelens/internal/domain/dataset"
	"github.com/okian/gradelens/internal/domain/model"
)

type storedRecord struct {
	importID string
	record   dataset.Record
}

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	keys     []string
	opts     options
	imports  []Import
	records  []storedRecord
	comments []Comment
	nextID   int64
	closed   bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store over the canonical field keys.
func NewMemoryStore(keys []string, opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{keys: append([]string(nil), keys...), opts: o}
}

func (s *MemoryStore) SaveImport(_ context.Context, imp Import, rows []dataset.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	imp.Columns = append([]string(nil), imp.Columns...)
	imp.Rows = len(rows)
	if imp.Created.IsZero() {
		imp.Created = s.opts.now()
	}
	s.imports = append(s.imports, imp)
	for _, r := range rows {
		s.records = append(s.records, storedRecord{importID: imp.ID, record: r.Clone()})
	}
	return nil
}

func (s *MemoryStore) ImportByChecksum(_ context.Context, checksum string) (Import, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, imp := range s.imports {
		if imp.Checksum == checksum {
			return imp, nil
		}
	}
	return Import{}, ErrNotFound
}

func (s *MemoryStore) Imports(_ context.Context) ([]Import, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Import(nil), s.imports...), nil
}

func (s *MemoryStore) Records(_ context.Context, f Filter) (dataset.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return dataset.Dataset{}, ErrClosed
	}

	cols := make(map[string][]string, len(s.imports))
	for _, imp := range s.imports {
		cols[imp.ID] = imp.Columns
	}
	used := make(map[string]struct{})
	var rows []dataset.Record
	for _, sr := range s.records {
		if !matches(sr, f) {
			continue
		}
		used[sr.importID] = struct{}{}
		rows = append(rows, sr.record)
	}
	return dataset.New(mergeColumns(s.keys, cols, used), rows), nil
}

func matches(sr storedRecord, f Filter) bool {
	if f.ImportID != "" && sr.importID != f.ImportID {
		return false
	}
	if f.Student != "" && !textEquals(sr.record[model.FieldStudentName], f.Student) {
		return false
	}
	if f.Class != "" && !textEquals(sr.record[model.FieldClassName], f.Class) {
		return false
	}
	return true
}

func textEquals(v any, want string) bool {
	s, ok := model.Text(v)
	return ok && s == want
}

func (s *MemoryStore) Students(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, sr := range s.records {
		name, ok := model.Text(sr.record[model.FieldStudentName])
		if !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) AppendComment(_ context.Context, c Comment) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Comment{}, ErrClosed
	}
	s.nextID++
	c.ID = s.nextID
	c.Created = s.opts.now()
	s.comments = append(s.comments, c)
	return c, nil
}

func (s *MemoryStore) Comments(_ context.Context, student string) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Comment
	for _, c := range s.comments {
		if c.Student == student {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
