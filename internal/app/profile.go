package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/okian/gradelens/internal/adapters/repository"
	"github.com/okian/gradelens/internal/domain/dataset"
	"github.com/okian/gradelens/internal/domain/flagging"
	"github.com/okian/gradelens/internal/domain/model"
	"github.com/okian/gradelens/internal/domain/scoring"
	"github.com/okian/gradelens/internal/domain/trend"
	"github.com/okian/gradelens/pkg/logger"
	"github.com/okian/gradelens/pkg/metrics"
)

// Series is one metric's per-semester means for a student.
type Series struct {
	Field  string   `json:"field"`
	First  *float64 `json:"first,omitempty"`
	Second *float64 `json:"second,omitempty"`
	Delta  *float64 `json:"delta,omitempty"`
}

// ProfileRow is one analyzed record with its explanation.
type ProfileRow struct {
	Record        dataset.Record          `json:"record"`
	Contributions []scoring.Contribution `json:"contributions"`
	Reasons       []flagging.Reason       `json:"reasons,omitempty"`
}

// Profile is everything known about one student.
type Profile struct {
	Student  string               `json:"student_name"`
	Columns  []string             `json:"columns"`
	Rows     []ProfileRow         `json:"rows"`
	Series   []Series             `json:"series"`
	Flagged  bool                 `json:"flagged"`
	Comments []repository.Comment `json:"comments"`
}

// StudentProfile analyzes one student's records and gathers per-metric
// semester means, score breakdowns, flag reasons and comments. Students may
// only read their own profile.
func (s *Service) StudentProfile(ctx context.Context, name string, req AnalysisRequest) (*Profile, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if req.Role == model.RoleStudent && strings.TrimSpace(req.Student) != name {
		return nil, ErrForbidden
	}

	ds, err := s.store.Records(ctx, repository.Filter{Student: name})
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	if ds.Empty() {
		return nil, fmt.Errorf("student %q: %w", name, repository.ErrNotFound)
	}
	res, th, err := s.run(ctx, ds, req.Weights, req.Thresholds)
	if err != nil {
		return nil, err
	}

	out := res.Dataset
	columns := out.Columns()
	p := &Profile{Student: name, Columns: columns}
	if req.Role == model.RoleStudent {
		p.Columns = slices.DeleteFunc(slices.Clone(columns), func(c string) bool { return c == model.FieldFlagged })
	}
	for i := 0; i < out.Len(); i++ {
		r := out.Row(i)
		row := ProfileRow{
			Record:        r,
			Contributions: scoring.Contributions(r, columns, res.Weights),
		}
		if req.Role != model.RoleStudent {
			row.Reasons = flagging.Reasons(r, columns, th, res.TrendFields)
			p.Flagged = p.Flagged || len(row.Reasons) > 0
		} else {
			delete(row.Record, model.FieldFlagged)
		}
		p.Rows = append(p.Rows, row)
	}

	var metricsFields []string
	for _, k := range s.schema.NumericKeys() {
		if out.HasColumn(k) {
			metricsFields = append(metricsFields, k)
		}
	}
	pivot := trend.BuildPivot(out, metricsFields, s.labels)
	for _, f := range metricsFields {
		sr := Series{Field: f}
		if v, ok := pivot.Mean(name, f, model.PeriodFirst); ok {
			sr.First = &v
		}
		if v, ok := pivot.Mean(name, f, model.PeriodSecond); ok {
			sr.Second = &v
		}
		if v, ok := pivot.Delta(name, f); ok {
			sr.Delta = &v
		}
		p.Series = append(p.Series, sr)
	}

	if p.Comments, err = s.store.Comments(ctx, name); err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	return p, nil
}

// CommentRequest appends a note about a student.
type CommentRequest struct {
	Student string
	Role    model.Role
	Author  string
	Body    string
}

// AddComment stores a comment. Only teachers and coordinators may comment,
// and only on students that have records.
func (s *Service) AddComment(ctx context.Context, req CommentRequest) (repository.Comment, error) {
	if err := s.ready(); err != nil {
		return repository.Comment{}, err
	}
	if !req.Role.CanComment() {
		return repository.Comment{}, ErrForbidden
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return repository.Comment{}, ErrEmptyComment
	}
	student := strings.TrimSpace(req.Student)
	ds, err := s.store.Records(ctx, repository.Filter{Student: student})
	if err != nil {
		return repository.Comment{}, fmt.Errorf("load records: %w", err)
	}
	if ds.Empty() {
		return repository.Comment{}, fmt.Errorf("student %q: %w", student, repository.ErrNotFound)
	}

	c, err := s.store.AppendComment(ctx, repository.Comment{
		Student: student,
		Role:    req.Role,
		Author:  strings.TrimSpace(req.Author),
		Body:    body,
	})
	if err != nil {
		return repository.Comment{}, fmt.Errorf("append comment: %w", err)
	}
	metrics.RecordComment()
	s.logger.Info(ctx, "comment added", logger.String("student", student), logger.String("role", string(req.Role)))
	return c, nil
}

// Comments lists a student's comments. Students may only read their own.
func (s *Service) Comments(ctx context.Context, student string, role model.Role, viewer string) ([]repository.Comment, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	student = strings.TrimSpace(student)
	if role == model.RoleStudent && strings.TrimSpace(viewer) != student {
		return nil, ErrForbidden
	}
	return s.store.Comments(ctx, student)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":        s.started,
		"dedupeSize":     s.dedupeSize,
		"analyses":       s.analyses.Load(),
		"imports":        s.imports.Load(),
		"weights":        s.weights,
		"lowPercentile":  s.thresholds.LowPercentile,
		"dropThreshold":  s.thresholds.Drop,
		"semesterFirst":  s.labels.First,
		"semesterSecond": s.labels.Second,
	}
	if s.started {
		stats["dedupeEntries"] = s.deduper.Size()
		if names, err := s.store.Students(context.Background()); err == nil {
			stats["students"] = len(names)
		}
	}
	return stats
}
