// Package service implements the application use cases behind the HTTP API
// and the CLI: imports, analyses, student profiles and comments.
package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/gradelens/internal/adapters/repository"
	"github.com/okian/gradelens/internal/adapters/tabular"
	"github.com/okian/gradelens/internal/domain/analysis"
	"github.com/okian/gradelens/internal/domain/dataset"
	"github.com/okian/gradelens/internal/domain/dedupe"
	"github.com/okian/gradelens/internal/domain/flagging"
	"github.com/okian/gradelens/internal/domain/mapping"
	"github.com/okian/gradelens/internal/domain/model"
	"github.com/okian/gradelens/internal/domain/schema"
	"github.com/okian/gradelens/internal/domain/view"
	"github.com/okian/gradelens/internal/domain/weights"
	"github.com/okian/gradelens/pkg/logger"
	"github.com/okian/gradelens/pkg/metrics"
)

const (
	defaultDedupeSize     = 10000
	defaultMaxUploadBytes = 20 << 20
)

// Service wires the analytics core to the store.
type Service struct {
	mu sync.RWMutex

	store   repository.Store
	schema  *schema.Schema
	deduper dedupe.Deduper

	dedupeSize     int
	maxUploadBytes int64
	weights        weights.Map
	thresholds     *flagging.Thresholds
	labels         model.PeriodLabels
	newID          func() string

	started  bool
	analyses atomic.Int64
	imports  atomic.Int64

	logger logger.Logger
}

// New constructs a Service. Call Start before use.
func New(opts ...Option) *Service {
	s := &Service{
		schema:         schema.Default(),
		dedupeSize:     defaultDedupeSize,
		maxUploadBytes: defaultMaxUploadBytes,
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.weights) == 0 {
		s.weights = s.schema.DefaultWeights()
	}
	if s.thresholds == nil {
		th := s.schema.ThresholdsDefault
		s.thresholds = &th
	}
	if s.labels == (model.PeriodLabels{}) {
		s.labels = s.schema.PeriodLabels()
	}
	return s
}

// Start validates the defaults and prepares the store and deduper.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if _, err := weights.Normalize(s.weights); err != nil {
		return fmt.Errorf("default weights: %w", err)
	}
	if err := s.labels.Validate(); err != nil {
		return fmt.Errorf("semester labels: %w", err)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore(s.schema.Keys())
		s.logger.Info(ctx, "using in-memory record store")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.started = true

	s.logger.Info(ctx, "analytics service started",
		logger.Int("fields", len(s.schema.Fields)),
		logger.Any("weights", s.weights),
		logger.Int("low_percentile", s.thresholds.LowPercentile),
		logger.Int("drop", s.thresholds.Drop),
		logger.String("semester_first", s.labels.First),
		logger.String("semester_second", s.labels.Second),
	)
	return nil
}

// Stop closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false
	if err := s.store.Close(); err != nil && s.logger != nil {
		s.logger.Error(context.Background(), "failed to close store", logger.Error(err))
	}
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// Schema returns the canonical schema.
func (s *Service) Schema() *schema.Schema { return s.schema }

// Defaults returns the default weights and thresholds.
func (s *Service) Defaults() (weights.Map, flagging.Thresholds) {
	return s.weights.Clone(), *s.thresholds
}

// Suggestion is a proposed column mapping for an uploaded file.
type Suggestion struct {
	Headers         []string        `json:"headers"`
	Mapping         mapping.Mapping `json:"mapping"`
	MissingRequired []string        `json:"missing_required"`
	Rows            int             `json:"rows"`
}

// SuggestMapping reads the file and proposes a mapping from its headers.
func (s *Service) SuggestMapping(_ context.Context, name string, content []byte) (Suggestion, error) {
	tbl, err := s.readTable(name, content)
	if err != nil {
		return Suggestion{}, err
	}
	m := mapping.Suggest(s.schema, tbl.Headers)
	return Suggestion{
		Headers:         tbl.Headers,
		Mapping:         m,
		MissingRequired: mapping.MissingRequired(s.schema, m),
		Rows:            len(tbl.Rows),
	}, nil
}

func (s *Service) readTable(name string, content []byte) (dataset.Table, error) {
	if len(content) == 0 {
		return dataset.Table{}, ErrEmptyUpload
	}
	if int64(len(content)) > s.maxUploadBytes {
		return dataset.Table{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(content))
	}
	return tabular.Read(name, bytes.NewReader(content))
}

// ImportRequest carries an uploaded file and its column mapping.
// A nil Mapping means "use the suggested mapping".
type ImportRequest struct {
	FileName string
	Content  []byte
	Mapping  mapping.Mapping
}

// ImportResult reports the stored import.
type ImportResult struct {
	Import    repository.Import `json:"import"`
	Mapping   mapping.Mapping   `json:"mapping"`
	Duplicate bool              `json:"duplicate"`
}

// Import parses, maps and persists an uploaded file. Re-uploading identical
// content with an identical mapping returns the earlier import.
func (s *Service) Import(ctx context.Context, req ImportRequest) (ImportResult, error) {
	if err := s.ready(); err != nil {
		return ImportResult{}, err
	}
	tbl, err := s.readTable(req.FileName, req.Content)
	if err != nil {
		metrics.RecordImport(metrics.OutcomeInvalid, 0)
		return ImportResult{}, err
	}
	m := req.Mapping
	if m == nil {
		m = mapping.Suggest(s.schema, tbl.Headers)
	}
	if err := mapping.Validate(s.schema, m); err != nil {
		metrics.RecordImport(metrics.OutcomeInvalid, 0)
		return ImportResult{}, err
	}

	key := fingerprint(req.Content, m)
	if s.deduper.SeenAndRecord(ctx, key) {
		return s.duplicate(ctx, key, m)
	}
	if prev, err := s.store.ImportByChecksum(ctx, key); err == nil {
		metrics.RecordImport(metrics.OutcomeDuplicate, 0)
		return ImportResult{Import: prev, Mapping: m, Duplicate: true}, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		s.deduper.Unrecord(ctx, key)
		return ImportResult{}, fmt.Errorf("lookup import: %w", err)
	}

	ds := mapping.Normalize(tbl, m, s.schema)
	imp := repository.Import{
		ID:       s.newID(),
		FileName: req.FileName,
		Checksum: key,
		Columns:  ds.Columns(),
		Rows:     ds.Len(),
	}
	if err := s.store.SaveImport(ctx, imp, ds.Rows()); err != nil {
		s.deduper.Unrecord(ctx, key)
		metrics.RecordImport(metrics.OutcomeError, 0)
		s.logger.Error(ctx, "import failed", logger.String("file", req.FileName), logger.Error(err))
		return ImportResult{}, fmt.Errorf("save import: %w", err)
	}

	if saved, err := s.store.ImportByChecksum(ctx, key); err == nil {
		imp = saved
	}

	s.imports.Add(1)
	metrics.RecordImport(metrics.OutcomeOK, ds.Len())
	s.logger.Info(ctx, "import stored",
		logger.String("import_id", imp.ID),
		logger.String("file", req.FileName),
		logger.Int("rows", ds.Len()),
		logger.Any("columns", imp.Columns),
	)
	return ImportResult{Import: imp, Mapping: m}, nil
}

func (s *Service) duplicate(ctx context.Context, key string, m mapping.Mapping) (ImportResult, error) {
	metrics.RecordImport(metrics.OutcomeDuplicate, 0)
	prev, err := s.store.ImportByChecksum(ctx, key)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return ImportResult{}, fmt.Errorf("lookup import: %w", err)
	}
	// a concurrent first upload may still be saving; prev is then empty
	return ImportResult{Import: prev, Mapping: m, Duplicate: true}, nil
}

// fingerprint hashes the file bytes together with the mapping.
func fingerprint(content []byte, m mapping.Mapping) string {
	h := sha256.New()
	h.Write(content)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "\x00%s=%s", k, m[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Imports lists stored imports.
func (s *Service) Imports(ctx context.Context) ([]repository.Import, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.Imports(ctx)
}

// Students lists known student names.
func (s *Service) Students(ctx context.Context) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.Students(ctx)
}

// AnalysisRequest selects records and parameters for one analysis.
// Zero values fall back to the service defaults.
type AnalysisRequest struct {
	Weights    weights.Map
	Thresholds *flagging.Thresholds
	Filter     repository.Filter
	Role       model.Role
	// Student identifies the caller when Role is student.
	Student string
}

// Analysis is the outcome of Analyze.
type Analysis struct {
	Result *analysis.Result
	// View is the role projection of Result.Dataset.
	View       dataset.Dataset
	Role       model.Role
	Thresholds flagging.Thresholds
}

// Analyze loads records and runs the analytics pipeline on them. Invalid
// weights are returned as errors matching weights.ErrInvalidInput.
func (s *Service) Analyze(ctx context.Context, req AnalysisRequest) (*Analysis, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = model.RoleCoordinator
	}
	filter := req.Filter
	if role == model.RoleStudent {
		student := strings.TrimSpace(req.Student)
		if student == "" {
			return nil, view.ErrStudentRequired
		}
		if filter.Student != "" && filter.Student != student {
			return nil, ErrForbidden
		}
		filter.Student = student
	}

	ds, err := s.store.Records(ctx, filter)
	if err != nil {
		metrics.RecordAnalysis(metrics.OutcomeError, 0, 0, 0)
		return nil, fmt.Errorf("load records: %w", err)
	}

	res, th, err := s.run(ctx, ds, req.Weights, req.Thresholds)
	if err != nil {
		return nil, err
	}
	projected, err := view.Project(res.Dataset, role, req.Student)
	if err != nil {
		return nil, err
	}
	return &Analysis{Result: res, View: projected, Role: role, Thresholds: th}, nil
}

// run applies defaults and executes the pipeline with logging and metrics.
func (s *Service) run(ctx context.Context, ds dataset.Dataset, w weights.Map, th *flagging.Thresholds) (*analysis.Result, flagging.Thresholds, error) {
	if w == nil {
		w = s.weights
	}
	thresholds := *s.thresholds
	if th != nil {
		thresholds = *th
	}

	start := time.Now()
	res, err := analysis.Run(ds, analysis.Params{
		Weights:    w,
		Fields:     s.fieldOrder(w),
		Thresholds: thresholds,
		Labels:     s.labels,
	})
	if err != nil {
		metrics.RecordWeightRejection(weights.Reason(err))
		metrics.RecordAnalysis(metrics.OutcomeInvalid, 0, 0, 0)
		s.logger.Warn(ctx, "analysis rejected", logger.Error(err))
		return nil, thresholds, err
	}

	latency := float64(time.Since(start).Microseconds()) / 1000
	flagged := res.Flagged()
	s.analyses.Add(1)
	metrics.RecordAnalysis(metrics.OutcomeOK, latency, res.Dataset.Len(), flagged)
	s.logger.Debug(ctx, "analysis complete",
		logger.Int("rows", res.Dataset.Len()),
		logger.Int("flagged", flagged),
		logger.Any("trend_fields", res.TrendFields),
		logger.Float64("latency_ms", latency),
	)
	return res, thresholds, nil
}

// fieldOrder lists weight keys in schema order, unknown keys last and sorted.
func (s *Service) fieldOrder(w weights.Map) []string {
	var out []string
	for _, k := range s.schema.Keys() {
		if _, ok := w[k]; ok {
			out = append(out, k)
		}
	}
	for _, k := range w.Keys() {
		if !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out
}

// Export writes the flagged rows of the role's view as CSV.
func (s *Service) Export(ctx context.Context, req AnalysisRequest, w io.Writer) (int, error) {
	if req.Role == model.RoleStudent {
		return 0, ErrForbidden
	}
	a, err := s.Analyze(ctx, req)
	if err != nil {
		return 0, err
	}
	flagged := a.View
	if flagged.HasColumn(model.FieldFlagged) {
		flagged = view.FlaggedOnly(flagged)
	}
	if err := tabular.WriteCSV(w, flagged); err != nil {
		return 0, err
	}
	return flagged.Len(), nil
}
