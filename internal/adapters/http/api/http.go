// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/okian/gradelens/internal/adapters/repository"
	service "github.com/okian/gradelens/internal/app"
	"github.com/okian/gradelens/internal/domain/flagging"
	"github.com/okian/gradelens/internal/domain/model"
	"github.com/okian/gradelens/internal/domain/schema"
	"github.com/okian/gradelens/internal/domain/weights"
	"github.com/okian/gradelens/pkg/logger"
)

// Request headers that identify the caller.
const (
	HeaderRole    = "X-Role"
	HeaderStudent = "X-Student"
	HeaderUser    = "X-User"
)

const defaultMaxUploadBytes = 10 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StatsProvider

	Schema() *schema.Schema
	Defaults() (weights.Map, flagging.Thresholds)

	SuggestMapping(ctx context.Context, name string, content []byte) (service.Suggestion, error)
	Import(ctx context.Context, req service.ImportRequest) (service.ImportResult, error)
	Imports(ctx context.Context) ([]repository.Import, error)

	Analyze(ctx context.Context, req service.AnalysisRequest) (*service.Analysis, error)
	Export(ctx context.Context, req service.AnalysisRequest, w io.Writer) (int, error)

	Students(ctx context.Context) ([]string, error)
	StudentProfile(ctx context.Context, name string, req service.AnalysisRequest) (*service.Profile, error)
	AddComment(ctx context.Context, req service.CommentRequest) (repository.Comment, error)
	Comments(ctx context.Context, student string, role model.Role, viewer string) ([]repository.Comment, error)
}

// Option configures a Server.
type Option func(*Server)

// WithMaxUploadBytes caps multipart request bodies.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithLogger sets the logger used for request failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	maxUploadBytes int64
	logger         logger.Logger

	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	dashboardHandler *dashboardHandler
	schemaHandler    *SchemaHandler
	importsHandler   *ImportsHandler
	analysisHandler  *AnalysisHandler
	studentsHandler  *StudentsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{maxUploadBytes: defaultMaxUploadBytes}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("api")
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps)
	s.dashboardHandler = newDashboardHandler()
	s.schemaHandler = NewSchemaHandler(deps)
	s.importsHandler = NewImportsHandler(deps, s.maxUploadBytes, s.logger)
	s.analysisHandler = NewAnalysisHandler(deps, s.logger)
	s.studentsHandler = NewStudentsHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/schema", MetricsMiddleware(s.schemaHandler.HandleGetSchema, "schema"))
	mux.HandleFunc("/mappings/suggest", MetricsMiddleware(s.importsHandler.HandleSuggest, "mappings_suggest"))
	mux.HandleFunc("/imports", MetricsMiddleware(s.importsHandler.HandleImports, "imports"))
	mux.HandleFunc("/analysis", MetricsMiddleware(s.analysisHandler.HandleAnalysis, "analysis"))
	mux.HandleFunc("/analysis/export", MetricsMiddleware(s.analysisHandler.HandleExport, "analysis_export"))
	mux.HandleFunc("/students", MetricsMiddleware(s.studentsHandler.HandleList, "students"))
	mux.HandleFunc("/students/", MetricsMiddleware(s.studentsHandler.HandleStudent, "student"))
}

// caller is the identity carried by request headers.
type caller struct {
	Role    model.Role
	Student string
	User    string
}

func callerFrom(r *http.Request) (caller, error) {
	role, err := model.ParseRole(r.Header.Get(HeaderRole))
	if err != nil {
		return caller{}, fmt.Errorf("%w: %w", ErrUnknownRole, err)
	}
	c := caller{
		Role:    role,
		Student: strings.TrimSpace(r.Header.Get(HeaderStudent)),
		User:    strings.TrimSpace(r.Header.Get(HeaderUser)),
	}
	if c.User == "" && role == model.RoleStudent {
		c.User = c.Student
	}
	return c, nil
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Code: "internal", Message: "encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail classifies err, logs server-side failures and writes the response.
func fail(ctx context.Context, l logger.Logger, w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		l.Error(ctx, "request failed", logger.String("code", code), logger.Error(err))
	}
	writeError(w, status, code, err)
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
