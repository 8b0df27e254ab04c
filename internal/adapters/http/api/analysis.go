package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/okian/gradelens/internal/adapters/repository"
	service "github.com/okian/gradelens/internal/app"
	"github.com/okian/gradelens/internal/domain/dataset"
	"github.com/okian/gradelens/internal/domain/flagging"
	"github.com/okian/gradelens/internal/domain/model"
	"github.com/okian/gradelens/internal/domain/weights"
	"github.com/okian/gradelens/pkg/logger"
)

// Analyzer is the slice of the service the analysis endpoints need.
type Analyzer interface {
	Defaults() (weights.Map, flagging.Thresholds)
	Analyze(ctx context.Context, req service.AnalysisRequest) (*service.Analysis, error)
	Export(ctx context.Context, req service.AnalysisRequest, w io.Writer) (int, error)
}

// AnalysisHandler runs analyses over stored records.
type AnalysisHandler struct {
	analyzer Analyzer
	logger   logger.Logger
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(a Analyzer, l logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{analyzer: a, logger: l}
}

// analysisRequest is the JSON body of POST /analysis and /analysis/export.
// Omitted weights and thresholds fall back to the service defaults.
type analysisRequest struct {
	Weights       map[string]float64 `json:"weights,omitempty"`
	LowPercentile *int               `json:"low_percentile,omitempty"`
	Drop          *int               `json:"drop,omitempty"`
	Student       string             `json:"student,omitempty"`
	ClassName     string             `json:"class_name,omitempty"`
	ImportID      string             `json:"import_id,omitempty"`
}

type analysisResponse struct {
	Role        model.Role          `json:"role"`
	Columns     []string            `json:"columns"`
	Rows        []dataset.Record    `json:"rows"`
	TrendFields []string            `json:"trend_fields"`
	Weights     weights.Map         `json:"weights"`
	Thresholds  flagging.Thresholds `json:"thresholds"`
	Total       int                 `json:"total"`
	Flagged     *int                `json:"flagged,omitempty"`
}

// HandleAnalysis handles POST /analysis.
func (h *AnalysisHandler) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	const op = "api.analysis"
	if r.Method != http.MethodPost {
		fail(r.Context(), h.logger, w, NewKind(op, ErrMethodNotAllowed))
		return
	}
	req, err := h.request(r)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	a, err := h.analyzer.Analyze(r.Context(), req)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, newAnalysisResponse(a))
}

// HandleExport handles POST /analysis/export and streams the flagged rows as CSV.
func (h *AnalysisHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.analysis_export"
	if r.Method != http.MethodPost {
		fail(r.Context(), h.logger, w, NewKind(op, ErrMethodNotAllowed))
		return
	}
	req, err := h.request(r)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	var buf bytes.Buffer
	n, err := h.analyzer.Export(r.Context(), req, &buf)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="flagged.csv"`)
	w.Header().Set("X-Row-Count", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *AnalysisHandler) request(r *http.Request) (service.AnalysisRequest, error) {
	c, err := callerFrom(r)
	if err != nil {
		return service.AnalysisRequest{}, err
	}
	var body analysisRequest
	if err := decodeJSON(r, &body); err != nil {
		return service.AnalysisRequest{}, WrapKind("api.decode_analysis", ErrBadRequest, err)
	}
	req := service.AnalysisRequest{
		Role:    c.Role,
		Student: c.Student,
		Filter: repository.Filter{
			Student:  body.Student,
			Class:    body.ClassName,
			ImportID: body.ImportID,
		},
	}
	if body.Weights != nil {
		req.Weights = weights.Map(body.Weights)
	}
	if body.LowPercentile != nil || body.Drop != nil {
		_, th := h.analyzer.Defaults()
		if body.LowPercentile != nil {
			th.LowPercentile = *body.LowPercentile
		}
		if body.Drop != nil {
			th.Drop = *body.Drop
		}
		req.Thresholds = &th
	}
	return req, nil
}

func newAnalysisResponse(a *service.Analysis) analysisResponse {
	resp := analysisResponse{
		Role:        a.Role,
		Columns:     a.View.Columns(),
		Rows:        a.View.Rows(),
		TrendFields: a.Result.TrendFields,
		Weights:     a.Result.Weights,
		Thresholds:  a.Thresholds,
		Total:       a.View.Len(),
	}
	if resp.Rows == nil {
		resp.Rows = []dataset.Record{}
	}
	if resp.TrendFields == nil {
		resp.TrendFields = []string{}
	}
	if a.Role != model.RoleStudent {
		flagged := a.Result.Flagged()
		resp.Flagged = &flagged
	}
	return resp
}
