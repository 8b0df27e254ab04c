// Package analysis chains the analytics stages: weight normalization,
// overall score, semester trends and flagging.
package analysis

import (
	"github.com/okian/gradelens/internal/domain/dataset"
	"github.com/okian/gradelens/internal/domain/flagging"
	"github.com/okian/gradelens/internal/domain/model"
	"github.com/okian/gradelens/internal/domain/scoring"
	"github.com/okian/gradelens/internal/domain/trend"
	"github.com/okian/gradelens/internal/domain/weights"
)

// Params configure one run.
type Params struct {
	Weights weights.Map
	// Fields orders the weighted field names used for trends.
	// Defaults to the sorted weight keys.
	Fields     []string
	Thresholds flagging.Thresholds
	Labels     model.PeriodLabels
}

// Result is the output of a run.
type Result struct {
	Dataset     dataset.Dataset
	TrendFields []string
	Weights     weights.Map
}

// Flagged counts flagged records in the result.
func (r *Result) Flagged() int {
	n := 0
	for i := 0; i < r.Dataset.Len(); i++ {
		if model.Bool(r.Dataset.Value(i, model.FieldFlagged)) {
			n++
		}
	}
	return n
}

// Run normalizes the weights and, when they are valid, scores, trends and
// flags a copy of ds. A weights error is returned before any stage runs.
func Run(ds dataset.Dataset, p Params) (*Result, error) {
	w, err := weights.Normalize(p.Weights)
	if err != nil {
		return nil, err
	}
	fields := p.Fields
	if len(fields) == 0 {
		fields = w.Keys()
	}
	labels := p.Labels
	if labels == (model.PeriodLabels{}) {
		labels = model.DefaultPeriodLabels()
	}

	scored := scoring.OverallScore(ds, w)
	trended, trendFields := trend.Compute(scored, fields, labels)
	flagged := flagging.Apply(trended, p.Thresholds, trendFields)

	return &Result{Dataset: flagged, TrendFields: trendFields, Weights: w}, nil
}
