// Package flagging marks at-risk records from percentile and trend thresholds.
package flagging

import (
	"math"

	"github.com/okian/gradelens/internal/domain/dataset"
	"github.com/okian/gradelens/internal/domain/model"
)

// Thresholds are the two operator-supplied cut-offs, both on a 0..100 scale.
type Thresholds struct {
	// LowPercentile flags records whose national percentile is strictly below it.
	LowPercentile int `json:"low_percentile" yaml:"low_percentile" koanf:"low_percentile"`
	// Drop flags records whose trend delta is at or below -|Drop|.
	Drop int `json:"drop" yaml:"drop" koanf:"drop"`
}

// ReasonKind names the criterion that raised a flag.
type ReasonKind string

const (
	ReasonLowPercentile ReasonKind = "low_percentile"
	ReasonDrop          ReasonKind = "significant_drop"
)

// Reason describes one criterion that fired for a record.
type Reason struct {
	Kind      ReasonKind `json:"kind"`
	Field     string     `json:"field"`
	Value     float64    `json:"value"`
	Threshold float64    `json:"threshold"`
}

// Apply returns a copy of ds with a boolean flagged column. A record is
// flagged when its national_percentile is below th.LowPercentile, or when the
// delta of any trend field is at or below -|th.Drop|. Absent or unparseable
// values never flag, and a missing column disables its criterion.
func Apply(ds dataset.Dataset, th Thresholds, trendFields []string) dataset.Dataset {
	columns := ds.Columns()
	return ds.WithColumn(model.FieldFlagged, func(_ int, r dataset.Record) any {
		return len(Reasons(r, columns, th, trendFields)) > 0
	})
}

// Reasons lists the criteria that flag r, in evaluation order.
func Reasons(r dataset.Record, columns []string, th Thresholds, trendFields []string) []Reason {
	has := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		has[c] = struct{}{}
	}

	var out []Reason
	if _, ok := has[model.FieldNationalPercentile]; ok {
		if v, ok := model.Number(r[model.FieldNationalPercentile]); ok && v < float64(th.LowPercentile) {
			out = append(out, Reason{
				Kind: ReasonLowPercentile, Field: model.FieldNationalPercentile,
				Value: v, Threshold: float64(th.LowPercentile),
			})
		}
	}

	limit := -math.Abs(float64(th.Drop))
	for _, f := range trendFields {
		col := model.DeltaField(f)
		if _, ok := has[col]; !ok {
			continue
		}
		if v, ok := model.Number(r[col]); ok && v <= limit {
			out = append(out, Reason{Kind: ReasonDrop, Field: col, Value: v, Threshold: limit})
		}
	}
	return out
}
