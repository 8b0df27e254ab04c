package samplegen

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/okian/gradelens/pkg/logger"
)

// Response shapes the run reads back from the service.
type (
	suggestion struct {
		Headers         []string          `json:"headers"`
		Mapping         map[string]string `json:"mapping"`
		MissingRequired []string          `json:"missing_required"`
		Rows            int               `json:"rows"`
	}

	importResult struct {
		Import struct {
			ID   string `json:"id"`
			Rows int    `json:"rows"`
		} `json:"import"`
		Duplicate bool `json:"duplicate"`
	}

	analysisResult struct {
		Columns     []string         `json:"columns"`
		Rows        []map[string]any `json:"rows"`
		TrendFields []string         `json:"trend_fields"`
		Total       int              `json:"total"`
		Flagged     *int             `json:"flagged"`
	}

	profileResult struct {
		Student string `json:"student_name"`
		Flagged bool   `json:"flagged"`
		Rows    []any  `json:"rows"`
	}
)

// verifyAnalysis checks the analyzed class against what the generated
// profiles must produce.
func verifyAnalysis(ctx context.Context, class *Class, res *analysisResult, stats *Stats) error {
	logger.Get().Info(ctx, "verifying analysis", logger.Int("rows", res.Total))

	if res.Total != len(class.Rows) || len(res.Rows) != len(class.Rows) {
		return fmt.Errorf("row count mismatch: sent %d, analyzed %d (%d returned)", len(class.Rows), res.Total, len(res.Rows))
	}
	for _, col := range []string{"overall_score", "flagged"} {
		if !slices.Contains(res.Columns, col) {
			return fmt.Errorf("analysis is missing column %q", col)
		}
	}
	if len(res.TrendFields) == 0 {
		return fmt.Errorf("analysis computed no trend fields")
	}
	for _, f := range res.TrendFields {
		if !slices.Contains(res.Columns, "delta_"+f) {
			return fmt.Errorf("analysis is missing trend column %q", "delta_"+f)
		}
	}

	got := make(map[string]bool)
	flaggedRows := 0
	for _, row := range res.Rows {
		if flagged, _ := row["flagged"].(bool); flagged {
			flaggedRows++
			if name, ok := row["student_name"].(string); ok {
				got[name] = true
			}
		}
	}
	stats.RowsAnalyzed = res.Total
	stats.Flagged = len(got)

	want := class.ExpectedFlagged()
	if missing, extra := diff(want, got), diff(got, want); len(missing) > 0 || len(extra) > 0 {
		return fmt.Errorf("flagged students mismatch: missing [%s], unexpected [%s]",
			strings.Join(missing, ", "), strings.Join(extra, ", "))
	}
	if res.Flagged != nil && *res.Flagged != flaggedRows {
		return fmt.Errorf("flagged count %d disagrees with %d flagged rows", *res.Flagged, flaggedRows)
	}
	if flaggedRows != 2*len(want) {
		return fmt.Errorf("expected both semesters flagged for %d students, got %d rows", len(want), flaggedRows)
	}

	logger.Get().Info(ctx, "analysis verified",
		logger.Int("flaggedStudents", len(got)),
		logger.Int("flaggedRows", flaggedRows))
	return nil
}

// verifyProfile checks one student profile against the generated pattern.
func verifyProfile(class *Class, name string, p *profileResult) error {
	if p.Student != name {
		return fmt.Errorf("profile for %q returned %q", name, p.Student)
	}
	if len(p.Rows) != 2 {
		return fmt.Errorf("profile for %q has %d rows, want 2", name, len(p.Rows))
	}
	if want := class.ExpectedFlagged()[name]; p.Flagged != want {
		return fmt.Errorf("profile for %q flagged=%v, want %v", name, p.Flagged, want)
	}
	return nil
}

// diff returns the sorted keys of a that are absent from b.
func diff(a, b map[string]bool) []string {
	var out []string
	for k := range a {
		if !b[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
