package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	urfave "github.com/urfave/cli/v3"

	"github.com/okian/gradelens/internal/adapters/repository"
	"github.com/okian/gradelens/internal/adapters/tabular"
	service "github.com/okian/gradelens/internal/app"
	"github.com/okian/gradelens/internal/domain/dataset"
	"github.com/okian/gradelens/internal/domain/flagging"
	"github.com/okian/gradelens/internal/domain/model"
	"github.com/okian/gradelens/internal/domain/view"
	"github.com/okian/gradelens/internal/domain/weights"
)

func weightsFlag() urfave.Flag {
	return &urfave.StringFlag{
		Name:  flagWeights,
		Usage: "Comma separated field=weight pairs, e.g. quiz_avg=0.2,quarter_exam=0.3 (default: schema weights)",
	}
}

func lowPercentileFlag() urfave.Flag {
	return &urfave.IntFlag{
		Name:  flagLowPercentile,
		Usage: "Flag records whose national percentile is below this (default: schema threshold)",
	}
}

func dropFlag() urfave.Flag {
	return &urfave.IntFlag{
		Name:  flagDrop,
		Usage: "Flag students whose semester delta is at or below minus this (default: schema threshold)",
	}
}

func firstFlag() urfave.Flag {
	return &urfave.StringFlag{
		Name:  flagFirst,
		Usage: "Raw label of the first semester (default: schema label)",
	}
}

func secondFlag() urfave.Flag {
	return &urfave.StringFlag{
		Name:  flagSecond,
		Usage: "Raw label of the second semester (default: schema label)",
	}
}

func flaggedOnlyFlag() urfave.Flag {
	return &urfave.BoolFlag{
		Name:  flagFlaggedOnly,
		Usage: "Only output flagged records",
	}
}

func classFlag() urfave.Flag {
	return &urfave.StringFlag{
		Name:  flagClass,
		Usage: "Only analyze records of this class",
	}
}

func studentFlag() urfave.Flag {
	return &urfave.StringFlag{
		Name:  flagStudent,
		Usage: "Only analyze records of this student",
	}
}

type analyzeOutput struct {
	Columns     []string            `json:"columns" yaml:"columns"`
	Rows        []dataset.Record    `json:"rows" yaml:"rows"`
	TrendFields []string            `json:"trend_fields" yaml:"trend_fields"`
	Weights     weights.Map         `json:"weights" yaml:"weights"`
	Thresholds  flagging.Thresholds `json:"thresholds" yaml:"thresholds"`
	Total       int                 `json:"total" yaml:"total"`
	Flagged     int                 `json:"flagged" yaml:"flagged"`
}

func (a *app) analyzeCmd() *urfave.Command {
	return &urfave.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Score, trend and flag one or more grade sheets, or a database",
		ArgsUsage: "[FILE...]",
		UsageText: `gradectl analyze grades.xlsx                                  # default weights and thresholds
   gradectl analyze --weights quiz_avg=1,half_semester_final=1 a.csv b.csv
   gradectl -f csv -o flagged.csv analyze --flagged-only grades.csv
   gradectl analyze --db grades.db --class 10A                   # records stored with "import"`,
		Flags: []urfave.Flag{
			dbFlag(),
			mappingFlag(),
			weightsFlag(),
			lowPercentileFlag(),
			dropFlag(),
			firstFlag(),
			secondFlag(),
			flaggedOnlyFlag(),
			classFlag(),
			studentFlag(),
		},
		Action: a.cmdAnalyze,
	}
}

func (a *app) cmdAnalyze(ctx context.Context, cmd *urfave.Command) error {
	f, err := format(cmd)
	if err != nil {
		return err
	}
	if f == formatXLSX && cmd.String(flagOutput) == "" {
		return ErrBinaryToStdout
	}

	paths := cmd.Args().Slice()
	db := cmd.String(flagDB)
	switch {
	case db != "" && len(paths) > 0:
		return ErrFilesWithDB
	case db == "" && len(paths) == 0:
		return ErrNoInput
	}

	req, err := a.analysisRequest(cmd)
	if err != nil {
		return err
	}

	driver, dsn := storeFor(db)
	svc, err := a.newService(ctx, driver, dsn,
		service.WithPeriodLabels(a.labels(cmd.String(flagFirst), cmd.String(flagSecond))))
	if err != nil {
		return err
	}
	defer svc.Stop()

	if len(paths) > 0 {
		if err := a.load(ctx, svc, paths, cmd.String(flagMapping)); err != nil {
			return err
		}
	}

	res, err := svc.Analyze(ctx, req)
	if err != nil {
		return err
	}

	ds := res.View
	if cmd.Bool(flagFlaggedOnly) {
		ds = view.FlaggedOnly(ds)
	}

	switch f {
	case formatCSV:
		return a.output(cmd, func(w io.Writer) error { return tabular.WriteCSV(w, ds) })
	case formatXLSX:
		return a.output(cmd, func(w io.Writer) error { return tabular.WriteXLSX(w, ds) })
	}
	return a.encode(cmd, analyzeOutput{
		Columns:     ds.Columns(),
		Rows:        ds.Rows(),
		TrendFields: res.Result.TrendFields,
		Weights:     res.Result.Weights,
		Thresholds:  res.Thresholds,
		Total:       res.Result.Dataset.Len(),
		Flagged:     res.Result.Flagged(),
	})
}

// analysisRequest builds the coordinator request from the analyze flags.
func (a *app) analysisRequest(cmd *urfave.Command) (service.AnalysisRequest, error) {
	req := service.AnalysisRequest{
		Role: model.RoleCoordinator,
		Filter: repository.Filter{
			Class:   cmd.String(flagClass),
			Student: cmd.String(flagStudent),
		},
	}
	if s := cmd.String(flagWeights); s != "" {
		w, err := weights.Parse(s)
		if err != nil {
			return req, err
		}
		req.Weights = w
	}
	if cmd.IsSet(flagLowPercentile) || cmd.IsSet(flagDrop) {
		th := a.schema.ThresholdsDefault
		if cmd.IsSet(flagLowPercentile) {
			th.LowPercentile = cmd.Int(flagLowPercentile)
		}
		if cmd.IsSet(flagDrop) {
			th.Drop = cmd.Int(flagDrop)
		}
		if th.LowPercentile < 0 || th.LowPercentile > 100 || th.Drop < 0 || th.Drop > 100 {
			return req, fmt.Errorf("thresholds must be within 0..100, got low-percentile=%d drop=%d", th.LowPercentile, th.Drop)
		}
		req.Thresholds = &th
	}
	return req, nil
}

// load reads the sheets concurrently and imports them in argument order.
func (a *app) load(ctx context.Context, svc *service.Service, paths []string, mappingPath string) error {
	m, err := readMapping(mappingPath, a.schema)
	if err != nil {
		return err
	}
	sheets, err := readFiles(ctx, paths)
	if err != nil {
		return err
	}
	for _, s := range sheets {
		if _, err := svc.Import(ctx, service.ImportRequest{
			FileName: filepath.Base(s.path),
			Content:  s.content,
			Mapping:  m,
		}); err != nil {
			return fmt.Errorf("importing %s: %w", s.path, err)
		}
	}
	return nil
}
