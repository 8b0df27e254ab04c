// Package cli implements gradectl, the command line front end of the
// grade analytics service.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	urfave "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	service "github.com/okian/gradelens/internal/app"
	"github.com/okian/gradelens/internal/adapters/repository"
	"github.com/okian/gradelens/internal/domain/model"
	"github.com/okian/gradelens/internal/domain/schema"
	"github.com/okian/gradelens/pkg/logger"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatCSV  = "csv"
	formatXLSX = "xlsx"

	filePermission = 0600

	// maxFileBytes caps a single input sheet.
	maxFileBytes = 256 << 20
)

const (
	flagDebug         = "debug"
	flagFormat        = "format"
	flagOutput        = "output"
	flagSchema        = "schema"
	flagDB            = "db"
	flagMapping       = "mapping"
	flagWeights       = "weights"
	flagLowPercentile = "low-percentile"
	flagDrop          = "drop"
	flagFirst         = "first"
	flagSecond        = "second"
	flagFlaggedOnly   = "flagged-only"
	flagClass         = "class"
	flagStudent       = "student"
	flagMappingOnly   = "mapping-only"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""
)

func debugFlag() urfave.Flag {
	return &urfave.BoolFlag{
		Name:  flagDebug,
		Usage: "Prints verbose logs (optional, default: false)",
	}
}

func formatFlag() urfave.Flag {
	return &urfave.StringFlag{
		Name:    flagFormat,
		Aliases: []string{"f"},
		Usage:   "Output format [json, yaml, csv, xlsx]",
		Value:   formatJSON,
	}
}

func outputFlag() urfave.Flag {
	return &urfave.StringFlag{
		Name:    flagOutput,
		Aliases: []string{"o"},
		Usage:   "Write output to this file instead of stdout",
	}
}

func schemaFlag() urfave.Flag {
	return &urfave.StringFlag{
		Name:    flagSchema,
		Usage:   "Path to a schema YAML file (default: built-in schema)",
		Sources: urfave.EnvVars("GRADELENS_SCHEMA_PATH"),
	}
}

func dbFlag() urfave.Flag {
	return &urfave.StringFlag{
		Name:  flagDB,
		Usage: "Path to the sqlite database file",
	}
}

func mappingFlag() urfave.Flag {
	return &urfave.StringFlag{
		Name:  flagMapping,
		Usage: "YAML or JSON file of canonical field to source column (default: suggested)",
	}
}

// app holds what the commands share for one invocation.
type app struct {
	out    io.Writer
	errOut io.Writer
	schema *schema.Schema
}

// Execute runs gradectl with the process arguments.
func Execute(ctx context.Context) {
	if err := NewApp(os.Stdout, os.Stderr).Run(ctx, os.Args); err != nil {
		logger.Get().Error(ctx, "fatal error", logger.Error(err))
		os.Exit(1)
	}
}

// NewApp builds the root command writing results to out and logs to errOut.
func NewApp(out, errOut io.Writer) *urfave.Command {
	a := &app{out: out, errOut: errOut}
	return &urfave.Command{
		Name:      "gradectl",
		Version:   fmt.Sprintf("%s (%s - %s)", version, commit, date),
		Usage:     "Weighted scores, semester trends and at-risk flags for class grade sheets",
		Writer:    out,
		ErrWriter: errOut,
		Flags: []urfave.Flag{
			debugFlag(),
			formatFlag(),
			outputFlag(),
			schemaFlag(),
		},
		Commands: []*urfave.Command{
			a.schemaCmd(),
			a.suggestCmd(),
			a.analyzeCmd(),
			a.importCmd(),
			a.importsCmd(),
		},
		Before: a.before,
	}
}

func (a *app) before(ctx context.Context, cmd *urfave.Command) (context.Context, error) {
	if err := logger.Init(logger.WithOutput(a.errOut)); err != nil {
		return ctx, fmt.Errorf("initializing logger: %w", err)
	}
	level := "warn"
	if cmd.Bool(flagDebug) {
		level = "debug"
	}
	if err := logger.SetLevelString(level); err != nil {
		return ctx, err
	}

	a.schema = schema.Default()
	if p := cmd.String(flagSchema); p != "" {
		sc, err := schema.Load(p)
		if err != nil {
			return ctx, fmt.Errorf("loading schema: %w", err)
		}
		a.schema = sc
	}
	return ctx, nil
}

// newService starts a service over the given store driver and dsn.
func (a *app) newService(ctx context.Context, driver, dsn string, opts ...service.Option) (*service.Service, error) {
	store, err := repository.Open(ctx, driver, dsn, a.schema)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", driver, err)
	}
	opts = append([]service.Option{
		service.WithSchema(a.schema),
		service.WithStore(store),
		service.WithMaxUploadBytes(maxFileBytes),
		service.WithLogger(logger.Named("gradectl")),
	}, opts...)
	svc := service.New(opts...)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return svc, nil
}

// storeFor maps the --db flag to a store driver and dsn.
func storeFor(db string) (string, string) {
	if db == "" {
		return repository.DriverMemory, ""
	}
	return repository.DriverSQLite, db
}

// labels resolves semester label overrides against the schema.
func (a *app) labels(first, second string) model.PeriodLabels {
	l := a.schema.PeriodLabels()
	if first != "" {
		l.First = first
	}
	if second != "" {
		l.Second = second
	}
	return l
}

// format returns the validated --format value.
func format(cmd *urfave.Command) (string, error) {
	f := strings.ToLower(strings.TrimSpace(cmd.String(flagFormat)))
	switch f {
	case "", formatJSON:
		return formatJSON, nil
	case formatYAML, "yml":
		return formatYAML, nil
	case formatCSV:
		return formatCSV, nil
	case formatXLSX:
		return formatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// output runs write against the --output file, or stdout when unset.
func (a *app) output(cmd *urfave.Command, write func(w io.Writer) error) error {
	path := cmd.String(flagOutput)
	if path == "" {
		return write(a.out)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// encode writes v as JSON or YAML per --format. Tabular formats fall back
// to JSON for outputs that are not tables.
func (a *app) encode(cmd *urfave.Command, v any) error {
	f, err := format(cmd)
	if err != nil {
		return err
	}
	return a.output(cmd, func(w io.Writer) error {
		if f == formatYAML {
			enc := yaml.NewEncoder(w)
			defer enc.Close()
			return enc.Encode(v)
		}
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return e.Encode(v)
	})
}
