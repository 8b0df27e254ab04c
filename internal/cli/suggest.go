package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	urfave "github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/okian/gradelens/internal/adapters/repository"
	"github.com/okian/gradelens/internal/domain/mapping"
	"github.com/okian/gradelens/internal/domain/schema"
)

type suggestOutput struct {
	File            string          `json:"file" yaml:"file"`
	Headers         []string        `json:"headers" yaml:"headers"`
	Mapping         mapping.Mapping `json:"mapping" yaml:"mapping"`
	MissingRequired []string        `json:"missing_required" yaml:"missing_required"`
	Rows            int             `json:"rows" yaml:"rows"`
}

func mappingOnlyFlag() urfave.Flag {
	return &urfave.BoolFlag{
		Name:  flagMappingOnly,
		Usage: "Print only the mapping, in the shape analyze --mapping reads",
	}
}

func (a *app) suggestCmd() *urfave.Command {
	return &urfave.Command{
		Name:      "suggest",
		Usage:     "Propose a column mapping for a grade sheet",
		ArgsUsage: "FILE",
		UsageText: `gradectl suggest grades.xlsx                    # print the suggested mapping
   gradectl suggest grades.csv --mapping-only -f yaml -o map.yaml`,
		Flags:  []urfave.Flag{mappingOnlyFlag()},
		Action: a.cmdSuggest,
	}
}

func (a *app) cmdSuggest(ctx context.Context, cmd *urfave.Command) error {
	if cmd.NArg() != 1 {
		return urfave.ShowSubcommandHelp(cmd)
	}
	path := cmd.Args().First()
	content, err := readFile(path)
	if err != nil {
		return err
	}

	svc, err := a.newService(ctx, repository.DriverMemory, "")
	if err != nil {
		return err
	}
	defer svc.Stop()

	sg, err := svc.SuggestMapping(ctx, filepath.Base(path), content)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if cmd.Bool(flagMappingOnly) {
		return a.encode(cmd, sg.Mapping)
	}
	return a.encode(cmd, suggestOutput{
		File:            path,
		Headers:         sg.Headers,
		Mapping:         sg.Mapping,
		MissingRequired: sg.MissingRequired,
		Rows:            sg.Rows,
	})
}

// sheet is one input file read into memory.
type sheet struct {
	path    string
	content []byte
}

// readFile loads one input sheet, refusing files above maxFileBytes.
func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if info.Size() > maxFileBytes {
		return nil, fmt.Errorf("reading %s: %d bytes exceeds %d", path, info.Size(), maxFileBytes)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return content, nil
}

// readFiles loads every path concurrently, keeping argument order.
func readFiles(ctx context.Context, paths []string) ([]sheet, error) {
	out := make([]sheet, len(paths))
	g, _ := errgroup.WithContext(ctx)
	for i, p := range paths {
		g.Go(func() error {
			content, err := readFile(p)
			if err != nil {
				return err
			}
			out[i] = sheet{path: p, content: content}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// readMapping loads a mapping file. YAML is a superset of JSON, so both parse.
func readMapping(path string, sc *schema.Schema) (mapping.Mapping, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mapping: %w", err)
	}
	var m mapping.Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing mapping %s: %w", path, err)
	}
	for k := range m {
		if _, ok := sc.Field(k); !ok {
			return nil, fmt.Errorf("mapping %s: unknown field %q", path, k)
		}
	}
	return m, nil
}
