package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	urfave "github.com/urfave/cli/v3"

	service "github.com/okian/gradelens/internal/app"
	"github.com/okian/gradelens/internal/domain/mapping"
)

type importOutput struct {
	File      string          `json:"file" yaml:"file"`
	ID        string          `json:"id" yaml:"id"`
	Rows      int             `json:"rows" yaml:"rows"`
	Columns   []string        `json:"columns" yaml:"columns"`
	Mapping   mapping.Mapping `json:"mapping" yaml:"mapping"`
	Duplicate bool            `json:"duplicate" yaml:"duplicate"`
}

type importsOutput struct {
	ID       string    `json:"id" yaml:"id"`
	FileName string    `json:"file_name" yaml:"file_name"`
	Rows     int       `json:"rows" yaml:"rows"`
	Columns  []string  `json:"columns" yaml:"columns"`
	Created  time.Time `json:"created_at" yaml:"created_at"`
}

func (a *app) importCmd() *urfave.Command {
	return &urfave.Command{
		Name:      "import",
		Aliases:   []string{"i"},
		Usage:     "Store grade sheets in a sqlite database",
		ArgsUsage: "FILE...",
		UsageText: `gradectl import --db grades.db first.xlsx second.xlsx
   gradectl import --db grades.db --mapping map.yaml export.csv`,
		Flags: []urfave.Flag{
			dbFlag(),
			mappingFlag(),
		},
		Action: a.cmdImport,
	}
}

func (a *app) cmdImport(ctx context.Context, cmd *urfave.Command) error {
	db := cmd.String(flagDB)
	if db == "" {
		return ErrDBRequired
	}
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return ErrNoInput
	}

	m, err := readMapping(cmd.String(flagMapping), a.schema)
	if err != nil {
		return err
	}
	sheets, err := readFiles(ctx, paths)
	if err != nil {
		return err
	}

	driver, dsn := storeFor(db)
	svc, err := a.newService(ctx, driver, dsn)
	if err != nil {
		return err
	}
	defer svc.Stop()

	out := make([]importOutput, 0, len(sheets))
	for _, s := range sheets {
		res, err := svc.Import(ctx, service.ImportRequest{
			FileName: filepath.Base(s.path),
			Content:  s.content,
			Mapping:  m,
		})
		if err != nil {
			return fmt.Errorf("importing %s: %w", s.path, err)
		}
		out = append(out, importOutput{
			File:      s.path,
			ID:        res.Import.ID,
			Rows:      res.Import.Rows,
			Columns:   res.Import.Columns,
			Mapping:   res.Mapping,
			Duplicate: res.Duplicate,
		})
	}
	return a.encode(cmd, out)
}

func (a *app) importsCmd() *urfave.Command {
	return &urfave.Command{
		Name:   "imports",
		Usage:  "List the imports stored in a sqlite database",
		Flags:  []urfave.Flag{dbFlag()},
		Action: a.cmdImports,
	}
}

func (a *app) cmdImports(ctx context.Context, cmd *urfave.Command) error {
	db := cmd.String(flagDB)
	if db == "" {
		return ErrDBRequired
	}
	driver, dsn := storeFor(db)
	svc, err := a.newService(ctx, driver, dsn)
	if err != nil {
		return err
	}
	defer svc.Stop()

	imports, err := svc.Imports(ctx)
	if err != nil {
		return err
	}
	out := make([]importsOutput, 0, len(imports))
	for _, imp := range imports {
		out = append(out, importsOutput{
			ID:       imp.ID,
			FileName: imp.FileName,
			Rows:     imp.Rows,
			Columns:  imp.Columns,
			Created:  imp.Created,
		})
	}
	return a.encode(cmd, out)
}
