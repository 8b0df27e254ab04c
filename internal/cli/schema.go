package cli

import (
	"context"

	urfave "github.com/urfave/cli/v3"

	"github.com/okian/gradelens/internal/domain/flagging"
	"github.com/okian/gradelens/internal/domain/schema"
)

type schemaOutput struct {
	Fields     []schema.Field      `json:"fields" yaml:"fields"`
	Weights    map[string]float64  `json:"weights" yaml:"weights"`
	Thresholds flagging.Thresholds `json:"thresholds" yaml:"thresholds"`
	Semesters  schema.Semesters    `json:"semesters" yaml:"semesters"`
}

func (a *app) schemaCmd() *urfave.Command {
	return &urfave.Command{
		Name:   "schema",
		Usage:  "Print the canonical fields, default weights and thresholds",
		Action: a.cmdSchema,
	}
}

func (a *app) cmdSchema(_ context.Context, cmd *urfave.Command) error {
	return a.encode(cmd, schemaOutput{
		Fields:     a.schema.Fields,
		Weights:    a.schema.DefaultWeights(),
		Thresholds: a.schema.ThresholdsDefault,
		Semesters:  a.schema.Semesters,
	})
}
