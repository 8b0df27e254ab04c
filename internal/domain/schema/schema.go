// Package schema describes the canonical fields an import is mapped onto,
// together with the default weights and thresholds.
package schema

import (
	_ "embed"
	"fmt"
	"regexp"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"

	"github.com/okian/gradelens/internal/domain/flagging"
	"github.com/okian/gradelens/internal/domain/model"
	"github.com/okian/gradelens/internal/domain/weights"
)

//go:embed schema.yaml
var defaultDocument []byte

// Field is one canonical column.
type Field struct {
	Key      string   `json:"key" yaml:"key" koanf:"key"`
	Label    string   `json:"label" yaml:"label" koanf:"label"`
	LabelHe  string   `json:"label_he,omitempty" yaml:"label_he" koanf:"label_he"`
	Required bool     `json:"required" yaml:"required" koanf:"required"`
	Numeric  bool     `json:"numeric" yaml:"numeric" koanf:"numeric"`
	Weighted bool     `json:"weighted" yaml:"weighted" koanf:"weighted"`
	Examples []string `json:"examples,omitempty" yaml:"examples" koanf:"examples"`
}

// DisplayLabel prefers the English label and falls back to the key.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Key
}

// Semesters holds the raw semester labels of the schema.
type Semesters struct {
	First  string `json:"first" yaml:"first" koanf:"first"`
	Second string `json:"second" yaml:"second" koanf:"second"`
}

// Schema is the canonical field set plus analysis defaults.
type Schema struct {
	Fields            []Field             `json:"fields" yaml:"fields" koanf:"fields"`
	WeightsDefault    map[string]float64  `json:"weights_default" yaml:"weights_default" koanf:"weights_default"`
	ThresholdsDefault flagging.Thresholds `json:"thresholds_default" yaml:"thresholds_default" koanf:"thresholds_default"`
	Semesters         Semesters           `json:"semesters" yaml:"semesters" koanf:"semesters"`
}

// Default returns the built-in schema.
func Default() *Schema {
	var s Schema
	if err := yaml.Unmarshal(defaultDocument, &s); err != nil {
		panic(fmt.Sprintf("embedded schema: %v", err))
	}
	if err := s.Validate(); err != nil {
		panic(fmt.Sprintf("embedded schema: %v", err))
	}
	return &s
}

// Load reads a schema document from a YAML file.
func Load(path string) (*Schema, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), koanfyaml.Parser()); err != nil {
		return nil, fmt.Errorf("load schema %s: %w", path, err)
	}
	var s Schema
	if err := k.UnmarshalWithConf("", &s, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode schema %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

var identifier = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Validate checks field keys and the defaults that refer to them. Keys end up
// as SQL column names, so they must be plain lower-case identifiers.
func (s *Schema) Validate() error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("%w: no fields", ErrInvalidSchema)
	}
	seen := make(map[string]Field, len(s.Fields))
	for _, f := range s.Fields {
		if !identifier.MatchString(f.Key) {
			return fmt.Errorf("%w: field key %q is not an identifier", ErrInvalidSchema, f.Key)
		}
		if _, dup := seen[f.Key]; dup {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidSchema, f.Key)
		}
		if f.Weighted && !f.Numeric {
			return fmt.Errorf("%w: weighted field %q must be numeric", ErrInvalidSchema, f.Key)
		}
		seen[f.Key] = f
	}
	if _, ok := seen[model.FieldStudentName]; !ok {
		return fmt.Errorf("%w: %s field is required", ErrInvalidSchema, model.FieldStudentName)
	}
	for k := range s.WeightsDefault {
		f, ok := seen[k]
		if !ok || !f.Weighted {
			return fmt.Errorf("%w: default weight for non-weighted field %q", ErrInvalidSchema, k)
		}
	}
	if len(s.WeightsDefault) > 0 {
		if _, err := weights.Normalize(s.WeightsDefault); err != nil {
			return fmt.Errorf("%w: default weights: %w", ErrInvalidSchema, err)
		}
	}
	if s.Semesters != (Semesters{}) {
		if err := s.PeriodLabels().Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSchema, err)
		}
	}
	return nil
}

// Field looks up a field by key.
func (s *Schema) Field(key string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Keys returns every field key in schema order.
func (s *Schema) Keys() []string {
	return s.collect(func(Field) bool { return true })
}

// NumericKeys returns keys of fields coerced to numbers on import.
func (s *Schema) NumericKeys() []string {
	return s.collect(func(f Field) bool { return f.Numeric })
}

// WeightedKeys returns keys of fields that take part in the overall score.
func (s *Schema) WeightedKeys() []string {
	return s.collect(func(f Field) bool { return f.Weighted })
}

// Required returns the fields an import must map.
func (s *Schema) Required() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}

// DefaultWeights returns a copy of the default weights.
func (s *Schema) DefaultWeights() weights.Map {
	return weights.Map(s.WeightsDefault).Clone()
}

// PeriodLabels returns the schema's semester labels, or the defaults when unset.
func (s *Schema) PeriodLabels() model.PeriodLabels {
	if s.Semesters == (Semesters{}) {
		return model.DefaultPeriodLabels()
	}
	return model.PeriodLabels{First: s.Semesters.First, Second: s.Semesters.Second}
}

func (s *Schema) collect(keep func(Field) bool) []string {
	var out []string
	for _, f := range s.Fields {
		if keep(f) {
			out = append(out, f.Key)
		}
	}
	return out
}
