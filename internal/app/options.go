package service

import (
	"github.com/okian/gradelens/internal/adapters/repository"
	"github.com/okian/gradelens/internal/domain/flagging"
	"github.com/okian/gradelens/internal/domain/model"
	"github.com/okian/gradelens/internal/domain/schema"
	"github.com/okian/gradelens/internal/domain/weights"
	"github.com/okian/gradelens/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the record store. Without it Start creates a memory store.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithSchema replaces the built-in schema. Its defaults apply unless
// overridden by the other options.
func WithSchema(sc *schema.Schema) Option {
	return func(s *Service) {
		if sc != nil {
			s.schema = sc
		}
	}
}

// WithDedupeSize sets how many import fingerprints are remembered in memory.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDefaultWeights overrides the schema's default weights.
func WithDefaultWeights(w map[string]float64) Option {
	return func(s *Service) {
		if len(w) > 0 {
			s.weights = weights.Map(w).Clone()
		}
	}
}

// WithDefaultThresholds overrides the schema's default thresholds.
func WithDefaultThresholds(th flagging.Thresholds) Option {
	return func(s *Service) {
		s.thresholds = &th
	}
}

// WithPeriodLabels overrides the raw semester labels.
func WithPeriodLabels(l model.PeriodLabels) Option {
	return func(s *Service) {
		if l != (model.PeriodLabels{}) {
			s.labels = l
		}
	}
}

// WithMaxUploadBytes caps the size of an imported file.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithIDGenerator overrides import id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}
