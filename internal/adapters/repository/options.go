package repository

import "time"

type options struct {
	now       func() time.Time
	batchSize int
}

func defaultOptions() options {
	return options{now: time.Now, batchSize: defaultBatchSize}
}

// Option configures a store.
type Option func(*options)

// WithClock overrides the time source used for comment timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithBatchSize sets how many records a single INSERT statement carries.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}
