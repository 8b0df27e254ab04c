package dedupe

// Option configures the in-memory deduper.
type Option func(*fifoDeduper)

// WithMaxSize bounds how many keys are remembered; <= 0 means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(d *fifoDeduper) {
		d.maxSize = maxSize
	}
}
