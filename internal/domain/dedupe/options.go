package dedupe

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithCapacityHint pre-sizes the key map, e.g. to the number of records of a
// file about to be loaded.
func WithCapacityHint(n int) Option {
	return func(d *inMemoryDeduper) {
		if n > 0 {
			d.capacityHint = n
		}
	}
}
