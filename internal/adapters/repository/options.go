package repository

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithIDGenerator sets the function used to identify records submitted
// without an id.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}
