package leaderboard

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithMaxLimit caps TopN. Larger limits are clamped, not rejected.
func WithMaxLimit(limit int) Option {
	return func(s *Store) {
		if limit > 0 {
			s.maxLimit = limit
		}
	}
}
