package repository

import (
	"time"

	"github.com/okian/dedidash/pkg/logger"
)

// Option applies a configuration option to the SQLStore.
type Option func(*SQLStore)

// WithMetricsUpdateInterval sets the interval for background store size
// metrics. Zero disables the updater.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *SQLStore) {
		if interval >= 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithAutoMigrate runs pending migrations when the store opens.
func WithAutoMigrate(enabled bool) Option {
	return func(s *SQLStore) {
		s.autoMigrate = enabled
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLStore) {
		if l != nil {
			s.logger = l
		}
	}
}
