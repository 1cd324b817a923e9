package api

import "github.com/okian/dedidash/pkg/logger"

type options struct {
	allowIngest bool
	coalescer   *Coalescer
	logger      logger.Logger
}

// Option configures a Server.
type Option func(*options)

// WithAllowIngest enables POST /api/ingest.
func WithAllowIngest(allow bool) Option {
	return func(o *options) {
		o.allowIngest = allow
	}
}

// WithCoalescer shares report computations with other surfaces.
func WithCoalescer(c *Coalescer) Option {
	return func(o *options) {
		if c != nil {
			o.coalescer = c
		}
	}
}

// WithLogger sets the API logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
