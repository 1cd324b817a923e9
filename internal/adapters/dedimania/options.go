package dedimania

import (
	"net/http"
	"time"

	"github.com/okian/dedidash/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL sets the tmstats root, e.g. "http://dedimania.net/tmstats/".
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithGame sets the RGame parameter.
func WithGame(game string) Option {
	return func(c *Client) {
		if game != "" {
			c.game = game
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLimit sets how many records are requested per player page.
func WithLimit(limit int) Option {
	return func(c *Client) {
		if limit > 0 {
			c.limit = limit
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLookupDelay sets the minimum pause between two challenge or server
// lookups.
func WithLookupDelay(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.lookupDelay = d
		}
	}
}

// WithLocation sets the zone RecordDate values are read in.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithClock overrides the capture timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
