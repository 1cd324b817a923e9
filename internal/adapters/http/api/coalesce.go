package api

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/okian/dedidash/pkg/metrics"
)

// Coalescer lets concurrent identical report requests share one
// computation.
type Coalescer struct {
	group singleflight.Group
}

// NewCoalescer creates an empty Coalescer.
func NewCoalescer() *Coalescer {
	return &Coalescer{}
}

// Coalesce runs fn once for all callers asking for the same report and key
// at the same time. The computation outlives a cancelled caller so the
// others still get their result.
func Coalesce[T any](ctx context.Context, c *Coalescer, report, key string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if c == nil {
		return fn(ctx)
	}
	ch := c.group.DoChan(report+"|"+key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Shared {
			metrics.RecordReportShared(report)
		}
		if res.Err != nil {
			return zero, res.Err
		}
		v, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("coalesce %s: unexpected %T", report, res.Val)
		}
		return v, nil
	}
}
