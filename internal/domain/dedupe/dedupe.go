// Package dedupe tracks which rows an ingestion run has already seen.
package dedupe

import (
	"container/list"
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/okian/dedidash/internal/domain/types"
)

// Deduper records seen keys so a row is written at most once per run.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord removes a key, allowing it to be recorded again. Used when a
	// row was marked as seen but then rejected.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// RowKey identifies one driven record: the same lap on the same track at
// the same time is the same row no matter how often it is scraped.
func RowKey(r types.Record) string {
	return r.Player + "\x00" + r.Track + "\x00" + strconv.FormatInt(r.RecordedAt.Unix(), 10)
}

// inMemoryDeduper keeps keys in a map. In bounded mode the oldest key is
// evicted first.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front is oldest, bounded mode only
	maxSize int        // 0 or negative = unbounded
	size    atomic.Int64
}

// defaultMaxRows bounds one run: a full roster of players with every
// scraped record page.
const defaultMaxRows = 50000

// Option configures the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize caps the number of remembered rows, evicting the oldest first.
// Zero or a negative size remembers every row of the run.
func WithMaxSize(rows int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = rows
	}
}

// NewInMemoryDeduper returns an empty deduper for one ingestion run.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxRows,
		seen:    make(map[string]*list.Element),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.maxSize > 0 {
		d.order = list.New()
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		return true
	}

	if d.order != nil {
		if len(d.seen) >= d.maxSize {
			d.evictOldest()
		}
		d.seen[key] = d.order.PushBack(key)
	} else {
		d.seen[key] = nil
	}
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	el, exists := d.seen[key]
	if !exists {
		return
	}
	delete(d.seen, key)
	if d.order != nil && el != nil {
		d.order.Remove(el)
	}
	d.size.Add(-1)
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	front := d.order.Front()
	if front == nil {
		return
	}
	d.order.Remove(front)
	delete(d.seen, front.Value.(string))
	d.size.Add(-1)
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
