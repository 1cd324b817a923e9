// Package repository persists Dedimania records in a relational database.
package repository

import (
	"context"

	"github.com/okian/dedidash/internal/domain/stats"
	"github.com/okian/dedidash/internal/domain/types"
)

// Backend names a supported database.
type Backend string

// Supported backends.
const (
	SQLite   Backend = "sqlite"
	MySQL    Backend = "mysql"
	Postgres Backend = "postgres"
)

// Batch is everything one ingestion run writes.
type Batch struct {
	Run        types.IngestRun
	Records    []types.Record
	Challenges []types.Challenge
}

// Store provides read/write access to the record database.
type Store interface {
	// WriteRun validates and writes a batch in one transaction. Either every
	// row of the run is committed or none is. The returned run carries the
	// number of history rows actually inserted.
	WriteRun(ctx context.Context, b Batch) (types.IngestRun, error)

	// Snapshot reads records, history and challenges inside one read
	// transaction.
	Snapshot(ctx context.Context) (stats.Snapshot, error)

	// Challenges returns the known challenge metadata keyed by name.
	Challenges(ctx context.Context) (map[string]types.Challenge, error)

	// LastRun returns the most recent ingestion run.
	// Returns ErrNotFound if no run was ever written.
	LastRun(ctx context.Context) (types.IngestRun, error)

	// Status summarises store contents.
	Status(ctx context.Context) (types.DatabaseStatus, error)

	// Migrate moves the schema to version. Negative means latest, zero rolls
	// everything back.
	Migrate(ctx context.Context, version int) error

	// Backend names the database in use.
	Backend() Backend

	Close() error
}
