package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql" // registers "mysql"
	json "github.com/goccy/go-json"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "modernc.org/sqlite"             // registers "sqlite"

	"github.com/okian/dedidash/internal/domain/stats"
	"github.com/okian/dedidash/internal/domain/types"
	"github.com/okian/dedidash/pkg/logger"
	"github.com/okian/dedidash/pkg/metrics"
)

const defaultMetricsUpdateInterval = time.Minute

// SQLStore implements Store on database/sql for SQLite, MySQL and
// PostgreSQL. Timestamps and lap times are stored as integer milliseconds.
type SQLStore struct {
	db      *sql.DB
	backend Backend
	dsn     string
	q       queries

	autoMigrate           bool
	metricsUpdateInterval time.Duration
	logger                logger.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

var _ Store = (*SQLStore)(nil)

// ParseBackend maps a configured name to a Backend.
func ParseBackend(name string) (Backend, error) {
	switch Backend(name) {
	case SQLite, MySQL, Postgres:
		return Backend(name), nil
	case "postgresql", "pg":
		return Postgres, nil
	case "sqlite3":
		return SQLite, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedBackend, name)
}

// driverName is the database/sql driver registered for b.
func (b Backend) driverName() string {
	switch b {
	case MySQL:
		return "mysql"
	case Postgres:
		return "pgx"
	default:
		return "sqlite"
	}
}

// NewSQLStore opens and pings the database. With WithAutoMigrate the schema
// is brought to the latest version before returning.
func NewSQLStore(ctx context.Context, backend Backend, dsn string, opts ...Option) (*SQLStore, error) {
	if _, err := ParseBackend(string(backend)); err != nil {
		return nil, err
	}

	db, err := sql.Open(backend.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", backend, err)
	}
	if backend == SQLite {
		// A single connection serialises readers behind the writer and keeps
		// :memory: databases alive.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to %s database: %w", backend, err)
	}

	s := &SQLStore{
		db:                    db,
		backend:               backend,
		dsn:                   dsn,
		q:                     queriesFor(backend),
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		logger:                logger.GetOr(logger.NewNop()).Named("store"),
		stop:                  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.autoMigrate {
		if err := s.Migrate(ctx, -1); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	if s.metricsUpdateInterval > 0 {
		go s.startMetricsUpdater(ctx)
	}

	return s, nil
}

// Backend names the database in use.
func (s *SQLStore) Backend() Backend { return s.backend }

// DB exposes the underlying pool for tests and migrations.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Close stops the metrics updater and closes the pool.
func (s *SQLStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return s.db.Close()
}

// WriteRun validates and writes one ingestion run atomically.
func (s *SQLStore) WriteRun(ctx context.Context, b Batch) (types.IngestRun, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("write_run", float64(time.Since(start).Milliseconds()))
	}()

	run := b.Run
	for i := range b.Records {
		b.Records[i].Normalize()
		if err := b.Records[i].Validate(); err != nil {
			return run, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return run, fmt.Errorf("begin write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	upsert, err := tx.PrepareContext(ctx, s.q.upsertRecord)
	if err != nil {
		return run, fmt.Errorf("prepare record upsert: %w", err)
	}
	defer upsert.Close()

	history, err := tx.PrepareContext(ctx, s.q.insertHistory)
	if err != nil {
		return run, fmt.Errorf("prepare history insert: %w", err)
	}
	defer history.Close()

	written := 0
	for _, r := range b.Records {
		args := recordArgs(r)
		if _, err := upsert.ExecContext(ctx, args...); err != nil {
			return run, fmt.Errorf("upsert record %s/%s: %w", r.Player, r.Track, err)
		}
		res, err := history.ExecContext(ctx, args...)
		if err != nil {
			return run, fmt.Errorf("insert history %s/%s: %w", r.Player, r.Track, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			written++
		}
	}

	for _, c := range b.Challenges {
		if c.Name == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, s.q.upsertChallenge,
			c.Name, c.UID, c.Environment, c.TotalRecords, millis(c.LastUpdated)); err != nil {
			return run, fmt.Errorf("upsert challenge %s: %w", c.Name, err)
		}
	}

	run.Written = written
	run.Challenges = len(b.Challenges)
	failures, err := json.Marshal(run.Failures)
	if err != nil {
		return run, fmt.Errorf("encode failures: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.q.insertRun,
		run.ID, millis(run.StartedAt), millis(run.FinishedAt), run.Players, run.Fetched,
		run.Written, run.Duplicates, run.Invalid, run.Challenges, run.Status, string(failures)); err != nil {
		return run, fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return run, fmt.Errorf("commit run %s: %w", run.ID, err)
	}
	return run, nil
}

// readTx opens the snapshot transaction. SQLite has a single connection, so
// a plain transaction already sees one consistent state.
func (s *SQLStore) readTx(ctx context.Context) (*sql.Tx, error) {
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	if s.backend == SQLite {
		opts = nil
	}
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("begin read: %w", err)
	}
	return tx, nil
}

// Snapshot reads every table a report needs inside one transaction.
func (s *SQLStore) Snapshot(ctx context.Context) (stats.Snapshot, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("snapshot", float64(time.Since(start).Milliseconds()))
	}()

	tx, err := s.readTx(ctx)
	if err != nil {
		return stats.Snapshot{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var snap stats.Snapshot
	if snap.Records, err = queryRecords(ctx, tx, s.q.selectRecords); err != nil {
		return stats.Snapshot{}, err
	}
	if snap.History, err = queryRecords(ctx, tx, s.q.selectHistory); err != nil {
		return stats.Snapshot{}, err
	}
	if snap.Challenges, err = queryChallenges(ctx, tx, s.q.selectChallenges); err != nil {
		return stats.Snapshot{}, err
	}
	if err := tx.Commit(); err != nil {
		return stats.Snapshot{}, fmt.Errorf("end read: %w", err)
	}
	return snap, nil
}

// Challenges returns the known challenge metadata.
func (s *SQLStore) Challenges(ctx context.Context) (map[string]types.Challenge, error) {
	return queryChallenges(ctx, s.db, s.q.selectChallenges)
}

// LastRun returns the most recent ingestion run.
func (s *SQLStore) LastRun(ctx context.Context) (types.IngestRun, error) {
	return scanRun(s.db.QueryRowContext(ctx, s.q.selectLastRun))
}

// Status summarises store contents inside one read transaction.
func (s *SQLStore) Status(ctx context.Context) (types.DatabaseStatus, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("status", float64(time.Since(start).Milliseconds()))
	}()

	st := types.DatabaseStatus{Backend: string(s.backend)}
	tx, err := s.readTx(ctx)
	if err != nil {
		return st, err
	}
	defer func() { _ = tx.Rollback() }()

	var first, last, captured sql.NullInt64
	if err := tx.QueryRowContext(ctx, s.q.recordStats).Scan(
		&st.Records, &st.Players, &st.Tracks, &first, &last, &captured); err != nil {
		return st, fmt.Errorf("record stats: %w", err)
	}
	st.FirstRecord = fromMillis(first.Int64)
	st.LastRecord = fromMillis(last.Int64)
	st.LastCapture = fromMillis(captured.Int64)

	if err := tx.QueryRowContext(ctx, s.q.countHistory).Scan(&st.HistoryRows); err != nil {
		return st, fmt.Errorf("count history: %w", err)
	}
	if err := tx.QueryRowContext(ctx, s.q.countChallenges).Scan(&st.Challenges); err != nil {
		return st, fmt.Errorf("count challenges: %w", err)
	}

	run, err := scanRun(tx.QueryRowContext(ctx, s.q.selectLastRun))
	switch {
	case err == nil:
		st.LastRun = &run
	case !errors.Is(err, ErrNotFound):
		return st, err
	}

	if err := tx.Commit(); err != nil {
		return st, fmt.Errorf("end read: %w", err)
	}
	metrics.UpdateStoreSize(st.Records, st.Players)
	return st, nil
}

// startMetricsUpdater refreshes the store size gauges until Close.
func (s *SQLStore) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(s.metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			if _, err := s.Status(ctx); err != nil {
				s.logger.Debug(ctx, "store metrics refresh failed", logger.Error(err))
			}
		}
	}
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func recordArgs(r types.Record) []any {
	return []any{
		r.Player, r.Track, r.Nickname, r.Environment, r.Time.Milliseconds(), r.Rank,
		r.Mode, r.Server, millis(r.RecordedAt), millis(r.CapturedAt),
	}
}

func queryRecords(ctx context.Context, db querier, query string) ([]types.Record, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []types.Record
	for rows.Next() {
		var (
			r                     types.Record
			timeMs, recAt, captAt int64
		)
		if err := rows.Scan(&r.Player, &r.Track, &r.Nickname, &r.Environment, &timeMs, &r.Rank,
			&r.Mode, &r.Server, &recAt, &captAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Time = time.Duration(timeMs) * time.Millisecond
		r.RecordedAt = fromMillis(recAt)
		r.CapturedAt = fromMillis(captAt)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func queryChallenges(ctx context.Context, db querier, query string) (map[string]types.Challenge, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query challenges: %w", err)
	}
	defer rows.Close()

	out := make(map[string]types.Challenge)
	for rows.Next() {
		var (
			c       types.Challenge
			updated int64
		)
		if err := rows.Scan(&c.Name, &c.UID, &c.Environment, &c.TotalRecords, &updated); err != nil {
			return nil, fmt.Errorf("scan challenge: %w", err)
		}
		c.LastUpdated = fromMillis(updated)
		out[c.Name] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate challenges: %w", err)
	}
	return out, nil
}

func scanRun(row *sql.Row) (types.IngestRun, error) {
	var (
		run               types.IngestRun
		started, finished int64
		failures          string
	)
	err := row.Scan(&run.ID, &started, &finished, &run.Players, &run.Fetched, &run.Written,
		&run.Duplicates, &run.Invalid, &run.Challenges, &run.Status, &failures)
	if errors.Is(err, sql.ErrNoRows) {
		return run, ErrNotFound
	}
	if err != nil {
		return run, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = fromMillis(started)
	run.FinishedAt = fromMillis(finished)
	if failures != "" && failures != "null" {
		if err := json.Unmarshal([]byte(failures), &run.Failures); err != nil {
			return run, fmt.Errorf("decode failures of run %s: %w", run.ID, err)
		}
	}
	return run, nil
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
