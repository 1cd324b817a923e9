package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/okian/dedidash/pkg/logger"
)

//go:embed migrations/sqlite/*.sql migrations/mysql/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Migrate moves the schema to version.
//   - version < 0 migrates to the latest version.
//   - version == 0 rolls back every migration.
//   - version > 0 migrates to exactly that version.
func (s *SQLStore) Migrate(ctx context.Context, version int) error {
	m, release, err := s.migrator()
	if err != nil {
		return err
	}
	defer release(m)

	current, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("%w: read version: %v", ErrMigrate, err)
	}
	if dirty {
		return fmt.Errorf("%w: database is dirty at version %d, fix it manually or force the version", ErrMigrate, current)
	}

	switch {
	case version < 0:
		err = m.Up()
	case version == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(version))
	}
	if errors.Is(err, migrate.ErrNoChange) {
		s.logger.Debug(ctx, "schema already current", logger.Int64("version", int64(current)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMigrate, err)
	}

	next, _, _ := m.Version()
	s.logger.Info(ctx, "schema migrated",
		logger.String("backend", string(s.backend)),
		logger.Int64("from", int64(current)),
		logger.Int64("to", int64(next)))
	return nil
}

// SchemaVersion reports the applied migration version. Zero means none.
func (s *SQLStore) SchemaVersion(ctx context.Context) (uint, bool, error) {
	m, release, err := s.migrator()
	if err != nil {
		return 0, false, err
	}
	defer release(m)

	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: read version: %v", ErrMigrate, err)
	}
	return v, dirty, nil
}

// migrator builds a migrate instance for the store's backend. The MySQL and
// PostgreSQL drivers pin a connection and close their *sql.DB, so they get
// a dedicated pool. SQLite shares the store's single connection and must
// not be closed by migrate.
func (s *SQLStore) migrator() (*migrate.Migrate, func(*migrate.Migrate), error) {
	src, err := fs.Sub(migrationsFS, "migrations/"+string(s.backend))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open migrations: %v", ErrMigrate, err)
	}
	source, err := iofs.New(src, ".")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: create source: %v", ErrMigrate, err)
	}

	var (
		driver  database.Driver
		release = func(m *migrate.Migrate) { _, _ = m.Close() }
	)
	switch s.backend {
	case SQLite:
		driver, err = migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
		release = func(*migrate.Migrate) { _ = source.Close() }
	case MySQL, Postgres:
		var db *sql.DB
		db, err = sql.Open(s.backend.driverName(), s.dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: open: %v", ErrMigrate, err)
		}
		if s.backend == MySQL {
			driver, err = migratemysql.WithInstance(db, &migratemysql.Config{})
		} else {
			driver, err = migratepgx.WithInstance(db, &migratepgx.Config{})
		}
		if err != nil {
			_ = db.Close()
		}
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, s.backend)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: create %s driver: %v", ErrMigrate, s.backend, err)
	}

	m, err := migrate.NewWithInstance("iofs", source, string(s.backend), driver)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMigrate, err)
	}
	return m, release, nil
}
