//go:build database

package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/okian/dedidash/internal/adapters/repository"
	"github.com/okian/dedidash/internal/domain/types"
)

func startContainer(t *testing.T, req testcontainers.ContainerRequest, port string) (string, string) {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	mapped, err := c.MappedPort(ctx, port)
	require.NoError(t, err)
	return host, mapped.Port()
}

func TestSQLStoreWithMySQL(t *testing.T) {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "dedidash",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}, "3306")

	dsn := fmt.Sprintf("root:secret123@tcp(%s:%s)/dedidash", host, port)
	exerciseBackend(t, repository.MySQL, dsn)
}

func TestSQLStoreWithPostgres(t *testing.T) {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}, "5432")

	dsn := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable", host, port)
	exerciseBackend(t, repository.Postgres, dsn)
}

func exerciseBackend(t *testing.T, backend repository.Backend, dsn string) {
	ctx := context.Background()

	var (
		s   *repository.SQLStore
		err error
	)
	require.Eventually(t, func() bool {
		s, err = repository.NewSQLStore(ctx, backend, dsn,
			repository.WithAutoMigrate(true),
			repository.WithMetricsUpdateInterval(0))
		return err == nil
	}, 30*time.Second, time.Second)
	t.Cleanup(func() { _ = s.Close() })

	first := rec("yrdk", "A01-Race", 4, base)
	_, err = s.WriteRun(ctx, repository.Batch{
		Run:        run("run-1", base),
		Records:    []types.Record{first, rec("jan", "A01-Race", 2, base)},
		Challenges: []types.Challenge{{Name: "A01-Race", UID: "uid-a01", TotalRecords: 20, LastUpdated: base}},
	})
	require.NoError(t, err)

	// Same lap again plus an older one that must not replace the current row.
	older := rec("yrdk", "A01-Race", 9, base.Add(-48*time.Hour))
	second, err := s.WriteRun(ctx, repository.Batch{
		Run:     run("run-2", base.Add(time.Hour)),
		Records: []types.Record{first, older},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Written)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Records, 2)
	assert.Len(t, snap.History, 3)
	for _, r := range snap.Records {
		if r.Player == "yrdk" {
			assert.Equal(t, 4, r.Rank)
		}
	}

	st, err := s.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, string(backend), st.Backend)
	assert.Equal(t, 2, st.Players)
	assert.Equal(t, 1, st.Challenges)
	require.NotNil(t, st.LastRun)
	assert.Equal(t, "run-2", st.LastRun.ID)

	require.NoError(t, s.Migrate(ctx, 0))
	require.NoError(t, s.Migrate(ctx, -1))
}
