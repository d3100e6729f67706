package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/spec-kit/todo-service/internal/config"
	"github.com/spec-kit/todo-service/internal/persistence"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cont, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "todo",
				"POSTGRES_PASSWORD": "todo",
				"POSTGRES_DB":       "todo",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cont.Terminate(context.Background()) })

	host, err := cont.Host(ctx)
	require.NoError(t, err)
	port, err := cont.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://todo:todo@%s:%s/todo?sslmode=disable", host, port.Port())
}

func TestPostgresRepositories(t *testing.T) {
	if testing.Short() {
		t.Skip("postgres container skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	dsn := startPostgres(t)
	require.NoError(t, persistence.RunMigrations(dsn, zap.NewNop()))

	ctx := context.Background()
	pg, err := persistence.NewPostgres(ctx, config.PostgresConfig{DSN: dsn, MaxConns: 20}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pg.Close)

	runRepositorySuite(t, func(t *testing.T) (UserRepository, TaskRepository) {
		_, err := pg.Pool.Exec(ctx, `TRUNCATE tasks, users`)
		require.NoError(t, err)
		return NewUserRepository(pg.Pool), NewTaskRepository(pg.Pool)
	})
}
