//go:build integration

package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"storyboard-server/pkg/storage"
)

// PostgresStoreSuite runs the KeyValueStore contract against a real Postgres
// started in a container. Run with: go test -tags integration ./pkg/storage/...
type PostgresStoreSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcpostgres.PostgresContainer
	pool      *pgxpool.Pool
	store     *storage.PostgresStore
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := tcpostgres.Run(s.ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("storyboard_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)))
	require.NoError(s.T(), err, "Failed to start postgres container")
	s.container = container

	dsn, err := container.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err)

	pool, err := pgxpool.New(s.ctx, dsn)
	require.NoError(s.T(), err)
	s.pool = pool

	store, err := storage.NewPostgresStore(s.ctx, pool, zap.NewNop())
	require.NoError(s.T(), err)
	s.store = store
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	require.NoError(s.T(), s.store.Clear(s.ctx))
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	value := map[string]any{
		"name":   "Project",
		"n":      float64(42),
		"tags":   []any{"a", nil, true},
		"nested": map[string]any{"k": float64(1)},
	}
	require.NoError(s.T(), s.store.Save(s.ctx, "projects/p1", value))

	var loaded map[string]any
	require.NoError(s.T(), s.store.Load(s.ctx, "projects/p1", &loaded))
	s.Equal(value, loaded)
}

func (s *PostgresStoreSuite) TestSaveReplacesValue() {
	require.NoError(s.T(), s.store.Save(s.ctx, "k", map[string]any{"v": float64(1)}))
	require.NoError(s.T(), s.store.Save(s.ctx, "k", map[string]any{"v": float64(2)}))

	var loaded map[string]any
	require.NoError(s.T(), s.store.Load(s.ctx, "k", &loaded))
	s.Equal(map[string]any{"v": float64(2)}, loaded)
}

func (s *PostgresStoreSuite) TestMissingKey() {
	var dest any
	err := s.store.Load(s.ctx, "projects/absent", &dest)
	s.ErrorIs(err, storage.ErrKeyNotFound)
}

func (s *PostgresStoreSuite) TestDeleteIsIdempotent() {
	require.NoError(s.T(), s.store.Save(s.ctx, "projects/p1", "v"))
	require.NoError(s.T(), s.store.Delete(s.ctx, "projects/p1"))

	var dest string
	s.ErrorIs(s.store.Load(s.ctx, "projects/p1", &dest), storage.ErrKeyNotFound)
	s.NoError(s.store.Delete(s.ctx, "projects/p1"))
}

func (s *PostgresStoreSuite) TestListAndClear() {
	require.NoError(s.T(), s.store.Save(s.ctx, "projects/a", 1))
	require.NoError(s.T(), s.store.Save(s.ctx, "projects/b", 2))
	require.NoError(s.T(), s.store.Save(s.ctx, "stories/c", 3))

	keys, err := s.store.List(s.ctx, "projects/")
	require.NoError(s.T(), err)
	s.Equal([]string{"projects/a", "projects/b"}, keys)

	require.NoError(s.T(), s.store.Clear(s.ctx))
	all, err := s.store.List(s.ctx, "")
	require.NoError(s.T(), err)
	s.Empty(all)
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}
