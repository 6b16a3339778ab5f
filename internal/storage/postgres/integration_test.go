//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mkusaka/hinichi/internal/cache"
	"github.com/mkusaka/hinichi/internal/domain"
)

type CacheStoreIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
	store     *CacheStore
}

func (s *CacheStoreIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db

	s.store = NewCacheStore(db, 1)
	s.Require().NoError(s.store.Init(s.ctx))
}

func (s *CacheStoreIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *CacheStoreIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM cache_records")
}

func TestCacheStoreIntegrationSuite(t *testing.T) {
	suite.Run(t, new(CacheStoreIntegrationSuite))
}

func (s *CacheStoreIntegrationSuite) TestRoundTrip() {
	entries := []domain.Entry{
		{Title: "First", URL: "https://example.com/1", Users: 120, Tags: []string{"go"}},
		{Title: "Second", URL: "https://example.com/2", Users: 45},
	}

	s.Require().NoError(s.store.Put(s.ctx, cache.KindEntries, "it", "20260210", entries, time.Hour))

	var got []domain.Entry
	found, err := s.store.Get(s.ctx, cache.KindEntries, "it", "20260210", &got)
	s.NoError(err)
	s.True(found)
	s.Equal(entries, got)
}

func (s *CacheStoreIntegrationSuite) TestGetMissesOtherCoordinates() {
	s.Require().NoError(s.store.Put(s.ctx, cache.KindEntries, "it", "20260210", []string{"x"}, time.Hour))

	var got []string
	found, err := s.store.Get(s.ctx, cache.KindEntries, "it", "20260209", &got)
	s.NoError(err)
	s.False(found)

	found, err = s.store.Get(s.ctx, cache.KindArticle, "it", "20260210", &got)
	s.NoError(err)
	s.False(found)
}

func (s *CacheStoreIntegrationSuite) TestPutReplacesPayload() {
	s.Require().NoError(s.store.Put(s.ctx, cache.KindSummary, "it", "20260210", map[string]string{"a": "1"}, time.Hour))
	s.Require().NoError(s.store.Put(s.ctx, cache.KindSummary, "it", "20260210", map[string]string{"b": "2"}, time.Hour))

	var got map[string]string
	found, err := s.store.Get(s.ctx, cache.KindSummary, "it", "20260210", &got)
	s.NoError(err)
	s.True(found)
	s.Equal(map[string]string{"b": "2"}, got)
}

func (s *CacheStoreIntegrationSuite) TestExpiredRecordIsAMiss() {
	s.Require().NoError(s.store.Put(s.ctx, cache.KindEntries, "it", "20260210", []string{"x"}, -time.Minute))

	var got []string
	found, err := s.store.Get(s.ctx, cache.KindEntries, "it", "20260210", &got)
	s.NoError(err)
	s.False(found)

	swept, err := s.store.Sweep(s.ctx)
	s.NoError(err)
	s.Equal(int64(1), swept)
}

func (s *CacheStoreIntegrationSuite) TestDelete() {
	s.Require().NoError(s.store.Put(s.ctx, cache.KindEntries, "it", "20260210", []string{"x"}, time.Hour))
	s.Require().NoError(s.store.Delete(s.ctx, cache.KindEntries, "it", "20260210"))

	var got []string
	found, err := s.store.Get(s.ctx, cache.KindEntries, "it", "20260210", &got)
	s.NoError(err)
	s.False(found)
}
