package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mkusaka/hinichi/internal/cache"
)

// CacheStore is the durable cache.DataStore backend: one row per record,
// expiry enforced on read. Expired rows are overwritten by the next Put or
// removed opportunistically.
type CacheStore struct {
	db      *sqlx.DB
	version int
}

func NewCacheStore(db *sqlx.DB, version int) *CacheStore {
	return &CacheStore{db: db, version: version}
}

// Schema is the DDL for the backing table, applied by the caller at
// startup (there is no migration history to manage for a single table).
const Schema = `
CREATE TABLE IF NOT EXISTS cache_records (
	key        TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_records_expires_at ON cache_records (expires_at);
`

func (s *CacheStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("init cache schema: %w", err)
	}
	return nil
}

func (s *CacheStore) Get(ctx context.Context, kind cache.Kind, category, date string, v any) (bool, error) {
	key := cache.Key(s.version, kind, category, date)

	var payload []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM cache_records WHERE key = $1 AND expires_at > now()",
		key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get cache record: %w", err)
	}

	if err := json.Unmarshal(payload, v); err != nil {
		// Treat an unreadable payload as absent and drop the row.
		_, _ = s.db.ExecContext(ctx, "DELETE FROM cache_records WHERE key = $1", key)
		return false, nil
	}
	return true, nil
}

func (s *CacheStore) Put(ctx context.Context, kind cache.Kind, category, date string, v any, ttl time.Duration) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
		INSERT INTO cache_records (key, payload, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			payload = EXCLUDED.payload,
			expires_at = EXCLUDED.expires_at`

	key := cache.Key(s.version, kind, category, date)
	if _, err := s.db.ExecContext(ctx, query, key, payload, time.Now().Add(ttl)); err != nil {
		return fmt.Errorf("put cache record: %w", err)
	}
	return nil
}

func (s *CacheStore) Delete(ctx context.Context, kind cache.Kind, category, date string) error {
	key := cache.Key(s.version, kind, category, date)
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_records WHERE key = $1", key); err != nil {
		return fmt.Errorf("delete cache record: %w", err)
	}
	return nil
}

// Sweep removes expired rows. Reads never return them, so sweeping is
// purely to keep the table small; run it from a background ticker.
func (s *CacheStore) Sweep(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM cache_records WHERE expires_at <= now()")
	if err != nil {
		return 0, fmt.Errorf("sweep cache records: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
