package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var _ KeyValueStore = (*PostgresStore)(nil)

// PostgresStore keeps the whole-record-per-key contract on top of a single
// JSONB table. No migration tooling: the one table is created on
// construction.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

const createKVTableSQL = `
CREATE TABLE IF NOT EXISTS kv_entries (
    key        TEXT PRIMARY KEY,
    value      JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewPostgresStore ensures the kv_entries table exists and returns the store.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, createKVTableSQL); err != nil {
		return nil, fmt.Errorf("failed to ensure kv_entries table: %w", err)
	}
	return &PostgresStore{pool: pool, logger: logger.Named("PostgresStore")}, nil
}

func (s *PostgresStore) Save(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %q: %w", key, err)
	}
	query := `
        INSERT INTO kv_entries (key, value, updated_at)
        VALUES ($1, $2, now())
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	if _, err := s.pool.Exec(ctx, query, key, data); err != nil {
		s.logger.Error("Failed to upsert kv entry", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to save key %q: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, key string, dest any) error {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM kv_entries WHERE key = $1`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}
		s.logger.Error("Failed to select kv entry", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to load key %q: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal value for key %q: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM kv_entries WHERE key = $1`, key); err != nil {
		s.logger.Error("Failed to delete kv entry", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key FROM kv_entries WHERE left(key, length($1)) = $1`, prefix)
	if err != nil {
		s.logger.Error("Failed to list kv entries", zap.String("prefix", prefix), zap.Error(err))
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM kv_entries`); err != nil {
		s.logger.Error("Failed to clear kv entries", zap.Error(err))
		return fmt.Errorf("failed to clear store: %w", err)
	}
	return nil
}
