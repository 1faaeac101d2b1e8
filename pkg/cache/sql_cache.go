package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SQLCache 基于 kv_entries 表的缓存 (见 migrations/)
type SQLCache struct {
	db *sqlx.DB
}

// NewSQLCache 创建 SQL 缓存
func NewSQLCache(db *sqlx.DB) *SQLCache {
	return &SQLCache{db: db}
}

const (
	sqlGet    = `SELECT value FROM kv_entries WHERE key = $1`
	sqlUpsert = `INSERT INTO kv_entries (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	sqlDelete = `DELETE FROM kv_entries WHERE key IN (?)`
)

func (c *SQLCache) Get(ctx context.Context, key string) (string, error) {
	var val string
	if err := c.db.GetContext(ctx, &val, sqlGet, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrCacheMiss
		}
		return "", fmt.Errorf("cache get error: %w", err)
	}
	return val, nil
}

func (c *SQLCache) Set(ctx context.Context, key, value string) error {
	if _, err := c.db.ExecContext(ctx, sqlUpsert, key, value); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

func (c *SQLCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	query, args, err := sqlx.In(sqlDelete, keys)
	if err != nil {
		return fmt.Errorf("cache delete error: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, c.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}
