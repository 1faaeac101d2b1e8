package cache

import (
	"context"
	"fmt"
	"io"

	"forum_client/internal/pkg/config"
	"forum_client/pkg/database"
)

// Open 根据 cache.driver 选择缓存实现
// 返回的 io.Closer 用于释放底层连接, 可能为 nil
func Open(ctx context.Context, cfg *config.Config) (Store, io.Closer, error) {
	switch cfg.Cache.Driver {
	case "memory":
		return NewMemoryCache(), nil, nil
	case "file":
		c, err := NewFileCache(cfg.Cache.FilePath)
		return c, nil, err
	case "redis":
		rdb, err := database.OpenRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisCache(rdb, cfg.Cache.Prefix), rdb, nil
	case "postgres":
		db, err := database.OpenPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return NewSQLCache(db), db, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}
}
