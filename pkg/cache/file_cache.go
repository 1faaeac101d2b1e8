package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
)

// FileCache 单个 JSON 文件持久化的缓存, 每次写入都落盘
type FileCache struct {
	path string
	mu   sync.RWMutex
	data map[string]string
}

// NewFileCache 打开或创建缓存文件
func NewFileCache(path string) (*FileCache, error) {
	c := &FileCache{
		path: path,
		data: make(map[string]string),
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if err := c.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load cache file: %w", err)
	}
	return c, nil
}

func (c *FileCache) load() error {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &c.data); err != nil {
		return err
	}
	// 文件内容为 null 时 Unmarshal 会把 map 置空
	if c.data == nil {
		c.data = make(map[string]string)
	}
	return nil
}

// flush 先写临时文件再 rename, 避免写一半的文件
func (c *FileCache) flush(data map[string]string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}

func (c *FileCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	val, ok := c.data[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return val, nil
}

func (c *FileCache) Set(ctx context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := maps.Clone(c.data)
	next[key] = value
	return c.commit(next)
}

func (c *FileCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := maps.Clone(c.data)
	for _, key := range keys {
		delete(next, key)
	}
	return c.commit(next)
}

// commit 落盘成功后才替换内存, 内存与文件保持一致
func (c *FileCache) commit(next map[string]string) error {
	if err := c.flush(next); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	c.data = next
	return nil
}
