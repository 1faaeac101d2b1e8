package cache

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, s.Set(ctx, "a", `{"x":1}`))
	require.NoError(t, s.Set(ctx, "b", `"two"`))

	val, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, val)

	// last writer wins
	require.NoError(t, s.Set(ctx, "a", `{"x":2}`))
	val, _ = s.Get(ctx, "a")
	assert.Equal(t, `{"x":2}`, val)

	require.NoError(t, s.Delete(ctx, "a", "b"))
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = s.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache(t *testing.T) {
	exerciseStore(t, NewMemoryCache())
}

func TestFileCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.json")

	c, err := NewFileCache(path)
	require.NoError(t, err)
	exerciseStore(t, c)

	t.Run("Persists across reopen", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, c.Set(ctx, "auth:token", `"abc"`))

		reopened, err := NewFileCache(path)
		require.NoError(t, err)

		val, err := reopened.Get(ctx, "auth:token")
		require.NoError(t, err)
		assert.Equal(t, `"abc"`, val)
	})

	t.Run("Null file opens empty and accepts writes", func(t *testing.T) {
		ctx := context.Background()
		nullPath := filepath.Join(t.TempDir(), "cache.json")
		require.NoError(t, os.WriteFile(nullPath, []byte("null"), 0o600))

		c, err := NewFileCache(nullPath)
		require.NoError(t, err)

		require.NotPanics(t, func() {
			require.NoError(t, c.Set(ctx, "k", `"v"`))
		})
		val, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, `"v"`, val)
	})

	t.Run("Failed write leaves memory unchanged", func(t *testing.T) {
		ctx := context.Background()
		p := filepath.Join(t.TempDir(), "cache.json")
		c, err := NewFileCache(p)
		require.NoError(t, err)
		require.NoError(t, c.Set(ctx, "kept", `"1"`))

		// 临时文件位置被目录占用, 落盘必然失败
		require.NoError(t, os.Mkdir(p+".tmp", 0o755))

		assert.Error(t, c.Set(ctx, "lost", `"2"`))
		_, err = c.Get(ctx, "lost")
		assert.ErrorIs(t, err, ErrCacheMiss)

		assert.Error(t, c.Delete(ctx, "kept"))
		val, err := c.Get(ctx, "kept")
		require.NoError(t, err)
		assert.Equal(t, `"1"`, val)

		reopened, err := NewFileCache(p)
		require.NoError(t, err)
		_, err = reopened.Get(ctx, "lost")
		assert.ErrorIs(t, err, ErrCacheMiss)
	})
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCache()

	type theme struct {
		Name string `json:"name"`
	}
	require.NoError(t, SetJSON(ctx, s, "pref", theme{Name: "dark"}))

	var got theme
	require.NoError(t, GetJSON(ctx, s, "pref", &got))
	assert.Equal(t, "dark", got.Name)

	require.NoError(t, s.Set(ctx, "broken", "{"))
	assert.Error(t, GetJSON(ctx, s, "broken", &got))

	assert.ErrorIs(t, GetJSON(ctx, s, "nope", &got), ErrCacheMiss)
}

func TestSQLCache(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c := NewSQLCache(sqlx.NewDb(db, "pgx"))
	ctx := context.Background()

	t.Run("Get hit", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(sqlGet)).
			WithArgs("chat:messages:1").
			WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`[]`))

		val, err := c.Get(ctx, "chat:messages:1")
		require.NoError(t, err)
		assert.Equal(t, `[]`, val)
	})

	t.Run("Get miss", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(sqlGet)).
			WithArgs("nope").
			WillReturnRows(sqlmock.NewRows([]string{"value"}))

		_, err := c.Get(ctx, "nope")
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("Set upserts", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO kv_entries")).
			WithArgs("k", "v").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, c.Set(ctx, "k", "v"))
	})

	t.Run("Delete many keys", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM kv_entries WHERE key IN ($1, $2)")).
			WithArgs("a", "b").
			WillReturnResult(sqlmock.NewResult(0, 2))

		assert.NoError(t, c.Delete(ctx, "a", "b"))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
