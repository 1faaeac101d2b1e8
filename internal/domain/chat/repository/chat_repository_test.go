package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"forum_client/internal/pkg/apiclient"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseSchemas(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var hasCount atomic.Bool
	r.GET("/v1.0/chat/unread-count", func(c *gin.Context) {
		if hasCount.Load() {
			c.JSON(http.StatusOK, gin.H{"count": 0})
			return
		}
		c.JSON(http.StatusOK, gin.H{})
	})
	r.GET("/v1.0/chat/conversations", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })
	r.GET("/v1.0/chat/conversations/:id/messages", func(c *gin.Context) {
		if c.Param("id") == "empty" {
			c.JSON(http.StatusOK, gin.H{"messages": []gin.H{}, "page": 1, "total_pages": 1})
			return
		}
		c.JSON(http.StatusOK, gin.H{"page": 1})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	repo := NewChatRepository(apiclient.New(srv.URL))
	ctx := context.Background()

	t.Run("Missing count is malformed", func(t *testing.T) {
		_, err := repo.UnreadCount(ctx)
		assert.ErrorIs(t, err, apiclient.ErrMalformedResponse)
	})

	t.Run("Zero count is valid", func(t *testing.T) {
		hasCount.Store(true)
		n, err := repo.UnreadCount(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("Missing lists are malformed", func(t *testing.T) {
		_, err := repo.GetConversations(ctx)
		assert.ErrorIs(t, err, apiclient.ErrMalformedResponse)
		_, err = repo.GetMessages(ctx, "c1")
		assert.ErrorIs(t, err, apiclient.ErrMalformedResponse)
	})

	t.Run("Empty message page is valid", func(t *testing.T) {
		msgs, err := repo.GetMessages(ctx, "empty")
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})
}
