package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"forum_client/internal/pkg/apiclient"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) TopicRepository {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.POST("/v1.0/topics/:id/votes", func(c *gin.Context) {
		switch c.Param("id") {
		case "ok":
			c.JSON(http.StatusOK, gin.H{"votes": []gin.H{{"username": "an", "vote": 1}}})
		case "cleared":
			c.JSON(http.StatusOK, gin.H{"votes": []gin.H{}})
		default:
			c.JSON(http.StatusOK, gin.H{"message": "ok"})
		}
	})
	r.GET("/v1.0/topics", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"page": 1, "total_pages": 1})
	})
	r.GET("/v1.0/user/saved-topics", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return NewTopicRepository(apiclient.New(srv.URL))
}

func TestVoteTopic(t *testing.T) {
	repo := newBackend(t)
	ctx := context.Background()

	t.Run("Returns the server vote list", func(t *testing.T) {
		votes, err := repo.VoteTopic(ctx, "ok", 1)
		require.NoError(t, err)
		require.Len(t, votes, 1)
		assert.Equal(t, "an", votes[0].Username)
	})

	t.Run("Empty vote list is valid", func(t *testing.T) {
		votes, err := repo.VoteTopic(ctx, "cleared", 0)
		require.NoError(t, err)
		assert.NotNil(t, votes)
		assert.Empty(t, votes)
	})

	t.Run("Missing votes is malformed", func(t *testing.T) {
		_, err := repo.VoteTopic(ctx, "t1", 1)
		assert.ErrorIs(t, err, apiclient.ErrMalformedResponse)
		assert.Equal(t, apiclient.KindMalformed, apiclient.KindOf(err))
	})
}

func TestListsRequireField(t *testing.T) {
	repo := newBackend(t)
	ctx := context.Background()

	_, err := repo.GetFeed(ctx, 1)
	assert.ErrorIs(t, err, apiclient.ErrMalformedResponse)

	_, err = repo.GetSavedTopics(ctx)
	assert.ErrorIs(t, err, apiclient.ErrMalformedResponse)
}
