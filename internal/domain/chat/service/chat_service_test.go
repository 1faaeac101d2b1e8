package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"forum_client/internal/domain/chat/model"
	"forum_client/internal/pkg/apiclient"
	"forum_client/internal/pkg/feedback"
	"forum_client/internal/pkg/optimistic"
	"forum_client/internal/pkg/worker"
	"forum_client/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockChatRepository is a mock of ChatRepository
type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) GetConversations(ctx context.Context) ([]model.Conversation, error) {
	args := m.Called(ctx)
	convs, _ := args.Get(0).([]model.Conversation)
	return convs, args.Error(1)
}

func (m *MockChatRepository) StartConversation(ctx context.Context, username string) (*model.Conversation, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *MockChatRepository) GetMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	args := m.Called(ctx, conversationID)
	msgs, _ := args.Get(0).([]model.Message)
	return msgs, args.Error(1)
}

func (m *MockChatRepository) SendMessage(ctx context.Context, conversationID, content string) (*model.Message, error) {
	args := m.Called(ctx, conversationID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockChatRepository) UnreadCount(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

var (
	oldPage = []model.Message{{ID: "m1", ConversationID: "c1", Sender: "binh", Content: "chào"}}
	newPage = []model.Message{
		{ID: "m1", ConversationID: "c1", Sender: "binh", Content: "chào"},
		{ID: "m2", ConversationID: "c1", Sender: "an", Content: "hi"},
	}
)

func newTestService(workers *worker.WorkerPool) (*ChatService, *MockChatRepository, *cache.MemoryCache, *fakeClock, *feedback.Recorder) {
	repo := new(MockChatRepository)
	store := cache.NewMemoryCache()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	rec := &feedback.Recorder{}
	svc := NewChatService(repo, store, optimistic.NewTracker(nil), workers, rec, nil, func() string { return "an" })
	svc.SetClock(clock.Now)
	return svc, repo, store, clock, rec
}

func TestMessagesFreshness(t *testing.T) {
	ctx := context.Background()

	t.Run("Cache written at T is fresh at T+23h59m", func(t *testing.T) {
		svc, repo, _, clock, _ := newTestService(nil)
		repo.On("GetMessages", mock.Anything, "c1").Return(oldPage, nil).Once()
		_, err := svc.Messages(ctx, "c1")
		require.NoError(t, err)

		clock.Advance(23*time.Hour + 59*time.Minute)
		repo.On("GetMessages", mock.Anything, "c1").Return(newPage, nil).Once()

		got, err := svc.Messages(ctx, "c1")

		require.NoError(t, err)
		assert.Equal(t, oldPage, got, "cached page returned immediately")
		assert.Equal(t, newPage, svc.Thread("c1"), "background refresh swapped the view")
		repo.AssertExpectations(t)
	})

	t.Run("Cache written at T is stale at T+24h01m", func(t *testing.T) {
		svc, repo, _, clock, _ := newTestService(nil)
		repo.On("GetMessages", mock.Anything, "c1").Return(oldPage, nil).Once()
		_, err := svc.Messages(ctx, "c1")
		require.NoError(t, err)

		clock.Advance(24*time.Hour + time.Minute)
		repo.On("GetMessages", mock.Anything, "c1").Return(newPage, nil).Once()

		got, err := svc.Messages(ctx, "c1")

		require.NoError(t, err)
		assert.Equal(t, newPage, got, "fetched synchronously")
	})

	t.Run("Stale fetch failure returns the error", func(t *testing.T) {
		svc, repo, _, _, _ := newTestService(nil)
		repo.On("GetMessages", mock.Anything, "c1").
			Return(nil, &apiclient.APIError{Kind: apiclient.KindNetwork, Err: errors.New("offline")}).Once()

		_, err := svc.Messages(ctx, "c1")

		assert.Equal(t, apiclient.KindNetwork, apiclient.KindOf(err))
	})

	t.Run("Corrupt cache is treated as stale", func(t *testing.T) {
		svc, repo, store, clock, _ := newTestService(nil)
		require.NoError(t, store.Set(ctx, MessagesKey("c1"), "{not json"))
		require.NoError(t, store.Set(ctx, CachedAtKey("c1"), strconv.FormatInt(clock.Now().UnixMilli(), 10)))
		repo.On("GetMessages", mock.Anything, "c1").Return(oldPage, nil).Once()

		got, err := svc.Messages(ctx, "c1")

		require.NoError(t, err)
		assert.Equal(t, oldPage, got)
		raw, _ := store.Get(ctx, MessagesKey("c1"))
		assert.JSONEq(t, `[{"id":"m1","conversation_id":"c1","sender":"binh","content":"chào","created_at":"0001-01-01T00:00:00Z"}]`, raw)
	})
}

func TestBackgroundRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("Unchanged page does not notify watchers but bumps timestamp", func(t *testing.T) {
		pool := worker.NewWorkerPool(1, 4, nil)
		pool.Start()
		svc, repo, store, clock, _ := newTestService(pool)
		repo.On("GetMessages", mock.Anything, "c1").Return(oldPage, nil)

		_, err := svc.Messages(ctx, "c1")
		require.NoError(t, err)
		clock.Advance(time.Hour)

		notified := 0
		sub := svc.Watch("c1", func([]model.Message) { notified++ })
		defer sub.Close()

		_, err = svc.Messages(ctx, "c1")
		require.NoError(t, err)
		pool.Stop()

		assert.Equal(t, 1, notified, "only the cached read notifies")
		var cachedAt int64
		require.NoError(t, cache.GetJSON(ctx, store, CachedAtKey("c1"), &cachedAt))
		assert.Equal(t, clock.Now().UnixMilli(), cachedAt)
	})

	t.Run("Changed page replaces cache and view", func(t *testing.T) {
		pool := worker.NewWorkerPool(1, 4, nil)
		pool.Start()
		svc, repo, store, _, _ := newTestService(pool)
		repo.On("GetMessages", mock.Anything, "c1").Return(oldPage, nil).Once()
		_, err := svc.Messages(ctx, "c1")
		require.NoError(t, err)

		repo.On("GetMessages", mock.Anything, "c1").Return(newPage, nil).Once()
		_, err = svc.Messages(ctx, "c1")
		require.NoError(t, err)
		pool.Stop()

		assert.Equal(t, newPage, svc.Thread("c1"))
		var cached []model.Message
		require.NoError(t, cache.GetJSON(ctx, store, MessagesKey("c1"), &cached))
		assert.Len(t, cached, 2)
	})
}

func TestSend(t *testing.T) {
	ctx := context.Background()

	t.Run("Pending message is replaced and cache rewritten", func(t *testing.T) {
		svc, repo, store, _, _ := newTestService(nil)
		repo.On("GetMessages", mock.Anything, "c1").Return(oldPage, nil).Once()
		_, err := svc.Messages(ctx, "c1")
		require.NoError(t, err)

		repo.On("SendMessage", mock.Anything, "c1", "hi").Run(func(mock.Arguments) {
			thread := svc.Thread("c1")
			require.Len(t, thread, 2)
			assert.True(t, thread[1].Pending)
		}).Return(&model.Message{ID: "m2", ConversationID: "c1", Sender: "an", Content: "hi"}, nil).Once()

		sent, err := svc.Send(ctx, "c1", " hi ")

		require.NoError(t, err)
		assert.Equal(t, "m2", sent.ID)
		assert.Equal(t, newPage, svc.Thread("c1"))
		var cached []model.Message
		require.NoError(t, cache.GetJSON(ctx, store, MessagesKey("c1"), &cached))
		assert.Equal(t, newPage, cached)
	})

	t.Run("Send on a thread not loaded appends to the cached page", func(t *testing.T) {
		seeder, seedRepo, store, clock, _ := newTestService(nil)
		seedRepo.On("GetMessages", mock.Anything, "c1").Return(newPage, nil).Once()
		_, err := seeder.Messages(ctx, "c1")
		require.NoError(t, err)
		var seededAt int64
		require.NoError(t, cache.GetJSON(ctx, store, CachedAtKey("c1"), &seededAt))

		repo := new(MockChatRepository)
		svc := NewChatService(repo, store, optimistic.NewTracker(nil), nil, nil, nil, func() string { return "an" })
		clock.Advance(time.Hour)
		svc.SetClock(clock.Now)
		repo.On("SendMessage", mock.Anything, "c1", "yo").
			Return(&model.Message{ID: "m3", ConversationID: "c1", Sender: "an", Content: "yo"}, nil).Once()

		_, err = svc.Send(ctx, "c1", "yo")
		require.NoError(t, err)

		var cached []model.Message
		require.NoError(t, cache.GetJSON(ctx, store, MessagesKey("c1"), &cached))
		require.Len(t, cached, 3)
		assert.Equal(t, "m1", cached[0].ID)
		assert.Equal(t, "m3", cached[2].ID)
		var cachedAt int64
		require.NoError(t, cache.GetJSON(ctx, store, CachedAtKey("c1"), &cachedAt))
		assert.Equal(t, seededAt, cachedAt, "appending does not refresh the timestamp")
		repo.AssertNotCalled(t, "GetMessages", mock.Anything, mock.Anything)
	})

	t.Run("Send without a cached page leaves the cache empty", func(t *testing.T) {
		svc, repo, store, _, _ := newTestService(nil)
		repo.On("SendMessage", mock.Anything, "c1", "yo").
			Return(&model.Message{ID: "m3", ConversationID: "c1", Sender: "an", Content: "yo"}, nil).Once()

		_, err := svc.Send(ctx, "c1", "yo")
		require.NoError(t, err)

		_, err = store.Get(ctx, MessagesKey("c1"))
		assert.ErrorIs(t, err, cache.ErrCacheMiss)
		_, err = store.Get(ctx, CachedAtKey("c1"))
		assert.ErrorIs(t, err, cache.ErrCacheMiss)
	})

	t.Run("Failed message is removed with a toast", func(t *testing.T) {
		svc, repo, _, _, rec := newTestService(nil)
		repo.On("SendMessage", mock.Anything, "c1", "hi").
			Return(nil, &apiclient.APIError{Kind: apiclient.KindServer, StatusCode: 500}).Once()

		_, err := svc.Send(ctx, "c1", "hi")

		require.Error(t, err)
		assert.Empty(t, svc.Thread("c1"))
		assert.Equal(t, 1, rec.ToastCount())
	})

	t.Run("Empty message is rejected", func(t *testing.T) {
		svc, repo, _, _, _ := newTestService(nil)
		_, err := svc.Send(ctx, "c1", "  ")
		assert.ErrorIs(t, err, apiclient.ErrEmptyField)
		repo.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestReset(t *testing.T) {
	ctx := context.Background()

	t.Run("Clears views and cached pages", func(t *testing.T) {
		svc, repo, store, _, _ := newTestService(nil)
		repo.On("GetMessages", mock.Anything, "c1").Return(oldPage, nil).Once()
		_, err := svc.Messages(ctx, "c1")
		require.NoError(t, err)

		svc.Reset(ctx)

		assert.Empty(t, svc.Thread("c1"))
		for _, key := range []string{MessagesKey("c1"), CachedAtKey("c1"), IndexKey} {
			_, err := store.Get(ctx, key)
			assert.ErrorIs(t, err, cache.ErrCacheMiss, key)
		}
	})

	t.Run("Clears pages cached by an earlier process", func(t *testing.T) {
		seeder, seedRepo, store, _, _ := newTestService(nil)
		seedRepo.On("GetMessages", mock.Anything, "c2").Return(oldPage, nil).Once()
		_, err := seeder.Messages(ctx, "c2")
		require.NoError(t, err)

		svc := NewChatService(new(MockChatRepository), store, optimistic.NewTracker(nil), nil, nil, nil, func() string { return "" })
		svc.Reset(ctx)

		_, err = store.Get(ctx, MessagesKey("c2"))
		assert.ErrorIs(t, err, cache.ErrCacheMiss)
	})
}

func TestStartConversation(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _, rec := newTestService(nil)
	repo.On("GetConversations", mock.Anything).Return([]model.Conversation{{ID: "c1"}, {ID: "c2"}}, nil).Once()
	repo.On("StartConversation", mock.Anything, "binh").Return(&model.Conversation{ID: "c2", Participant: "binh"}, nil).Once()
	repo.On("StartConversation", mock.Anything, "ghost").
		Return(nil, &apiclient.APIError{Kind: apiclient.KindServer, StatusCode: 404, Message: "Không tìm thấy người dùng"}).Once()

	_, err := svc.Conversations(ctx)
	require.NoError(t, err)

	var latest []model.Conversation
	sub := svc.SubscribeConversations(func(c []model.Conversation) { latest = c })
	defer sub.Close()

	conv, err := svc.StartConversation(ctx, "binh")
	require.NoError(t, err)
	assert.Equal(t, "c2", conv.ID)
	require.Len(t, latest, 2)
	assert.Equal(t, "c2", latest[0].ID)

	_, err = svc.StartConversation(ctx, "ghost")
	require.Error(t, err)
	require.Len(t, rec.Alerts, 1)
	assert.Contains(t, rec.Alerts[0], "Không tìm thấy người dùng")
}
