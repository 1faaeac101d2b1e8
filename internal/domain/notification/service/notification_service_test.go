package service

import (
	"context"
	"testing"
	"time"

	"forum_client/internal/domain/notification/model"
	"forum_client/internal/pkg/apiclient"
	"forum_client/internal/pkg/feedback"
	"forum_client/internal/pkg/optimistic"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNotificationRepository is a mock of NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) List(ctx context.Context, page int) (*model.NotificationsResponse, error) {
	args := m.Called(ctx, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.NotificationsResponse), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockNotificationRepository) UnreadCount(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func newNotificationService(t *testing.T) (*NotificationService, *MockNotificationRepository, *UnreadAggregator, *feedback.Recorder) {
	t.Helper()
	repo := new(MockNotificationRepository)
	rec := &feedback.Recorder{}
	agg := NewUnreadAggregator(
		func(context.Context) (int, error) { return 0, nil },
		repo.UnreadCount,
		newFakeSession(true),
		time.Hour,
		nil,
	)
	svc := NewNotificationService(repo, optimistic.NewTracker(nil), agg, rec, nil)

	repo.On("UnreadCount", mock.Anything).Return(2, nil).Once()
	repo.On("List", mock.Anything, 1).Return(&model.NotificationsResponse{
		Notifications: []model.Notification{
			{ID: "n1", Type: model.TypeComment},
			{ID: "n2", Type: model.TypeVote},
			{ID: "n3", IsRead: true},
		},
		Page:       1,
		TotalPages: 1,
	}, nil).Once()

	require.NoError(t, agg.Refresh(context.Background()))
	_, _, err := svc.List(context.Background(), 1)
	require.NoError(t, err)
	return svc, repo, agg, rec
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()

	t.Run("Success decrements the unread counter", func(t *testing.T) {
		svc, repo, agg, _ := newNotificationService(t)
		repo.On("MarkRead", mock.Anything, "n1").Return(nil).Once()

		outcome, err := svc.MarkRead(ctx, "n1")

		require.NoError(t, err)
		assert.Equal(t, optimistic.Confirmed, outcome)
		assert.Equal(t, 1, agg.Counts().Notifications)
		assert.True(t, svc.Notifications()[0].IsRead)
	})

	t.Run("Failure restores counter and flag", func(t *testing.T) {
		svc, repo, agg, rec := newNotificationService(t)
		repo.On("MarkRead", mock.Anything, "n2").Run(func(mock.Arguments) {
			assert.Equal(t, 1, agg.Counts().Notifications)
		}).Return(&apiclient.APIError{Kind: apiclient.KindServer, StatusCode: 503}).Once()

		outcome, err := svc.MarkRead(ctx, "n2")

		require.Error(t, err)
		assert.Equal(t, optimistic.RolledBack, outcome)
		assert.Equal(t, 2, agg.Counts().Notifications)
		assert.False(t, svc.Notifications()[1].IsRead)
		assert.Equal(t, 1, rec.ToastCount())
	})

	t.Run("Already read leaves counter alone", func(t *testing.T) {
		svc, repo, agg, _ := newNotificationService(t)
		repo.On("MarkRead", mock.Anything, "n3").Return(nil).Once()

		_, err := svc.MarkRead(ctx, "n3")

		require.NoError(t, err)
		assert.Equal(t, 2, agg.Counts().Notifications)
	})

	t.Run("Unloaded id leaves counter to the server", func(t *testing.T) {
		svc, repo, agg, _ := newNotificationService(t)
		repo.On("MarkRead", mock.Anything, "n9").Run(func(mock.Arguments) {
			assert.Equal(t, 2, agg.Counts().Notifications)
		}).Return(nil).Twice()
		repo.On("UnreadCount", mock.Anything).Return(2, nil).Twice()

		for i := 0; i < 2; i++ {
			outcome, err := svc.MarkRead(ctx, "n9")
			require.NoError(t, err)
			assert.Equal(t, optimistic.Confirmed, outcome)
		}

		assert.Equal(t, 2, agg.Counts().Notifications)
		assert.Len(t, svc.Notifications(), 3)
		repo.AssertExpectations(t)
	})

	t.Run("Unloaded id failure leaves counter alone", func(t *testing.T) {
		svc, repo, agg, _ := newNotificationService(t)
		repo.On("MarkRead", mock.Anything, "n9").Return(&apiclient.APIError{Kind: apiclient.KindServer, StatusCode: 503}).Once()

		outcome, err := svc.MarkRead(ctx, "n9")

		require.Error(t, err)
		assert.Equal(t, optimistic.RolledBack, outcome)
		assert.Equal(t, 2, agg.Counts().Notifications)
	})
}

func TestListPaging(t *testing.T) {
	svc, repo, _, _ := newNotificationService(t)
	repo.On("List", mock.Anything, 2).Return(&model.NotificationsResponse{
		Notifications: []model.Notification{{ID: "n3"}, {ID: "n4"}},
		Page:          2,
		TotalPages:    3,
	}, nil).Once()

	list, hasMore, err := svc.List(context.Background(), 2)

	require.NoError(t, err)
	assert.True(t, hasMore)
	assert.Len(t, list, 4)
}
