package repository

import (
	"context"
	"net/url"

	"forum_client/internal/domain/notification/model"
	"forum_client/internal/pkg/apiclient"
	"forum_client/pkg/utils"
)

// NotificationRepository 通知接口
type NotificationRepository interface {
	List(ctx context.Context, page int) (*model.NotificationsResponse, error)
	MarkRead(ctx context.Context, id string) error
	UnreadCount(ctx context.Context) (int, error)
}

type notificationRepository struct {
	api *apiclient.Client
}

func NewNotificationRepository(api *apiclient.Client) NotificationRepository {
	return &notificationRepository{api: api}
}

func (r *notificationRepository) List(ctx context.Context, page int) (*model.NotificationsResponse, error) {
	var resp model.NotificationsResponse
	if err := r.api.Get(ctx, utils.PagePath("/v1.0/notifications", utils.Pagination{Page: page}), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id string) error {
	return r.api.Post(ctx, "/v1.0/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

func (r *notificationRepository) UnreadCount(ctx context.Context) (int, error) {
	var resp model.CountResponse
	if err := r.api.Get(ctx, "/v1.0/notifications/unread-count", &resp); err != nil {
		return 0, err
	}
	return *resp.Count, nil
}
