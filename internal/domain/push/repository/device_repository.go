package repository

import (
	"context"
	"net/url"

	"forum_client/internal/domain/push/model"
	"forum_client/internal/pkg/apiclient"
)

// DeviceRepository 推送设备注册接口
type DeviceRepository interface {
	RegisterDevice(ctx context.Context, token, platform string) error
	UnregisterDevice(ctx context.Context, token string) error
}

type deviceRepository struct {
	api *apiclient.Client
}

func NewDeviceRepository(api *apiclient.Client) DeviceRepository {
	return &deviceRepository{api: api}
}

func (r *deviceRepository) RegisterDevice(ctx context.Context, token, platform string) error {
	return r.api.Post(ctx, "/v1.0/notifications/devices", model.DeviceInput{Token: token, Platform: platform}, nil)
}

func (r *deviceRepository) UnregisterDevice(ctx context.Context, token string) error {
	return r.api.Delete(ctx, "/v1.0/notifications/devices/"+url.PathEscape(token), nil)
}
