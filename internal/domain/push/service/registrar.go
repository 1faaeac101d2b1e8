package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"forum_client/internal/domain/push/model"
	"forum_client/internal/domain/push/repository"
	"forum_client/internal/pkg/state"
	"forum_client/pkg/cache"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 本地缓存键
const (
	TokenKey          = "push:token"
	InstallationIDKey = "push:installation_id"
)

var ErrNoDeviceToken = errors.New("device token unavailable")

// TokenSource 提供设备推送 token
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource 使用固定 token, 一般来自配置
type StaticTokenSource string

func (s StaticTokenSource) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoDeviceToken
	}
	return string(s), nil
}

// InstallationTokenSource 首次使用时生成安装 id 并持久化
type InstallationTokenSource struct {
	Cache cache.Store
}

func (s InstallationTokenSource) Token(ctx context.Context) (string, error) {
	var id string
	err := cache.GetJSON(ctx, s.Cache, InstallationIDKey, &id)
	if err == nil && id != "" {
		return id, nil
	}
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		return "", err
	}
	id = "cli-" + uuid.NewString()
	if err := cache.SetJSON(ctx, s.Cache, InstallationIDKey, id); err != nil {
		return "", fmt.Errorf("persist installation id: %w", err)
	}
	return id, nil
}

// Registrar 向服务端注册推送 token
// 同一时刻只允许一次注册请求, 并发调用直接返回 false
type Registrar struct {
	repo     repository.DeviceRepository
	tokens   TokenSource
	cache    cache.Store
	platform string
	log      *zap.Logger

	inFlight atomic.Bool
	state    *state.Store[model.State]
}

func NewRegistrar(repo repository.DeviceRepository, tokens TokenSource, store cache.Store, platform string, log *zap.Logger) *Registrar {
	if log == nil {
		log = zap.NewNop()
	}
	if platform == "" {
		platform = model.PlatformAndroid
	}
	return &Registrar{
		repo:     repo,
		tokens:   tokens,
		cache:    store,
		platform: platform,
		log:      log,
		state:    state.New(model.Unregistered),
	}
}

// Register 注册推送 token; 已有请求在进行中时返回 false 且不发请求
func (r *Registrar) Register(ctx context.Context) (bool, error) {
	if !r.inFlight.CompareAndSwap(false, true) {
		r.log.Debug("push registration already in flight")
		return false, nil
	}
	defer r.inFlight.Store(false)

	r.state.Set(model.Registering)

	token, err := r.tokens.Token(ctx)
	if err != nil {
		r.state.Set(model.Failed)
		r.log.Warn("push token unavailable", zap.Error(err))
		return true, err
	}
	if err := r.repo.RegisterDevice(ctx, token, r.platform); err != nil {
		r.state.Set(model.Failed)
		r.log.Warn("push registration failed", zap.Error(err))
		return true, err
	}
	if err := cache.SetJSON(ctx, r.cache, TokenKey, token); err != nil {
		r.log.Warn("persist push token failed", zap.Error(err))
	}

	r.state.Set(model.Registered)
	r.log.Info("push token registered", zap.String("platform", r.platform))
	return true, nil
}

// Unregister 尽力注销已保存的 token, 失败只记录日志, 本地 token 总是清除
func (r *Registrar) Unregister(ctx context.Context) {
	var token string
	if err := cache.GetJSON(ctx, r.cache, TokenKey, &token); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			r.log.Warn("stored push token unreadable", zap.Error(err))
		}
		r.state.Set(model.Unregistered)
		return
	}

	if err := r.repo.UnregisterDevice(ctx, token); err != nil {
		r.log.Warn("push unregister failed", zap.Error(err))
	}
	if err := r.cache.Delete(ctx, TokenKey); err != nil {
		r.log.Warn("clear push token failed", zap.Error(err))
	}
	r.state.Set(model.Unregistered)
}

// State 当前注册状态
func (r *Registrar) State() model.State {
	return r.state.Get()
}

// Subscribe 订阅状态变化
func (r *Registrar) Subscribe(fn func(model.State)) *state.Subscription {
	return r.state.Subscribe(fn)
}
