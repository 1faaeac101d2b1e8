package service

import (
	"context"
	"errors"
	"fmt"

	"forum_client/internal/pkg/apiclient"
	"forum_client/internal/pkg/state"
	"forum_client/pkg/cache"

	"go.uber.org/zap"
)

// ThemeKey 主题偏好缓存键
const ThemeKey = "pref:theme"

// 主题
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

var ErrInvalidTheme = errors.New("theme must be light, dark or system")

// PreferenceService 本地偏好设置, 只存在本地缓存
type PreferenceService struct {
	cache cache.Store
	log   *zap.Logger
	theme *state.Store[string]
}

func NewPreferenceService(store cache.Store, log *zap.Logger) *PreferenceService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PreferenceService{
		cache: store,
		log:   log,
		theme: state.New(ThemeSystem),
	}
}

func validTheme(theme string) bool {
	switch theme {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

// Theme 读取主题, 没有设置或内容非法时返回 system
func (s *PreferenceService) Theme(ctx context.Context) (string, error) {
	var theme string
	if err := cache.GetJSON(ctx, s.cache, ThemeKey, &theme); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return ThemeSystem, nil
		}
		s.log.Warn("stored theme unreadable", zap.Error(err))
		return ThemeSystem, nil
	}
	if !validTheme(theme) {
		return ThemeSystem, nil
	}
	s.theme.Set(theme)
	return theme, nil
}

// SetTheme 保存主题
func (s *PreferenceService) SetTheme(ctx context.Context, theme string) error {
	if !validTheme(theme) {
		return apiclient.Guard(ErrInvalidTheme, "Giao diện không hợp lệ.")
	}
	if err := cache.SetJSON(ctx, s.cache, ThemeKey, theme); err != nil {
		return fmt.Errorf("persist theme: %w", err)
	}
	s.theme.Set(theme)
	return nil
}

// Subscribe 订阅主题变化
func (s *PreferenceService) Subscribe(fn func(string)) *state.Subscription {
	return s.theme.Subscribe(fn)
}
