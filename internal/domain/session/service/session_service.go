package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"forum_client/internal/domain/session/model"
	"forum_client/internal/domain/session/repository"
	"forum_client/internal/pkg/apiclient"
	"forum_client/internal/pkg/feedback"
	"forum_client/internal/pkg/state"
	"forum_client/pkg/cache"
	"forum_client/pkg/utils"

	"go.uber.org/zap"
)

// 本地缓存键
const (
	TokenKey    = "auth:token"
	UserInfoKey = "auth:user_info"
)

// SessionService 登录态管理
// token 和用户信息持久化到本地缓存, 登出时整体清除
type SessionService struct {
	repo     repository.AuthRepository
	cache    cache.Store
	reporter feedback.Reporter
	log      *zap.Logger
	now      func() time.Time

	state *state.Store[model.Session]

	hookMu      sync.Mutex
	logoutHooks []func(ctx context.Context)
}

// NewSessionService 创建会话服务
func NewSessionService(repo repository.AuthRepository, store cache.Store, reporter feedback.Reporter, log *zap.Logger) *SessionService {
	if log == nil {
		log = zap.NewNop()
	}
	if reporter == nil {
		reporter = feedback.Nop{}
	}
	return &SessionService{
		repo:     repo,
		cache:    store,
		reporter: reporter,
		log:      log,
		now:      time.Now,
		state:    state.New(model.Session{}),
	}
}

// SetClock 替换时间来源
func (s *SessionService) SetClock(now func() time.Time) {
	s.now = now
}

// Login 账号密码登录
func (s *SessionService) Login(ctx context.Context, username, password string) (*model.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		err := apiclient.Guard(apiclient.ErrEmptyField, "Vui lòng nhập tên đăng nhập và mật khẩu.")
		s.reporter.Alert("Đăng nhập thất bại", apiclient.UserMessage(err))
		return nil, err
	}

	resp, err := s.repo.Login(ctx, model.LoginInput{Username: username, Password: password})
	if err != nil {
		s.reporter.Alert("Đăng nhập thất bại", apiclient.UserMessage(err))
		return nil, err
	}
	return s.establish(ctx, resp)
}

// LoginOAuth 使用第三方 access token 换取 bearer token
func (s *SessionService) LoginOAuth(ctx context.Context, provider, accessToken string) (*model.Session, error) {
	if provider == "" || accessToken == "" {
		err := apiclient.Guard(apiclient.ErrEmptyField, "Thiếu thông tin đăng nhập.")
		s.reporter.Alert("Đăng nhập thất bại", apiclient.UserMessage(err))
		return nil, err
	}

	resp, err := s.repo.LoginOAuth(ctx, model.OAuthInput{Provider: provider, AccessToken: accessToken})
	if err != nil {
		s.reporter.Alert("Đăng nhập thất bại", apiclient.UserMessage(err))
		return nil, err
	}
	return s.establish(ctx, resp)
}

func (s *SessionService) establish(ctx context.Context, resp *model.LoginResponse) (*model.Session, error) {
	if err := cache.SetJSON(ctx, s.cache, TokenKey, resp.Token); err != nil {
		return nil, fmt.Errorf("persist token: %w", err)
	}
	if err := cache.SetJSON(ctx, s.cache, UserInfoKey, resp.User); err != nil {
		return nil, fmt.Errorf("persist user info: %w", err)
	}

	sess := model.Session{Token: resp.Token, User: resp.User, LoggedIn: true}
	s.state.Set(sess)
	s.log.Info("logged in", zap.String("username", resp.User.Username))
	return &sess, nil
}

// RequestPasswordReset 发送重置密码邮件
func (s *SessionService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		err := apiclient.Guard(apiclient.ErrEmptyField, "Vui lòng nhập email hợp lệ.")
		s.reporter.Alert("Đặt lại mật khẩu", apiclient.UserMessage(err))
		return err
	}
	if err := s.repo.RequestPasswordReset(ctx, email); err != nil {
		s.reporter.Alert("Đặt lại mật khẩu", apiclient.UserMessage(err))
		return err
	}
	return nil
}

// OnLogout 注册登出钩子, 在清除 token 之前执行
func (s *SessionService) OnLogout(hook func(ctx context.Context)) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.logoutHooks = append(s.logoutHooks, hook)
}

// Logout 执行钩子后清除本地会话
func (s *SessionService) Logout(ctx context.Context) error {
	s.hookMu.Lock()
	hooks := append([]func(context.Context){}, s.logoutHooks...)
	s.hookMu.Unlock()

	for _, hook := range hooks {
		hook(ctx)
	}

	err := s.cache.Delete(ctx, TokenKey, UserInfoKey)
	s.state.Set(model.Session{})
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.log.Info("logged out")
	return nil
}

// Restore 从本地缓存恢复会话, 已过期的 token 会被清除
func (s *SessionService) Restore(ctx context.Context) (*model.Session, error) {
	var token string
	if err := cache.GetJSON(ctx, s.cache, TokenKey, &token); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return &model.Session{}, nil
		}
		return nil, err
	}

	var user model.User
	if err := cache.GetJSON(ctx, s.cache, UserInfoKey, &user); err != nil {
		s.log.Warn("stored user info unreadable, clearing session", zap.Error(err))
		_ = s.cache.Delete(ctx, TokenKey, UserInfoKey)
		return &model.Session{}, nil
	}

	if token == "" || utils.TokenExpired(token, s.now()) {
		s.log.Info("stored token expired, clearing session")
		_ = s.cache.Delete(ctx, TokenKey, UserInfoKey)
		s.state.Set(model.Session{})
		return &model.Session{}, nil
	}

	sess := model.Session{Token: token, User: user, LoggedIn: true}
	s.state.Set(sess)
	return &sess, nil
}

// Current 返回当前会话
func (s *SessionService) Current() model.Session {
	return s.state.Get()
}

// Token 当前 bearer token, 未登录为空
func (s *SessionService) Token() string {
	return s.state.Get().Token
}

// Username 当前用户名, 未登录为空
func (s *SessionService) Username() string {
	sess := s.state.Get()
	if !sess.LoggedIn {
		return ""
	}
	return sess.User.Username
}

func (s *SessionService) IsLoggedIn() bool {
	return s.state.Get().LoggedIn
}

// Subscribe 订阅会话变化
func (s *SessionService) Subscribe(fn func(model.Session)) *state.Subscription {
	return s.state.Subscribe(fn)
}
