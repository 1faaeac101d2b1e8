package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"forum_client/internal/domain/notification/model"
	sessionModel "forum_client/internal/domain/session/model"
	"forum_client/internal/pkg/state"
	"forum_client/pkg/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultPollInterval 未读数轮询间隔
const DefaultPollInterval = 30 * time.Second

// AppState 应用前后台状态
type AppState int

const (
	Background AppState = iota
	Foreground
)

func (s AppState) String() string {
	if s == Foreground {
		return "foreground"
	}
	return "background"
}

// CountFunc 拉取一个未读计数
type CountFunc func(ctx context.Context) (int, error)

// SessionSource 登录态来源
type SessionSource interface {
	IsLoggedIn() bool
	Subscribe(fn func(sessionModel.Session)) *state.Subscription
}

// UnreadAggregator 聚合私信和通知两个未读数
//
// 两个计数独立拉取, 一个失败不影响另一个, 失败的计数保持上次的值.
// 启动时、登录态变化时、每个轮询周期以及切回前台时刷新, 失败不退避.
type UnreadAggregator struct {
	chat          CountFunc
	notifications CountFunc
	session       SessionSource
	interval      time.Duration
	metrics       *metrics.MetricsCollector
	log           *zap.Logger

	counts   *state.Store[model.UnreadCounts]
	appState *state.Store[AppState]
	kick     chan struct{}

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	subs    []*state.Subscription
	running bool
}

func NewUnreadAggregator(chat, notifications CountFunc, session SessionSource, interval time.Duration, log *zap.Logger) *UnreadAggregator {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &UnreadAggregator{
		chat:          chat,
		notifications: notifications,
		session:       session,
		interval:      interval,
		log:           log,
		counts:        state.New(model.UnreadCounts{}),
		appState:      state.New(Foreground),
		kick:          make(chan struct{}, 1),
	}
}

// SetMetrics 记录拉取失败次数
func (a *UnreadAggregator) SetMetrics(m *metrics.MetricsCollector) {
	a.metrics = m
}

// Counts 当前未读数
func (a *UnreadAggregator) Counts() model.UnreadCounts {
	return a.counts.Get()
}

// Subscribe 订阅未读数变化
func (a *UnreadAggregator) Subscribe(fn func(model.UnreadCounts)) *state.Subscription {
	return a.counts.Subscribe(fn)
}

// RefreshChat 刷新私信未读数, 失败时保持原值
func (a *UnreadAggregator) RefreshChat(ctx context.Context) error {
	return a.refreshOne(ctx, "chat", a.chat, func(c model.UnreadCounts, n int) model.UnreadCounts {
		c.Chat = n
		return c
	})
}

// RefreshNotifications 刷新通知未读数, 失败时保持原值
func (a *UnreadAggregator) RefreshNotifications(ctx context.Context) error {
	return a.refreshOne(ctx, "notifications", a.notifications, func(c model.UnreadCounts, n int) model.UnreadCounts {
		c.Notifications = n
		return c
	})
}

func (a *UnreadAggregator) refreshOne(ctx context.Context, name string, fetch CountFunc, set func(model.UnreadCounts, int) model.UnreadCounts) error {
	if !a.session.IsLoggedIn() {
		return nil
	}
	n, err := fetch(ctx)
	if err != nil {
		a.metrics.RecordUnreadPollError(name)
		a.log.Warn("unread count refresh failed", zap.String("counter", name), zap.Error(err))
		return err
	}
	a.counts.Update(func(c model.UnreadCounts) model.UnreadCounts {
		return set(c, n)
	})
	return nil
}

// Refresh 并行刷新两个计数, 未登录时清零
// 返回的错误包含所有失败的计数
func (a *UnreadAggregator) Refresh(ctx context.Context) error {
	if !a.session.IsLoggedIn() {
		a.counts.Set(model.UnreadCounts{})
		return nil
	}

	var (
		g                 errgroup.Group
		chatErr, notifErr error
	)
	g.Go(func() error {
		chatErr = a.RefreshChat(ctx)
		return nil
	})
	g.Go(func() error {
		notifErr = a.RefreshNotifications(ctx)
		return nil
	})
	_ = g.Wait()
	return errors.Join(chatErr, notifErr)
}

// AdjustNotifications 本地增减通知未读数, 不小于 0
func (a *UnreadAggregator) AdjustNotifications(delta int) {
	a.counts.Update(func(c model.UnreadCounts) model.UnreadCounts {
		c.Notifications += delta
		if c.Notifications < 0 {
			c.Notifications = 0
		}
		return c
	})
}

// SetAppState 更新前后台状态, 切回前台时触发刷新
func (a *UnreadAggregator) SetAppState(st AppState) {
	var foregrounded bool
	a.appState.Update(func(prev AppState) AppState {
		foregrounded = prev != Foreground && st == Foreground
		return st
	})
	if foregrounded {
		a.trigger()
	}
}

// AppState 当前前后台状态
func (a *UnreadAggregator) AppState() AppState {
	return a.appState.Get()
}

func (a *UnreadAggregator) trigger() {
	select {
	case a.kick <- struct{}{}:
	default:
	}
}

// Start 立即刷新一次并开始轮询, 重复调用无效
func (a *UnreadAggregator) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	a.running = true

	loggedIn := a.session.IsLoggedIn()
	var lastMu sync.Mutex
	a.subs = append(a.subs, a.session.Subscribe(func(s sessionModel.Session) {
		lastMu.Lock()
		changed := s.LoggedIn != loggedIn
		loggedIn = s.LoggedIn
		lastMu.Unlock()
		if changed {
			a.trigger()
		}
	}))

	go a.loop(ctx, a.done)
	a.log.Info("unread aggregator started", zap.Duration("interval", a.interval))
}

func (a *UnreadAggregator) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	_ = a.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = a.Refresh(ctx)
		case <-a.kick:
			_ = a.Refresh(ctx)
		}
	}
}

// Stop 取消订阅并等待轮询协程退出, 可重复调用
func (a *UnreadAggregator) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	subs := a.subs
	a.subs = nil
	cancel, done := a.cancel, a.done
	a.running = false
	a.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	cancel()
	<-done
	a.log.Info("unread aggregator stopped")
}
