package service

import (
	"context"

	"forum_client/internal/domain/notification/model"
	"forum_client/internal/domain/notification/repository"
	"forum_client/internal/pkg/apiclient"
	"forum_client/internal/pkg/feedback"
	"forum_client/internal/pkg/optimistic"
	"forum_client/internal/pkg/state"

	"go.uber.org/zap"
)

const msgMarkReadFailed = "Không thể đánh dấu đã đọc."

// NotificationService 通知列表, 标记已读时同步修改未读数
type NotificationService struct {
	repo     repository.NotificationRepository
	tracker  *optimistic.Tracker
	unread   *UnreadAggregator
	reporter feedback.Reporter
	log      *zap.Logger

	list *state.Store[[]model.Notification]
}

func NewNotificationService(repo repository.NotificationRepository, tracker *optimistic.Tracker, unread *UnreadAggregator, reporter feedback.Reporter, log *zap.Logger) *NotificationService {
	if log == nil {
		log = zap.NewNop()
	}
	if reporter == nil {
		reporter = feedback.Nop{}
	}
	return &NotificationService{
		repo:     repo,
		tracker:  tracker,
		unread:   unread,
		reporter: reporter,
		log:      log,
		list:     state.New[[]model.Notification](nil),
	}
}

// List 拉取第 page 页, 第一页替换列表, 后续页追加; 返回是否还有下一页
func (s *NotificationService) List(ctx context.Context, page int) ([]model.Notification, bool, error) {
	if page < 1 {
		page = 1
	}
	resp, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, false, err
	}
	next := s.list.Update(func(cur []model.Notification) []model.Notification {
		if page == 1 {
			return append([]model.Notification(nil), resp.Notifications...)
		}
		seen := make(map[string]bool, len(cur))
		merged := append([]model.Notification(nil), cur...)
		for _, n := range cur {
			seen[n.ID] = true
		}
		for _, n := range resp.Notifications {
			if !seen[n.ID] {
				merged = append(merged, n)
			}
		}
		return merged
	})
	return next, page < resp.TotalPages, nil
}

// Notifications 当前列表快照
func (s *NotificationService) Notifications() []model.Notification {
	return s.list.Get()
}

// Subscribe 订阅列表变化
func (s *NotificationService) Subscribe(fn func([]model.Notification)) *state.Subscription {
	return s.list.Subscribe(fn)
}

// MarkRead 乐观标记已读, 通知未读数立即减一, 失败时恢复
func (s *NotificationService) MarkRead(ctx context.Context, id string) (optimistic.Outcome, error) {
	if id == "" {
		return optimistic.Discarded, apiclient.Guard(apiclient.ErrEmptyField, apiclient.FallbackMessage)
	}

	loaded := false
	outcome, err := s.tracker.Run(ctx, optimistic.Mutation{
		Key:  "notification:" + id + ":read",
		Kind: "notification_read",
		Apply: func() func() {
			wasUnread, found := s.setRead(id, true)
			loaded = found
			if wasUnread {
				s.unread.AdjustNotifications(-1)
			}
			return func() {
				if wasUnread {
					s.setRead(id, false)
					s.unread.AdjustNotifications(1)
				}
			}
		},
		Send: func(ctx context.Context) error {
			return s.repo.MarkRead(ctx, id)
		},
	})
	if outcome == optimistic.Confirmed && !loaded {
		// 本地列表没有这条通知, 以服务端未读数为准, 失败时保持原值
		_ = s.unread.RefreshNotifications(ctx)
	}
	if err != nil && outcome == optimistic.RolledBack {
		s.log.Warn("mark read rolled back", zap.String("notification_id", id), zap.Error(err))
		s.reporter.Toast(msgMarkReadFailed)
	}
	return outcome, err
}

// setRead 返回修改前是否未读以及通知是否在本地列表中
func (s *NotificationService) setRead(id string, read bool) (wasUnread, found bool) {
	s.list.Update(func(cur []model.Notification) []model.Notification {
		next := append([]model.Notification(nil), cur...)
		for i := range next {
			if next[i].ID == id {
				found = true
				wasUnread = !next[i].IsRead
				next[i].IsRead = read
			}
		}
		return next
	})
	return wasUnread, found
}
