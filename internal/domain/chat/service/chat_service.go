package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"forum_client/internal/domain/chat/model"
	"forum_client/internal/domain/chat/repository"
	"forum_client/internal/pkg/apiclient"
	"forum_client/internal/pkg/feedback"
	"forum_client/internal/pkg/optimistic"
	"forum_client/internal/pkg/state"
	"forum_client/internal/pkg/worker"
	"forum_client/pkg/cache"
	"forum_client/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTTL 会话消息缓存的有效期
const DefaultTTL = 24 * time.Hour

const (
	cacheName      = "chat_messages"
	kindMessage    = "message_send"
	msgSendFailed  = "Không thể gửi tin nhắn, vui lòng thử lại."
	alertStartChat = "Không thể bắt đầu cuộc trò chuyện"
)

// MessagesKey 消息缓存键
func MessagesKey(conversationID string) string {
	return "chat:messages:" + conversationID
}

// CachedAtKey 消息缓存的写入时间 (unix 毫秒)
func CachedAtKey(conversationID string) string {
	return MessagesKey(conversationID) + ":cached_at"
}

// IndexKey 已缓存的会话 id 列表, 登出时据此清除
const IndexKey = "chat:messages:index"

// ChatService 私信会话与消息
//
// 消息第一页缓存在本地, 未过期时立即返回缓存并在后台刷新;
// 刷新结果与缓存内容不同才替换视图, 整页作为一个整体替换.
type ChatService struct {
	repo     repository.ChatRepository
	cache    cache.Store
	tracker  *optimistic.Tracker
	workers  *worker.WorkerPool
	reporter feedback.Reporter
	metrics  *metrics.MetricsCollector
	log      *zap.Logger
	username func() string
	ttl      time.Duration
	now      func() time.Time

	conversations *state.Store[[]model.Conversation]

	mu      sync.Mutex
	threads map[string]*state.Store[[]model.Message]
	// hydrated 视图已从缓存或服务端加载过整页
	hydrated map[string]bool

	indexMu sync.Mutex
}

// NewChatService workers 为 nil 时后台刷新同步执行
func NewChatService(
	repo repository.ChatRepository,
	store cache.Store,
	tracker *optimistic.Tracker,
	workers *worker.WorkerPool,
	reporter feedback.Reporter,
	log *zap.Logger,
	username func() string,
) *ChatService {
	if log == nil {
		log = zap.NewNop()
	}
	if reporter == nil {
		reporter = feedback.Nop{}
	}
	return &ChatService{
		repo:          repo,
		cache:         store,
		tracker:       tracker,
		workers:       workers,
		reporter:      reporter,
		log:           log,
		username:      username,
		ttl:           DefaultTTL,
		now:           time.Now,
		conversations: state.New[[]model.Conversation](nil),
		threads:       make(map[string]*state.Store[[]model.Message]),
		hydrated:      make(map[string]bool),
	}
}

// SetTTL 覆盖缓存有效期, 非正数忽略
func (s *ChatService) SetTTL(ttl time.Duration) {
	if ttl > 0 {
		s.ttl = ttl
	}
}

// SetClock 替换时间来源
func (s *ChatService) SetClock(now func() time.Time) {
	s.now = now
}

// SetMetrics 记录缓存命中率
func (s *ChatService) SetMetrics(m *metrics.MetricsCollector) {
	s.metrics = m
}

func (s *ChatService) thread(id string) *state.Store[[]model.Message] {
	s.mu.Lock()
	defer s.mu.Unlock()
	th, ok := s.threads[id]
	if !ok {
		th = state.New[[]model.Message](nil)
		s.threads[id] = th
	}
	return th
}

func (s *ChatService) markHydrated(id string) {
	s.mu.Lock()
	s.hydrated[id] = true
	s.mu.Unlock()
}

func (s *ChatService) isHydrated(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrated[id]
}

// --- 会话 ---

// Conversations 拉取会话列表
func (s *ChatService) Conversations(ctx context.Context) ([]model.Conversation, error) {
	if s.username() == "" {
		return nil, apiclient.Guard(apiclient.ErrNotLoggedIn, "Vui lòng đăng nhập.")
	}
	convs, err := s.repo.GetConversations(ctx)
	if err != nil {
		return s.conversations.Get(), err
	}
	s.conversations.Set(convs)
	return convs, nil
}

// StartConversation 与 username 开始会话, 已存在时服务端返回原会话
func (s *ChatService) StartConversation(ctx context.Context, username string) (*model.Conversation, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		err := apiclient.Guard(apiclient.ErrEmptyField, "Vui lòng nhập tên người dùng.")
		s.reporter.Alert(alertStartChat, apiclient.UserMessage(err))
		return nil, err
	}
	conv, err := s.repo.StartConversation(ctx, username)
	if err != nil {
		s.reporter.Alert(alertStartChat, apiclient.UserMessage(err))
		return nil, err
	}
	s.conversations.Update(func(list []model.Conversation) []model.Conversation {
		next := make([]model.Conversation, 0, len(list)+1)
		next = append(next, *conv)
		for _, c := range list {
			if c.ID != conv.ID {
				next = append(next, c)
			}
		}
		return next
	})
	return conv, nil
}

// SubscribeConversations 订阅会话列表
func (s *ChatService) SubscribeConversations(fn func([]model.Conversation)) *state.Subscription {
	return s.conversations.Subscribe(fn)
}

// --- 消息 ---

// Messages 读取会话第一页消息
//   - 缓存未过期: 立即返回缓存, 后台刷新
//   - 缓存缺失、损坏或过期: 同步拉取并写入缓存
func (s *ChatService) Messages(ctx context.Context, conversationID string) ([]model.Message, error) {
	raw, msgs, fresh := s.readCache(ctx, conversationID)
	s.metrics.RecordCacheLookup(cacheName, fresh)

	if fresh {
		s.thread(conversationID).Set(msgs)
		s.markHydrated(conversationID)
		s.scheduleRefresh(conversationID, raw)
		return msgs, nil
	}

	msgs, err := s.repo.GetMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if _, err := s.writeCache(ctx, conversationID, msgs); err != nil {
		s.log.Warn("write message cache failed", zap.String("conversation_id", conversationID), zap.Error(err))
	}
	s.thread(conversationID).Set(msgs)
	s.markHydrated(conversationID)
	return msgs, nil
}

// readCache 返回缓存原文、解析结果和是否新鲜
func (s *ChatService) readCache(ctx context.Context, id string) (string, []model.Message, bool) {
	var cachedAt int64
	if err := cache.GetJSON(ctx, s.cache, CachedAtKey(id), &cachedAt); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("cached_at unreadable", zap.String("conversation_id", id), zap.Error(err))
		}
		return "", nil, false
	}
	if !s.isFresh(cachedAt) {
		return "", nil, false
	}

	raw, err := s.cache.Get(ctx, MessagesKey(id))
	if err != nil {
		return "", nil, false
	}
	var msgs []model.Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		s.log.Warn("cached messages corrupt", zap.String("conversation_id", id), zap.Error(err))
		return "", nil, false
	}
	return raw, msgs, true
}

// isFresh 写入时间距今小于 TTL
func (s *ChatService) isFresh(cachedAtMillis int64) bool {
	age := s.now().Sub(time.UnixMilli(cachedAtMillis))
	return age < s.ttl
}

// writeCache 写入消息和时间戳, 返回写入的 JSON
func (s *ChatService) writeCache(ctx context.Context, id string, msgs []model.Message) (string, error) {
	raw, err := encodeMessages(msgs)
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, MessagesKey(id), raw); err != nil {
		return "", err
	}
	if err := s.touch(ctx, id); err != nil {
		return "", err
	}
	if err := s.remember(ctx, id); err != nil {
		s.log.Warn("update message cache index failed", zap.String("conversation_id", id), zap.Error(err))
	}
	return raw, nil
}

// remember 把 id 加入缓存索引
func (s *ChatService) remember(ctx context.Context, id string) error {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	var ids []string
	if err := cache.GetJSON(ctx, s.cache, IndexKey, &ids); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn("message cache index unreadable, rebuilding", zap.Error(err))
		ids = nil
	}
	if slices.Contains(ids, id) {
		return nil
	}
	return cache.SetJSON(ctx, s.cache, IndexKey, append(ids, id))
}

func (s *ChatService) touch(ctx context.Context, id string) error {
	return cache.SetJSON(ctx, s.cache, CachedAtKey(id), s.now().UnixMilli())
}

func encodeMessages(msgs []model.Message) (string, error) {
	if msgs == nil {
		msgs = []model.Message{}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return "", fmt.Errorf("encode messages: %w", err)
	}
	return string(data), nil
}

func (s *ChatService) scheduleRefresh(id, cached string) {
	task := worker.Task{
		Name: "chat-refresh:" + id,
		Run: func(ctx context.Context) error {
			_, err := s.Refresh(ctx, id, cached)
			return err
		},
	}
	if s.workers == nil {
		if err := task.Run(context.Background()); err != nil {
			s.log.Warn("background refresh failed", zap.String("conversation_id", id), zap.Error(err))
		}
		return
	}
	if !s.workers.AddTask(task) {
		s.log.Debug("background refresh skipped", zap.String("conversation_id", id))
	}
}

// Refresh 拉取第一页并与 cached 比较, 不同才替换视图和缓存; 成功时总是更新时间戳
// 返回是否发生了替换
func (s *ChatService) Refresh(ctx context.Context, id, cached string) (bool, error) {
	msgs, err := s.repo.GetMessages(ctx, id)
	if err != nil {
		return false, err
	}
	raw, err := encodeMessages(msgs)
	if err != nil {
		return false, err
	}

	changed := raw != cached
	if changed {
		if err := s.cache.Set(ctx, MessagesKey(id), raw); err != nil {
			return false, err
		}
		s.thread(id).Set(msgs)
	}
	if err := s.touch(ctx, id); err != nil {
		return changed, err
	}
	return changed, nil
}

// Send 立即追加一条待确认消息, 成功后替换为服务端消息并重写缓存, 失败时移除
func (s *ChatService) Send(ctx context.Context, conversationID, content string) (*model.Message, error) {
	username := s.username()
	if username == "" {
		return nil, apiclient.Guard(apiclient.ErrNotLoggedIn, "Vui lòng đăng nhập.")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apiclient.Guard(apiclient.ErrEmptyField, "Tin nhắn không được để trống.")
	}

	th := s.thread(conversationID)
	pending := model.Message{
		ID:             "pending-" + uuid.NewString(),
		ConversationID: conversationID,
		Sender:         username,
		Content:        content,
		CreatedAt:      s.now(),
		Pending:        true,
	}

	var sent *model.Message
	outcome, err := s.tracker.Run(ctx, optimistic.Mutation{
		Key:  "message:" + pending.ID,
		Kind: kindMessage,
		Apply: func() func() {
			th.Update(func(msgs []model.Message) []model.Message {
				return append(append([]model.Message(nil), msgs...), pending)
			})
			return func() {
				th.Update(func(msgs []model.Message) []model.Message {
					return replaceMessage(msgs, pending.ID, nil)
				})
			}
		},
		Send: func(ctx context.Context) error {
			m, err := s.repo.SendMessage(ctx, conversationID, content)
			sent = m
			return err
		},
		Confirm: func() {
			confirmed := *sent
			confirmed.Pending = false
			th.Update(func(msgs []model.Message) []model.Message {
				return replaceMessage(msgs, pending.ID, &confirmed)
			})
		},
	})
	if err != nil {
		if outcome == optimistic.RolledBack {
			s.reporter.Toast(msgSendFailed)
		}
		s.log.Warn("send message failed",
			zap.String("conversation_id", conversationID),
			zap.Stringer("outcome", outcome),
			zap.Error(err))
		return nil, err
	}

	if err := s.persistSent(ctx, conversationID, th, *sent); err != nil {
		s.log.Warn("write message cache failed", zap.String("conversation_id", conversationID), zap.Error(err))
	}
	return sent, nil
}

// persistSent 视图已加载整页时重写缓存; 否则只把消息追加到已有缓存, 不更新时间戳
func (s *ChatService) persistSent(ctx context.Context, id string, th *state.Store[[]model.Message], sent model.Message) error {
	if s.isHydrated(id) {
		_, err := s.writeCache(ctx, id, confirmedOnly(th.Get()))
		return err
	}

	raw, err := s.cache.Get(ctx, MessagesKey(id))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	if err != nil {
		return err
	}
	var msgs []model.Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		// 损坏的缓存下次读取时按过期处理
		return nil
	}
	if slices.ContainsFunc(msgs, func(m model.Message) bool { return m.ID == sent.ID }) {
		return nil
	}
	sent.Pending = false
	raw, err = encodeMessages(append(msgs, sent))
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, MessagesKey(id), raw)
}

// replaceMessage 用 m 替换 id, m 为 nil 时删除
func replaceMessage(msgs []model.Message, id string, m *model.Message) []model.Message {
	next := make([]model.Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.ID != id {
			next = append(next, msg)
			continue
		}
		if m != nil {
			next = append(next, *m)
		}
	}
	return next
}

func confirmedOnly(msgs []model.Message) []model.Message {
	out := make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		if !m.Pending {
			out = append(out, m)
		}
	}
	return out
}

// Thread 当前视图中的消息
func (s *ChatService) Thread(conversationID string) []model.Message {
	return s.thread(conversationID).Get()
}

// Watch 订阅会话消息变化
func (s *ChatService) Watch(conversationID string, fn func([]model.Message)) *state.Subscription {
	return s.thread(conversationID).Subscribe(fn)
}

// Reset 清空会话列表、消息视图和本地消息缓存
func (s *ChatService) Reset(ctx context.Context) {
	s.conversations.Set(nil)
	s.mu.Lock()
	ids := make([]string, 0, len(s.threads))
	threads := make([]*state.Store[[]model.Message], 0, len(s.threads))
	for id, th := range s.threads {
		ids = append(ids, id)
		threads = append(threads, th)
	}
	s.hydrated = make(map[string]bool)
	s.mu.Unlock()
	for _, th := range threads {
		th.Set(nil)
	}

	if err := s.clearCache(ctx, ids); err != nil {
		s.log.Warn("clear message cache failed", zap.Error(err))
	}
}

// clearCache 删除索引中以及 known 中的会话缓存
func (s *ChatService) clearCache(ctx context.Context, known []string) error {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	var ids []string
	if err := cache.GetJSON(ctx, s.cache, IndexKey, &ids); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn("message cache index unreadable", zap.Error(err))
	}
	for _, id := range known {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}

	keys := make([]string, 0, 2*len(ids)+1)
	for _, id := range ids {
		keys = append(keys, MessagesKey(id), CachedAtKey(id))
	}
	keys = append(keys, IndexKey)
	return s.cache.Delete(ctx, keys...)
}

// UnreadCount 私信未读数
func (s *ChatService) UnreadCount(ctx context.Context) (int, error) {
	return s.repo.UnreadCount(ctx)
}
