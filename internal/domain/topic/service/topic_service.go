package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"forum_client/internal/domain/topic/model"
	"forum_client/internal/domain/topic/repository"
	"forum_client/internal/pkg/apiclient"
	"forum_client/internal/pkg/feedback"
	"forum_client/internal/pkg/optimistic"
	"forum_client/internal/pkg/state"
	"forum_client/internal/pkg/uploader"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidVote   = errors.New("vote must be 1 or -1")
	ErrTopicNotFound = errors.New("topic not loaded")
)

// 指标标签
const (
	kindTopicVote     = "topic_vote"
	kindCommentVote   = "comment_vote"
	kindTopicSave     = "topic_save"
	kindCommentCreate = "comment_create"
)

const (
	msgVoteFailed    = "Không thể bình chọn, vui lòng thử lại."
	msgSaveFailed    = "Không thể lưu bài viết, vui lòng thử lại."
	msgCommentFailed = "Không thể gửi bình luận, vui lòng thử lại."
)

// TopicService 帖子列表与详情的本地状态
// 投票、收藏、评论先修改本地状态再发请求, 失败时回滚并 Toast
type TopicService struct {
	repo     repository.TopicRepository
	tracker  *optimistic.Tracker
	uploader uploader.Uploader
	reporter feedback.Reporter
	log      *zap.Logger
	username func() string

	feed   *state.Store[model.Feed]
	detail *state.Store[model.Topic]
}

// NewTopicService username 返回当前登录用户名, 未登录为空
func NewTopicService(
	repo repository.TopicRepository,
	tracker *optimistic.Tracker,
	up uploader.Uploader,
	reporter feedback.Reporter,
	log *zap.Logger,
	username func() string,
) *TopicService {
	if log == nil {
		log = zap.NewNop()
	}
	if reporter == nil {
		reporter = feedback.Nop{}
	}
	if up == nil {
		up = uploader.Disabled{}
	}
	return &TopicService{
		repo:     repo,
		tracker:  tracker,
		uploader: up,
		reporter: reporter,
		log:      log,
		username: username,
		feed:     state.New(model.Feed{}),
		detail:   state.New(model.Topic{}),
	}
}

// --- 读取 ---

// LoadFeed 加载第 page 页, 第一页替换列表, 后续页按 id 去重追加
func (s *TopicService) LoadFeed(ctx context.Context, page int) (model.Feed, error) {
	if page < 1 {
		page = 1
	}
	resp, err := s.repo.GetFeed(ctx, page)
	if err != nil {
		s.log.Warn("load feed failed", zap.Int("page", page), zap.Error(err))
		return s.feed.Get(), err
	}
	return s.feed.Update(func(f model.Feed) model.Feed {
		return f.Merge(page, resp.Topics, page < resp.TotalPages)
	}), nil
}

// LoadTopic 加载帖子详情 (含评论), 同时刷新列表中的同一帖子
func (s *TopicService) LoadTopic(ctx context.Context, id string) (model.Topic, error) {
	topic, err := s.repo.GetTopic(ctx, id)
	if err != nil {
		return model.Topic{}, err
	}
	s.detail.Set(*topic)
	s.feed.Update(func(f model.Feed) model.Feed {
		return f.Update(id, func(old model.Topic) model.Topic {
			summary := *topic
			summary.Comments = old.Comments
			return summary
		})
	})
	return *topic, nil
}

// SavedTopics 拉取已收藏的帖子
func (s *TopicService) SavedTopics(ctx context.Context) ([]model.Topic, error) {
	if s.username() == "" {
		return nil, apiclient.Guard(apiclient.ErrNotLoggedIn, "Vui lòng đăng nhập.")
	}
	return s.repo.GetSavedTopics(ctx)
}

// Feed 当前列表快照
func (s *TopicService) Feed() model.Feed {
	return s.feed.Get()
}

// Topic 查找本地帖子, 详情优先
func (s *TopicService) Topic(id string) (model.Topic, bool) {
	if t := s.detail.Get(); t.ID == id && id != "" {
		return t, true
	}
	return s.feed.Get().Find(id)
}

// Subscribe 订阅列表变化
func (s *TopicService) Subscribe(fn func(model.Feed)) *state.Subscription {
	return s.feed.Subscribe(fn)
}

// SubscribeTopic 订阅详情变化
func (s *TopicService) SubscribeTopic(fn func(model.Topic)) *state.Subscription {
	return s.detail.Subscribe(fn)
}

// --- 投票 ---

// Vote 对帖子投票, 再次投相同的票即取消
func (s *TopicService) Vote(ctx context.Context, topicID string, value int) (optimistic.Outcome, error) {
	username, err := s.guardVote(value)
	if err != nil {
		return optimistic.Discarded, err
	}
	if _, ok := s.Topic(topicID); !ok {
		return optimistic.Discarded, apiclient.Guard(ErrTopicNotFound, apiclient.FallbackMessage)
	}

	var (
		effective int
		server    []model.Vote
	)
	outcome, err := s.tracker.Run(ctx, optimistic.Mutation{
		Key:  "topic:" + topicID + ":vote",
		Kind: kindTopicVote,
		Apply: func() func() {
			cur, _ := s.Topic(topicID)
			next := model.ApplyVote(cur.Votes, username, value)
			effective = model.UserVote(next, username)
			s.setTopicVotes(topicID, next)
			return func() { s.setTopicVotes(topicID, cur.Votes) }
		},
		Send: func(ctx context.Context) error {
			votes, err := s.repo.VoteTopic(ctx, topicID, effective)
			server = votes
			return err
		},
		Confirm: func() { s.setTopicVotes(topicID, server) },
	})
	s.settled(outcome, err, msgVoteFailed, zap.String("topic_id", topicID))
	return outcome, err
}

// VoteComment 对帖子详情中的评论投票
func (s *TopicService) VoteComment(ctx context.Context, topicID, commentID string, value int) (optimistic.Outcome, error) {
	username, err := s.guardVote(value)
	if err != nil {
		return optimistic.Discarded, err
	}
	if _, ok := s.findComment(topicID, commentID); !ok {
		return optimistic.Discarded, apiclient.Guard(ErrTopicNotFound, apiclient.FallbackMessage)
	}

	var (
		effective int
		server    []model.Vote
	)
	outcome, err := s.tracker.Run(ctx, optimistic.Mutation{
		Key:  "comment:" + commentID + ":vote",
		Kind: kindCommentVote,
		Apply: func() func() {
			cur, _ := s.findComment(topicID, commentID)
			next := model.ApplyVote(cur.Votes, username, value)
			effective = model.UserVote(next, username)
			s.setCommentVotes(topicID, commentID, next)
			return func() { s.setCommentVotes(topicID, commentID, cur.Votes) }
		},
		Send: func(ctx context.Context) error {
			votes, err := s.repo.VoteComment(ctx, commentID, effective)
			server = votes
			return err
		},
		Confirm: func() { s.setCommentVotes(topicID, commentID, server) },
	})
	s.settled(outcome, err, msgVoteFailed, zap.String("comment_id", commentID))
	return outcome, err
}

func (s *TopicService) guardVote(value int) (string, error) {
	username := s.username()
	if username == "" {
		return "", apiclient.Guard(apiclient.ErrNotLoggedIn, "Vui lòng đăng nhập để bình chọn.")
	}
	if value != 1 && value != -1 {
		return "", apiclient.Guard(ErrInvalidVote, apiclient.FallbackMessage)
	}
	return username, nil
}

// --- 收藏 ---

func (s *TopicService) Save(ctx context.Context, topicID string) (optimistic.Outcome, error) {
	return s.setSaved(ctx, topicID, true)
}

func (s *TopicService) Unsave(ctx context.Context, topicID string) (optimistic.Outcome, error) {
	return s.setSaved(ctx, topicID, false)
}

// ToggleSave 根据本地状态切换收藏
func (s *TopicService) ToggleSave(ctx context.Context, topicID string) (optimistic.Outcome, error) {
	t, ok := s.Topic(topicID)
	if !ok {
		return optimistic.Discarded, apiclient.Guard(ErrTopicNotFound, apiclient.FallbackMessage)
	}
	return s.setSaved(ctx, topicID, !t.Saved)
}

func (s *TopicService) setSaved(ctx context.Context, topicID string, saved bool) (optimistic.Outcome, error) {
	if s.username() == "" {
		return optimistic.Discarded, apiclient.Guard(apiclient.ErrNotLoggedIn, "Vui lòng đăng nhập để lưu bài viết.")
	}
	if _, ok := s.Topic(topicID); !ok {
		return optimistic.Discarded, apiclient.Guard(ErrTopicNotFound, apiclient.FallbackMessage)
	}

	outcome, err := s.tracker.Run(ctx, optimistic.Mutation{
		Key:  "topic:" + topicID + ":save",
		Kind: kindTopicSave,
		Apply: func() func() {
			cur, _ := s.Topic(topicID)
			s.updateTopic(topicID, func(t model.Topic) model.Topic { t.Saved = saved; return t })
			return func() {
				s.updateTopic(topicID, func(t model.Topic) model.Topic { t.Saved = cur.Saved; return t })
			}
		},
		Send: func(ctx context.Context) error {
			if saved {
				return s.repo.SaveTopic(ctx, topicID)
			}
			return s.repo.UnsaveTopic(ctx, topicID)
		},
	})
	s.settled(outcome, err, msgSaveFailed, zap.String("topic_id", topicID))
	return outcome, err
}

// --- 评论 ---

// AddComment 立即插入一条待确认评论, 成功后替换为服务端评论, 失败时移除
func (s *TopicService) AddComment(ctx context.Context, topicID, parentID, content string) (*model.Comment, error) {
	username := s.username()
	if username == "" {
		return nil, apiclient.Guard(apiclient.ErrNotLoggedIn, "Vui lòng đăng nhập để bình luận.")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apiclient.Guard(apiclient.ErrEmptyField, "Nội dung bình luận không được để trống.")
	}
	if _, ok := s.Topic(topicID); !ok {
		return nil, apiclient.Guard(ErrTopicNotFound, apiclient.FallbackMessage)
	}

	pending := model.Comment{
		ID:        "pending-" + uuid.NewString(),
		ParentID:  parentID,
		Author:    username,
		Content:   content,
		CreatedAt: time.Now(),
		Pending:   true,
	}

	var created *model.Comment
	outcome, err := s.tracker.Run(ctx, optimistic.Mutation{
		Key:  "comment:" + pending.ID,
		Kind: kindCommentCreate,
		Apply: func() func() {
			s.insertComment(topicID, parentID, pending)
			return func() { s.removeComment(topicID, pending.ID) }
		},
		Send: func(ctx context.Context) error {
			c, err := s.repo.AddComment(ctx, topicID, model.CommentInput{Content: content, ParentID: parentID})
			created = c
			return err
		},
		Confirm: func() {
			confirmed := *created
			confirmed.Pending = false
			s.replaceComment(topicID, pending.ID, confirmed)
		},
	})
	s.settled(outcome, err, msgCommentFailed, zap.String("topic_id", topicID))
	if err != nil {
		return nil, err
	}
	return created, nil
}

// --- 表单 ---

// CreateTopic 先上传图片, 再发帖; 失败时弹窗提示
func (s *TopicService) CreateTopic(ctx context.Context, title, content string, imagePaths []string) (*model.Topic, error) {
	const alertTitle = "Đăng bài thất bại"

	if s.username() == "" {
		err := apiclient.Guard(apiclient.ErrNotLoggedIn, "Vui lòng đăng nhập để đăng bài.")
		s.reporter.Alert(alertTitle, apiclient.UserMessage(err))
		return nil, err
	}
	title, content = strings.TrimSpace(title), strings.TrimSpace(content)
	if title == "" || content == "" {
		err := apiclient.Guard(apiclient.ErrEmptyField, "Vui lòng nhập tiêu đề và nội dung.")
		s.reporter.Alert(alertTitle, apiclient.UserMessage(err))
		return nil, err
	}

	urls, err := s.uploadImages(ctx, imagePaths)
	if err != nil {
		s.log.Error("upload images failed", zap.Error(err))
		s.reporter.Alert(alertTitle, "Không thể tải ảnh lên.")
		return nil, err
	}

	topic, err := s.repo.CreateTopic(ctx, model.CreateTopicInput{Title: title, Content: content, ImageURLs: urls})
	if err != nil {
		s.reporter.Alert(alertTitle, apiclient.UserMessage(err))
		return nil, err
	}

	s.feed.Update(func(f model.Feed) model.Feed {
		topics := make([]model.Topic, 0, len(f.Topics)+1)
		topics = append(topics, *topic)
		for _, t := range f.Topics {
			if t.ID != topic.ID {
				topics = append(topics, t)
			}
		}
		f.Topics = topics
		return f
	})
	return topic, nil
}

// uploadImages 并发上传, 结果顺序与 paths 一致
func (s *TopicService) uploadImages(ctx context.Context, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	urls := make([]string, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(3)
	for i, p := range paths {
		g.Go(func() error {
			u, err := s.uploader.Upload(gctx, p)
			if err != nil {
				return err
			}
			urls[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

// Report 举报帖子
func (s *TopicService) Report(ctx context.Context, topicID, reason string) error {
	const alertTitle = "Báo cáo bài viết"

	reason = strings.TrimSpace(reason)
	if reason == "" {
		err := apiclient.Guard(apiclient.ErrEmptyField, "Vui lòng nhập lý do báo cáo.")
		s.reporter.Alert(alertTitle, apiclient.UserMessage(err))
		return err
	}
	if err := s.repo.Report(ctx, topicID, model.ReportInput{Reason: reason}); err != nil {
		s.reporter.Alert(alertTitle, apiclient.UserMessage(err))
		return err
	}
	return nil
}

// --- 本地状态 ---

func (s *TopicService) settled(outcome optimistic.Outcome, err error, msg string, fields ...zap.Field) {
	if err == nil {
		return
	}
	fields = append(fields, zap.Stringer("outcome", outcome), zap.Error(err))
	if outcome == optimistic.RolledBack {
		s.log.Warn("optimistic update rolled back", fields...)
		s.reporter.Toast(msg)
		return
	}
	s.log.Debug("stale response discarded", fields...)
}

// updateTopic 同时更新列表和详情中的同一帖子
func (s *TopicService) updateTopic(id string, fn func(model.Topic) model.Topic) {
	s.feed.Update(func(f model.Feed) model.Feed {
		return f.Update(id, fn)
	})
	s.detail.Update(func(t model.Topic) model.Topic {
		if t.ID != id {
			return t
		}
		return fn(t)
	})
}

func (s *TopicService) setTopicVotes(id string, votes []model.Vote) {
	s.updateTopic(id, func(t model.Topic) model.Topic {
		t.Votes = votes
		return t
	})
}

// 评论只保存在详情中
func (s *TopicService) updateComments(topicID string, fn func(model.Topic) model.Topic) {
	s.detail.Update(func(t model.Topic) model.Topic {
		if t.ID != topicID {
			return t
		}
		return fn(t)
	})
}

func (s *TopicService) findComment(topicID, commentID string) (model.Comment, bool) {
	t := s.detail.Get()
	if t.ID != topicID {
		return model.Comment{}, false
	}
	return model.FindComment(t.Comments, commentID)
}

func (s *TopicService) setCommentVotes(topicID, commentID string, votes []model.Vote) {
	s.updateComments(topicID, func(t model.Topic) model.Topic {
		t.Comments, _ = model.UpdateComment(t.Comments, commentID, func(c model.Comment) model.Comment {
			c.Votes = votes
			return c
		})
		return t
	})
}

// insertComment 与 removeComment 对称, 评论数在列表和详情中同步增减
func (s *TopicService) insertComment(topicID, parentID string, c model.Comment) {
	s.updateTopic(topicID, func(t model.Topic) model.Topic {
		t.CommentCount++
		return t
	})
	s.updateComments(topicID, func(t model.Topic) model.Topic {
		t.Comments = model.InsertComment(t.Comments, parentID, c)
		return t
	})
}

func (s *TopicService) removeComment(topicID, commentID string) {
	s.updateTopic(topicID, func(t model.Topic) model.Topic {
		if t.CommentCount > 0 {
			t.CommentCount--
		}
		return t
	})
	s.updateComments(topicID, func(t model.Topic) model.Topic {
		t.Comments, _ = model.RemoveComment(t.Comments, commentID)
		return t
	})
}

func (s *TopicService) replaceComment(topicID, pendingID string, c model.Comment) {
	s.updateComments(topicID, func(t model.Topic) model.Topic {
		t.Comments, _ = model.ReplaceComment(t.Comments, pendingID, c)
		return t
	})
}
