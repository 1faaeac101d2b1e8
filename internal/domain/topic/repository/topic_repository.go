package repository

import (
	"context"
	"net/url"

	"forum_client/internal/domain/topic/model"
	"forum_client/internal/pkg/apiclient"
	"forum_client/pkg/utils"
)

// TopicRepository 帖子相关的远端接口, 服务端数据为权威副本
type TopicRepository interface {
	GetFeed(ctx context.Context, page int) (*model.FeedResponse, error)
	GetTopic(ctx context.Context, id string) (*model.Topic, error)
	CreateTopic(ctx context.Context, input model.CreateTopicInput) (*model.Topic, error)

	VoteTopic(ctx context.Context, topicID string, value int) ([]model.Vote, error)
	VoteComment(ctx context.Context, commentID string, value int) ([]model.Vote, error)

	AddComment(ctx context.Context, topicID string, input model.CommentInput) (*model.Comment, error)

	SaveTopic(ctx context.Context, topicID string) error
	UnsaveTopic(ctx context.Context, topicID string) error
	GetSavedTopics(ctx context.Context) ([]model.Topic, error)

	Report(ctx context.Context, topicID string, input model.ReportInput) error
}

type topicRepository struct {
	api *apiclient.Client
}

func NewTopicRepository(api *apiclient.Client) TopicRepository {
	return &topicRepository{api: api}
}

// --- Topic ---

func (r *topicRepository) GetFeed(ctx context.Context, page int) (*model.FeedResponse, error) {
	var resp model.FeedResponse
	if err := r.api.Get(ctx, utils.PagePath("/v1.0/topics", utils.Pagination{Page: page}), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *topicRepository) GetTopic(ctx context.Context, id string) (*model.Topic, error) {
	var topic model.Topic
	if err := r.api.Get(ctx, "/v1.0/topics/"+url.PathEscape(id), &topic); err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *topicRepository) CreateTopic(ctx context.Context, input model.CreateTopicInput) (*model.Topic, error) {
	var topic model.Topic
	if err := r.api.Post(ctx, "/v1.0/topics", input, &topic); err != nil {
		return nil, err
	}
	return &topic, nil
}

// --- Vote ---

// VoteTopic value 为 0 表示取消投票
func (r *topicRepository) VoteTopic(ctx context.Context, topicID string, value int) ([]model.Vote, error) {
	var resp model.VotesResponse
	path := "/v1.0/topics/" + url.PathEscape(topicID) + "/votes"
	if err := r.api.Post(ctx, path, map[string]int{"vote": value}, &resp); err != nil {
		return nil, err
	}
	return resp.Votes, nil
}

func (r *topicRepository) VoteComment(ctx context.Context, commentID string, value int) ([]model.Vote, error) {
	var resp model.VotesResponse
	path := "/v1.0/comments/" + url.PathEscape(commentID) + "/votes"
	if err := r.api.Post(ctx, path, map[string]int{"vote": value}, &resp); err != nil {
		return nil, err
	}
	return resp.Votes, nil
}

// --- Comment ---

func (r *topicRepository) AddComment(ctx context.Context, topicID string, input model.CommentInput) (*model.Comment, error) {
	var comment model.Comment
	path := "/v1.0/topics/" + url.PathEscape(topicID) + "/comments"
	if err := r.api.Post(ctx, path, input, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// --- Saved ---

func (r *topicRepository) SaveTopic(ctx context.Context, topicID string) error {
	return r.api.Post(ctx, "/v1.0/user/saved-topics", map[string]string{"topic_id": topicID}, nil)
}

func (r *topicRepository) UnsaveTopic(ctx context.Context, topicID string) error {
	return r.api.Delete(ctx, "/v1.0/user/saved-topics/"+url.PathEscape(topicID), nil)
}

func (r *topicRepository) GetSavedTopics(ctx context.Context) ([]model.Topic, error) {
	var resp struct {
		Topics []model.Topic `json:"topics" validate:"required,dive"`
	}
	if err := r.api.Get(ctx, "/v1.0/user/saved-topics", &resp); err != nil {
		return nil, err
	}
	return resp.Topics, nil
}

// --- Report ---

func (r *topicRepository) Report(ctx context.Context, topicID string, input model.ReportInput) error {
	return r.api.Post(ctx, "/v1.0/topics/"+url.PathEscape(topicID)+"/reports", input, nil)
}
