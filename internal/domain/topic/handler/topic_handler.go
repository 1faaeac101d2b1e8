package handler

import (
	"net/http"

	"forum_client/internal/domain/topic/model"
	"forum_client/internal/domain/topic/service"
	"forum_client/pkg/response"

	"github.com/gin-gonic/gin"
)

type TopicHandler struct {
	service  *service.TopicService
	username func() string
}

func NewTopicHandler(service *service.TopicService, username func() string) *TopicHandler {
	return &TopicHandler{service: service, username: username}
}

// TopicView 本地帖子摘要
type TopicView struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	Score        int    `json:"score"`
	MyVote       int    `json:"my_vote"`
	Saved        bool   `json:"saved"`
	CommentCount int    `json:"comment_count"`
}

type FeedView struct {
	Topics  []TopicView `json:"topics"`
	Page    int         `json:"page"`
	HasMore bool        `json:"has_more"`
}

// GetFeed 返回本地帖子列表快照, 包含尚未确认的乐观修改
// @Summary 帖子列表快照
// @Tags Topic
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=FeedView}
// @Router /v1/feed [get]
func (h *TopicHandler) GetFeed(c *gin.Context) {
	response.Success(c, NewFeedView(h.service.Feed(), h.username()))
}

// GetTopic 返回已加载的单个帖子
// @Summary 帖子详情快照
// @Tags Topic
// @Produce json
// @Security BearerAuth
// @Param id path string true "Topic ID"
// @Success 200 {object} response.Response{data=TopicView}
// @Failure 404 {object} response.Response
// @Router /v1/topics/{id} [get]
func (h *TopicHandler) GetTopic(c *gin.Context) {
	t, ok := h.service.Topic(c.Param("id"))
	if !ok {
		response.Error(c, http.StatusNotFound, response.ErrTopicNotFound, "Topic not loaded")
		return
	}
	response.Success(c, newTopicView(t, h.username()))
}

func NewFeedView(feed model.Feed, username string) FeedView {
	view := FeedView{
		Topics:  make([]TopicView, 0, len(feed.Topics)),
		Page:    feed.Page,
		HasMore: feed.HasMore,
	}
	for _, t := range feed.Topics {
		view.Topics = append(view.Topics, newTopicView(t, username))
	}
	return view
}

func newTopicView(t model.Topic, username string) TopicView {
	return TopicView{
		ID:           t.ID,
		Title:        t.Title,
		Author:       t.Author,
		Score:        t.Score(),
		MyVote:       model.UserVote(t.Votes, username),
		Saved:        t.Saved,
		CommentCount: t.CommentCount,
	}
}
