package topic

import (
	"forum_client/internal/domain/topic/handler"
	"forum_client/internal/domain/topic/repository"
	"forum_client/internal/domain/topic/service"
	"forum_client/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// TopicModule 帖子模块
type TopicModule struct{}

func init() {
	registry.Register(&TopicModule{})
}

func (m *TopicModule) Name() string {
	return "topic"
}

func (m *TopicModule) Priority() int {
	return 10
}

func (m *TopicModule) Init(ctx *registry.ModuleContext) error {
	username := ctx.Services.Session.Username

	// 1. 依赖注入
	tRepo := repository.NewTopicRepository(ctx.API)
	tService := service.NewTopicService(tRepo, ctx.Tracker, ctx.Uploader, ctx.Reporter, ctx.Logger.Named("topic"), username)
	ctx.Services.Topic = tService

	// 2. 路由注册
	if ctx.Router != nil {
		setupRoutes(ctx.Router, handler.NewTopicHandler(tService, username))
	}
	return nil
}

func setupRoutes(r gin.IRouter, h *handler.TopicHandler) {
	g := r.Group("/v1")
	{
		g.GET("/feed", h.GetFeed)
		g.GET("/topics/:id", h.GetTopic)
	}
}
