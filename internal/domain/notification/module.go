package notification

import (
	"forum_client/internal/domain/notification/handler"
	"forum_client/internal/domain/notification/repository"
	"forum_client/internal/domain/notification/service"
	"forum_client/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// NotificationModule 通知与未读数模块, 依赖 chat 模块提供私信未读数
type NotificationModule struct{}

func init() {
	registry.Register(&NotificationModule{})
}

func (m *NotificationModule) Name() string {
	return "notification"
}

func (m *NotificationModule) Priority() int {
	return 20
}

func (m *NotificationModule) Init(ctx *registry.ModuleContext) error {
	log := ctx.Logger.Named("notification")

	// 1. 依赖注入
	nRepo := repository.NewNotificationRepository(ctx.API)
	unread := service.NewUnreadAggregator(
		ctx.Services.Chat.UnreadCount,
		nRepo.UnreadCount,
		ctx.Services.Session,
		ctx.Config.Unread.PollInterval,
		log,
	)
	unread.SetMetrics(ctx.Metrics)
	nService := service.NewNotificationService(nRepo, ctx.Tracker, unread, ctx.Reporter, log)

	ctx.Services.Unread = unread
	ctx.Services.Notification = nService

	// 2. 路由注册
	if ctx.Router != nil {
		setupRoutes(ctx.Router, handler.NewUnreadHandler(unread))
	}
	return nil
}

func setupRoutes(r gin.IRouter, h *handler.UnreadHandler) {
	g := r.Group("/v1")
	{
		g.GET("/unread", h.GetUnread)
	}
}
