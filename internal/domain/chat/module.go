package chat

import (
	"forum_client/internal/domain/chat/repository"
	"forum_client/internal/domain/chat/service"
	"forum_client/internal/pkg/registry"
)

// ChatModule 私信模块
type ChatModule struct{}

func init() {
	registry.Register(&ChatModule{})
}

func (m *ChatModule) Name() string {
	return "chat"
}

func (m *ChatModule) Priority() int {
	return 10
}

func (m *ChatModule) Init(ctx *registry.ModuleContext) error {
	cRepo := repository.NewChatRepository(ctx.API)
	cService := service.NewChatService(cRepo, ctx.Cache, ctx.Tracker, ctx.Workers, ctx.Reporter, ctx.Logger.Named("chat"), ctx.Services.Session.Username)
	cService.SetTTL(ctx.Config.Cache.ConversationTTL)
	cService.SetMetrics(ctx.Metrics)
	ctx.Services.Chat = cService

	// 登出时清空视图和消息缓存, 避免下一个账号读到
	ctx.Services.Session.OnLogout(cService.Reset)
	return nil
}
