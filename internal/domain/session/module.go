package session

import (
	"forum_client/internal/domain/session/handler"
	"forum_client/internal/domain/session/repository"
	"forum_client/internal/domain/session/service"
	"forum_client/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// SessionModule 会话模块, 其他模块依赖登录态, 必须最先初始化
type SessionModule struct{}

func init() {
	registry.Register(&SessionModule{})
}

func (m *SessionModule) Name() string {
	return "session"
}

func (m *SessionModule) Priority() int {
	return 0
}

func (m *SessionModule) Init(ctx *registry.ModuleContext) error {
	aRepo := repository.NewAuthRepository(ctx.API)
	sService := service.NewSessionService(aRepo, ctx.Cache, ctx.Reporter, ctx.Logger.Named("session"))
	ctx.Services.Session = sService

	// 所有请求携带当前 token
	ctx.API.SetTokenSource(sService.Token)

	if ctx.Router != nil {
		setupRoutes(ctx.Router, handler.NewSessionHandler(sService))
	}
	return nil
}

func setupRoutes(r gin.IRouter, h *handler.SessionHandler) {
	g := r.Group("/v1")
	{
		g.GET("/session", h.GetSession)
	}
}
