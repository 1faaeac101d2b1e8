package push

import (
	"context"
	"sync"

	"forum_client/internal/domain/push/repository"
	"forum_client/internal/domain/push/service"
	sessionModel "forum_client/internal/domain/session/model"
	"forum_client/internal/pkg/registry"
	"forum_client/internal/pkg/worker"
)

// PushModule 推送 token 注册: 登录后注册, 登出前注销
type PushModule struct{}

func init() {
	registry.Register(&PushModule{})
}

func (m *PushModule) Name() string {
	return "push"
}

func (m *PushModule) Priority() int {
	return 30
}

func (m *PushModule) Init(ctx *registry.ModuleContext) error {
	log := ctx.Logger.Named("push")

	var tokens service.TokenSource = service.InstallationTokenSource{Cache: ctx.Cache}
	if ctx.Config.Push.DeviceToken != "" {
		tokens = service.StaticTokenSource(ctx.Config.Push.DeviceToken)
	}

	dRepo := repository.NewDeviceRepository(ctx.API)
	registrar := service.NewRegistrar(dRepo, tokens, ctx.Cache, ctx.Config.Push.Platform, log)
	ctx.Services.Push = registrar

	session := ctx.Services.Session

	var (
		mu       sync.Mutex
		loggedIn = session.IsLoggedIn()
	)
	session.Subscribe(func(s sessionModel.Session) {
		mu.Lock()
		becameLoggedIn := s.LoggedIn && !loggedIn
		loggedIn = s.LoggedIn
		mu.Unlock()
		if !becameLoggedIn {
			return
		}
		submitted := ctx.Workers.AddTask(worker.Task{
			Name: "push-register",
			Run: func(ctx context.Context) error {
				_, err := registrar.Register(ctx)
				return err
			},
		})
		if !submitted {
			log.Warn("push registration not scheduled")
		}
	})

	// 在清除 bearer token 之前执行, 注销请求仍然带认证
	session.OnLogout(registrar.Unregister)
	return nil
}
