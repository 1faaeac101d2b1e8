package registry

import (
	"fmt"
	"sort"
	"sync"

	chatService "forum_client/internal/domain/chat/service"
	notificationService "forum_client/internal/domain/notification/service"
	preferenceService "forum_client/internal/domain/preference/service"
	pushService "forum_client/internal/domain/push/service"
	sessionService "forum_client/internal/domain/session/service"
	topicService "forum_client/internal/domain/topic/service"
	"forum_client/internal/pkg/apiclient"
	"forum_client/internal/pkg/config"
	"forum_client/internal/pkg/feedback"
	"forum_client/internal/pkg/optimistic"
	"forum_client/internal/pkg/uploader"
	"forum_client/internal/pkg/worker"
	"forum_client/pkg/cache"
	"forum_client/pkg/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Services 各模块初始化后填入的服务
type Services struct {
	Session      *sessionService.SessionService
	Preference   *preferenceService.PreferenceService
	Topic        *topicService.TopicService
	Chat         *chatService.ChatService
	Notification *notificationService.NotificationService
	Unread       *notificationService.UnreadAggregator
	Push         *pushService.Registrar
}

// ModuleContext 模块初始化所需的上下文
type ModuleContext struct {
	Config   *config.Config
	API      *apiclient.Client
	Cache    cache.Store
	Logger   *zap.Logger
	Reporter feedback.Reporter
	Metrics  *metrics.MetricsCollector
	Tracker  *optimistic.Tracker
	Workers  *worker.WorkerPool
	Uploader uploader.Uploader
	// Router 本地状态服务的路由, 未启用时为 nil
	Router gin.IRouter

	Services *Services
}

// Module 模块接口
type Module interface {
	// Name 返回模块名称
	Name() string

	// Init 初始化模块（依赖注入、路由注册等）
	Init(ctx *ModuleContext) error

	// Priority 返回初始化优先级（数字越小越先初始化）
	// session 必须先于依赖登录态的模块初始化
	Priority() int
}

var (
	mu             sync.RWMutex
	moduleRegistry = make(map[string]Module)
)

// Register 注册模块
func Register(module Module) {
	mu.Lock()
	defer mu.Unlock()
	moduleRegistry[module.Name()] = module
}

// GetModules 获取所有已注册的模块
func GetModules() map[string]Module {
	mu.RLock()
	defer mu.RUnlock()
	out := make(map[string]Module, len(moduleRegistry))
	for k, v := range moduleRegistry {
		out[k] = v
	}
	return out
}

// InitModules 按优先级初始化所有模块
func InitModules(ctx *ModuleContext) error {
	if ctx.Services == nil {
		ctx.Services = &Services{}
	}

	modules := make([]Module, 0)
	for _, m := range GetModules() {
		modules = append(modules, m)
	}
	sort.SliceStable(modules, func(i, j int) bool {
		if modules[i].Priority() != modules[j].Priority() {
			return modules[i].Priority() < modules[j].Priority()
		}
		return modules[i].Name() < modules[j].Name()
	})

	for _, module := range modules {
		if err := module.Init(ctx); err != nil {
			return fmt.Errorf("init module %s: %w", module.Name(), err)
		}
	}
	return nil
}
