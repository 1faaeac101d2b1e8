// Package statusserver 本地只读状态服务, 暴露健康检查、指标和各模块注册的快照接口
//
// @title forumctl status API
// @version 1.0
// @description 本地只读状态接口, 返回客户端缓存的快照
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package statusserver

//go:generate swag init --dir ./,../../domain --generalInfo server.go --output ../../../docs

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	_ "forum_client/docs"
	"forum_client/internal/pkg/config"
	"forum_client/internal/pkg/middleware"
	"forum_client/pkg/response"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Server struct {
	engine *gin.Engine
	api    *gin.RouterGroup
	srv    *http.Server
	log    *zap.Logger
}

// New 创建状态服务, gatherer 为 nil 时使用默认注册表
func New(cfg config.StatusConfig, gatherer prometheus.Gatherer, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("handler panic", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Internal server error")
	}))
	r.Use(cors.Default())
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.LoggerMiddleware(log))
	if cfg.RateLimit > 0 {
		r.Use(middleware.RateLimitMiddleware(middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimit), cfg.Burst)))
	}

	r.GET("/health", health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return &Server{
		engine: r,
		api:    r.Group("", middleware.AuthMiddleware(cfg.Token)),
		srv:    &http.Server{Addr: cfg.Addr, Handler: r, ReadHeaderTimeout: 5 * time.Second},
		log:    log,
	}
}

// health 健康检查
// @Summary 健康检查
// @Tags Status
// @Produce json
// @Success 200 {object} response.Response
// @Router /health [get]
func health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

// Router 模块注册路由的入口, 受访问令牌保护
func (s *Server) Router() gin.IRouter {
	return s.api
}

// Handler 用于测试
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start 监听端口并在后台提供服务, 端口占用时立即返回错误
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("status server stopped", zap.Error(err))
		}
	}()
	s.log.Info("status server listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
