package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	// 导入模块以触发 init 注册
	_ "forum_client/internal/domain/chat"
	_ "forum_client/internal/domain/notification"
	_ "forum_client/internal/domain/preference"
	_ "forum_client/internal/domain/push"
	_ "forum_client/internal/domain/session"
	_ "forum_client/internal/domain/topic"

	"forum_client/internal/pkg/apiclient"
	"forum_client/internal/pkg/config"
	"forum_client/internal/pkg/feedback"
	"forum_client/internal/pkg/optimistic"
	"forum_client/internal/pkg/registry"
	"forum_client/internal/pkg/statusserver"
	"forum_client/internal/pkg/uploader"
	"forum_client/internal/pkg/worker"
	"forum_client/pkg/cache"
	"forum_client/pkg/logger"
	"forum_client/pkg/metrics"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// app 命令运行时依赖
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	services *registry.Services
	status   *statusserver.Server
	out      io.Writer
}

func main() {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("forumctl", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path (default ./configs/config.yaml)")
	fs.Usage = usage(fs)
	_ = fs.Parse(os.Args[1:])

	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}
	name, args := fs.Arg(0), fs.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		fs.Usage()
		os.Exit(2)
	}

	if err := run(*configPath, name, cmd, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "error:", errorText(err))
		os.Exit(1)
	}
}

// errorText 接口错误显示给用户的提示, 其他错误显示原因
func errorText(err error) string {
	if apiclient.KindOf(err) != 0 {
		return apiclient.UserMessage(err)
	}
	return err.Error()
}

func run(configPath, name string, cmd command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.NewMetricsCollector(reg)

	store, closer, err := cache.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	api := apiclient.NewFromConfig(cfg.API,
		apiclient.WithLogger(log.Named("api")),
		apiclient.WithMetrics(m),
	)

	var up uploader.Uploader = uploader.Disabled{}
	if oss, err := uploader.NewAliyunOSSUploader(cfg.OSS); err == nil {
		up = oss
	} else if !errors.Is(err, uploader.ErrNotConfigured) {
		log.Warn("oss uploader unavailable", zap.Error(err))
	}

	workers := worker.NewWorkerPool(4, 64, log.Named("worker"))
	workers.Start()
	defer workers.Stop()

	a := &app{cfg: cfg, log: log, out: os.Stdout}
	mctx := &registry.ModuleContext{
		Config:   cfg,
		API:      api,
		Cache:    store,
		Logger:   log,
		Reporter: feedback.NewConsoleReporter(os.Stdout, log),
		Metrics:  m,
		Tracker:  optimistic.NewTracker(m),
		Workers:  workers,
		Uploader: up,
	}
	if cmd.serves && cfg.Status.Enabled {
		a.status = statusserver.New(cfg.Status, reg, log.Named("status"))
		mctx.Router = a.status.Router()
	}

	if err := registry.InitModules(mctx); err != nil {
		return err
	}
	a.services = mctx.Services

	if _, err := a.services.Session.Restore(ctx); err != nil {
		log.Warn("restore session failed", zap.Error(err))
	}

	log.Debug("running command", zap.String("command", name))
	cmdCtx, cancel := context.WithTimeout(ctx, cmd.timeout(cfg))
	defer cancel()
	return cmd.run(cmdCtx, a, args)
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		out := fs.Output()
		fmt.Fprintln(out, "usage: forumctl [-config path] <command> [args]")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "commands:")
		names := make([]string, 0, len(commands))
		for n := range commands {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Fprintf(out, "  %-14s %s\n", n, commands[n].usage)
		}
	}
}

// timeout 单次命令的最长执行时间, watch 不限时
func (c command) timeout(cfg *config.Config) time.Duration {
	if c.serves {
		return 100 * 365 * 24 * time.Hour
	}
	return 4 * cfg.API.Timeout
}
