package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"marketplace/api"
	"marketplace/config"
	"marketplace/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// App HTTP 服务进程
type App struct {
	config    *config.Config
	container *Container
	router    *api.Router
	server    *http.Server
}

// NewApp 创建应用程序
func NewApp(cfg *config.Config) (*App, error) {
	container, err := Build(cfg)
	if err != nil {
		return nil, err
	}
	router := container.NewRouter()

	return &App{
		config:    cfg,
		container: container,
		router:    router,
		server: &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      router.GetEngine(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}, nil
}

// Run 运行直到 ctx 取消，然后优雅关闭。
// memory 模式下 outbox 与过期扫描只能在本进程内运行，因为 worker 进程看不到这里的内存数据。
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server starting",
			zap.String("addr", a.server.Addr),
			zap.String("database", a.config.Database.Type))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if a.config.Database.Type == "memory" {
		g.Go(func() error { return RunBackground(ctx, a.container) })
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
		defer cancel()
		logger.Info("Shutting down HTTP server")
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if closeErr := a.container.Close(); closeErr != nil {
		logger.Warn("Failed to release resources", zap.Error(closeErr))
	}
	return err
}

func (a *App) shutdownTimeout() time.Duration {
	if a.config.Server.ShutdownTimeout > 0 {
		return a.config.Server.ShutdownTimeout
	}
	return 10 * time.Second
}

// Handler 返回 HTTP handler（用于测试）
func (a *App) Handler() http.Handler {
	return a.server.Handler
}
