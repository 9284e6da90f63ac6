package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"marketplace/cmd"
	"marketplace/config"
	"marketplace/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("Worker startup failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := parseConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Log, cfg.App.Env); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	// 独立 worker 只对共享数据库有意义，memory 模式由 HTTP 进程自己运行后台任务
	if cfg.Database.Type != "mysql" {
		logger.Info("Worker requires database.type=mysql; exiting")
		return nil
	}
	if !cfg.Worker.Enabled && !cfg.Order.ExpirySweep.Enabled {
		logger.Info("Outbox worker and expiry sweeper are disabled by config; exiting")
		return nil
	}

	container, err := cmd.Build(cfg)
	if err != nil {
		return fmt.Errorf("failed to build worker: %w", err)
	}
	defer container.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cmd.RunBackground(ctx, container); err != nil {
		return fmt.Errorf("worker exited with error: %w", err)
	}

	logger.Info("Worker stopped")
	return nil
}

func parseConfigPath() string {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.Parse()
	return configPath
}
