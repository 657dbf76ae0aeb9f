package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/echonow/echonow_server/config"
	"github.com/echonow/echonow_server/internal/database"
	"github.com/echonow/echonow_server/internal/pkg/cron"
	"github.com/echonow/echonow_server/internal/pkg/logger"
	"github.com/echonow/echonow_server/internal/repository"
	"github.com/echonow/echonow_server/internal/service"
)

// 独立运行会员到期清理，API 进程可关闭 cron.enabled 后由它负责
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one sweep and exit")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logg.Sync()

	// 初始化数据库
	db, err := database.NewDB(&cfg.Database, false)
	if err != nil {
		logg.Fatal("Failed to connect database", "error", err)
	}
	logg.Info("Database connected")

	userService := service.NewUserService(repository.NewUserRepository(db), cfg)

	scheduler, err := cron.NewService(userService, cfg.Cron.PremiumSweep, logg)
	if err != nil {
		logg.Fatal("Invalid cron spec", "spec", cfg.Cron.PremiumSweep, "error", err)
	}

	if *once {
		cleared, err := scheduler.RunNow()
		if err != nil {
			logg.Fatal("Premium sweep failed", "error", err)
		}
		logg.Info("Premium sweep finished", "cleared", cleared)
		return
	}

	scheduler.Start()
	logg.Info("Worker started", "spec", cfg.Cron.PremiumSweep)

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logg.Info("Received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	scheduler.Stop(ctx)

	logg.Info("Worker shutdown complete")
}
