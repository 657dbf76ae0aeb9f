package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/echonow/echonow_server/config"
	"github.com/echonow/echonow_server/internal/api"
	"github.com/echonow/echonow_server/internal/api/handler"
	"github.com/echonow/echonow_server/internal/database"
	"github.com/echonow/echonow_server/internal/pkg/cron"
	"github.com/echonow/echonow_server/internal/pkg/email"
	"github.com/echonow/echonow_server/internal/pkg/logger"
	"github.com/echonow/echonow_server/internal/pkg/oauth"
	"github.com/echonow/echonow_server/internal/pkg/oss"
	"github.com/echonow/echonow_server/internal/pkg/otp"
	"github.com/echonow/echonow_server/internal/pkg/payment"
	"github.com/echonow/echonow_server/internal/pkg/pubsub"
	"github.com/echonow/echonow_server/internal/pkg/ws"
	"github.com/echonow/echonow_server/internal/repository"
	"github.com/echonow/echonow_server/internal/service"
)

// OAuth state 有效期
const stateTTL = 10 * time.Minute

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
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
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level == "debug")
	if err != nil {
		logg.Fatal("Failed to connect database", "error", err)
	}
	if err := database.Migrate(db); err != nil {
		logg.Fatal("Failed to migrate database", "error", err)
	}
	logg.Info("Database connected", "driver", cfg.Database.Driver)

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		logg.Fatal("Failed to connect redis", "error", err)
	}
	logg.Info("Redis connected")

	// 初始化 OSS（可选）
	var imageStore service.ImageStore
	if cfg.OSS.Enabled() {
		ossClient, err := oss.NewClient(&cfg.OSS)
		if err != nil {
			logg.Warn("Failed to init OSS client, uploads disabled", "error", err)
		} else {
			imageStore = ossClient
			logg.Info("OSS client initialized", "bucket", cfg.OSS.BucketName)
		}
	}

	// 支付（可选）
	var provider payment.Provider = payment.Unconfigured{}
	if cfg.Payment.StripeSecretKey != "" {
		provider = payment.NewStripe(cfg.Payment.StripeSecretKey, cfg.Payment.Timeout)
	} else {
		logg.Warn("Stripe secret key not set, payments disabled")
	}

	// 初始化 WebSocket Hub 和审核通知
	wsHub := ws.NewHub(logg)
	publisher := pubsub.NewPublisher(rdb, cfg.Notify.Channel)
	subscriber := pubsub.NewSubscriber(rdb, cfg.Notify.Channel)

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	credRepo := repository.NewCredentialRepository(db)
	articleRepo := repository.NewArticleRepository(db)
	publisherRepo := repository.NewPublisherRepository(db)

	// 初始化 Service
	github := oauth.NewGithubOAuth(cfg.OAuth.Github.ClientID, cfg.OAuth.Github.ClientSecret, cfg.OAuth.Github.RedirectURI)
	authService := service.NewAuthService(credRepo, userRepo, github, oauth.NewStateStore(rdb, stateTTL, redirectOrigins(cfg)...), cfg)
	userService := service.NewUserService(userRepo, cfg)
	articleService := service.NewArticleService(articleRepo, userRepo, publisher, logg)
	publisherService := service.NewPublisherService(publisherRepo, articleRepo, userRepo)
	verificationService := service.NewVerificationService(
		userRepo, otp.NewStore(rdb, cfg.OTP.TTL, cfg.OTP.Length), email.NewService(&cfg.Email), logg)
	paymentService := service.NewPaymentService(provider, cfg, logg)
	uploadService := service.NewUploadService(imageStore, &cfg.Upload)
	notifyService := service.NewNotifyService(subscriber, wsHub, logg)

	// 初始化 Router
	router := api.NewRouter(api.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		Article:      handler.NewArticleHandler(articleService),
		User:         handler.NewUserHandler(userService),
		Publisher:    handler.NewPublisherHandler(publisherService),
		Verification: handler.NewVerificationHandler(verificationService),
		Payment:      handler.NewPaymentHandler(paymentService),
		Upload:       handler.NewUploadHandler(uploadService),
		WebSocket:    handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret, cfg.CORS.AllowedOrigins, logg),
	}, userService, cfg, logg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := notifyService.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error("Moderation subscriber stopped", "error", err)
		}
	}()

	// 会员到期清理
	var scheduler *cron.Service
	if cfg.Cron.Enabled {
		scheduler, err = cron.NewService(userService, cfg.Cron.PremiumSweep, logg)
		if err != nil {
			logg.Fatal("Invalid cron spec", "spec", cfg.Cron.PremiumSweep, "error", err)
		}
		scheduler.Start()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logg.Info("Server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("Failed to start server", "error", err)
		}
	}()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logg.Info("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("Server shutdown failed", "error", err)
	}
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	cancel()
	_ = rdb.Close()

	logg.Info("Server shutdown complete")
}

// redirectOrigins GitHub 登录完成后允许跳回的前端源
func redirectOrigins(cfg *config.Config) []string {
	origins := append([]string{}, cfg.CORS.AllowedOrigins...)
	if cfg.OAuth.Github.FrontendURL != "" {
		origins = append(origins, cfg.OAuth.Github.FrontendURL)
	}
	return origins
}
