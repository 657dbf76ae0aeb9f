package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/echonow/echonow_server/config"
	"github.com/echonow/echonow_server/internal/api/handler"
	"github.com/echonow/echonow_server/internal/api/middleware"
	"github.com/echonow/echonow_server/internal/pkg/logger"
)

type Router struct {
	authHandler         *handler.AuthHandler
	articleHandler      *handler.ArticleHandler
	userHandler         *handler.UserHandler
	publisherHandler    *handler.PublisherHandler
	verificationHandler *handler.VerificationHandler
	paymentHandler      *handler.PaymentHandler
	uploadHandler       *handler.UploadHandler
	websocketHandler    *handler.WebSocketHandler
	roles               middleware.RoleSource
	cfg                 *config.Config
	log                 *logger.Logger
}

// Handlers 路由依赖的全部 handler
type Handlers struct {
	Auth         *handler.AuthHandler
	Article      *handler.ArticleHandler
	User         *handler.UserHandler
	Publisher    *handler.PublisherHandler
	Verification *handler.VerificationHandler
	Payment      *handler.PaymentHandler
	Upload       *handler.UploadHandler
	WebSocket    *handler.WebSocketHandler
}

func NewRouter(h Handlers, roles middleware.RoleSource, cfg *config.Config, log *logger.Logger) *Router {
	if log == nil {
		log = logger.Nop()
	}
	return &Router{
		authHandler:         h.Auth,
		articleHandler:      h.Article,
		userHandler:         h.User,
		publisherHandler:    h.Publisher,
		verificationHandler: h.Verification,
		paymentHandler:      h.Payment,
		uploadHandler:       h.Upload,
		websocketHandler:    h.WebSocket,
		roles:               roles,
		cfg:                 cfg,
		log:                 log,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.CORS(r.cfg.CORS))

	authRequired := middleware.Auth(r.cfg.JWT.Secret)
	adminRequired := middleware.RequireAdmin(r.roles)

	// 访问日志放在 OptionalAuth 之后，才能记录到邮箱
	api := engine.Group("")
	api.Use(middleware.OptionalAuth(r.cfg.JWT.Secret), middleware.RequestLogger(r.log))
	{
		api.GET("/", func(c *gin.Context) {
			c.String(http.StatusOK, "EchoNow server is running")
		})
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// WebSocket，token 走 query
		api.GET("/ws", r.websocketHandler.Handle)

		// 认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.GET("/github", r.authHandler.GithubAuth)
			auth.GET("/github/callback", r.authHandler.GithubCallback)
		}

		// 公开接口
		api.GET("/articles", r.articleHandler.List)
		api.GET("/articles/trending", r.articleHandler.Trending)
		api.GET("/articles/special", r.articleHandler.Special)
		api.GET("/articles/top-fashion", r.articleHandler.TopFashion)
		api.GET("/articles/banner-trending", r.articleHandler.BannerTrending)
		api.GET("/article/:id", r.articleHandler.Get) // 会员文章在 service 中校验
		api.GET("/users-count-info", r.userHandler.CountInfo)
		api.GET("/publishers-stats", r.publisherHandler.Stats)
		api.GET("/publisher-with-articles", r.publisherHandler.WithArticles)
		api.GET("/plans", r.paymentHandler.Plans)

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(authRequired)
		{
			authenticated.POST("/article", r.articleHandler.Create)
			authenticated.GET("/articles/premium", r.articleHandler.ListPremium)
			authenticated.GET("/articles/user", r.articleHandler.ListByAuthor)
			authenticated.PATCH("/article/:id/views", r.articleHandler.IncrementViews)
			authenticated.PATCH("/articles/:id", r.articleHandler.Update)
			authenticated.DELETE("/articles/:id", r.articleHandler.Delete)

			authenticated.POST("/users", r.userHandler.Upsert)
			authenticated.GET("/users/:email", r.userHandler.GetProfile)
			authenticated.PATCH("/users/:email", r.userHandler.UpdateProfile)
			authenticated.POST("/get-role", r.userHandler.GetRole)

			authenticated.POST("/create-payment-intent", r.paymentHandler.CreateIntent)
			authenticated.POST("/upload/image", r.uploadHandler.UploadImage)

			verify := authenticated.Group("/api")
			{
				verify.POST("/request-otp", r.verificationHandler.RequestOTP)
				verify.POST("/verify-otp", r.verificationHandler.VerifyOTP)
				verify.GET("/verification-status/:email", r.verificationHandler.Status)
			}
		}

		// 管理员接口
		admin := api.Group("")
		admin.Use(authRequired, adminRequired)
		{
			admin.GET("/all-articles", r.articleHandler.ListForAdmin)
			admin.GET("/all-users", r.userHandler.ListAll)
			admin.PATCH("/users/admin/:email", r.userHandler.MakeAdmin)
			admin.POST("/users/admin/:email", r.userHandler.MakeAdmin)
			admin.GET("/publisher", r.publisherHandler.Overview)
			admin.POST("/publisher", r.publisherHandler.Create)
		}
	}

	return engine
}
