package router

import (
	"github.com/gin-gonic/gin"

	"github.com/lawnlink/lawncare-backend/internal/config"
	"github.com/lawnlink/lawncare-backend/internal/http/handlers"
	"github.com/lawnlink/lawncare-backend/internal/http/middleware"
	"github.com/lawnlink/lawncare-backend/internal/metrics"
	"github.com/lawnlink/lawncare-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	jobHandler *handlers.JobHandler,
	webhookHandler *handlers.WebhookHandler,
	disputeHandler *handlers.DisputeHandler,
	payoutHandler *handlers.PayoutHandler,
	financeHandler *handlers.FinanceHandler,
	notificationHandler *handlers.NotificationHandler,
	retentionHandler *handlers.RetentionHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", metrics.Handler())

	// Уведомления платёжного шлюза: без CORS-ограничений и без JWT, подпись
	// проверяется отдельным middleware, частота — rate limiter'ом.
	r.POST("/webhooks/payment",
		middleware.RateLimitMiddleware(cfg.RateLimitLimit*10, cfg.RateLimitPeriod),
		middleware.WebhookSignature(cfg.WebhookSecret),
		webhookHandler.HandlePaymentNotification,
	)

	// Служебный запуск зачистки внешним планировщиком.
	r.POST("/internal/retention/sweep",
		middleware.ServiceToken(cfg.ServiceToken),
		retentionHandler.Sweep,
	)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/jobs", jobHandler.CreateJob)
		protected.GET("/jobs", jobHandler.ListOpenJobs)
		protected.GET("/jobs/my", jobHandler.ListMyJobs)
		protected.GET("/jobs/assigned", jobHandler.ListAssignedJobs)
		protected.GET("/jobs/:id", middleware.UUIDValidator("id"), jobHandler.GetJob)
		protected.POST("/jobs/:id/photos", middleware.UUIDValidator("id"), jobHandler.AddPhoto)

		protected.POST("/jobs/:id/proposals", middleware.UUIDValidator("id"), jobHandler.CreateProposal)
		protected.GET("/jobs/:id/proposals", middleware.UUIDValidator("id"), jobHandler.ListProposals)
		protected.POST("/jobs/:id/proposals/:proposalId/accept", middleware.UUIDValidator("id", "proposalId"), jobHandler.AcceptProposal)

		protected.POST("/jobs/:id/start", middleware.UUIDValidator("id"), jobHandler.StartWork)
		protected.POST("/jobs/:id/complete", middleware.UUIDValidator("id"), jobHandler.CompleteByProvider)
		protected.POST("/jobs/:id/confirm", middleware.UUIDValidator("id"), jobHandler.ConfirmCompletion)

		protected.POST("/jobs/:id/dispute", middleware.UUIDValidator("id"), disputeHandler.OpenDispute)
		protected.GET("/disputes", disputeHandler.ListMyDisputes)
		protected.GET("/disputes/:id", middleware.UUIDValidator("id"), disputeHandler.GetDispute)

		protected.POST("/payouts", payoutHandler.RunPayout)
		protected.GET("/payouts", payoutHandler.ListMyPayouts)
		protected.GET("/payouts/:id", middleware.UUIDValidator("id"), payoutHandler.GetPayout)

		protected.GET("/jobs/:id/invoice", middleware.UUIDValidator("id"), financeHandler.GetJobInvoice)
		protected.GET("/invoices", financeHandler.ListMyInvoices)

		protected.GET("/notifications", notificationHandler.ListNotifications)
		protected.GET("/notifications/unread/count", notificationHandler.CountUnread)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
	}

	// Административные маршруты
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager), middleware.RequireAdmin())
	{
		admin.POST("/disputes/:id/resolve", middleware.UUIDValidator("id"), disputeHandler.ResolveDispute)
		admin.POST("/payouts/:id/complete", middleware.UUIDValidator("id"), payoutHandler.CompletePayout)
		admin.GET("/refunds", financeHandler.ListQueuedRefunds)
		admin.GET("/jobs/:id/refunds", middleware.UUIDValidator("id"), financeHandler.ListJobRefunds)
	}

	return r
}
