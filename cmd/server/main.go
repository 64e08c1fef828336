package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lawnlink/lawncare-backend/internal/config"
	"github.com/lawnlink/lawncare-backend/internal/db"
	httpHandlers "github.com/lawnlink/lawncare-backend/internal/http/handlers"
	httpRouter "github.com/lawnlink/lawncare-backend/internal/http/router"
	"github.com/lawnlink/lawncare-backend/internal/logger"
	"github.com/lawnlink/lawncare-backend/internal/metrics"
	"github.com/lawnlink/lawncare-backend/internal/repository"
	"github.com/lawnlink/lawncare-backend/internal/service"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	metrics.Register()

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	jobRepo := repository.NewJobRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	webhookRepo := repository.NewWebhookRepository(dbConn)
	invoiceRepo := repository.NewInvoiceRepository(dbConn)
	payoutRepo := repository.NewPayoutRepository(dbConn)
	refundRepo := repository.NewRefundRepository(dbConn)
	auditRepo := repository.NewAuditRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager)
	notificationService := service.NewNotificationService(notificationRepo)
	jobService := service.NewJobService(jobRepo, notificationService)
	webhookService := service.NewWebhookService(jobRepo, webhookRepo, invoiceRepo, notificationService)
	disputeService := service.NewDisputeService(disputeRepo, jobRepo, notificationService)
	payoutService := service.NewPayoutService(payoutRepo, auditRepo)
	financeService := service.NewFinanceService(invoiceRepo, refundRepo)
	retentionService := service.NewRetentionService(jobRepo, cfg.RetentionWindow)

	// Фоновая зачистка завершённых заявок.
	go retentionService.RunPeriodic(ctx, cfg.SweepInterval)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	jobHandler := httpHandlers.NewJobHandler(jobService)
	webhookHandler := httpHandlers.NewWebhookHandler(webhookService)
	disputeHandler := httpHandlers.NewDisputeHandler(disputeService)
	payoutHandler := httpHandlers.NewPayoutHandler(payoutService)
	financeHandler := httpHandlers.NewFinanceHandler(financeService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	retentionHandler := httpHandlers.NewRetentionHandler(retentionService)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg,
		authHandler, jobHandler, webhookHandler, disputeHandler, payoutHandler,
		financeHandler, notificationHandler, retentionHandler, healthHandler,
		tokenManager,
	)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
