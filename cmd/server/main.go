package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/courses-backend/internal/config"
	"github.com/ignatzorin/courses-backend/internal/db"
	httpHandlers "github.com/ignatzorin/courses-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/courses-backend/internal/http/router"
	"github.com/ignatzorin/courses-backend/internal/logger"
	"github.com/ignatzorin/courses-backend/internal/repository"
	"github.com/ignatzorin/courses-backend/internal/service"
	"github.com/ignatzorin/courses-backend/internal/ws"
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
	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret)

	// Репозитории.
	walletRepo := repository.NewWalletRepository(dbConn)
	withdrawalRepo := repository.NewWithdrawalRepository(dbConn)
	invoiceRepo := repository.NewInvoiceRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Вебсокеты: события о решениях по заявкам уходят после фиксации транзакции.
	hub := ws.NewHub(ctx)
	notificationService := service.NewNotificationService(notificationRepo)
	hub.SetNotificationSaver(ws.NewNotificationServiceAdapter(notificationService))
	go hub.Run()

	// Сервисы.
	ledgerService := service.NewLedgerService(walletRepo)
	withdrawalService := service.NewWithdrawalService(withdrawalRepo, hub, cfg.MinWithdrawalAmount, cfg.PlatformFeePercent)

	// HTTP хэндлеры.
	earningsHandler := httpHandlers.NewEarningsHandler(ledgerService)
	walletHandler := httpHandlers.NewWalletHandler(ledgerService)
	withdrawalHandler := httpHandlers.NewWithdrawalHandler(withdrawalService)
	adminHandler := httpHandlers.NewAdminHandler(withdrawalService, ledgerService, invoiceRepo)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, earningsHandler, walletHandler, withdrawalHandler, adminHandler, notificationHandler, wsHandler, healthHandler, tokenManager)

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
