package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/courses-backend/internal/config"
	"github.com/ignatzorin/courses-backend/internal/http/handlers"
	"github.com/ignatzorin/courses-backend/internal/http/middleware"
	"github.com/ignatzorin/courses-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	earningsHandler *handlers.EarningsHandler,
	walletHandler *handlers.WalletHandler,
	withdrawalHandler *handlers.WithdrawalHandler,
	adminHandler *handlers.AdminHandler,
	notificationHandler *handlers.NotificationHandler,
	wsHandler *handlers.WSHandler,
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

	api := r.Group("/api")

	// Межсервисные маршруты: начисления и возвраты от сервиса заказов
	internal := api.Group("/internal")
	internal.Use(middleware.ServiceKeyMiddleware(cfg.ServiceAPIKey))
	{
		internal.POST("/earnings", earningsHandler.PostEarning)
		internal.POST("/refunds", earningsHandler.PostRefund)
	}

	// Уведомления через websocket (токен в query)
	api.GET("/ws", wsHandler.Handle)

	// Маршруты преподавателя
	instructor := api.Group("/")
	instructor.Use(middleware.AuthMiddleware(tokenManager))
	instructor.Use(middleware.RequireRole(middleware.RoleInstructor))
	{
		instructor.GET("/wallet/balance", walletHandler.GetBalance)
		instructor.GET("/wallet/transactions", walletHandler.ListTransactions)

		withdrawalRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)
		instructor.POST("/withdrawals", withdrawalRateLimit, withdrawalHandler.CreateWithdrawal)
		instructor.GET("/withdrawals", withdrawalHandler.ListWithdrawals)
		instructor.DELETE("/withdrawals/:id", middleware.UUIDValidator("id"), withdrawalHandler.CancelWithdrawal)

		instructor.GET("/notifications", notificationHandler.ListNotifications)
		instructor.GET("/notifications/unread/count", notificationHandler.CountUnread)
		instructor.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
		instructor.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
	}

	// Маршруты администратора
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager))
	admin.Use(middleware.RequireRole(middleware.RoleAdmin))
	{
		admin.GET("/withdrawals", adminHandler.ListWithdrawals)
		admin.POST("/withdrawals/:id/approve", middleware.UUIDValidator("id"), adminHandler.ApproveWithdrawal)
		admin.POST("/withdrawals/:id/reject", middleware.UUIDValidator("id"), adminHandler.RejectWithdrawal)

		admin.GET("/invoices", adminHandler.ListInvoices)
		admin.GET("/invoices/:number", adminHandler.GetInvoice)
		admin.POST("/invoices/:number/void", adminHandler.VoidInvoice)

		admin.GET("/wallets/negative", adminHandler.ListNegativeWallets)
		admin.GET("/wallets/:ownerId/audit", middleware.UUIDValidator("ownerId"), adminHandler.AuditWallet)
	}

	return r
}
