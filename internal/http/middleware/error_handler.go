package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/courses-backend/internal/logger"
	"github.com/ignatzorin/courses-backend/internal/pkg/apperror"
	"github.com/ignatzorin/courses-backend/internal/repository"
)

// ErrorHandler обрабатывает ошибки централизованно.
// Маскирует внутренние ошибки и возвращает понятные сообщения клиенту.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		if len(c.Errors) > 0 {
			err := c.Errors.Last()

			statusCode := http.StatusInternalServerError
			message := "внутренняя ошибка сервера"

			if logger.Log != nil {
				logger.Log.WithFields(logrus.Fields{
					"error":  err.Error(),
					"path":   c.Request.URL.Path,
					"method": c.Request.Method,
				}).Error("Request error")
			}

			// Типизированные ошибки приложения несут статус и сообщение сами
			var appErr *apperror.AppError
			if errors.As(err.Err, &appErr) {
				c.JSON(appErr.HTTPStatus, gin.H{"error": appErr.Message})
				return
			}

			// Обрабатываем известные типы ошибок
			switch {
			case errors.Is(err.Err, repository.ErrInsufficientFunds):
				statusCode = http.StatusBadRequest
				message = "недостаточно средств на балансе"
			case errors.Is(err.Err, repository.ErrInvalidStateTransition):
				statusCode = http.StatusConflict
				message = "заявка уже в терминальном статусе"
			case errors.Is(err.Err, repository.ErrRequestNotFound):
				statusCode = http.StatusNotFound
				message = "заявка на вывод не найдена"
			case errors.Is(err.Err, repository.ErrEarningNotFound):
				statusCode = http.StatusNotFound
				message = "начисление по заказу не найдено"
			case errors.Is(err.Err, repository.ErrWalletNotFound):
				statusCode = http.StatusNotFound
				message = "кошелёк не найден"
			case errors.Is(err.Err, repository.ErrInvoiceNotFound):
				statusCode = http.StatusNotFound
				message = "счёт не найден"
			default:
				if err.Error() != "" {
					// Понятные сообщения отдаём клиенту, внутренние маскируем
					errStr := err.Error()
					if !containsInternalKeywords(errStr) {
						message = errStr
						if contains(errStr, "неверный") || contains(errStr, "невалид") || contains(errStr, "сумма") {
							statusCode = http.StatusBadRequest
						} else if contains(errStr, "нет прав") || contains(errStr, "не авторизован") {
							statusCode = http.StatusForbidden
						}
					}
				}
			}

			c.JSON(statusCode, gin.H{"error": message})
		}
	}
}

// containsInternalKeywords проверяет, содержит ли строка ключевые слова внутренних ошибок.
func containsInternalKeywords(s string) bool {
	keywords := []string{
		"sql:",
		"database",
		"connection",
		"timeout",
		"internal",
		"panic",
		"runtime",
	}

	for _, keyword := range keywords {
		if contains(s, keyword) {
			return true
		}
	}
	return false
}

// contains проверяет, содержит ли строка подстроку (case-insensitive).
func contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
