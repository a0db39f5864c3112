package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HeaderServiceKey заголовок сервисного ключа для межсервисных запросов.
const HeaderServiceKey = "X-Service-Key"

// ServiceKeyMiddleware проверяет сервисный ключ сервиса заказов.
// Через эти endpoint'ы приходят начисления и возвраты, пользовательские
// токены здесь не подходят.
func ServiceKeyMiddleware(expectedKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderServiceKey)
		if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(expectedKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "невалидный сервисный ключ"})
			return
		}
		c.Next()
	}
}
