package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lawnlink/lawncare-backend/internal/logger"
)

// SignatureHeader — заголовок HMAC-подписи уведомления платёжного шлюза.
const SignatureHeader = "X-Webhook-Signature"

// WebhookSignature проверяет HMAC-SHA256 подпись тела запроса.
// Пустой секрет отключает проверку (только для development). Тело после
// проверки восстанавливается для последующего разбора handler'ом.
func WebhookSignature(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "не удалось прочитать тело запроса"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		expected := hex.EncodeToString(mac.Sum(nil))

		got := c.GetHeader(SignatureHeader)
		if got == "" || !hmac.Equal([]byte(expected), []byte(got)) {
			logger.Log.WithField("path", c.Request.URL.Path).Warn("webhook: невалидная подпись")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "невалидная подпись"})
			return
		}

		c.Next()
	}
}

// ServiceToken проверяет сервисный токен во внутренних операциях
// (запуск retention sweep извне). Сравнение константное по времени.
func ServiceToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("X-Service-Token")
		if token == "" || !hmac.Equal([]byte(token), []byte(got)) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "требуется сервисный токен"})
			return
		}
		c.Next()
	}
}
