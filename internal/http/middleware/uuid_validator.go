package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UUIDValidator проверяет, что перечисленные параметры маршрута — валидные
// UUID. Для вложенных ресурсов параметры перечисляются одним middleware:
// router.POST("/jobs/:id/proposals/:proposalId/accept", UUIDValidator("id", "proposalId"), ...)
func UUIDValidator(paramNames ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range paramNames {
			idStr := c.Param(name)
			if idStr == "" {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "параметр " + name + " обязателен",
				})
				c.Abort()
				return
			}

			if _, err := uuid.Parse(idStr); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "параметр " + name + " должен быть валидным UUID",
				})
				c.Abort()
				return
			}
		}

		c.Next()
	}
}
