package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lawnlink/lawncare-backend/internal/http/handlers/common"
	"github.com/lawnlink/lawncare-backend/internal/service"
)

// RetentionHandler — ручной запуск зачистки завершённых заявок.
// Маршрут закрыт сервисным токеном, вызывается внешним планировщиком.
type RetentionHandler struct {
	retention *service.RetentionService
}

func NewRetentionHandler(retention *service.RetentionService) *RetentionHandler {
	return &RetentionHandler{retention: retention}
}

// Sweep POST /internal/retention/sweep
func (h *RetentionHandler) Sweep(c *gin.Context) {
	ids, err := h.retention.Sweep(c.Request.Context())
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deleted_count": len(ids),
		"deleted_ids":   ids,
	})
}
