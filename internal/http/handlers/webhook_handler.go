package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lawnlink/lawncare-backend/internal/http/handlers/common"
	"github.com/lawnlink/lawncare-backend/internal/logger"
	"github.com/lawnlink/lawncare-backend/internal/pkg/apperror"
	"github.com/lawnlink/lawncare-backend/internal/service"
)

// WebhookHandler принимает уведомления платёжного шлюза.
type WebhookHandler struct {
	webhooks *service.WebhookService
}

func NewWebhookHandler(webhooks *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// gatewaySuccessCode — код успешной оплаты в уведомлении шлюза.
const gatewaySuccessCode = "1"

// HandlePaymentNotification POST /webhooks/payment
//
// Шлюз шлёт либо JSON, либо form-encoded тело. Поля: ResponseCode ("1" —
// успех), TransactionNumber (обязателен при успехе), CustomOrderId либо
// order_id (UUID заявки, CustomOrderId приоритетнее).
func (h *WebhookHandler) HandlePaymentNotification(c *gin.Context) {
	payload, err := parseGatewayPayload(c)
	if err != nil {
		common.RespondBadRequest(c, "не удалось разобрать тело уведомления")
		return
	}

	orderID := payload["CustomOrderId"]
	if orderID == "" {
		orderID = payload["order_id"]
	}
	if orderID == "" {
		common.RespondBadRequest(c, "идентификатор заказа обязателен")
		return
	}

	notification := service.PaymentNotification{
		OrderID:        orderID,
		TransactionRef: payload["TransactionNumber"],
		Success:        payload["ResponseCode"] == gatewaySuccessCode,
	}

	result, err := h.webhooks.ProcessNotification(c.Request.Context(), notification)
	if err != nil {
		if apperror.IsValidation(err) || apperror.IsNotFound(err) {
			common.RespondAppError(c, err)
			return
		}
		logger.Log.WithError(err).Error("webhook: сбой обработки уведомления")
		common.RespondError(c, http.StatusInternalServerError, "внутренняя ошибка сервера")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"processed":       result.Processed,
		"payment_success": result.PaymentSuccess,
	})
}

// parseGatewayPayload разбирает тело уведомления в плоскую карту строк.
// Поддерживает JSON и url-encoded form. Особенность шлюза: иногда весь
// JSON-объект приходит как ИМЯ form-ключа с пустым значением — такие ключи
// разбираются и вливаются в результат.
func parseGatewayPayload(c *gin.Context) (map[string]string, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string)

	contentType := c.GetHeader("Content-Type")
	if strings.Contains(contentType, "application/json") {
		if err := mergeJSONPayload(body, out); err != nil {
			return nil, err
		}
		return out, nil
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, err
	}
	for key, vals := range values {
		value := ""
		if len(vals) > 0 {
			value = vals[0]
		}
		if value == "" && strings.HasPrefix(strings.TrimSpace(key), "{") {
			// Ключ сам является JSON-объектом.
			if err := mergeJSONPayload([]byte(key), out); err == nil {
				continue
			}
		}
		out[key] = value
	}
	return out, nil
}

// mergeJSONPayload вливает поля JSON-объекта в карту. Не-строковые значения
// приводятся к строке через повторную сериализацию.
func mergeJSONPayload(data []byte, out map[string]string) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			out[key] = v
		case nil:
			out[key] = ""
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				continue
			}
			out[key] = strings.Trim(string(encoded), `"`)
		}
	}
	return nil
}
