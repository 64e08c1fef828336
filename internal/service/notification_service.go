package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lawnlink/lawncare-backend/internal/goroutine"
	"github.com/lawnlink/lawncare-backend/internal/logger"
	"github.com/lawnlink/lawncare-backend/internal/models"
)

// Типы уведомлений, которые рассылает ядро.
const (
	NotifyPaymentConfirmed  = "payment_confirmed"
	NotifyPaymentFailed     = "payment_failed"
	NotifyProposalAccepted  = "proposal_accepted"
	NotifyJobCompleted      = "job_completed"
	NotifyCompletionPending = "completion_pending"
	NotifyDisputeOpened     = "dispute_opened"
	NotifyDisputeResolved   = "dispute_resolved"
)

// NotificationRepository описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// NotificationService реализует контракт notify(...) для ядра: запись в
// персистентную ленту. Каналы доставки (push, email) живут в отдельных
// сервисах и потребляют ленту сами.
type NotificationService struct {
	repo NotificationRepository
}

// NewNotificationService создаёт сервис уведомлений.
func NewNotificationService(repo NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// Notify создаёт уведомление получателю. Вызывается fire-and-forget:
// ошибки здесь не должны влиять на основной запрос.
func (s *NotificationService) Notify(ctx context.Context, notifyType string, recipientID, jobID uuid.UUID, jobTitle string, extra map[string]interface{}) error {
	payload := map[string]interface{}{
		"type":      notifyType,
		"job_id":    jobID,
		"job_title": jobTitle,
	}
	for k, v := range extra {
		payload[k] = v
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notification service: marshal payload %w", err)
	}

	return s.repo.Create(ctx, &models.Notification{
		UserID:  recipientID,
		Payload: payloadBytes,
		IsRead:  false,
	})
}

// ListNotifications возвращает ленту пользователя.
func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, userID, limit, offset, unreadOnly)
}

// MarkAsRead отмечает уведомление как прочитанное.
func (s *NotificationService) MarkAsRead(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	notification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if notification.UserID != userID {
		return fmt.Errorf("notification service: у вас нет прав на это уведомление")
	}
	return s.repo.MarkAsRead(ctx, id)
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// notifyJobEvent рассылает уведомление о событии по заявке в фоне.
// Доставка best-effort: сбой логируется и не влияет на основную операцию.
func notifyJobEvent(n Notifier, notifyType string, recipientID uuid.UUID, job *models.JobRequest, extra map[string]interface{}) {
	goroutine.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := n.Notify(ctx, notifyType, recipientID, job.ID, job.Title, extra); err != nil {
			logger.Log.WithError(err).WithField("type", notifyType).Warn("не удалось отправить уведомление")
		}
	})
}
