package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lawnlink/lawncare-backend/internal/goroutine"
	"github.com/lawnlink/lawncare-backend/internal/ledger"
	"github.com/lawnlink/lawncare-backend/internal/logger"
	"github.com/lawnlink/lawncare-backend/internal/metrics"
	"github.com/lawnlink/lawncare-backend/internal/models"
	"github.com/lawnlink/lawncare-backend/internal/pkg/apperror"
	"github.com/lawnlink/lawncare-backend/internal/repository"
)

// WebhookJobStore — часть хранилища заявок, нужная обработчику платежей.
type WebhookJobStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.JobRequest, error)
	MarkPaid(ctx context.Context, jobID uuid.UUID, transactionRef string, finalPrice, platformFee, providerPayout int64) (*models.JobRequest, error)
	MarkPaymentFailed(ctx context.Context, jobID uuid.UUID) error
}

// WebhookStore — idempotency-store обработанных уведомлений.
type WebhookStore interface {
	WasProcessed(ctx context.Context, jobID uuid.UUID, transactionRef string) (bool, error)
	MarkProcessed(ctx context.Context, jobID uuid.UUID, transactionRef string) (bool, error)
	Unmark(ctx context.Context, jobID uuid.UUID, transactionRef string) error
}

// InvoiceStore — запись инвойсов по успешной оплате.
type InvoiceStore interface {
	Create(ctx context.Context, inv *models.Invoice) error
}

// PaymentNotification — нормализованное уведомление платёжного шлюза.
// Разбор конкретного формата доставки (JSON или form) живёт в HTTP-слое.
type PaymentNotification struct {
	OrderID        string
	TransactionRef string
	Success        bool
}

// WebhookResult — исход обработки уведомления.
// Processed=false означает no-op: дубликат, параллельная доставка или уже
// зафиксированная оплата. Для шлюза любой no-op — тоже успех, иначе он
// будет ретраить вечно.
type WebhookResult struct {
	Processed      bool `json:"processed"`
	PaymentSuccess bool `json:"payment_success"`
}

// WebhookService обрабатывает уведомления платёжного шлюза об оплате заявок.
//
// Порядок строго фиксирован: отметка идемпотентности ставится ДО основного
// перехода и снимается только при настоящем сбое записи. Сам переход
// pending -> paid/failed дополнительно защищён условным UPDATE, так что
// даже проигравшая гонку доставка не перетрёт зафиксированную оплату.
type WebhookService struct {
	jobs     WebhookJobStore
	webhooks WebhookStore
	invoices InvoiceStore
	notifier Notifier
}

// NewWebhookService создаёт обработчик платёжных уведомлений.
func NewWebhookService(jobs WebhookJobStore, webhooks WebhookStore, invoices InvoiceStore, notifier Notifier) *WebhookService {
	return &WebhookService{jobs: jobs, webhooks: webhooks, invoices: invoices, notifier: notifier}
}

// ProcessNotification обрабатывает одно уведомление шлюза.
func (s *WebhookService) ProcessNotification(ctx context.Context, n PaymentNotification) (WebhookResult, error) {
	jobID, err := uuid.Parse(n.OrderID)
	if err != nil {
		metrics.WebhookNotificationsTotal.WithLabelValues("invalid").Inc()
		return WebhookResult{}, apperror.New(apperror.ErrCodeValidation, "некорректный идентификатор заказа")
	}

	// Успешная оплата обязана нести номер транзакции; у отказов его нет,
	// ключ идемпотентности для них строится на константе.
	transactionRef := n.TransactionRef
	if transactionRef == "" {
		if n.Success {
			metrics.WebhookNotificationsTotal.WithLabelValues("invalid").Inc()
			return WebhookResult{}, apperror.New(apperror.ErrCodeValidation, "успешная оплата без номера транзакции")
		}
		transactionRef = models.NoTransactionRef
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			metrics.WebhookNotificationsTotal.WithLabelValues("unknown_job").Inc()
			return WebhookResult{}, apperror.ErrJobNotFound
		}
		return WebhookResult{}, err
	}

	processed, err := s.webhooks.WasProcessed(ctx, jobID, transactionRef)
	if err != nil {
		return WebhookResult{}, err
	}
	if processed {
		metrics.WebhookNotificationsTotal.WithLabelValues("duplicate").Inc()
		return WebhookResult{Processed: false, PaymentSuccess: n.Success}, nil
	}

	inserted, err := s.webhooks.MarkProcessed(ctx, jobID, transactionRef)
	if err != nil {
		return WebhookResult{}, err
	}
	if !inserted {
		// Параллельная доставка того же ключа успела раньше — no-op.
		metrics.WebhookNotificationsTotal.WithLabelValues("duplicate").Inc()
		return WebhookResult{Processed: false, PaymentSuccess: n.Success}, nil
	}

	if n.Success {
		return s.confirmPayment(ctx, job, transactionRef)
	}
	return s.recordFailure(ctx, job, transactionRef)
}

// confirmPayment применяет переход pending -> paid. Если цена ещё не была
// зафиксирована принятым предложением, той же записью фиксируется direct-pay
// раскладка: вся сумма провайдеру, комиссия ноль до этапа торгов или спора.
func (s *WebhookService) confirmPayment(ctx context.Context, job *models.JobRequest, transactionRef string) (WebhookResult, error) {
	platformFee, providerPayout := ledger.DirectPaySplit(job.Price())

	paid, err := s.jobs.MarkPaid(ctx, job.ID, transactionRef, job.Price(), platformFee, providerPayout)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotPending) {
			// Оплата уже зафиксирована другим уведомлением. Отметку
			// идемпотентности оставляем: переход состоялся.
			metrics.WebhookNotificationsTotal.WithLabelValues("already_settled").Inc()
			return WebhookResult{Processed: false, PaymentSuccess: true}, nil
		}
		// Настоящий сбой записи: снимаем отметку, чтобы шлюз мог
		// доставить уведомление повторно.
		s.unmark(job.ID, transactionRef)
		return WebhookResult{}, err
	}

	metrics.WebhookNotificationsTotal.WithLabelValues("confirmed").Inc()
	s.afterConfirm(paid, transactionRef)
	return WebhookResult{Processed: true, PaymentSuccess: true}, nil
}

// recordFailure применяет переход pending -> failed.
func (s *WebhookService) recordFailure(ctx context.Context, job *models.JobRequest, transactionRef string) (WebhookResult, error) {
	if err := s.jobs.MarkPaymentFailed(ctx, job.ID); err != nil {
		if errors.Is(err, repository.ErrPaymentNotPending) {
			metrics.WebhookNotificationsTotal.WithLabelValues("already_settled").Inc()
			return WebhookResult{Processed: false, PaymentSuccess: false}, nil
		}
		s.unmark(job.ID, transactionRef)
		return WebhookResult{}, err
	}

	metrics.WebhookNotificationsTotal.WithLabelValues("failed").Inc()
	s.notifyAsync(NotifyPaymentFailed, job.CustomerID, job, nil)
	return WebhookResult{Processed: true, PaymentSuccess: false}, nil
}

// afterConfirm выполняет побочные эффекты успешной оплаты: инвойс и
// уведомление заказчика. Оба best-effort — их сбой не откатывает оплату.
func (s *WebhookService) afterConfirm(job *models.JobRequest, transactionRef string) {
	goroutine.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		paidAt := time.Now()
		if job.PaymentConfirmedAt != nil {
			paidAt = *job.PaymentConfirmedAt
		}
		var platformFee int64
		if job.PlatformFee != nil {
			platformFee = *job.PlatformFee
		}
		err := s.invoices.Create(ctx, &models.Invoice{
			JobID:          job.ID,
			CustomerID:     job.CustomerID,
			Amount:         job.Price(),
			PlatformFee:    platformFee,
			TransactionRef: transactionRef,
			PaidAt:         paidAt,
		})
		if err != nil {
			logger.WithJob(job.ID).WithError(err).Error("не удалось создать инвойс")
		}
	})
	s.notifyAsync(NotifyPaymentConfirmed, job.CustomerID, job, map[string]interface{}{
		"transaction_ref": transactionRef,
	})
}

func (s *WebhookService) notifyAsync(notifyType string, recipientID uuid.UUID, job *models.JobRequest, extra map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	notifyJobEvent(s.notifier, notifyType, recipientID, job, extra)
}

func (s *WebhookService) unmark(jobID uuid.UUID, transactionRef string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.webhooks.Unmark(ctx, jobID, transactionRef); err != nil {
		logger.WithJob(jobID).WithError(err).Error("не удалось снять отметку идемпотентности")
	}
}
