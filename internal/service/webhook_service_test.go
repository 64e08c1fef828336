package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/lawnlink/lawncare-backend/internal/models"
	"github.com/lawnlink/lawncare-backend/internal/pkg/apperror"
	"github.com/lawnlink/lawncare-backend/internal/repository"
	"github.com/lawnlink/lawncare-backend/internal/service"
)

type mockWebhookJobStore struct {
	mu            sync.Mutex
	job           *models.JobRequest
	markPaidErr   error
	markFailedErr error
	markPaidCalls int
}

func (m *mockWebhookJobStore) GetByID(ctx context.Context, id uuid.UUID) (*models.JobRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.job == nil || m.job.ID != id {
		return nil, repository.ErrJobNotFound
	}
	copied := *m.job
	return &copied, nil
}

func (m *mockWebhookJobStore) MarkPaid(ctx context.Context, jobID uuid.UUID, transactionRef string, finalPrice, platformFee, providerPayout int64) (*models.JobRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markPaidCalls++
	if m.markPaidErr != nil {
		return nil, m.markPaidErr
	}
	if m.job == nil || m.job.ID != jobID {
		return nil, repository.ErrJobNotFound
	}
	if m.job.PaymentStatus != models.PaymentStatusPending {
		return nil, repository.ErrPaymentNotPending
	}
	m.job.PaymentStatus = models.PaymentStatusPaid
	m.job.PaymentReference = &transactionRef
	if m.job.FinalPrice == nil {
		m.job.FinalPrice = &finalPrice
		m.job.PlatformFee = &platformFee
		m.job.ProviderPayout = &providerPayout
	}
	copied := *m.job
	return &copied, nil
}

func (m *mockWebhookJobStore) MarkPaymentFailed(ctx context.Context, jobID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markFailedErr != nil {
		return m.markFailedErr
	}
	if m.job == nil || m.job.ID != jobID {
		return repository.ErrJobNotFound
	}
	if m.job.PaymentStatus != models.PaymentStatusPending {
		return repository.ErrPaymentNotPending
	}
	m.job.PaymentStatus = models.PaymentStatusFailed
	return nil
}

type mockWebhookStore struct {
	mu          sync.Mutex
	seen        map[string]bool
	loseInsert  bool
	unmarkCalls int
}

func newMockWebhookStore() *mockWebhookStore {
	return &mockWebhookStore{seen: make(map[string]bool)}
}

func (m *mockWebhookStore) key(jobID uuid.UUID, ref string) string {
	return jobID.String() + "|" + ref
}

func (m *mockWebhookStore) WasProcessed(ctx context.Context, jobID uuid.UUID, ref string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[m.key(jobID, ref)], nil
}

func (m *mockWebhookStore) MarkProcessed(ctx context.Context, jobID uuid.UUID, ref string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loseInsert {
		return false, nil
	}
	k := m.key(jobID, ref)
	if m.seen[k] {
		return false, nil
	}
	m.seen[k] = true
	return true, nil
}

func (m *mockWebhookStore) Unmark(ctx context.Context, jobID uuid.UUID, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unmarkCalls++
	delete(m.seen, m.key(jobID, ref))
	return nil
}

type mockInvoiceStore struct {
	mu    sync.Mutex
	count int
}

func (m *mockInvoiceStore) Create(ctx context.Context, inv *models.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count++
	return nil
}

func (m *mockInvoiceStore) invoices() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

type mockNotifier struct {
	mu    sync.Mutex
	types []string
}

func (m *mockNotifier) Notify(ctx context.Context, notifyType string, recipientID, jobID uuid.UUID, jobTitle string, extra map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.types = append(m.types, notifyType)
	return nil
}

func pendingJob() *models.JobRequest {
	return &models.JobRequest{
		ID:            uuid.New(),
		CustomerID:    uuid.New(),
		Title:         "Покос газона",
		BasePrice:     12000,
		Status:        models.JobStatusOpen,
		PaymentStatus: models.PaymentStatusPending,
	}
}

func TestWebhookService_ConfirmsPayment(t *testing.T) {
	jobs := &mockWebhookJobStore{job: pendingJob()}
	webhooks := newMockWebhookStore()
	invoices := &mockInvoiceStore{}
	svc := service.NewWebhookService(jobs, webhooks, invoices, &mockNotifier{})

	result, err := svc.ProcessNotification(context.Background(), service.PaymentNotification{
		OrderID:        jobs.job.ID.String(),
		TransactionRef: "TXN-100",
		Success:        true,
	})

	assert.NoError(t, err)
	assert.True(t, result.Processed)
	assert.True(t, result.PaymentSuccess)
	assert.Equal(t, models.PaymentStatusPaid, jobs.job.PaymentStatus)

	// Direct-pay раскладка: комиссия ноль, вся сумма провайдеру.
	assert.Equal(t, int64(12000), *jobs.job.FinalPrice)
	assert.Equal(t, int64(0), *jobs.job.PlatformFee)
	assert.Equal(t, int64(12000), *jobs.job.ProviderPayout)

	// Инвойс создаётся в фоне, best-effort.
	assert.Eventually(t, func() bool { return invoices.invoices() == 1 },
		time.Second, 10*time.Millisecond)
}

func TestWebhookService_DuplicateDeliveryIsNoOp(t *testing.T) {
	jobs := &mockWebhookJobStore{job: pendingJob()}
	webhooks := newMockWebhookStore()
	svc := service.NewWebhookService(jobs, webhooks, &mockInvoiceStore{}, nil)

	n := service.PaymentNotification{
		OrderID:        jobs.job.ID.String(),
		TransactionRef: "TXN-100",
		Success:        true,
	}

	first, err := svc.ProcessNotification(context.Background(), n)
	assert.NoError(t, err)
	assert.True(t, first.Processed)

	for i := 0; i < 3; i++ {
		dup, err := svc.ProcessNotification(context.Background(), n)
		assert.NoError(t, err)
		assert.False(t, dup.Processed, "повторная доставка не применяет эффекты")
		assert.True(t, dup.PaymentSuccess)
	}

	assert.Equal(t, 1, jobs.markPaidCalls)
}

func TestWebhookService_ConcurrentInsertLossIsNoOp(t *testing.T) {
	jobs := &mockWebhookJobStore{job: pendingJob()}
	webhooks := newMockWebhookStore()
	webhooks.loseInsert = true
	svc := service.NewWebhookService(jobs, webhooks, &mockInvoiceStore{}, nil)

	result, err := svc.ProcessNotification(context.Background(), service.PaymentNotification{
		OrderID:        jobs.job.ID.String(),
		TransactionRef: "TXN-100",
		Success:        true,
	})

	assert.NoError(t, err)
	assert.False(t, result.Processed)
	assert.Equal(t, 0, jobs.markPaidCalls, "проигравшая гонку доставка не трогает заявку")
}

func TestWebhookService_AlreadySettledKeepsMark(t *testing.T) {
	job := pendingJob()
	job.PaymentStatus = models.PaymentStatusPaid
	jobs := &mockWebhookJobStore{job: job}
	webhooks := newMockWebhookStore()
	svc := service.NewWebhookService(jobs, webhooks, &mockInvoiceStore{}, nil)

	// Другой номер транзакции: ключ новый, но оплата уже зафиксирована.
	result, err := svc.ProcessNotification(context.Background(), service.PaymentNotification{
		OrderID:        job.ID.String(),
		TransactionRef: "TXN-200",
		Success:        true,
	})

	assert.NoError(t, err)
	assert.False(t, result.Processed)
	assert.True(t, result.PaymentSuccess)
	assert.Equal(t, 0, webhooks.unmarkCalls, "проигрыш гонки не снимает отметку")
}

func TestWebhookService_WriteFailureUnmarks(t *testing.T) {
	jobs := &mockWebhookJobStore{job: pendingJob(), markPaidErr: errors.New("db down")}
	webhooks := newMockWebhookStore()
	svc := service.NewWebhookService(jobs, webhooks, &mockInvoiceStore{}, nil)

	_, err := svc.ProcessNotification(context.Background(), service.PaymentNotification{
		OrderID:        jobs.job.ID.String(),
		TransactionRef: "TXN-100",
		Success:        true,
	})

	assert.Error(t, err)
	assert.Equal(t, 1, webhooks.unmarkCalls, "настоящий сбой записи снимает отметку для повторной доставки")

	processed, _ := webhooks.WasProcessed(context.Background(), jobs.job.ID, "TXN-100")
	assert.False(t, processed)
}

func TestWebhookService_FailureNotification(t *testing.T) {
	jobs := &mockWebhookJobStore{job: pendingJob()}
	webhooks := newMockWebhookStore()
	svc := service.NewWebhookService(jobs, webhooks, &mockInvoiceStore{}, nil)

	result, err := svc.ProcessNotification(context.Background(), service.PaymentNotification{
		OrderID: jobs.job.ID.String(),
		Success: false,
	})

	assert.NoError(t, err)
	assert.True(t, result.Processed)
	assert.False(t, result.PaymentSuccess)
	assert.Equal(t, models.PaymentStatusFailed, jobs.job.PaymentStatus)

	// Ключ идемпотентности отказа строится на константе.
	processed, _ := webhooks.WasProcessed(context.Background(), jobs.job.ID, models.NoTransactionRef)
	assert.True(t, processed)
}

func TestWebhookService_SuccessWithoutTransactionRef(t *testing.T) {
	jobs := &mockWebhookJobStore{job: pendingJob()}
	svc := service.NewWebhookService(jobs, newMockWebhookStore(), &mockInvoiceStore{}, nil)

	_, err := svc.ProcessNotification(context.Background(), service.PaymentNotification{
		OrderID: jobs.job.ID.String(),
		Success: true,
	})

	assert.True(t, apperror.IsValidation(err))
	assert.Equal(t, models.PaymentStatusPending, jobs.job.PaymentStatus)
}

func TestWebhookService_MalformedOrderID(t *testing.T) {
	svc := service.NewWebhookService(&mockWebhookJobStore{}, newMockWebhookStore(), &mockInvoiceStore{}, nil)

	_, err := svc.ProcessNotification(context.Background(), service.PaymentNotification{
		OrderID:        "not-a-uuid",
		TransactionRef: "TXN-100",
		Success:        true,
	})

	assert.True(t, apperror.IsValidation(err))
}

func TestWebhookService_UnknownJob(t *testing.T) {
	svc := service.NewWebhookService(&mockWebhookJobStore{}, newMockWebhookStore(), &mockInvoiceStore{}, nil)

	_, err := svc.ProcessNotification(context.Background(), service.PaymentNotification{
		OrderID:        uuid.NewString(),
		TransactionRef: "TXN-100",
		Success:        true,
	})

	assert.True(t, apperror.IsNotFound(err))
}
