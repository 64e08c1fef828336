package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/lawnlink/lawncare-backend/internal/models"
	"github.com/lawnlink/lawncare-backend/internal/pkg/apperror"
	"github.com/lawnlink/lawncare-backend/internal/repository"
)

// InvoiceReader — чтение инвойсов.
type InvoiceReader interface {
	GetByJobID(ctx context.Context, jobID uuid.UUID) (*models.Invoice, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Invoice, error)
}

// RefundReader — чтение очереди возвратов.
type RefundReader interface {
	ListQueued(ctx context.Context, limit, offset int) ([]models.RefundRequest, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.RefundRequest, error)
}

// FinanceService — витрина финансовых записей: инвойсы заказчика и очередь
// возвратов. Записи создают webhook-обработчик и движок споров, здесь
// только чтение.
type FinanceService struct {
	invoices InvoiceReader
	refunds  RefundReader
}

// NewFinanceService создаёт сервис финансовых записей.
func NewFinanceService(invoices InvoiceReader, refunds RefundReader) *FinanceService {
	return &FinanceService{invoices: invoices, refunds: refunds}
}

// GetJobInvoice возвращает инвойс по заявке.
func (s *FinanceService) GetJobInvoice(ctx context.Context, userID uuid.UUID, role string, jobID uuid.UUID) (*models.Invoice, error) {
	inv, err := s.invoices.GetByJobID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrInvoiceNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "инвойс не найден")
		}
		return nil, err
	}
	if role != models.RoleAdmin && inv.CustomerID != userID {
		return nil, apperror.ErrForbidden
	}
	return inv, nil
}

// ListCustomerInvoices возвращает инвойсы заказчика.
func (s *FinanceService) ListCustomerInvoices(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Invoice, error) {
	return s.invoices.ListByCustomer(ctx, customerID, limit, offset)
}

// ListQueuedRefunds возвращает необработанные возвраты. Административная
// операция для внешнего финансового процесса.
func (s *FinanceService) ListQueuedRefunds(ctx context.Context, limit, offset int) ([]models.RefundRequest, error) {
	return s.refunds.ListQueued(ctx, limit, offset)
}

// ListJobRefunds возвращает возвраты по заявке.
func (s *FinanceService) ListJobRefunds(ctx context.Context, jobID uuid.UUID) ([]models.RefundRequest, error) {
	return s.refunds.ListByJob(ctx, jobID)
}
