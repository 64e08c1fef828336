package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lawnlink/lawncare-backend/internal/models"
)

var ErrInvoiceNotFound = errors.New("invoice not found")

type InvoiceRepository struct {
	db *sqlx.DB
}

func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Create сохраняет инвойс. Уникальный job_id делает запись идемпотентной:
// повторная доставка вебхука не создаст второй инвойс.
func (r *InvoiceRepository) Create(ctx context.Context, inv *models.Invoice) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invoices (job_id, customer_id, amount, platform_fee, transaction_ref, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (job_id) DO NOTHING
	`, inv.JobID, inv.CustomerID, inv.Amount, inv.PlatformFee, inv.TransactionRef, inv.PaidAt)
	if err != nil {
		return fmt.Errorf("invoice repository: create %w", err)
	}
	return nil
}

// GetByJobID возвращает инвойс по заявке.
func (r *InvoiceRepository) GetByJobID(ctx context.Context, jobID uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.db.GetContext(ctx, &inv, `SELECT * FROM invoices WHERE job_id = $1`, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invoice repository: get by job %w", err)
	}
	return &inv, nil
}

// ListByCustomer возвращает инвойсы заказчика.
func (r *InvoiceRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.SelectContext(ctx, &invoices, `
		SELECT * FROM invoices WHERE customer_id = $1
		ORDER BY paid_at DESC LIMIT $2 OFFSET $3
	`, customerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("invoice repository: list by customer %w", err)
	}
	return invoices, nil
}
