package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lawnlink/lawncare-backend/internal/models"
)

// RefundRepository — очередь возвратов. Фактическое перечисление денег
// выполняет внешний финансовый процесс, здесь только постановка и выборка.
type RefundRepository struct {
	db *sqlx.DB
}

func NewRefundRepository(db *sqlx.DB) *RefundRepository {
	return &RefundRepository{db: db}
}

// Enqueue ставит возврат в очередь.
func (r *RefundRepository) Enqueue(ctx context.Context, customerID, jobID uuid.UUID, amount int64, reason string) (*models.RefundRequest, error) {
	var refund models.RefundRequest
	err := r.db.GetContext(ctx, &refund, `
		INSERT INTO refund_requests (customer_id, job_id, amount, reason, status)
		VALUES ($1, $2, $3, $4, 'queued')
		RETURNING *
	`, customerID, jobID, amount, reason)
	if err != nil {
		return nil, fmt.Errorf("refund repository: enqueue %w", err)
	}
	return &refund, nil
}

// ListQueued возвращает необработанные возвраты.
func (r *RefundRepository) ListQueued(ctx context.Context, limit, offset int) ([]models.RefundRequest, error) {
	var refunds []models.RefundRequest
	err := r.db.SelectContext(ctx, &refunds, `
		SELECT * FROM refund_requests WHERE status = 'queued'
		ORDER BY created_at ASC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("refund repository: list queued %w", err)
	}
	return refunds, nil
}

// ListByJob возвращает возвраты по заявке.
func (r *RefundRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.RefundRequest, error) {
	var refunds []models.RefundRequest
	err := r.db.SelectContext(ctx, &refunds, `
		SELECT * FROM refund_requests WHERE job_id = $1 ORDER BY created_at ASC
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("refund repository: list by job %w", err)
	}
	return refunds, nil
}
