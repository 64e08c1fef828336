package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// WebhookRepository — долговечный idempotency-store обработанных
// уведомлений платёжного шлюза. Ключ (job_id, transaction_ref) уникален на
// уровне базы и виден всем инстансам сервиса.
type WebhookRepository struct {
	db *sqlx.DB
}

func NewWebhookRepository(db *sqlx.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

// WasProcessed сообщает, обрабатывался ли уже этот ключ.
func (r *WebhookRepository) WasProcessed(ctx context.Context, jobID uuid.UUID, transactionRef string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM processed_webhooks WHERE job_id = $1 AND transaction_ref = $2)
	`, jobID, transactionRef)
	if err != nil {
		return false, fmt.Errorf("webhook repository: was processed %w", err)
	}
	return exists, nil
}

// MarkProcessed отмечает ключ обработанным до коммита основного перехода.
// ON CONFLICT DO NOTHING: false означает, что параллельная доставка того же
// ключа успела раньше — вызывающий трактует это как no-op, а не ошибку.
func (r *WebhookRepository) MarkProcessed(ctx context.Context, jobID uuid.UUID, transactionRef string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO processed_webhooks (job_id, transaction_ref)
		VALUES ($1, $2)
		ON CONFLICT (job_id, transaction_ref) DO NOTHING
	`, jobID, transactionRef)
	if err != nil {
		return false, fmt.Errorf("webhook repository: mark processed %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// Unmark снимает отметку. Используется только при настоящем сбое записи
// основного перехода, чтобы шлюз мог успешно доставить уведомление повторно.
func (r *WebhookRepository) Unmark(ctx context.Context, jobID uuid.UUID, transactionRef string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM processed_webhooks WHERE job_id = $1 AND transaction_ref = $2
	`, jobID, transactionRef)
	if err != nil {
		return fmt.Errorf("webhook repository: unmark %w", err)
	}
	return nil
}
