package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/lawnlink/lawncare-backend/internal/models"
)

var (
	ErrDisputeNotFound        = errors.New("dispute not found")
	ErrDisputeAlreadyOpen     = errors.New("dispute already open for this job")
	ErrDisputeAlreadyResolved = errors.New("dispute already resolved")
	ErrJobNotResolvable       = errors.New("job is not in a resolvable status")
)

type DisputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// Open создаёт спор и откатывает заявку pending_completion -> in_progress,
// сбрасывая provider_completed_at. Обе записи в одной транзакции: спор без
// отката статуса (и наоборот) невозможен. Частичный уникальный индекс по
// (job_id) WHERE status='open' исключает второй открытый спор.
func (r *DisputeRepository) Open(ctx context.Context, d *models.Dispute) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE job_requests
		SET status = 'in_progress', provider_completed_at = NULL, updated_at = NOW()
		WHERE id = $1 AND customer_id = $2 AND status = 'pending_completion'
	`, d.JobID, d.CustomerID)
	if err != nil {
		return fmt.Errorf("dispute repository: open revert job %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM job_requests WHERE id = $1)`, d.JobID); err != nil {
			return fmt.Errorf("dispute repository: open check job %w", err)
		}
		if !exists {
			return ErrJobNotFound
		}
		return ErrJobNotPendingComplete
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO disputes (job_id, customer_id, reason, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, d.JobID, d.CustomerID, d.Reason, d.Status).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDisputeAlreadyOpen
		}
		return fmt.Errorf("dispute repository: open insert %w", err)
	}

	return tx.Commit()
}

// GetByID возвращает спор.
func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := r.db.GetContext(ctx, &d, `SELECT * FROM disputes WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDisputeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("dispute repository: get by id %w", err)
	}
	return &d, nil
}

// GetOpenByJobID возвращает открытый спор по заявке, если он есть.
func (r *DisputeRepository) GetOpenByJobID(ctx context.Context, jobID uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := r.db.GetContext(ctx, &d, `SELECT * FROM disputes WHERE job_id = $1 AND status = 'open'`, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDisputeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("dispute repository: get open by job %w", err)
	}
	return &d, nil
}

// ListByCustomer возвращает споры заказчика.
func (r *DisputeRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT * FROM disputes WHERE customer_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, customerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: list by customer %w", err)
	}
	return disputes, nil
}

// ResolveParams — всё, что нужно записать при разрешении спора.
type ResolveParams struct {
	DisputeID     uuid.UUID
	JobID         uuid.UUID
	ActorID       uuid.UUID
	Resolution    string
	PayoutPercent *int

	// Денежный исход. При LedgerChanged=false заявка не трогается.
	LedgerChanged  bool
	JobStatus      models.JobStatus
	PlatformFee    int64
	ProviderPayout int64

	// Refund > 0 ставит возврат в очередь.
	RefundCustomerID uuid.UUID
	Refund           int64
	RefundReason     string

	AuditDetails string
}

// Resolve применяет решение по спору атомарно: спор закрывается условным
// UPDATE (guard status='open'), денежная раскладка и статус заявки пишутся
// одной записью, возврат и аудит — в той же транзакции. Повторное
// разрешение отбивается на guard'е.
func (r *DisputeRepository) Resolve(ctx context.Context, p ResolveParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE disputes
		SET status = 'resolved', resolution = $2, resolved_by = $3, payout_percent = $4, resolved_at = NOW()
		WHERE id = $1 AND status = 'open'
	`, p.DisputeID, p.Resolution, p.ActorID, p.PayoutPercent)
	if err != nil {
		return fmt.Errorf("dispute repository: resolve %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM disputes WHERE id = $1)`, p.DisputeID); err != nil {
			return fmt.Errorf("dispute repository: resolve check %w", err)
		}
		if !exists {
			return ErrDisputeNotFound
		}
		return ErrDisputeAlreadyResolved
	}

	if p.LedgerChanged {
		var completedAt *time.Time
		if p.JobStatus == models.JobStatusCompleted {
			now := time.Now()
			completedAt = &now
		}
		res, err = tx.ExecContext(ctx, `
			UPDATE job_requests
			SET status = $2,
			    platform_fee = $3,
			    provider_payout = $4,
			    completed_at = COALESCE($5, completed_at),
			    updated_at = NOW()
			WHERE id = $1 AND status IN ('in_progress', 'pending_completion')
		`, p.JobID, p.JobStatus, p.PlatformFee, p.ProviderPayout, completedAt)
		if err != nil {
			return fmt.Errorf("dispute repository: resolve update job %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return ErrJobNotResolvable
		}
	}

	if p.Refund > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO refund_requests (customer_id, job_id, amount, reason, status)
			VALUES ($1, $2, $3, $4, 'queued')
		`, p.RefundCustomerID, p.JobID, p.Refund, p.RefundReason)
		if err != nil {
			return fmt.Errorf("dispute repository: resolve enqueue refund %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_log (actor_id, action, entity_type, entity_id, details)
		VALUES ($1, 'dispute_resolved', 'dispute', $2, $3)
	`, p.ActorID, p.DisputeID, p.AuditDetails)
	if err != nil {
		return fmt.Errorf("dispute repository: resolve audit %w", err)
	}

	return tx.Commit()
}
