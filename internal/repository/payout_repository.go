package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/lawnlink/lawncare-backend/internal/models"
)

var (
	ErrPayoutNotFound = errors.New("payout not found")
	ErrNothingToPay   = errors.New("no completed jobs awaiting payout")
)

type PayoutRepository struct {
	db *sqlx.DB
}

func NewPayoutRepository(db *sqlx.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

// CreateForProvider собирает пакетную выплату по всем завершённым заявкам
// провайдера, ещё не попавшим ни в одну выплату. Блокировка заявок FOR
// UPDATE плюс уникальный job_id в payout_items исключают двойную оплату
// одной заявки двумя параллельными запусками.
func (r *PayoutRepository) CreateForProvider(ctx context.Context, providerID uuid.UUID) (*models.Payout, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	type payableJob struct {
		ID             uuid.UUID `db:"id"`
		ProviderPayout int64     `db:"provider_payout"`
	}
	var jobs []payableJob
	err = tx.SelectContext(ctx, &jobs, `
		SELECT id, provider_payout FROM job_requests
		WHERE accepted_provider_id = $1 AND status = 'completed'
		  AND provider_payout IS NOT NULL AND provider_payout > 0
		  AND id NOT IN (SELECT job_id FROM payout_items)
		ORDER BY completed_at ASC
		FOR UPDATE OF job_requests
	`, providerID)
	if err != nil {
		return nil, fmt.Errorf("payout repository: select payable jobs %w", err)
	}
	if len(jobs) == 0 {
		return nil, ErrNothingToPay
	}

	var total int64
	for _, j := range jobs {
		total += j.ProviderPayout
	}

	payout := &models.Payout{ProviderID: providerID, Amount: total, Status: models.PayoutStatusPending}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO payouts (provider_id, amount, status)
		VALUES ($1, $2, $3)
		RETURNING id, payout_date, created_at
	`, providerID, total, payout.Status).Scan(&payout.ID, &payout.PayoutDate, &payout.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("payout repository: insert payout %w", err)
	}

	for _, j := range jobs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO payout_items (payout_id, job_id, amount) VALUES ($1, $2, $3)
		`, payout.ID, j.ID, j.ProviderPayout)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				// Заявка уже в другой выплате: гонку выиграл параллельный запуск.
				return nil, fmt.Errorf("payout repository: job %s already paid out %w", j.ID, err)
			}
			return nil, fmt.Errorf("payout repository: insert payout item %w", err)
		}
		payout.JobIDs = append(payout.JobIDs, j.ID)
	}

	return payout, tx.Commit()
}

// GetByID возвращает выплату вместе со списком заявок.
func (r *PayoutRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	var p models.Payout
	err := r.db.GetContext(ctx, &p, `SELECT id, provider_id, amount, status, payout_date, created_at FROM payouts WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPayoutNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("payout repository: get by id %w", err)
	}

	var ids []uuid.UUID
	err = r.db.SelectContext(ctx, &ids, `SELECT job_id FROM payout_items WHERE payout_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("payout repository: get items %w", err)
	}
	p.JobIDs = ids
	return &p, nil
}

// ListByProvider возвращает выплаты провайдера со списками заявок.
func (r *PayoutRepository) ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.Payout, error) {
	var payouts []models.Payout
	err := r.db.SelectContext(ctx, &payouts, `
		SELECT id, provider_id, amount, status, payout_date, created_at FROM payouts
		WHERE provider_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, providerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("payout repository: list by provider %w", err)
	}

	for i := range payouts {
		var ids []uuid.UUID
		err = r.db.SelectContext(ctx, &ids, `SELECT job_id FROM payout_items WHERE payout_id = $1`, payouts[i].ID)
		if err != nil {
			return nil, fmt.Errorf("payout repository: list items %w", err)
		}
		payouts[i].JobIDs = ids
	}
	return payouts, nil
}

// MarkCompleted отмечает выплату проведённой.
func (r *PayoutRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payouts SET status = 'completed' WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return fmt.Errorf("payout repository: mark completed %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrPayoutNotFound
	}
	return nil
}
