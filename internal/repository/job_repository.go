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
	ErrJobNotFound           = errors.New("job request not found")
	ErrProposalNotFound      = errors.New("proposal not found")
	ErrPaymentNotPending     = errors.New("payment already settled")
	ErrProposalNotPending    = errors.New("proposal is not pending")
	ErrJobNotAcceptingBids   = errors.New("job is not accepting proposals")
	ErrJobNotAccepted        = errors.New("job is not in accepted status or not paid")
	ErrJobNotInProgress      = errors.New("job is not in progress")
	ErrJobNotPendingComplete = errors.New("job is not pending completion")
	ErrNoCompletionPhoto     = errors.New("completion photo required")
	ErrDuplicateProposal     = errors.New("provider already has a proposal for this job")
)

const jobColumns = `id, customer_id, title, description, job_type, lawn_size, parish, address,
	scheduled_at, base_price, customer_offer, final_price, platform_fee, provider_payout,
	status, payment_status, payment_reference, payment_confirmed_at, accepted_provider_id,
	provider_completed_at, completed_at, created_at, updated_at`

type JobRepository struct {
	db *sqlx.DB
}

func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create сохраняет новую заявку со статусами open/pending.
func (r *JobRepository) Create(ctx context.Context, job *models.JobRequest) error {
	query := `
		INSERT INTO job_requests (customer_id, title, description, job_type, lawn_size, parish,
			address, scheduled_at, base_price, customer_offer, status, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		job.CustomerID, job.Title, job.Description, job.JobType, job.LawnSize, job.Parish,
		job.Address, job.ScheduledAt, job.BasePrice, job.CustomerOffer,
		job.Status, job.PaymentStatus,
	).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("job repository: create %w", err)
	}
	return nil
}

// GetByID возвращает заявку по идентификатору.
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.JobRequest, error) {
	var job models.JobRequest
	err := r.db.GetContext(ctx, &job, `SELECT `+jobColumns+` FROM job_requests WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("job repository: get by id %w", err)
	}
	return &job, nil
}

// ListOpen возвращает открытые оплаченные заявки, опционально по приходу.
func (r *JobRepository) ListOpen(ctx context.Context, parish string, limit, offset int) ([]models.JobRequest, error) {
	var jobs []models.JobRequest
	query := `
		SELECT ` + jobColumns + ` FROM job_requests
		WHERE status IN ('open', 'in_negotiation') AND payment_status = 'paid'
		  AND ($1 = '' OR parish = $1)
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`
	err := r.db.SelectContext(ctx, &jobs, query, parish, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("job repository: list open %w", err)
	}
	return jobs, nil
}

// ListByCustomer возвращает заявки заказчика.
func (r *JobRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.JobRequest, error) {
	var jobs []models.JobRequest
	err := r.db.SelectContext(ctx, &jobs, `
		SELECT `+jobColumns+` FROM job_requests
		WHERE customer_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, customerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("job repository: list by customer %w", err)
	}
	return jobs, nil
}

// ListByProvider возвращает заявки, закреплённые за провайдером.
func (r *JobRepository) ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.JobRequest, error) {
	var jobs []models.JobRequest
	err := r.db.SelectContext(ctx, &jobs, `
		SELECT `+jobColumns+` FROM job_requests
		WHERE accepted_provider_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, providerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("job repository: list by provider %w", err)
	}
	return jobs, nil
}

// MarkPaid применяет переход pending -> paid условным UPDATE: предусловие
// payment_status = 'pending' перепроверяется в момент записи, что закрывает
// гонку двух параллельных подтверждений. Ноль строк — ErrPaymentNotPending.
// Если цена ещё не зафиксирована, той же записью фиксируется direct-pay
// раскладка (COALESCE не перетирает уже установленные значения).
func (r *JobRepository) MarkPaid(ctx context.Context, jobID uuid.UUID, transactionRef string, finalPrice, platformFee, providerPayout int64) (*models.JobRequest, error) {
	var job models.JobRequest
	query := `
		UPDATE job_requests
		SET payment_status = 'paid',
		    payment_reference = $2,
		    payment_confirmed_at = NOW(),
		    final_price = COALESCE(final_price, $3),
		    platform_fee = COALESCE(platform_fee, $4),
		    provider_payout = COALESCE(provider_payout, $5),
		    updated_at = NOW()
		WHERE id = $1 AND payment_status = 'pending'
		RETURNING ` + jobColumns + `
	`
	err := r.db.GetContext(ctx, &job, query, jobID, transactionRef, finalPrice, platformFee, providerPayout)
	if errors.Is(err, sql.ErrNoRows) {
		// Либо заявки нет, либо оплата уже не pending — различаем для вызывающего.
		if _, getErr := r.GetByID(ctx, jobID); getErr != nil {
			return nil, getErr
		}
		return nil, ErrPaymentNotPending
	}
	if err != nil {
		return nil, fmt.Errorf("job repository: mark paid %w", err)
	}
	return &job, nil
}

// MarkPaymentFailed применяет переход pending -> failed с тем же условным guard'ом.
func (r *JobRepository) MarkPaymentFailed(ctx context.Context, jobID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE job_requests SET payment_status = 'failed', updated_at = NOW()
		WHERE id = $1 AND payment_status = 'pending'
	`, jobID)
	if err != nil {
		return fmt.Errorf("job repository: mark payment failed %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		if _, getErr := r.GetByID(ctx, jobID); getErr != nil {
			return getErr
		}
		return ErrPaymentNotPending
	}
	return nil
}

// CreateProposal сохраняет предложение провайдера. Первое предложение
// переводит заявку open -> in_negotiation в той же транзакции.
func (r *JobRepository) CreateProposal(ctx context.Context, proposal *models.Proposal) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status models.JobStatus
	err = tx.GetContext(ctx, &status, `SELECT status FROM job_requests WHERE id = $1 FOR UPDATE`, proposal.JobID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("job repository: create proposal lock job %w", err)
	}
	if status != models.JobStatusOpen && status != models.JobStatusInNegotiation {
		return ErrJobNotAcceptingBids
	}

	err = tx.GetContext(ctx, proposal, `
		INSERT INTO proposals (job_id, provider_id, message, proposed_price, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, job_id, provider_id, message, proposed_price, status, created_at, updated_at
	`, proposal.JobID, proposal.ProviderID, proposal.Message, proposal.ProposedPrice, proposal.Status)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateProposal
		}
		return fmt.Errorf("job repository: create proposal %w", err)
	}

	if status == models.JobStatusOpen {
		_, err = tx.ExecContext(ctx, `
			UPDATE job_requests SET status = 'in_negotiation', updated_at = NOW()
			WHERE id = $1 AND status = 'open'
		`, proposal.JobID)
		if err != nil {
			return fmt.Errorf("job repository: create proposal advance status %w", err)
		}
	}

	return tx.Commit()
}

// GetProposalByID возвращает предложение.
func (r *JobRepository) GetProposalByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	var p models.Proposal
	err := r.db.GetContext(ctx, &p, `SELECT * FROM proposals WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProposalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("job repository: get proposal %w", err)
	}
	return &p, nil
}

// ListProposals возвращает предложения по заявке.
func (r *JobRepository) ListProposals(ctx context.Context, jobID uuid.UUID) ([]models.Proposal, error) {
	var proposals []models.Proposal
	err := r.db.SelectContext(ctx, &proposals, `
		SELECT * FROM proposals WHERE job_id = $1 ORDER BY created_at ASC
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("job repository: list proposals %w", err)
	}
	return proposals, nil
}

// AcceptProposal атомарно принимает предложение: фиксирует цену и раскладку
// комиссии на заявке, отклоняет все остальные предложения. Guard'ы по
// статусам перепроверяются внутри транзакции.
func (r *JobRepository) AcceptProposal(ctx context.Context, jobID, proposalID, providerID uuid.UUID, finalPrice, platformFee, providerPayout int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Блокируем заявку на время всей операции.
	var status models.JobStatus
	err = tx.GetContext(ctx, &status, `SELECT status FROM job_requests WHERE id = $1 FOR UPDATE`, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("job repository: accept proposal lock job %w", err)
	}
	if status != models.JobStatusOpen && status != models.JobStatusInNegotiation {
		return ErrJobNotAcceptingBids
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE proposals SET status = 'accepted', updated_at = NOW()
		WHERE id = $1 AND job_id = $2 AND status = 'pending'
	`, proposalID, jobID)
	if err != nil {
		return fmt.Errorf("job repository: accept proposal %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrProposalNotPending
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE proposals SET status = 'rejected', updated_at = NOW()
		WHERE job_id = $1 AND id <> $2 AND status = 'pending'
	`, jobID, proposalID)
	if err != nil {
		return fmt.Errorf("job repository: reject sibling proposals %w", err)
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE job_requests
		SET status = 'accepted',
		    accepted_provider_id = $2,
		    final_price = $3,
		    platform_fee = $4,
		    provider_payout = $5,
		    updated_at = NOW()
		WHERE id = $1 AND status IN ('open', 'in_negotiation')
	`, jobID, providerID, finalPrice, platformFee, providerPayout)
	if err != nil {
		return fmt.Errorf("job repository: accept proposal update job %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrJobNotAcceptingBids
	}

	return tx.Commit()
}

// StartWork применяет явный переход accepted -> in_progress.
// Guard: заявка оплачена и закреплена за этим провайдером.
func (r *JobRepository) StartWork(ctx context.Context, jobID, providerID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE job_requests SET status = 'in_progress', updated_at = NOW()
		WHERE id = $1 AND accepted_provider_id = $2
		  AND status = 'accepted' AND payment_status = 'paid'
	`, jobID, providerID)
	if err != nil {
		return fmt.Errorf("job repository: start work %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		if _, getErr := r.GetByID(ctx, jobID); getErr != nil {
			return getErr
		}
		return ErrJobNotAccepted
	}
	return nil
}

// CompleteByProvider отмечает работу выполненной: in_progress ->
// pending_completion. Требует хотя бы одно фото завершения. Если по заявке
// открыт спор, повторная сдача работы закрывает его как resolved.
// Возвращает true, если спор был закрыт.
func (r *JobRepository) CompleteByProvider(ctx context.Context, jobID, providerID uuid.UUID) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var photoCount int
	err = tx.GetContext(ctx, &photoCount, `
		SELECT COUNT(*) FROM job_photos WHERE job_id = $1 AND kind = 'completion'
	`, jobID)
	if err != nil {
		return false, fmt.Errorf("job repository: count completion photos %w", err)
	}
	if photoCount == 0 {
		return false, ErrNoCompletionPhoto
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE job_requests
		SET status = 'pending_completion', provider_completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND accepted_provider_id = $2 AND status = 'in_progress'
	`, jobID, providerID)
	if err != nil {
		return false, fmt.Errorf("job repository: complete by provider %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		if _, getErr := r.GetByID(ctx, jobID); getErr != nil {
			return false, getErr
		}
		return false, ErrJobNotInProgress
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE disputes
		SET status = 'resolved', resolution = 'resubmitted', resolved_at = NOW()
		WHERE job_id = $1 AND status = 'open'
	`, jobID)
	if err != nil {
		return false, fmt.Errorf("job repository: resolve dispute on resubmission %w", err)
	}
	resolved, _ := res.RowsAffected()

	return resolved > 0, tx.Commit()
}

// ConfirmCompletion применяет переход pending_completion -> completed.
func (r *JobRepository) ConfirmCompletion(ctx context.Context, jobID, customerID uuid.UUID) (*models.JobRequest, error) {
	var job models.JobRequest
	query := `
		UPDATE job_requests
		SET status = 'completed', completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND customer_id = $2 AND status = 'pending_completion'
		RETURNING ` + jobColumns + `
	`
	err := r.db.GetContext(ctx, &job, query, jobID, customerID)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, jobID); getErr != nil {
			return nil, getErr
		}
		return nil, ErrJobNotPendingComplete
	}
	if err != nil {
		return nil, fmt.Errorf("job repository: confirm completion %w", err)
	}
	return &job, nil
}

// AddPhoto сохраняет метаданные фото по заявке.
func (r *JobRepository) AddPhoto(ctx context.Context, photo *models.JobPhoto) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO job_photos (job_id, user_id, kind, url)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, photo.JobID, photo.UserID, photo.Kind, photo.URL).Scan(&photo.ID, &photo.CreatedAt)
	if err != nil {
		return fmt.Errorf("job repository: add photo %w", err)
	}
	return nil
}

// ListPhotos возвращает фото по заявке.
func (r *JobRepository) ListPhotos(ctx context.Context, jobID uuid.UUID) ([]models.JobPhoto, error) {
	var photos []models.JobPhoto
	err := r.db.SelectContext(ctx, &photos, `
		SELECT * FROM job_photos WHERE job_id = $1 ORDER BY created_at ASC
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("job repository: list photos %w", err)
	}
	return photos, nil
}

// SweepCompleted удаляет завершённые заявки старше cutoff вместе с
// зависимыми строками: фото, предложения и споры уходят по ON DELETE CASCADE,
// отметки идемпотентности processed_webhooks не связаны FK и удаляются тем же
// запросом. Инвойсы, возвраты и аудит не ссылаются на заявку и остаются
// нетронутыми. Возвращает идентификаторы удалённых заявок.
func (r *JobRepository) SweepCompleted(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, `
		WITH purged AS (
			DELETE FROM job_requests
			WHERE status = 'completed' AND completed_at IS NOT NULL AND completed_at < $1
			RETURNING id
		), marks AS (
			DELETE FROM processed_webhooks
			WHERE job_id IN (SELECT id FROM purged)
		)
		SELECT id FROM purged
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("job repository: sweep completed %w", err)
	}
	return ids, nil
}
