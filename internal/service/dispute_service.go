package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/lawnlink/lawncare-backend/internal/ledger"
	"github.com/lawnlink/lawncare-backend/internal/metrics"
	"github.com/lawnlink/lawncare-backend/internal/models"
	"github.com/lawnlink/lawncare-backend/internal/pkg/apperror"
	"github.com/lawnlink/lawncare-backend/internal/repository"
	"github.com/lawnlink/lawncare-backend/internal/validation"
)

// DisputeStore описывает зависимости DisputeService от слоя хранилища.
type DisputeStore interface {
	Open(ctx context.Context, d *models.Dispute) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	GetOpenByJobID(ctx context.Context, jobID uuid.UUID) (*models.Dispute, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Dispute, error)
	Resolve(ctx context.Context, p repository.ResolveParams) error
}

// DisputeJobStore — часть хранилища заявок, нужная движку споров.
type DisputeJobStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.JobRequest, error)
}

// DisputeService — открытие споров заказчиком и их разрешение администратором.
// Денежные исходы считает пакет ledger, сервис только собирает параметры
// атомарной записи и побочные эффекты.
type DisputeService struct {
	repo     DisputeStore
	jobs     DisputeJobStore
	notifier Notifier
}

// NewDisputeService создаёт сервис споров.
func NewDisputeService(repo DisputeStore, jobs DisputeJobStore, notifier Notifier) *DisputeService {
	return &DisputeService{repo: repo, jobs: jobs, notifier: notifier}
}

// OpenDispute открывает спор по сданной работе: заявка откатывается в
// in_progress, провайдер получает уведомление. Открыть спор может только
// заказчик заявки и только в статусе pending_completion.
func (s *DisputeService) OpenDispute(ctx context.Context, customerID, jobID uuid.UUID, reason string) (*models.Dispute, error) {
	if err := validation.DisputeReason(reason); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, mapDisputeErr(err)
	}
	if job.CustomerID != customerID {
		return nil, apperror.ErrForbidden
	}

	dispute := &models.Dispute{
		JobID:      jobID,
		CustomerID: customerID,
		Reason:     reason,
		Status:     models.DisputeStatusOpen,
	}
	if err := s.repo.Open(ctx, dispute); err != nil {
		return nil, mapDisputeErr(err)
	}

	if job.AcceptedProviderID != nil {
		s.notifyAsync(NotifyDisputeOpened, *job.AcceptedProviderID, job, map[string]interface{}{
			"reason": reason,
		})
	}
	return dispute, nil
}

// GetDispute возвращает спор. Доступен его заказчику и администратору.
func (s *DisputeService) GetDispute(ctx context.Context, userID uuid.UUID, role string, disputeID uuid.UUID) (*models.Dispute, error) {
	dispute, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		return nil, mapDisputeErr(err)
	}
	if role != models.RoleAdmin && dispute.CustomerID != userID {
		return nil, apperror.ErrForbidden
	}
	return dispute, nil
}

// ListCustomerDisputes возвращает споры заказчика.
func (s *DisputeService) ListCustomerDisputes(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	return s.repo.ListByCustomer(ctx, customerID, limit, offset)
}

// ResolveDispute применяет решение администратора по открытому спору.
//
// Четыре детерминированных исхода:
//   - favor_customer: полный возврат, заявка отменяется;
//   - favor_provider: провайдеру 70%, заявка завершается;
//   - partial: провайдеру payoutPercent (10..80), остаток в возврат;
//   - dismiss: спор закрывается без изменения денег и статуса.
func (s *DisputeService) ResolveDispute(ctx context.Context, actorID, disputeID uuid.UUID, resolution string, payoutPercent *int) (*models.Dispute, error) {
	res := ledger.Resolution(resolution)
	if !res.IsValid() {
		return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("неизвестный тип решения %q", resolution))
	}
	if res == ledger.ResolutionPartial && payoutPercent == nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "для частичного решения требуется процент выплаты")
	}

	dispute, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		return nil, mapDisputeErr(err)
	}
	if dispute.Status != models.DisputeStatusOpen {
		return nil, apperror.Conflict("спор уже разрешён")
	}

	job, err := s.jobs.GetByID(ctx, dispute.JobID)
	if err != nil {
		return nil, mapDisputeErr(err)
	}
	price := job.Price()
	if job.FinalPrice != nil {
		price = *job.FinalPrice
	}

	percent := 0
	if payoutPercent != nil {
		percent = *payoutPercent
	}
	outcome, err := ledger.Resolve(res, price, percent)
	if err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	details, err := json.Marshal(map[string]interface{}{
		"resolution":          resolution,
		"price":               price,
		"platform_fee_before": job.PlatformFee,
		"payout_before":       job.ProviderPayout,
		"platform_fee_after":  outcome.PlatformFee,
		"provider_payout":     outcome.ProviderPayout,
		"refund":              outcome.Refund,
		"payout_percent":      payoutPercent,
	})
	if err != nil {
		return nil, fmt.Errorf("dispute service: marshal audit details %w", err)
	}

	params := repository.ResolveParams{
		DisputeID:     disputeID,
		JobID:         dispute.JobID,
		ActorID:       actorID,
		Resolution:    resolution,
		PayoutPercent: payoutPercent,

		LedgerChanged:  outcome.LedgerChanged,
		JobStatus:      outcome.JobStatus,
		PlatformFee:    outcome.PlatformFee,
		ProviderPayout: outcome.ProviderPayout,

		RefundCustomerID: dispute.CustomerID,
		Refund:           outcome.Refund,
		RefundReason:     fmt.Sprintf("решение по спору %s: %s", disputeID, resolution),

		AuditDetails: string(details),
	}
	if err := s.repo.Resolve(ctx, params); err != nil {
		return nil, mapDisputeErr(err)
	}

	metrics.DisputeResolutionsTotal.WithLabelValues(resolution).Inc()
	if outcome.LedgerChanged {
		metrics.JobTransitionsTotal.WithLabelValues(string(outcome.JobStatus)).Inc()
	}

	extra := map[string]interface{}{"resolution": resolution}
	s.notifyAsync(NotifyDisputeResolved, dispute.CustomerID, job, extra)
	if job.AcceptedProviderID != nil {
		s.notifyAsync(NotifyDisputeResolved, *job.AcceptedProviderID, job, extra)
	}

	return s.repo.GetByID(ctx, disputeID)
}

func (s *DisputeService) notifyAsync(notifyType string, recipientID uuid.UUID, job *models.JobRequest, extra map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	notifyJobEvent(s.notifier, notifyType, recipientID, job, extra)
}

// mapDisputeErr переводит ошибки хранилища в apperror с конкретным guard'ом.
func mapDisputeErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrJobNotFound):
		return apperror.ErrJobNotFound
	case errors.Is(err, repository.ErrDisputeNotFound):
		return apperror.ErrDisputeNotFound
	case errors.Is(err, repository.ErrDisputeAlreadyOpen):
		return apperror.Conflict("по заявке уже открыт спор")
	case errors.Is(err, repository.ErrDisputeAlreadyResolved):
		return apperror.Conflict("спор уже разрешён")
	case errors.Is(err, repository.ErrJobNotPendingComplete):
		return apperror.Conflict("работа ещё не сдана провайдером")
	case errors.Is(err, repository.ErrJobNotResolvable):
		return apperror.Conflict("заявка не в спорном статусе")
	}
	return err
}
