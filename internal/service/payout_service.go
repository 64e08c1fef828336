package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/lawnlink/lawncare-backend/internal/models"
	"github.com/lawnlink/lawncare-backend/internal/pkg/apperror"
	"github.com/lawnlink/lawncare-backend/internal/repository"
)

// PayoutStore описывает зависимости PayoutService от слоя хранилища.
type PayoutStore interface {
	CreateForProvider(ctx context.Context, providerID uuid.UUID) (*models.Payout, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.Payout, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) error
}

// AuditStore — журнал административных действий.
type AuditStore interface {
	Record(ctx context.Context, actorID uuid.UUID, action, entityType string, entityID uuid.UUID, details string) error
}

// PayoutService — пакетные выплаты провайдерам по завершённым заявкам.
type PayoutService struct {
	repo  PayoutStore
	audit AuditStore
}

// NewPayoutService создаёт сервис выплат.
func NewPayoutService(repo PayoutStore, audit AuditStore) *PayoutService {
	return &PayoutService{repo: repo, audit: audit}
}

// RunPayout собирает выплату провайдеру по всем завершённым заявкам, ещё не
// попавшим ни в одну выплату. Пустая выборка — конфликт, а не пустая выплата.
func (s *PayoutService) RunPayout(ctx context.Context, providerID uuid.UUID) (*models.Payout, error) {
	payout, err := s.repo.CreateForProvider(ctx, providerID)
	if err != nil {
		if errors.Is(err, repository.ErrNothingToPay) {
			return nil, apperror.Conflict("нет завершённых заявок, ожидающих выплаты")
		}
		return nil, err
	}
	return payout, nil
}

// GetPayout возвращает выплату. Доступна её провайдеру и администратору.
func (s *PayoutService) GetPayout(ctx context.Context, userID uuid.UUID, role string, payoutID uuid.UUID) (*models.Payout, error) {
	payout, err := s.repo.GetByID(ctx, payoutID)
	if err != nil {
		if errors.Is(err, repository.ErrPayoutNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "выплата не найдена")
		}
		return nil, err
	}
	if role != models.RoleAdmin && payout.ProviderID != userID {
		return nil, apperror.ErrForbidden
	}
	return payout, nil
}

// ListProviderPayouts возвращает выплаты провайдера.
func (s *PayoutService) ListProviderPayouts(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.Payout, error) {
	return s.repo.ListByProvider(ctx, providerID, limit, offset)
}

// CompletePayout отмечает выплату проведённой. Административная операция,
// пишется в аудит.
func (s *PayoutService) CompletePayout(ctx context.Context, actorID, payoutID uuid.UUID) error {
	if err := s.repo.MarkCompleted(ctx, payoutID); err != nil {
		if errors.Is(err, repository.ErrPayoutNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "выплата не найдена или уже проведена")
		}
		return err
	}
	return s.audit.Record(ctx, actorID, "payout_completed", "payout", payoutID, "{}")
}
