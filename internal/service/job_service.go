package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lawnlink/lawncare-backend/internal/ledger"
	"github.com/lawnlink/lawncare-backend/internal/logger"
	"github.com/lawnlink/lawncare-backend/internal/metrics"
	"github.com/lawnlink/lawncare-backend/internal/models"
	"github.com/lawnlink/lawncare-backend/internal/pkg/apperror"
	"github.com/lawnlink/lawncare-backend/internal/repository"
	"github.com/lawnlink/lawncare-backend/internal/validation"
)

// JobStore описывает зависимости JobService от слоя хранилища.
type JobStore interface {
	Create(ctx context.Context, job *models.JobRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.JobRequest, error)
	ListOpen(ctx context.Context, parish string, limit, offset int) ([]models.JobRequest, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.JobRequest, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.JobRequest, error)
	CreateProposal(ctx context.Context, proposal *models.Proposal) error
	GetProposalByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	ListProposals(ctx context.Context, jobID uuid.UUID) ([]models.Proposal, error)
	AcceptProposal(ctx context.Context, jobID, proposalID, providerID uuid.UUID, finalPrice, platformFee, providerPayout int64) error
	StartWork(ctx context.Context, jobID, providerID uuid.UUID) error
	CompleteByProvider(ctx context.Context, jobID, providerID uuid.UUID) (bool, error)
	ConfirmCompletion(ctx context.Context, jobID, customerID uuid.UUID) (*models.JobRequest, error)
	AddPhoto(ctx context.Context, photo *models.JobPhoto) error
	ListPhotos(ctx context.Context, jobID uuid.UUID) ([]models.JobPhoto, error)
}

// Notifier — контракт фоновой рассылки уведомлений.
type Notifier interface {
	Notify(ctx context.Context, notifyType string, recipientID, jobID uuid.UUID, jobTitle string, extra map[string]interface{}) error
}

// JobService — оркестрация жизненного цикла заявки: создание, торги,
// принятие предложения, выполнение и подтверждение работ. Сами переходы
// статусов охраняются условными UPDATE в хранилище, сервис отвечает за
// валидацию входа, права доступа, расчёт раскладки и побочные эффекты.
type JobService struct {
	repo     JobStore
	notifier Notifier
}

// NewJobService создаёт сервис заявок.
func NewJobService(repo JobStore, notifier Notifier) *JobService {
	return &JobService{repo: repo, notifier: notifier}
}

// CreateJobInput содержит данные заявки при создании.
type CreateJobInput struct {
	Title         string
	Description   string
	JobType       string
	LawnSize      string
	Parish        string
	Address       string
	ScheduledAt   time.Time
	CustomerOffer *int64
}

// CreateJob создаёт заявку в статусе open с ожиданием оплаты.
// Каталожная цена считается по размеру участка и типу работ; customer_offer,
// если задан, не может быть ниже каталожной цены.
func (s *JobService) CreateJob(ctx context.Context, customerID uuid.UUID, in CreateJobInput) (*models.JobRequest, error) {
	if err := validation.JobTitle(in.Title); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.JobDescription(in.Description); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.Parish(in.Parish); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ScheduledDate(in.ScheduledAt); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	basePrice, ok := models.BasePrice(in.LawnSize, in.JobType)
	if !ok {
		return nil, apperror.New(apperror.ErrCodeValidation,
			fmt.Sprintf("неизвестная комбинация типа работ %q и размера участка %q", in.JobType, in.LawnSize))
	}

	if in.CustomerOffer != nil {
		if err := validation.Price(*in.CustomerOffer); err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
		}
		if *in.CustomerOffer < basePrice {
			return nil, apperror.New(apperror.ErrCodeValidation,
				fmt.Sprintf("предложенная цена %d ниже каталожной %d", *in.CustomerOffer, basePrice))
		}
	}

	job := &models.JobRequest{
		CustomerID:    customerID,
		Title:         in.Title,
		Description:   in.Description,
		JobType:       in.JobType,
		LawnSize:      in.LawnSize,
		Parish:        in.Parish,
		Address:       in.Address,
		ScheduledAt:   in.ScheduledAt,
		BasePrice:     basePrice,
		CustomerOffer: in.CustomerOffer,
		Status:        models.JobStatusOpen,
		PaymentStatus: models.PaymentStatusPending,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, err
	}

	metrics.JobTransitionsTotal.WithLabelValues(string(models.JobStatusOpen)).Inc()
	return job, nil
}

// GetJob возвращает заявку с фотографиями.
func (s *JobService) GetJob(ctx context.Context, id uuid.UUID) (*models.JobRequest, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapJobErr(err)
	}
	photos, err := s.repo.ListPhotos(ctx, id)
	if err != nil {
		logger.WithJob(id).WithError(err).Warn("не удалось загрузить фото заявки")
	} else {
		job.Photos = photos
	}
	return job, nil
}

// ListOpenJobs возвращает доску открытых оплаченных заявок для провайдеров.
func (s *JobService) ListOpenJobs(ctx context.Context, parish string, limit, offset int) ([]models.JobRequest, error) {
	if parish != "" {
		if err := validation.Parish(parish); err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
		}
	}
	return s.repo.ListOpen(ctx, parish, limit, offset)
}

// ListCustomerJobs возвращает заявки заказчика.
func (s *JobService) ListCustomerJobs(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.JobRequest, error) {
	return s.repo.ListByCustomer(ctx, customerID, limit, offset)
}

// ListProviderJobs возвращает заявки, закреплённые за провайдером.
func (s *JobService) ListProviderJobs(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.JobRequest, error) {
	return s.repo.ListByProvider(ctx, providerID, limit, offset)
}

// CreateProposal создаёт предложение провайдера по заявке.
// Разрешено только в статусах open/in_negotiation; у провайдера может быть
// не больше одного предложения на заявку.
func (s *JobService) CreateProposal(ctx context.Context, providerID, jobID uuid.UUID, message string, proposedPrice int64) (*models.Proposal, error) {
	if err := validation.Price(proposedPrice); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if len(message) > validation.MaxProposalMessageLen {
		return nil, apperror.New(apperror.ErrCodeValidation,
			fmt.Sprintf("сообщение не может быть длиннее %d символов", validation.MaxProposalMessageLen))
	}

	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, mapJobErr(err)
	}
	if job.CustomerID == providerID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "нельзя подать предложение на собственную заявку")
	}

	proposal := &models.Proposal{
		JobID:         jobID,
		ProviderID:    providerID,
		Message:       message,
		ProposedPrice: proposedPrice,
		Status:        models.ProposalStatusPending,
	}
	if err := s.repo.CreateProposal(ctx, proposal); err != nil {
		return nil, mapJobErr(err)
	}
	return proposal, nil
}

// ListProposals возвращает предложения по заявке. Доступно только её заказчику.
func (s *JobService) ListProposals(ctx context.Context, customerID, jobID uuid.UUID) ([]models.Proposal, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, mapJobErr(err)
	}
	if job.CustomerID != customerID {
		return nil, apperror.ErrForbidden
	}
	return s.repo.ListProposals(ctx, jobID)
}

// AcceptProposal принимает предложение провайдера: фиксирует итоговую цену
// по предложению, раскладывает её на комиссию платформы и выплату провайдеру
// (90/10) и отклоняет остальные предложения.
func (s *JobService) AcceptProposal(ctx context.Context, customerID, jobID, proposalID uuid.UUID) (*models.JobRequest, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, mapJobErr(err)
	}
	if job.CustomerID != customerID {
		return nil, apperror.ErrForbidden
	}

	proposal, err := s.repo.GetProposalByID(ctx, proposalID)
	if err != nil {
		return nil, mapJobErr(err)
	}
	if proposal.JobID != jobID {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "предложение относится к другой заявке")
	}

	platformFee, providerPayout := ledger.AcceptanceSplit(proposal.ProposedPrice)
	err = s.repo.AcceptProposal(ctx, jobID, proposalID, proposal.ProviderID, proposal.ProposedPrice, platformFee, providerPayout)
	if err != nil {
		return nil, mapJobErr(err)
	}

	metrics.JobTransitionsTotal.WithLabelValues(string(models.JobStatusAccepted)).Inc()
	s.notifyAsync(NotifyProposalAccepted, proposal.ProviderID, job, map[string]interface{}{
		"final_price":     proposal.ProposedPrice,
		"provider_payout": providerPayout,
	})

	return s.repo.GetByID(ctx, jobID)
}

// StartWork — явный переход accepted -> in_progress по инициативе провайдера.
// Guard: заявка закреплена за ним и оплачена.
func (s *JobService) StartWork(ctx context.Context, providerID, jobID uuid.UUID) (*models.JobRequest, error) {
	if err := s.repo.StartWork(ctx, jobID, providerID); err != nil {
		return nil, mapJobErr(err)
	}
	metrics.JobTransitionsTotal.WithLabelValues(string(models.JobStatusInProgress)).Inc()
	return s.repo.GetByID(ctx, jobID)
}

// CompleteByProvider отмечает работу выполненной со стороны провайдера:
// in_progress -> pending_completion. Требует фото завершения. Если по заявке
// был открыт спор, повторная сдача закрывает его.
func (s *JobService) CompleteByProvider(ctx context.Context, providerID, jobID uuid.UUID) (*models.JobRequest, error) {
	disputeResolved, err := s.repo.CompleteByProvider(ctx, jobID, providerID)
	if err != nil {
		return nil, mapJobErr(err)
	}
	metrics.JobTransitionsTotal.WithLabelValues(string(models.JobStatusPendingCompletion)).Inc()

	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, mapJobErr(err)
	}

	s.notifyAsync(NotifyCompletionPending, job.CustomerID, job, nil)
	if disputeResolved {
		s.notifyAsync(NotifyDisputeResolved, job.CustomerID, job, map[string]interface{}{
			"resolution": "resubmitted",
		})
	}
	return job, nil
}

// ConfirmCompletion — подтверждение работ заказчиком: pending_completion ->
// completed. С этого момента выплата провайдера становится доступной к выводу.
func (s *JobService) ConfirmCompletion(ctx context.Context, customerID, jobID uuid.UUID) (*models.JobRequest, error) {
	job, err := s.repo.ConfirmCompletion(ctx, jobID, customerID)
	if err != nil {
		return nil, mapJobErr(err)
	}
	metrics.JobTransitionsTotal.WithLabelValues(string(models.JobStatusCompleted)).Inc()

	if job.AcceptedProviderID != nil {
		s.notifyAsync(NotifyJobCompleted, *job.AcceptedProviderID, job, map[string]interface{}{
			"provider_payout": job.ProviderPayout,
		})
	}
	return job, nil
}

// AddPhoto прикрепляет фото к заявке. Фото "до" загружает заказчик,
// фото завершения — закреплённый провайдер.
func (s *JobService) AddPhoto(ctx context.Context, userID, jobID uuid.UUID, kind, url string) (*models.JobPhoto, error) {
	if kind != models.JobPhotoKindBefore && kind != models.JobPhotoKindCompletion {
		return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("недопустимый вид фото %q", kind))
	}
	if url == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "ссылка на фото обязательна")
	}

	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, mapJobErr(err)
	}
	switch kind {
	case models.JobPhotoKindBefore:
		if job.CustomerID != userID {
			return nil, apperror.ErrForbidden
		}
	case models.JobPhotoKindCompletion:
		if job.AcceptedProviderID == nil || *job.AcceptedProviderID != userID {
			return nil, apperror.ErrForbidden
		}
	}

	photo := &models.JobPhoto{JobID: jobID, UserID: userID, Kind: kind, URL: url}
	if err := s.repo.AddPhoto(ctx, photo); err != nil {
		return nil, err
	}
	return photo, nil
}

func (s *JobService) notifyAsync(notifyType string, recipientID uuid.UUID, job *models.JobRequest, extra map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	notifyJobEvent(s.notifier, notifyType, recipientID, job, extra)
}

// mapJobErr переводит ошибки хранилища в apperror с конкретным guard'ом.
func mapJobErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrJobNotFound):
		return apperror.ErrJobNotFound
	case errors.Is(err, repository.ErrProposalNotFound):
		return apperror.ErrProposalNotFound
	case errors.Is(err, repository.ErrPaymentNotPending):
		return apperror.Conflict("оплата по заявке уже зафиксирована")
	case errors.Is(err, repository.ErrProposalNotPending):
		return apperror.Conflict("предложение уже рассмотрено")
	case errors.Is(err, repository.ErrJobNotAcceptingBids):
		return apperror.Conflict("заявка больше не принимает предложения")
	case errors.Is(err, repository.ErrJobNotAccepted):
		return apperror.Conflict("работа не закреплена за провайдером или не оплачена")
	case errors.Is(err, repository.ErrJobNotInProgress):
		return apperror.Conflict("работа по заявке не ведётся")
	case errors.Is(err, repository.ErrJobNotPendingComplete):
		return apperror.Conflict("работа ещё не сдана провайдером")
	case errors.Is(err, repository.ErrNoCompletionPhoto):
		return apperror.Conflict("для сдачи работы требуется фото завершения")
	case errors.Is(err, repository.ErrDuplicateProposal):
		return apperror.Conflict("у провайдера уже есть предложение по этой заявке")
	}
	return err
}
