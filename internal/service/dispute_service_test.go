package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/lawnlink/lawncare-backend/internal/models"
	"github.com/lawnlink/lawncare-backend/internal/pkg/apperror"
	"github.com/lawnlink/lawncare-backend/internal/repository"
	"github.com/lawnlink/lawncare-backend/internal/service"
)

type mockDisputeStore struct {
	disputes    map[uuid.UUID]*models.Dispute
	lastResolve *repository.ResolveParams
}

func newMockDisputeStore() *mockDisputeStore {
	return &mockDisputeStore{disputes: make(map[uuid.UUID]*models.Dispute)}
}

func (m *mockDisputeStore) Open(ctx context.Context, d *models.Dispute) error {
	for _, existing := range m.disputes {
		if existing.JobID == d.JobID && existing.Status == models.DisputeStatusOpen {
			return repository.ErrDisputeAlreadyOpen
		}
	}
	d.ID = uuid.New()
	m.disputes[d.ID] = d
	return nil
}

func (m *mockDisputeStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	if d, ok := m.disputes[id]; ok {
		copied := *d
		return &copied, nil
	}
	return nil, repository.ErrDisputeNotFound
}

func (m *mockDisputeStore) GetOpenByJobID(ctx context.Context, jobID uuid.UUID) (*models.Dispute, error) {
	for _, d := range m.disputes {
		if d.JobID == jobID && d.Status == models.DisputeStatusOpen {
			copied := *d
			return &copied, nil
		}
	}
	return nil, repository.ErrDisputeNotFound
}

func (m *mockDisputeStore) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	var out []models.Dispute
	for _, d := range m.disputes {
		if d.CustomerID == customerID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockDisputeStore) Resolve(ctx context.Context, p repository.ResolveParams) error {
	d, ok := m.disputes[p.DisputeID]
	if !ok {
		return repository.ErrDisputeNotFound
	}
	if d.Status != models.DisputeStatusOpen {
		return repository.ErrDisputeAlreadyResolved
	}
	d.Status = models.DisputeStatusResolved
	d.Resolution = &p.Resolution
	m.lastResolve = &p
	return nil
}

type mockDisputeJobStore struct {
	job *models.JobRequest
}

func (m *mockDisputeJobStore) GetByID(ctx context.Context, id uuid.UUID) (*models.JobRequest, error) {
	if m.job == nil || m.job.ID != id {
		return nil, repository.ErrJobNotFound
	}
	copied := *m.job
	return &copied, nil
}

func disputedJob() *models.JobRequest {
	providerID := uuid.New()
	finalPrice := int64(20000)
	fee := int64(2000)
	payout := int64(18000)
	return &models.JobRequest{
		ID:                 uuid.New(),
		CustomerID:         uuid.New(),
		Title:              "Стрижка живой изгороди",
		Status:             models.JobStatusPendingCompletion,
		PaymentStatus:      models.PaymentStatusPaid,
		AcceptedProviderID: &providerID,
		BasePrice:          15000,
		FinalPrice:         &finalPrice,
		PlatformFee:        &fee,
		ProviderPayout:     &payout,
	}
}

func TestDisputeService_OpenDispute(t *testing.T) {
	store := newMockDisputeStore()
	jobs := &mockDisputeJobStore{job: disputedJob()}
	svc := service.NewDisputeService(store, jobs, nil)

	dispute, err := svc.OpenDispute(context.Background(), jobs.job.CustomerID, jobs.job.ID, "трава не скошена")
	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusOpen, dispute.Status)
	assert.Equal(t, jobs.job.ID, dispute.JobID)
}

func TestDisputeService_OpenDispute_NotOwner(t *testing.T) {
	store := newMockDisputeStore()
	jobs := &mockDisputeJobStore{job: disputedJob()}
	svc := service.NewDisputeService(store, jobs, nil)

	_, err := svc.OpenDispute(context.Background(), uuid.New(), jobs.job.ID, "трава не скошена")
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestDisputeService_OpenDispute_EmptyReason(t *testing.T) {
	store := newMockDisputeStore()
	jobs := &mockDisputeJobStore{job: disputedJob()}
	svc := service.NewDisputeService(store, jobs, nil)

	_, err := svc.OpenDispute(context.Background(), jobs.job.CustomerID, jobs.job.ID, "")
	assert.True(t, apperror.IsValidation(err))
}

func TestDisputeService_OpenDispute_SecondOpenRejected(t *testing.T) {
	store := newMockDisputeStore()
	jobs := &mockDisputeJobStore{job: disputedJob()}
	svc := service.NewDisputeService(store, jobs, nil)

	_, err := svc.OpenDispute(context.Background(), jobs.job.CustomerID, jobs.job.ID, "первый спор")
	assert.NoError(t, err)

	_, err = svc.OpenDispute(context.Background(), jobs.job.CustomerID, jobs.job.ID, "второй спор")
	assert.True(t, apperror.IsConflict(err))
}

func openDisputeFixture(t *testing.T, store *mockDisputeStore, jobs *mockDisputeJobStore) *models.Dispute {
	t.Helper()
	d := &models.Dispute{
		JobID:      jobs.job.ID,
		CustomerID: jobs.job.CustomerID,
		Reason:     "работа не выполнена",
		Status:     models.DisputeStatusOpen,
	}
	assert.NoError(t, store.Open(context.Background(), d))
	return d
}

func TestDisputeService_Resolve_FavorCustomer(t *testing.T) {
	store := newMockDisputeStore()
	jobs := &mockDisputeJobStore{job: disputedJob()}
	svc := service.NewDisputeService(store, jobs, nil)
	d := openDisputeFixture(t, store, jobs)

	resolved, err := svc.ResolveDispute(context.Background(), uuid.New(), d.ID, "favor_customer", nil)
	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusResolved, resolved.Status)

	p := store.lastResolve
	assert.True(t, p.LedgerChanged)
	assert.Equal(t, models.JobStatusCancelled, p.JobStatus)
	assert.Equal(t, int64(0), p.PlatformFee)
	assert.Equal(t, int64(0), p.ProviderPayout)
	assert.Equal(t, int64(20000), p.Refund)
	assert.Equal(t, jobs.job.CustomerID, p.RefundCustomerID)
}

func TestDisputeService_Resolve_FavorProvider(t *testing.T) {
	store := newMockDisputeStore()
	jobs := &mockDisputeJobStore{job: disputedJob()}
	svc := service.NewDisputeService(store, jobs, nil)
	d := openDisputeFixture(t, store, jobs)

	_, err := svc.ResolveDispute(context.Background(), uuid.New(), d.ID, "favor_provider", nil)
	assert.NoError(t, err)

	p := store.lastResolve
	assert.Equal(t, models.JobStatusCompleted, p.JobStatus)
	assert.Equal(t, int64(14000), p.ProviderPayout)
	assert.Equal(t, int64(6000), p.PlatformFee)
	assert.Equal(t, int64(0), p.Refund)
}

func TestDisputeService_Resolve_Partial(t *testing.T) {
	store := newMockDisputeStore()
	jobs := &mockDisputeJobStore{job: disputedJob()}
	svc := service.NewDisputeService(store, jobs, nil)
	d := openDisputeFixture(t, store, jobs)

	percent := 40
	_, err := svc.ResolveDispute(context.Background(), uuid.New(), d.ID, "partial", &percent)
	assert.NoError(t, err)

	p := store.lastResolve
	assert.Equal(t, int64(8000), p.ProviderPayout)
	assert.Equal(t, int64(12000), p.PlatformFee)
	assert.Equal(t, int64(12000), p.Refund)
	assert.Equal(t, int64(20000), p.PlatformFee+p.ProviderPayout)
}

func TestDisputeService_Resolve_Partial_RequiresPercent(t *testing.T) {
	store := newMockDisputeStore()
	jobs := &mockDisputeJobStore{job: disputedJob()}
	svc := service.NewDisputeService(store, jobs, nil)
	d := openDisputeFixture(t, store, jobs)

	_, err := svc.ResolveDispute(context.Background(), uuid.New(), d.ID, "partial", nil)
	assert.True(t, apperror.IsValidation(err))

	percent := 95
	_, err = svc.ResolveDispute(context.Background(), uuid.New(), d.ID, "partial", &percent)
	assert.True(t, apperror.IsValidation(err))
}

func TestDisputeService_Resolve_Dismiss(t *testing.T) {
	store := newMockDisputeStore()
	jobs := &mockDisputeJobStore{job: disputedJob()}
	svc := service.NewDisputeService(store, jobs, nil)
	d := openDisputeFixture(t, store, jobs)

	resolved, err := svc.ResolveDispute(context.Background(), uuid.New(), d.ID, "dismiss", nil)
	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusResolved, resolved.Status)

	p := store.lastResolve
	assert.False(t, p.LedgerChanged, "dismiss не трогает деньги и статус заявки")
	assert.Equal(t, int64(0), p.Refund)
}

func TestDisputeService_Resolve_TwiceRejected(t *testing.T) {
	store := newMockDisputeStore()
	jobs := &mockDisputeJobStore{job: disputedJob()}
	svc := service.NewDisputeService(store, jobs, nil)
	d := openDisputeFixture(t, store, jobs)

	_, err := svc.ResolveDispute(context.Background(), uuid.New(), d.ID, "dismiss", nil)
	assert.NoError(t, err)

	_, err = svc.ResolveDispute(context.Background(), uuid.New(), d.ID, "favor_customer", nil)
	assert.True(t, apperror.IsConflict(err))
}

func TestDisputeService_Resolve_UnknownResolution(t *testing.T) {
	store := newMockDisputeStore()
	jobs := &mockDisputeJobStore{job: disputedJob()}
	svc := service.NewDisputeService(store, jobs, nil)
	d := openDisputeFixture(t, store, jobs)

	_, err := svc.ResolveDispute(context.Background(), uuid.New(), d.ID, "coin_flip", nil)
	assert.True(t, apperror.IsValidation(err))
}
