package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/lawnlink/lawncare-backend/internal/service"
)

type mockRetentionStore struct {
	mu         sync.Mutex
	ids        []uuid.UUID
	lastCutoff time.Time
	calls      int
	block      chan struct{}
}

func (m *mockRetentionStore) SweepCompleted(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	m.mu.Lock()
	m.calls++
	m.lastCutoff = cutoff
	block := m.block
	m.mu.Unlock()
	if block != nil {
		<-block
	}
	return m.ids, nil
}

func (m *mockRetentionStore) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestRetentionService_Sweep(t *testing.T) {
	store := &mockRetentionStore{ids: []uuid.UUID{uuid.New(), uuid.New()}}
	svc := service.NewRetentionService(store, 14*24*time.Hour)

	before := time.Now().Add(-14 * 24 * time.Hour)
	ids, err := svc.Sweep(context.Background())
	after := time.Now().Add(-14 * 24 * time.Hour)

	assert.NoError(t, err)
	assert.Len(t, ids, 2)

	// cutoff = now - окно хранения.
	assert.False(t, store.lastCutoff.Before(before))
	assert.False(t, store.lastCutoff.After(after))
}

func TestRetentionService_Sweep_Empty(t *testing.T) {
	store := &mockRetentionStore{}
	svc := service.NewRetentionService(store, 14*24*time.Hour)

	ids, err := svc.Sweep(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, 1, store.callCount())
}

// sweepTrackingStore повторяет контракт SweepCompleted: вместе с заявкой
// уходят и её отметки идемпотентности processed_webhooks.
type sweepTrackingStore struct {
	completedAt map[uuid.UUID]time.Time
	marks       map[uuid.UUID][]string
}

func (m *sweepTrackingStore) SweepCompleted(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, done := range m.completedAt {
		if done.Before(cutoff) {
			ids = append(ids, id)
			delete(m.completedAt, id)
			delete(m.marks, id)
		}
	}
	return ids, nil
}

func TestRetentionService_Sweep_RemovesWebhookMarks(t *testing.T) {
	oldJob := uuid.New()
	freshJob := uuid.New()
	store := &sweepTrackingStore{
		completedAt: map[uuid.UUID]time.Time{
			oldJob:   time.Now().Add(-15 * 24 * time.Hour),
			freshJob: time.Now().Add(-24 * time.Hour),
		},
		marks: map[uuid.UUID][]string{
			oldJob:   {"TXN-1"},
			freshJob: {"TXN-2"},
		},
	}
	svc := service.NewRetentionService(store, 14*24*time.Hour)

	ids, err := svc.Sweep(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []uuid.UUID{oldJob}, ids)

	assert.NotContains(t, store.marks, oldJob, "отметки удалённой заявки не должны копиться")
	assert.Contains(t, store.marks, freshJob)
	assert.Contains(t, store.completedAt, freshJob)
}

func TestRetentionService_Sweep_NoOverlap(t *testing.T) {
	store := &mockRetentionStore{block: make(chan struct{})}
	svc := service.NewRetentionService(store, 14*24*time.Hour)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.Sweep(context.Background())
	}()

	assert.Eventually(t, func() bool { return store.callCount() == 1 },
		time.Second, 5*time.Millisecond)

	// Пока первая зачистка держит замок, вторая пропускается без ошибки.
	ids, err := svc.Sweep(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, ids)
	assert.Equal(t, 1, store.callCount())

	close(store.block)
	<-done
}
