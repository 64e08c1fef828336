package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lawnlink/lawncare-backend/internal/logger"
	"github.com/lawnlink/lawncare-backend/internal/metrics"
)

// RetentionStore — часть хранилища заявок, нужная sweeper'у.
type RetentionStore interface {
	SweepCompleted(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}

// RetentionService удаляет завершённые заявки старше окна хранения вместе с
// зависимыми данными. Финансовые записи (инвойсы, возвраты, аудит) не
// ссылаются на заявку по FK и переживают зачистку.
type RetentionService struct {
	repo   RetentionStore
	window time.Duration

	// mu исключает перекрытие запусков: плановый тик пропускается, пока
	// работает ручной запуск, и наоборот.
	mu sync.Mutex
}

// NewRetentionService создаёт sweeper с заданным окном хранения.
func NewRetentionService(repo RetentionStore, window time.Duration) *RetentionService {
	return &RetentionService{repo: repo, window: window}
}

// Sweep удаляет завершённые заявки, подтверждённые раньше cutoff.
// Возвращает идентификаторы удалённых заявок.
func (s *RetentionService) Sweep(ctx context.Context) ([]uuid.UUID, error) {
	if !s.mu.TryLock() {
		logger.Log.Warn("retention: зачистка уже выполняется, запуск пропущен")
		return nil, nil
	}
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.window)
	ids, err := s.repo.SweepCompleted(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	if len(ids) > 0 {
		metrics.SweepDeletedJobs.Add(float64(len(ids)))
		logger.Log.WithField("deleted", len(ids)).Info("retention: завершённые заявки удалены")
	}
	return ids, nil
}

// RunPeriodic запускает зачистку по тикеру до отмены контекста.
func (s *RetentionService) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				logger.Log.WithError(err).Error("retention: сбой плановой зачистки")
			}
		}
	}
}
