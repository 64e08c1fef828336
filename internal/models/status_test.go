package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lawnlink/lawncare-backend/internal/models"
)

func TestJobStatus_HappyPath(t *testing.T) {
	path := []models.JobStatus{
		models.JobStatusOpen,
		models.JobStatusInNegotiation,
		models.JobStatusAccepted,
		models.JobStatusInProgress,
		models.JobStatusPendingCompletion,
		models.JobStatusCompleted,
	}
	for i := 0; i < len(path)-1; i++ {
		assert.True(t, path[i].CanTransitionTo(path[i+1]),
			"%s -> %s должен быть допустим", path[i], path[i+1])
	}
}

func TestJobStatus_TerminalStates(t *testing.T) {
	all := []models.JobStatus{
		models.JobStatusOpen, models.JobStatusInNegotiation, models.JobStatusAccepted,
		models.JobStatusInProgress, models.JobStatusPendingCompletion,
		models.JobStatusCompleted, models.JobStatusCancelled,
	}
	for _, next := range all {
		assert.False(t, models.JobStatusCompleted.CanTransitionTo(next), "completed терминален")
		assert.False(t, models.JobStatusCancelled.CanTransitionTo(next), "cancelled терминален")
	}
	assert.True(t, models.JobStatusCompleted.IsTerminal())
	assert.True(t, models.JobStatusCancelled.IsTerminal())
	assert.False(t, models.JobStatusInProgress.IsTerminal())
}

func TestJobStatus_NoBackwardTransitions(t *testing.T) {
	assert.False(t, models.JobStatusAccepted.CanTransitionTo(models.JobStatusOpen))
	assert.False(t, models.JobStatusInProgress.CanTransitionTo(models.JobStatusAccepted))
	assert.False(t, models.JobStatusCompleted.CanTransitionTo(models.JobStatusInProgress))
}

// Откат pending_completion -> in_progress разрешён: его выполняет открытие
// спора, это единственное попятное движение в таблице.
func TestJobStatus_DisputeRevert(t *testing.T) {
	assert.True(t, models.JobStatusPendingCompletion.CanTransitionTo(models.JobStatusInProgress))
}

func TestJobStatus_DisputeOutcomes(t *testing.T) {
	// Разрешение спора завершает или отменяет работу прямо из in_progress.
	assert.True(t, models.JobStatusInProgress.CanTransitionTo(models.JobStatusCompleted))
	assert.True(t, models.JobStatusInProgress.CanTransitionTo(models.JobStatusCancelled))
}

func TestJobStatus_IsValid(t *testing.T) {
	assert.True(t, models.JobStatusOpen.IsValid())
	assert.False(t, models.JobStatus("archived").IsValid())
}

func TestPaymentStatus_Transitions(t *testing.T) {
	assert.True(t, models.PaymentStatusPending.CanTransitionTo(models.PaymentStatusPaid))
	assert.True(t, models.PaymentStatusPending.CanTransitionTo(models.PaymentStatusFailed))

	// Оплата не реверсивна.
	assert.False(t, models.PaymentStatusPaid.CanTransitionTo(models.PaymentStatusPending))
	assert.False(t, models.PaymentStatusPaid.CanTransitionTo(models.PaymentStatusFailed))
	assert.False(t, models.PaymentStatusFailed.CanTransitionTo(models.PaymentStatusPaid))
}

func TestBasePrice(t *testing.T) {
	price, ok := models.BasePrice(models.LawnSizeMedium, models.JobTypeMowing)
	assert.True(t, ok)
	assert.Equal(t, int64(12000), price)

	price, ok = models.BasePrice(models.LawnSizeLarge, models.JobTypeLandscaping)
	assert.True(t, ok)
	assert.Equal(t, int64(28000), price)

	_, ok = models.BasePrice("enormous", models.JobTypeMowing)
	assert.False(t, ok)
}

func TestJobRequest_Price(t *testing.T) {
	job := models.JobRequest{BasePrice: 12000}
	assert.Equal(t, int64(12000), job.Price())

	offer := int64(15000)
	job.CustomerOffer = &offer
	assert.Equal(t, int64(15000), job.Price())
}
