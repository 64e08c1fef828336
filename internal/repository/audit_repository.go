package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lawnlink/lawncare-backend/internal/models"
)

// AuditRepository — неизменяемый журнал административных действий.
type AuditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record добавляет запись аудита.
func (r *AuditRepository) Record(ctx context.Context, actorID uuid.UUID, action, entityType string, entityID uuid.UUID, details string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (actor_id, action, entity_type, entity_id, details)
		VALUES ($1, $2, $3, $4, $5)
	`, actorID, action, entityType, entityID, details)
	if err != nil {
		return fmt.Errorf("audit repository: record %w", err)
	}
	return nil
}

// ListByEntity возвращает записи аудита по сущности.
func (r *AuditRepository) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM audit_log WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at ASC
	`, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("audit repository: list by entity %w", err)
	}
	return entries, nil
}
