package models

import (
	"time"

	"github.com/google/uuid"
)

// Dispute — спор заказчика по заявке, которую провайдер отметил выполненной.
// На одну заявку может быть не больше одного открытого спора.
type Dispute struct {
	ID             uuid.UUID     `db:"id" json:"id"`
	JobID          uuid.UUID     `db:"job_id" json:"job_id"`
	CustomerID     uuid.UUID     `db:"customer_id" json:"customer_id"`
	Reason         string        `db:"reason" json:"reason"`
	Status         DisputeStatus `db:"status" json:"status"`
	Resolution     *string       `db:"resolution" json:"resolution,omitempty"`
	ResolvedBy     *uuid.UUID    `db:"resolved_by" json:"resolved_by,omitempty"`
	PayoutPercent  *int          `db:"payout_percent" json:"payout_percent,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	ResolvedAt     *time.Time    `db:"resolved_at" json:"resolved_at,omitempty"`
}
