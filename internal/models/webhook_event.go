package models

import (
	"time"

	"github.com/google/uuid"
)

// ProcessedWebhook — долговечная запись об обработанном уведомлении шлюза.
// Уникальность (job_id, transaction_ref) закрывает повторные доставки на
// уровне базы и видна всем инстансам сервиса.
type ProcessedWebhook struct {
	ID             uuid.UUID `db:"id" json:"id"`
	JobID          uuid.UUID `db:"job_id" json:"job_id"`
	TransactionRef string    `db:"transaction_ref" json:"transaction_ref"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// NoTransactionRef подставляется вместо номера транзакции для уведомлений
// об отказе, у которых его нет.
const NoTransactionRef = "no-txn"
