package models

import (
	"time"

	"github.com/google/uuid"
)

// Invoice — неизменяемая финансовая запись об успешной оплате заявки.
// Создаётся ровно один раз на заявку и никогда не удаляется sweeper'ом.
type Invoice struct {
	ID             uuid.UUID `db:"id" json:"id"`
	JobID          uuid.UUID `db:"job_id" json:"job_id"`
	CustomerID     uuid.UUID `db:"customer_id" json:"customer_id"`
	Amount         int64     `db:"amount" json:"amount"`
	PlatformFee    int64     `db:"platform_fee" json:"platform_fee"`
	TransactionRef string    `db:"transaction_ref" json:"transaction_ref"`
	PaidAt         time.Time `db:"paid_at" json:"paid_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Статусы выплат
const (
	PayoutStatusPending   = "pending"
	PayoutStatusCompleted = "completed"
)

// Payout — пакетная выплата провайдеру за набор завершённых заявок.
// Состав пакета хранится в payout_items с уникальным job_id: одна заявка
// никогда не попадает в две выплаты.
type Payout struct {
	ID         uuid.UUID   `db:"id" json:"id"`
	ProviderID uuid.UUID   `db:"provider_id" json:"provider_id"`
	Amount     int64       `db:"amount" json:"amount"`
	Status     string      `db:"status" json:"status"`
	PayoutDate time.Time   `db:"payout_date" json:"payout_date"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	JobIDs     []uuid.UUID `json:"job_ids,omitempty"`
}

// Статусы возвратов
const (
	RefundStatusQueued    = "queued"
	RefundStatusProcessed = "processed"
)

// RefundRequest — запрос на возврат средств заказчику, поставленный в
// очередь движком разрешения споров.
type RefundRequest struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	CustomerID  uuid.UUID  `db:"customer_id" json:"customer_id"`
	JobID       uuid.UUID  `db:"job_id" json:"job_id"`
	Amount      int64      `db:"amount" json:"amount"`
	Reason      string     `db:"reason" json:"reason"`
	Status      string     `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	ProcessedAt *time.Time `db:"processed_at" json:"processed_at,omitempty"`
}

// AuditEntry — неизменяемая запись аудита административных действий.
type AuditEntry struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ActorID    uuid.UUID `db:"actor_id" json:"actor_id"`
	Action     string    `db:"action" json:"action"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   uuid.UUID `db:"entity_id" json:"entity_id"`
	Details    string    `db:"details" json:"details"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
