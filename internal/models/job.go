package models

import (
	"time"

	"github.com/google/uuid"
)

// JobRequest описывает заявку на работы по участку.
// Денежные поля заполняются поэтапно: BasePrice при создании,
// FinalPrice/PlatformFee/ProviderPayout при принятии предложения или
// разрешении спора. Инвариант: PlatformFee + ProviderPayout == FinalPrice.
type JobRequest struct {
	ID                  uuid.UUID     `db:"id" json:"id"`
	CustomerID          uuid.UUID     `db:"customer_id" json:"customer_id"`
	Title               string        `db:"title" json:"title"`
	Description         string        `db:"description" json:"description"`
	JobType             string        `db:"job_type" json:"job_type"`
	LawnSize            string        `db:"lawn_size" json:"lawn_size"`
	Parish              string        `db:"parish" json:"parish"`
	Address             string        `db:"address" json:"address"`
	ScheduledAt         time.Time     `db:"scheduled_at" json:"scheduled_at"`
	BasePrice           int64         `db:"base_price" json:"base_price"`
	CustomerOffer       *int64        `db:"customer_offer" json:"customer_offer,omitempty"`
	FinalPrice          *int64        `db:"final_price" json:"final_price,omitempty"`
	PlatformFee         *int64        `db:"platform_fee" json:"platform_fee,omitempty"`
	ProviderPayout      *int64        `db:"provider_payout" json:"provider_payout,omitempty"`
	Status              JobStatus     `db:"status" json:"status"`
	PaymentStatus       PaymentStatus `db:"payment_status" json:"payment_status"`
	PaymentReference    *string       `db:"payment_reference" json:"payment_reference,omitempty"`
	PaymentConfirmedAt  *time.Time    `db:"payment_confirmed_at" json:"payment_confirmed_at,omitempty"`
	AcceptedProviderID  *uuid.UUID    `db:"accepted_provider_id" json:"accepted_provider_id,omitempty"`
	ProviderCompletedAt *time.Time    `db:"provider_completed_at" json:"provider_completed_at,omitempty"`
	CompletedAt         *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt           time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time     `db:"updated_at" json:"updated_at"`

	Photos []JobPhoto `json:"photos,omitempty"`
}

// Price возвращает цену, по которой заявка оплачивается: customer_offer
// имеет приоритет над каталожной base_price.
func (j *JobRequest) Price() int64 {
	if j.CustomerOffer != nil {
		return *j.CustomerOffer
	}
	return j.BasePrice
}

// JobPhoto — метаданные фото по заявке. Само хранилище файлов живёт вне
// этого сервиса, здесь только ссылки для guard'а "есть фото завершения".
type JobPhoto struct {
	ID        uuid.UUID `db:"id" json:"id"`
	JobID     uuid.UUID `db:"job_id" json:"job_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Kind      string    `db:"kind" json:"kind"`
	URL       string    `db:"url" json:"url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Виды фото по заявке
const (
	JobPhotoKindBefore     = "before"
	JobPhotoKindCompletion = "completion"
)

// Proposal представляет предложение провайдера по открытой заявке.
type Proposal struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	JobID         uuid.UUID      `db:"job_id" json:"job_id"`
	ProviderID    uuid.UUID      `db:"provider_id" json:"provider_id"`
	Message       string         `db:"message" json:"message"`
	ProposedPrice int64          `db:"proposed_price" json:"proposed_price"`
	Status        ProposalStatus `db:"status" json:"status"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}
