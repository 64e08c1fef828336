// Package ledger содержит чистые функции расчёта комиссии платформы,
// выплаты провайдеру и возврата заказчику. Все суммы — int64 в центах.
//
// Инвариант всех формул: platform_fee + provider_payout == price ровно.
// Вторая величина всегда считается вычитанием из первой, а не отдельным
// округлением процента, иначе на целочисленной арифметике теряются центы.
package ledger

import (
	"fmt"

	"github.com/lawnlink/lawncare-backend/internal/models"
)

// Проценты комиссий платформы.
const (
	// AcceptanceFeePercent — доля платформы при обычном принятии предложения.
	AcceptanceFeePercent int64 = 10
	// DisputedProviderPercent — доля провайдера при решении спора в его
	// пользу. Жёстче обычных 90%.
	DisputedProviderPercent int64 = 70
	// Границы процента выплаты при частичном решении спора.
	MinPartialPercent = 10
	MaxPartialPercent = 80
)

// AcceptanceSplit — раскладка 90/10 при принятии предложения.
func AcceptanceSplit(price int64) (platformFee, providerPayout int64) {
	platformFee = price * AcceptanceFeePercent / 100
	providerPayout = price - platformFee
	return platformFee, providerPayout
}

// DirectPaySplit — оплата по каталожной цене без торгов: платформа
// откладывает свою долю до этапа принятия предложения или спора.
func DirectPaySplit(price int64) (platformFee, providerPayout int64) {
	return 0, price
}

// Resolution — тип решения по спору.
type Resolution string

const (
	ResolutionFavorCustomer Resolution = "favor_customer"
	ResolutionFavorProvider Resolution = "favor_provider"
	ResolutionPartial       Resolution = "partial"
	ResolutionDismiss       Resolution = "dismiss"
)

func (r Resolution) IsValid() bool {
	switch r {
	case ResolutionFavorCustomer, ResolutionFavorProvider, ResolutionPartial, ResolutionDismiss:
		return true
	}
	return false
}

// Outcome — детерминированный результат решения спора.
// LedgerChanged=false означает, что денежные поля заявки трогать нельзя.
type Outcome struct {
	PlatformFee    int64
	ProviderPayout int64
	Refund         int64
	JobStatus      models.JobStatus
	LedgerChanged  bool
}

// Resolve вычисляет исход спора по типу решения.
// percent используется только для ResolutionPartial и должен быть в
// границах [MinPartialPercent, MaxPartialPercent].
func Resolve(resolution Resolution, price int64, percent int) (Outcome, error) {
	switch resolution {
	case ResolutionFavorCustomer:
		// Заявка отменяется, вся сумма уходит в возврат.
		return Outcome{
			PlatformFee:    0,
			ProviderPayout: 0,
			Refund:         price,
			JobStatus:      models.JobStatusCancelled,
			LedgerChanged:  true,
		}, nil

	case ResolutionFavorProvider:
		payout := price * DisputedProviderPercent / 100
		return Outcome{
			PlatformFee:    price - payout,
			ProviderPayout: payout,
			Refund:         0,
			JobStatus:      models.JobStatusCompleted,
			LedgerChanged:  true,
		}, nil

	case ResolutionPartial:
		if percent < MinPartialPercent || percent > MaxPartialPercent {
			return Outcome{}, fmt.Errorf("ledger: процент выплаты %d вне границ [%d, %d]",
				percent, MinPartialPercent, MaxPartialPercent)
		}
		payout := price * int64(percent) / 100
		fee := price - payout
		return Outcome{
			PlatformFee:    fee,
			ProviderPayout: payout,
			// Возврат равен удержанной доле, чтобы сумма сходилась по центам.
			Refund:        fee,
			JobStatus:     models.JobStatusCompleted,
			LedgerChanged: true,
		}, nil

	case ResolutionDismiss:
		return Outcome{LedgerChanged: false}, nil
	}

	return Outcome{}, fmt.Errorf("ledger: неизвестный тип решения %q", resolution)
}
