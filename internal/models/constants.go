package models

// Типы работ
const (
	JobTypeMowing        = "mowing"
	JobTypeHedgeTrimming = "hedge_trimming"
	JobTypeGardenCleanup = "garden_cleanup"
	JobTypeLandscaping   = "landscaping"
)

// Размеры участка
const (
	LawnSizeSmall  = "small"
	LawnSizeMedium = "medium"
	LawnSizeLarge  = "large"
)

// Все суммы в системе хранятся в центах JMD (int64), никакого float.
const (
	// MinJobPrice — минимальная цена заявки и предложения на платформе.
	MinJobPrice int64 = 7_000
	// MaxJobPrice — верхняя граница цены, защита от опечаток.
	MaxJobPrice int64 = 10_000_000
)

// lawnSizeRates — базовая ставка за размер участка.
var lawnSizeRates = map[string]int64{
	LawnSizeSmall:  7_000,
	LawnSizeMedium: 12_000,
	LawnSizeLarge:  20_000,
}

// jobTypeSurcharges — надбавка за тип работы поверх ставки за размер.
var jobTypeSurcharges = map[string]int64{
	JobTypeMowing:        0,
	JobTypeHedgeTrimming: 3_000,
	JobTypeGardenCleanup: 5_000,
	JobTypeLandscaping:   8_000,
}

// BasePrice возвращает каталожную цену: ставка за размер + надбавка за тип.
// false — если размер или тип неизвестны.
func BasePrice(lawnSize, jobType string) (int64, bool) {
	rate, ok := lawnSizeRates[lawnSize]
	if !ok {
		return 0, false
	}
	surcharge, ok := jobTypeSurcharges[jobType]
	if !ok {
		return 0, false
	}
	return rate + surcharge, true
}

// ValidJobTypes список валидных типов работ
var ValidJobTypes = map[string]struct{}{
	JobTypeMowing:        {},
	JobTypeHedgeTrimming: {},
	JobTypeGardenCleanup: {},
	JobTypeLandscaping:   {},
}

// ValidLawnSizes список валидных размеров участка
var ValidLawnSizes = map[string]struct{}{
	LawnSizeSmall:  {},
	LawnSizeMedium: {},
	LawnSizeLarge:  {},
}

// ValidParishes — приходы Ямайки, в которых работает платформа.
var ValidParishes = map[string]struct{}{
	"Kingston":      {},
	"St. Andrew":    {},
	"St. Thomas":    {},
	"Portland":      {},
	"St. Mary":      {},
	"St. Ann":       {},
	"Trelawny":      {},
	"St. James":     {},
	"Hanover":       {},
	"Westmoreland":  {},
	"St. Elizabeth": {},
	"Manchester":    {},
	"Clarendon":     {},
	"St. Catherine": {},
}

// Роли пользователей
const (
	RoleCustomer = "customer"
	RoleProvider = "provider"
	RoleAdmin    = "admin"
)
