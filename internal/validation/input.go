package validation

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/lawnlink/lawncare-backend/internal/models"
)

// Константы валидации
const (
	MinJobTitleLength       = 3
	MaxJobTitleLength       = 200
	MinJobDescriptionLength = 10
	MaxJobDescriptionLength = 5000
	MaxDisputeReasonLength  = 2000
	MaxProposalMessageLen   = 2000
)

// JobTitle проверяет заголовок заявки.
func JobTitle(title string) error {
	n := utf8.RuneCountInString(title)
	if n < MinJobTitleLength || n > MaxJobTitleLength {
		return fmt.Errorf("заголовок должен быть от %d до %d символов", MinJobTitleLength, MaxJobTitleLength)
	}
	return nil
}

// JobDescription проверяет описание заявки.
func JobDescription(desc string) error {
	n := utf8.RuneCountInString(desc)
	if n < MinJobDescriptionLength || n > MaxJobDescriptionLength {
		return fmt.Errorf("описание должно быть от %d до %d символов", MinJobDescriptionLength, MaxJobDescriptionLength)
	}
	return nil
}

// Parish проверяет, что приход входит в список обслуживаемых.
func Parish(parish string) error {
	if _, ok := models.ValidParishes[parish]; !ok {
		return fmt.Errorf("приход %q не обслуживается", parish)
	}
	return nil
}

// Price проверяет, что цена в допустимых границах платформы.
func Price(price int64) error {
	if price < models.MinJobPrice || price > models.MaxJobPrice {
		return fmt.Errorf("цена должна быть от %d до %d", models.MinJobPrice, models.MaxJobPrice)
	}
	return nil
}

// ScheduledDate проверяет, что дата работ не раньше начала текущего дня.
// Начало дня считается в зоне самой даты: Truncate здесь не годится, он
// режет по UTC и отбрасывает "сегодняшние" заявки из западных поясов.
func ScheduledDate(t time.Time) error {
	now := time.Now().In(t.Location())
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if t.Before(startOfDay) {
		return fmt.Errorf("дата работ не может быть в прошлом")
	}
	return nil
}

// DisputeReason проверяет причину спора.
func DisputeReason(reason string) error {
	if reason == "" {
		return fmt.Errorf("причина спора обязательна")
	}
	if utf8.RuneCountInString(reason) > MaxDisputeReasonLength {
		return fmt.Errorf("причина спора не может быть длиннее %d символов", MaxDisputeReasonLength)
	}
	return nil
}
