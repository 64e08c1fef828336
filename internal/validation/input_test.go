package validation_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lawnlink/lawncare-backend/internal/validation"
)

func TestJobTitle(t *testing.T) {
	assert.NoError(t, validation.JobTitle("Покос газона"))
	assert.Error(t, validation.JobTitle("ок"))
	assert.Error(t, validation.JobTitle(strings.Repeat("a", 201)))
}

func TestParish(t *testing.T) {
	assert.NoError(t, validation.Parish("Kingston"))
	assert.Error(t, validation.Parish("Atlantis"))
}

func TestScheduledDate(t *testing.T) {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	assert.NoError(t, validation.ScheduledDate(startOfDay))
	assert.NoError(t, validation.ScheduledDate(startOfDay.Add(time.Minute)))
	assert.NoError(t, validation.ScheduledDate(now.Add(48*time.Hour)))

	assert.Error(t, validation.ScheduledDate(startOfDay.Add(-time.Minute)))
	assert.Error(t, validation.ScheduledDate(now.Add(-48*time.Hour)))
}

// Начало дня считается в зоне даты, а не по UTC: "сегодняшняя" заявка из
// пояса с большим смещением не должна отбрасываться как прошедшая.
func TestScheduledDate_ZoneAware(t *testing.T) {
	zone := time.FixedZone("UTC+10", 10*3600)
	nowThere := time.Now().In(zone)
	startThere := time.Date(nowThere.Year(), nowThere.Month(), nowThere.Day(), 0, 0, 0, 0, zone)

	assert.NoError(t, validation.ScheduledDate(startThere.Add(time.Hour)))
	assert.Error(t, validation.ScheduledDate(startThere.Add(-time.Minute)))
}

func TestDisputeReason(t *testing.T) {
	assert.NoError(t, validation.DisputeReason("трава не скошена"))
	assert.Error(t, validation.DisputeReason(""))
	assert.Error(t, validation.DisputeReason(strings.Repeat("x", 2001)))
}
