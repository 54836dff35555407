package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ChartSignal/internal/domain/models"
)

func at(sec int) time.Time {
	return time.Date(2024, 5, 1, 14, 20, sec, 0, time.UTC)
}

func TestPlanTiers(t *testing.T) {
	p := NewPlanner(0)
	cases := []struct {
		conf  int
		entry models.EntryPoint
		risk  models.RiskLevel
	}{
		{95, models.EntryImmediate, models.RiskLow},
		{90, models.EntryImmediate, models.RiskLow},
		{89, models.EntryWaitForPullback, models.RiskMedium},
		{85, models.EntryWaitForPullback, models.RiskMedium},
		{84, models.EntryBreakoutConfirmation, models.RiskMedium},
		{80, models.EntryBreakoutConfirmation, models.RiskMedium},
	}
	for _, c := range cases {
		plan := p.Plan(c.conf, models.ActionCall, at(10))
		assert.Equal(t, c.entry, plan.EntryPoint, "confidence %d", c.conf)
		assert.Equal(t, c.risk, plan.RiskLevel, "confidence %d", c.conf)
	}
}

func TestPlanTiming(t *testing.T) {
	p := NewPlanner(3 * time.Minute)

	plan := p.Plan(92, models.ActionPut, at(30))
	assert.Equal(t, "Enter now, expires at 14:23:30", plan.Timing)
	assert.Contains(t, plan.Description, "PUT")

	plan = p.Plan(92, models.ActionPut, at(45))
	assert.Equal(t, "Enter within the next 15 seconds, expires at 14:23:45", plan.Timing)

	plan = p.Plan(87, models.ActionCall, at(20))
	assert.Equal(t, "Wait 40 seconds for a pullback, expires at 14:23:20", plan.Timing)

	plan = p.Plan(81, models.ActionCall, at(0))
	assert.Equal(t, "Wait 60 seconds for breakout confirmation, expires at 14:23:00", plan.Timing)
	assert.Equal(t, at(0).Add(3*time.Minute), plan.ExpiresAt)
}

func TestPlanDeterministic(t *testing.T) {
	p := NewPlanner(0)
	now := at(17)
	assert.Equal(t, p.Plan(88, models.ActionCall, now), p.Plan(88, models.ActionCall, now))
	assert.Equal(t, "3min", p.ExpiryLabel())
}
