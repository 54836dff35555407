package analytics

import (
	"fmt"
	"time"

	"ChartSignal/internal/domain/models"
	domsvc "ChartSignal/internal/domain/service"
	xutil "ChartSignal/pkg/util"
)

const (
	immediateThreshold = 90
	pullbackThreshold  = 85
	enterNowWindow     = 30 // seconds into the minute
)

// Planner turns a confidence tier into entry guidance. It has no hidden state.
type Planner struct {
	expiry time.Duration
}

// NewPlanner creates a planner; non-positive expiry falls back to 3 minutes.
func NewPlanner(expiry time.Duration) *Planner {
	if expiry <= 0 {
		expiry = 3 * time.Minute
	}
	return &Planner{expiry: expiry}
}

func (p *Planner) Plan(confidence int, action models.Action, now time.Time) models.EntryPlan {
	sec := now.Second()
	remaining := 60 - sec
	expiresAt := now.Add(p.expiry)

	var plan models.EntryPlan
	switch {
	case confidence >= immediateThreshold:
		plan.EntryPoint = models.EntryImmediate
		plan.RiskLevel = models.RiskLow
		plan.Description = fmt.Sprintf("Strong %s setup, enter immediately", action)
		if sec <= enterNowWindow {
			plan.Timing = "Enter now"
		} else {
			plan.Timing = fmt.Sprintf("Enter within the next %d seconds", remaining)
		}
	case confidence >= pullbackThreshold:
		plan.EntryPoint = models.EntryWaitForPullback
		plan.RiskLevel = models.RiskMedium
		plan.Description = fmt.Sprintf("%s setup, wait for a pullback before entering", action)
		plan.Timing = fmt.Sprintf("Wait %d seconds for a pullback", remaining)
	default:
		plan.EntryPoint = models.EntryBreakoutConfirmation
		plan.RiskLevel = models.RiskMedium
		plan.Description = fmt.Sprintf("%s setup, wait for breakout confirmation", action)
		plan.Timing = fmt.Sprintf("Wait %d seconds for breakout confirmation", remaining)
	}
	plan.Timing += ", expires at " + xutil.FormatClock(expiresAt)
	plan.ExpiresAt = expiresAt
	return plan
}

// ExpiryLabel renders the expiry window the way records carry it, e.g. "3min".
func (p *Planner) ExpiryLabel() string {
	return xutil.DurationLabel(p.expiry)
}

var _ domsvc.EntryPlanner = (*Planner)(nil)
