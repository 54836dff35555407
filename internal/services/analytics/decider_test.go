package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ChartSignal/internal/domain/models"
)

func TestDecideBullishRatio(t *testing.T) {
	d := NewDecider(DefaultDecisionConfig(), FixedSource(0.5))

	got := d.Decide(models.HeuristicResult{GreenRatio: 0.05 + 0.07, RedRatio: 0.02, Volatility: 0.1, TrendStrength: 0.12})

	assert.Equal(t, models.ActionCall, got.Action)
	assert.Equal(t, models.RuleBullishRatio, got.Rule)
	// 80 + 12 + 5 + 0 jitter
	assert.Equal(t, 95, got.Confidence)
}

func TestDecideBearishRatio(t *testing.T) {
	d := NewDecider(DefaultDecisionConfig(), FixedSource(0.5))

	got := d.Decide(models.HeuristicResult{GreenRatio: 0.01, RedRatio: 0.11, Volatility: 0.1, TrendStrength: 0.11})

	assert.Equal(t, models.ActionPut, got.Action)
	assert.Equal(t, models.RuleBearishRatio, got.Rule)
	assert.Equal(t, 95, got.Confidence)
}

func TestDecideTrendBranch(t *testing.T) {
	cfg := DefaultDecisionConfig()
	cfg.MinGreenRatio = 0.5
	cfg.MinRedRatio = 0.5
	d := NewDecider(cfg, FixedSource(0.5))

	got := d.Decide(models.HeuristicResult{GreenRatio: 0.2, RedRatio: 0.1, Volatility: 0.1, TrendStrength: 0.2})

	assert.Equal(t, models.ActionCall, got.Action)
	assert.Equal(t, models.RuleTrend, got.Rule)
	assert.Equal(t, 90, got.Confidence)
}

func TestDecideFallback(t *testing.T) {
	low := NewDecider(DefaultDecisionConfig(), FixedSource(0.2))
	got := low.Decide(models.HeuristicResult{})
	assert.Equal(t, models.RuleFallback, got.Rule)
	assert.Equal(t, models.ActionCall, got.Action)
	assert.Equal(t, 83, got.Confidence)

	high := NewDecider(DefaultDecisionConfig(), FixedSource(0.8))
	got = high.Decide(models.HeuristicResult{})
	assert.Equal(t, models.ActionPut, got.Action)
	assert.Equal(t, 92, got.Confidence)
}

func TestDecideMostlyGreenFrame(t *testing.T) {
	d := NewDecider(DefaultDecisionConfig(), NewSeededSource(42))
	got := d.Decide(models.HeuristicResult{GreenRatio: 0.8, Volatility: 0.8, TrendStrength: 0.8, AvgBrightness: 73})

	assert.Equal(t, models.ActionCall, got.Action)
	assert.Equal(t, 95, got.Confidence)
}

func TestDecideConfidenceAlwaysInBounds(t *testing.T) {
	d := NewDecider(DefaultDecisionConfig(), NewSeededSource(7))
	inputs := []models.HeuristicResult{
		{},
		{GreenRatio: 1, Volatility: 1, TrendStrength: 1},
		{RedRatio: 1, Volatility: 1, TrendStrength: 1},
		{GreenRatio: 0.11, RedRatio: 0.1, Volatility: 0.01, TrendStrength: 0.11},
		{GreenRatio: 0.05, RedRatio: 0.05, TrendStrength: 0.05},
	}
	for i := 0; i < 200; i++ {
		for _, h := range inputs {
			got := d.Decide(h)
			assert.GreaterOrEqual(t, got.Confidence, 80)
			assert.LessOrEqual(t, got.Confidence, 95)
			assert.Contains(t, []models.Action{models.ActionCall, models.ActionPut}, got.Action)
		}
	}
}

func TestSeededSourceIsDeterministic(t *testing.T) {
	a, b := NewSeededSource(99), NewSeededSource(99)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
}
