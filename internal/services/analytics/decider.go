package analytics

import (
	"math"

	"ChartSignal/internal/domain/models"
	domsvc "ChartSignal/internal/domain/service"
)

// DecisionConfig holds the canonical threshold set of the scoring rule.
type DecisionConfig struct {
	MinGreenRatio    float64
	MinRedRatio      float64
	MinTrendStrength float64
	ConfidenceMin    int
	ConfidenceMax    int
	Jitter           float64 // half-width of the uniform jitter term
}

func DefaultDecisionConfig() DecisionConfig {
	return DecisionConfig{
		MinGreenRatio:    0.1,
		MinRedRatio:      0.1,
		MinTrendStrength: 0.15,
		ConfidenceMin:    80,
		ConfidenceMax:    95,
		Jitter:           3,
	}
}

// Decider is a placeholder scoring rule over pixel colour ratios. Its
// confidence is a presentation value in [ConfidenceMin, ConfidenceMax] and
// does not measure market accuracy.
type Decider struct {
	cfg DecisionConfig
	rnd domsvc.RandomSource
}

func NewDecider(cfg DecisionConfig, rnd domsvc.RandomSource) *Decider {
	if cfg.ConfidenceMax < cfg.ConfidenceMin {
		cfg.ConfidenceMin, cfg.ConfidenceMax = cfg.ConfidenceMax, cfg.ConfidenceMin
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = -cfg.Jitter
	}
	if rnd == nil {
		rnd = NewSeededSource(0)
	}
	return &Decider{cfg: cfg, rnd: rnd}
}

// Decide applies the rules in order; the first match wins.
func (d *Decider) Decide(h models.HeuristicResult) models.Decision {
	g, r := h.GreenRatio, h.RedRatio
	switch {
	case g > r && g > d.cfg.MinGreenRatio:
		return models.Decision{
			Action:     models.ActionCall,
			Confidence: d.score(g*100 + h.Volatility*50 + d.jitter()),
			Rule:       models.RuleBullishRatio,
		}
	case r > g && r > d.cfg.MinRedRatio:
		return models.Decision{
			Action:     models.ActionPut,
			Confidence: d.score(r*100 + h.Volatility*50 + d.jitter()),
			Rule:       models.RuleBearishRatio,
		}
	case h.TrendStrength > d.cfg.MinTrendStrength:
		action := models.ActionPut
		if g > r {
			action = models.ActionCall
		}
		return models.Decision{
			Action:     action,
			Confidence: d.score(h.TrendStrength*50 + d.jitter()),
			Rule:       models.RuleTrend,
		}
	default:
		action := models.ActionPut
		if d.rnd.Float64() < 0.5 {
			action = models.ActionCall
		}
		span := float64(d.cfg.ConfidenceMax - d.cfg.ConfidenceMin)
		return models.Decision{
			Action:     action,
			Confidence: d.score(d.rnd.Float64() * span),
			Rule:       models.RuleFallback,
		}
	}
}

func (d *Decider) jitter() float64 {
	if d.cfg.Jitter == 0 {
		return 0
	}
	return (d.rnd.Float64()*2 - 1) * d.cfg.Jitter
}

// score offsets the lower bound by delta, rounds and clamps.
func (d *Decider) score(delta float64) int {
	v := float64(d.cfg.ConfidenceMin) + delta
	if math.IsNaN(v) {
		return d.cfg.ConfidenceMin
	}
	v = math.Round(v)
	if v < float64(d.cfg.ConfidenceMin) {
		return d.cfg.ConfidenceMin
	}
	if v > float64(d.cfg.ConfidenceMax) {
		return d.cfg.ConfidenceMax
	}
	return int(v)
}

var _ domsvc.SignalDecider = (*Decider)(nil)
