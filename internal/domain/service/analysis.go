package service

import (
	"time"

	"ChartSignal/internal/domain/models"
)

// ChartHeuristic derives colour ratios from a frame. Implementations must be pure.
type ChartHeuristic interface {
	Analyze(frame *models.Frame) models.HeuristicResult
}

// SignalDecider maps a heuristic result to an action and confidence.
// It is a placeholder scoring rule, not a market predictor.
type SignalDecider interface {
	Decide(h models.HeuristicResult) models.Decision
}

// EntryPlanner attaches timing and risk guidance to a decision.
type EntryPlanner interface {
	Plan(confidence int, action models.Action, now time.Time) models.EntryPlan
}

// RandomSource supplies uniform values in [0,1). Seedable implementations keep
// tests deterministic.
type RandomSource interface {
	Float64() float64
}
