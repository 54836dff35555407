package models

import "time"

// Action is the recommended binary-option direction.
type Action string

const (
	ActionCall Action = "CALL"
	ActionPut  Action = "PUT"
)

// EntryPoint describes when to enter a position.
type EntryPoint string

const (
	EntryImmediate            EntryPoint = "Immediate"
	EntryWaitForPullback      EntryPoint = "WaitForPullback"
	EntryBreakoutConfirmation EntryPoint = "BreakoutConfirmation"
)

// RiskLevel is derived from confidence only.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// DecisionRule names the branch of the scoring rule that produced a decision.
type DecisionRule string

const (
	RuleBullishRatio DecisionRule = "bullish_ratio"
	RuleBearishRatio DecisionRule = "bearish_ratio"
	RuleTrend        DecisionRule = "trend_strength"
	RuleFallback     DecisionRule = "fallback"
)

// Decision is the output of the placeholder scoring rule. It carries no
// predictive guarantee.
type Decision struct {
	Action     Action       `json:"action"`
	Confidence int          `json:"confidence"`
	Rule       DecisionRule `json:"rule"`
}

// EntryPlan is the timing and risk guidance attached to a decision.
type EntryPlan struct {
	EntryPoint  EntryPoint `json:"entry_point"`
	RiskLevel   RiskLevel  `json:"risk_level"`
	Description string     `json:"description"`
	Timing      string     `json:"timing"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

// SignalRecord is one emitted signal. Records are immutable once appended.
type SignalRecord struct {
	ID               int64           `json:"id"`
	SessionID        string          `json:"session_id"`
	Asset            string          `json:"asset"`
	Action           Action          `json:"action"`
	Confidence       int             `json:"confidence"`
	EntryPoint       EntryPoint      `json:"entry_point"`
	RiskLevel        RiskLevel       `json:"risk_level"`
	Timeframe        string          `json:"timeframe"`
	Expiration       string          `json:"expiration"`
	EntryDescription string          `json:"entry_description"`
	EntryTiming      string          `json:"entry_timing"`
	ExpiresAt        time.Time       `json:"expires_at"`
	CreatedAt        time.Time       `json:"created_at"`
	Rule             DecisionRule    `json:"rule"`
	Heuristic        HeuristicResult `json:"heuristic"`
}

// ScanState is the controller state machine position.
type ScanState string

const (
	StateIdle      ScanState = "idle"
	StateScanning  ScanState = "scanning"
	StateAnalyzing ScanState = "analyzing"
)

// TickOutcome classifies the result of one decision cycle.
type TickOutcome string

const (
	OutcomeEmitted      TickOutcome = "emitted"
	OutcomeIdle         TickOutcome = "idle"
	OutcomeBusy         TickOutcome = "busy"
	OutcomeCooldown     TickOutcome = "cooldown"
	OutcomeNotReady     TickOutcome = "not_ready"
	OutcomeInsufficient TickOutcome = "insufficient_data"
	OutcomeDiscarded    TickOutcome = "discarded"
)

// TickResult is returned by a decision cycle. Record is set only when Outcome
// is OutcomeEmitted.
type TickResult struct {
	Outcome TickOutcome   `json:"outcome"`
	Record  *SignalRecord `json:"record,omitempty"`
}

// CaptureStatus is a read-only view of the controller for the API layer.
type CaptureStatus struct {
	State     ScanState  `json:"state"`
	SessionID string     `json:"session_id,omitempty"`
	LastEmit  *time.Time `json:"last_emit,omitempty"`
	Stored    int        `json:"stored"`
	Capacity  int        `json:"capacity"`
}

// SignalStats aggregates the records currently held in the store.
type SignalStats struct {
	Active            int               `json:"active"`
	AverageConfidence float64           `json:"average_confidence"`
	HighConfidencePct float64           `json:"high_confidence_pct"`
	Calls             int               `json:"calls"`
	Puts              int               `json:"puts"`
	ByRisk            map[RiskLevel]int `json:"by_risk"`
	LastSignalAt      *time.Time        `json:"last_signal_at,omitempty"`
}

// SignalView decorates a record with rendering helpers for the API layer.
type SignalView struct {
	SignalRecord
	TimeAgo        string  `json:"time_ago"`
	ExpectedReturn float64 `json:"expected_return_estimate"`
	Text           string  `json:"text"`
}
