package models

// HeuristicResult summarizes the colour balance of a frame.
// Ratios are fractions of sampled pixels; no rounding is applied.
type HeuristicResult struct {
	GreenRatio    float64 `json:"green_ratio"`
	RedRatio      float64 `json:"red_ratio"`
	AvgBrightness float64 `json:"avg_brightness"`
	Volatility    float64 `json:"volatility"`
	TrendStrength float64 `json:"trend_strength"`
	Samples       int     `json:"samples"`
}

// Coverage is the share of sampled pixels classified as green or red.
func (h HeuristicResult) Coverage() float64 {
	return h.GreenRatio + h.RedRatio
}

// Empty reports whether no pixel was sampled.
func (h HeuristicResult) Empty() bool { return h.Samples == 0 }
