package repository

import "ChartSignal/internal/domain/models"

// ConfidenceBand groups records for filtering in the rendering layer.
type ConfidenceBand string

const (
	BandAll    ConfidenceBand = "all"
	BandHigh   ConfidenceBand = "high"
	BandMedium ConfidenceBand = "medium"
	BandLow    ConfidenceBand = "low"
)

// IsValidBand returns true if b is a supported band.
func IsValidBand(b ConfidenceBand) bool {
	switch b {
	case BandAll, BandHigh, BandMedium, BandLow:
		return true
	default:
		return false
	}
}

// NormalizeBand converts raw string to a valid band (or all).
func NormalizeBand(s string) ConfidenceBand {
	b := ConfidenceBand(s)
	if IsValidBand(b) {
		return b
	}
	return BandAll
}

// Contains reports whether a confidence value falls into the band.
// The boundaries follow the entry planner tiers: high >= 90, medium 85..89.
func (b ConfidenceBand) Contains(confidence int) bool {
	switch b {
	case BandHigh:
		return confidence >= 90
	case BandMedium:
		return confidence >= 85 && confidence < 90
	case BandLow:
		return confidence < 85
	default:
		return true
	}
}

// FilterRecords keeps records matching band and action ("" or "all" matches any).
func FilterRecords(recs []models.SignalRecord, band ConfidenceBand, action string, limit int) []models.SignalRecord {
	out := make([]models.SignalRecord, 0, len(recs))
	for _, r := range recs {
		if !band.Contains(r.Confidence) {
			continue
		}
		if action != "" && action != "all" && string(r.Action) != action {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
