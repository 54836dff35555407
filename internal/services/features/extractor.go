package features

import (
	"math"

	"ChartSignal/internal/domain/models"
	domsvc "ChartSignal/internal/domain/service"
)

const (
	defaultStride         = 4
	defaultIntensityFloor = 100
)

// Extractor counts colour-dominant pixels on a stride-sampled subset of a frame.
// It holds configuration only and is safe for concurrent use.
type Extractor struct {
	stride int
	floor  uint8
}

type Option func(*Extractor)

// WithStride samples every n-th pixel.
func WithStride(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.stride = n
		}
	}
}

// WithIntensityFloor sets the minimum dominant-channel value for classification.
func WithIntensityFloor(v int) Option {
	return func(e *Extractor) {
		if v >= 0 && v <= 255 {
			e.floor = uint8(v)
		}
	}
}

func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{stride: defaultStride, floor: defaultIntensityFloor}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze returns an all-zero result for frames without sampled pixels.
func (e *Extractor) Analyze(f *models.Frame) models.HeuristicResult {
	if f == nil || len(f.Pix) < 4 {
		return models.HeuristicResult{}
	}

	step := e.stride * 4
	var green, red, samples int
	var brightness float64
	for i := 0; i+3 < len(f.Pix); i += step {
		r, g, b := f.Pix[i], f.Pix[i+1], f.Pix[i+2]
		samples++
		brightness += (float64(r) + float64(g) + float64(b)) / 3
		switch {
		case g > r && g > b && g > e.floor:
			green++
		case r > g && r > b && r > e.floor:
			red++
		}
	}

	n := float64(samples)
	gr := float64(green) / n
	rr := float64(red) / n
	return models.HeuristicResult{
		GreenRatio:    gr,
		RedRatio:      rr,
		AvgBrightness: brightness / n,
		Volatility:    math.Abs(gr - rr),
		TrendStrength: math.Max(gr, rr),
		Samples:       samples,
	}
}

var _ domsvc.ChartHeuristic = (*Extractor)(nil)
