package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChartSignal/internal/domain/models"
)

func solidFrame(t *testing.T, w, h int, r, g, b byte) *models.Frame {
	t.Helper()
	pix := make([]byte, w*h*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = r, g, b, 255
	}
	f, err := models.NewFrame(w, h, pix, time.Unix(0, 0))
	require.NoError(t, err)
	return f
}

// mostlyGreenFrame colours 4 of every 5 sampled pixels green-dominant.
func mostlyGreenFrame(t *testing.T) *models.Frame {
	t.Helper()
	w, h := 100, 10
	pix := make([]byte, w*h*4)
	for p := 0; p < w*h; p++ {
		i := p * 4
		pix[i], pix[i+1], pix[i+2], pix[i+3] = 73, 73, 73, 255
		if p%defaultStride == 0 && (p/defaultStride)%5 != 0 {
			pix[i], pix[i+1], pix[i+2] = 10, 200, 10
		}
	}
	f, err := models.NewFrame(w, h, pix, time.Unix(0, 0))
	require.NoError(t, err)
	return f
}

func TestAnalyzeMostlyGreen(t *testing.T) {
	res := NewExtractor().Analyze(mostlyGreenFrame(t))

	assert.Equal(t, 250, res.Samples)
	assert.InDelta(t, 0.8, res.GreenRatio, 1e-9)
	assert.Zero(t, res.RedRatio)
	assert.InDelta(t, 73, res.AvgBrightness, 0.5)
	assert.InDelta(t, 0.8, res.Volatility, 1e-9)
	assert.InDelta(t, 0.8, res.TrendStrength, 1e-9)
}

func TestAnalyzeUniformGray(t *testing.T) {
	res := NewExtractor().Analyze(solidFrame(t, 16, 16, 128, 128, 128))

	assert.Zero(t, res.GreenRatio)
	assert.Zero(t, res.RedRatio)
	assert.Zero(t, res.TrendStrength)
	assert.InDelta(t, 128, res.AvgBrightness, 1e-9)
	assert.Equal(t, 64, res.Samples)
}

func TestAnalyzeRedDominant(t *testing.T) {
	res := NewExtractor(WithStride(1)).Analyze(solidFrame(t, 4, 4, 220, 30, 40))

	assert.Equal(t, 1.0, res.RedRatio)
	assert.Zero(t, res.GreenRatio)
	assert.Equal(t, 16, res.Samples)
}

func TestAnalyzeBelowFloorIsUnclassified(t *testing.T) {
	res := NewExtractor(WithStride(1)).Analyze(solidFrame(t, 4, 4, 10, 90, 10))
	assert.Zero(t, res.GreenRatio)

	res = NewExtractor(WithStride(1), WithIntensityFloor(50)).Analyze(solidFrame(t, 4, 4, 10, 90, 10))
	assert.Equal(t, 1.0, res.GreenRatio)
}

func TestAnalyzeEmptyFrame(t *testing.T) {
	f, err := models.NewFrame(0, 0, nil, time.Unix(0, 0))
	require.NoError(t, err)

	e := NewExtractor()
	assert.True(t, e.Analyze(f).Empty())
	assert.True(t, e.Analyze(nil).Empty())
}

func TestAnalyzeIsPure(t *testing.T) {
	e := NewExtractor()
	f := mostlyGreenFrame(t)
	before := append([]byte(nil), f.Pix...)

	first := e.Analyze(f)
	second := e.Analyze(f)

	assert.Equal(t, first, second)
	assert.Equal(t, before, f.Pix)
}

func TestAnalyzeRatiosBounded(t *testing.T) {
	e := NewExtractor(WithStride(1))
	colours := [][3]byte{{0, 0, 0}, {255, 255, 255}, {200, 10, 10}, {10, 200, 10}, {10, 10, 200}, {150, 150, 10}}
	for _, c := range colours {
		res := e.Analyze(solidFrame(t, 3, 3, c[0], c[1], c[2]))
		assert.GreaterOrEqual(t, res.GreenRatio, 0.0)
		assert.GreaterOrEqual(t, res.RedRatio, 0.0)
		assert.LessOrEqual(t, res.GreenRatio+res.RedRatio, 1.0)
		assert.GreaterOrEqual(t, res.AvgBrightness, 0.0)
		assert.LessOrEqual(t, res.AvgBrightness, 255.0)
	}
}
