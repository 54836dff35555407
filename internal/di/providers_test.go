package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChartSignal/pkg/config"
	applogger "ChartSignal/pkg/logger"
)

func TestProvideArchiveDisabled(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)

	a, err := ProvideArchive(nil, cfg, applogger.Nop())
	require.NoError(t, err)
	assert.Nil(t, a)

	hist := ProvideHistoryUseCase(a)
	assert.False(t, hist.Enabled())
}
