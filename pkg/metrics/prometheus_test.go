package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg)

	r.RecordSignal("CALL", 88)
	r.RecordSignal("CALL", 91)
	r.RecordSignal("PUT", 82)
	r.RecordTick("cooldown")
	r.RecordError("camera_open")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.signalsTotal.WithLabelValues("CALL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.signalsTotal.WithLabelValues("PUT")))
	assert.Equal(t, 91.0, testutil.ToFloat64(r.lastConf.WithLabelValues("CALL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ticksTotal.WithLabelValues("cooldown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("camera_open")))
}
