package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"straincap/capture"
)

var _ capture.Metrics = (*CaptureMetrics)(nil)

func TestCaptureMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCaptureMetrics(reg)

	m.LineReceived()
	m.LineReceived()
	m.RowParsed()
	m.LineIgnored()
	m.StopSent()
	m.SessionFinished(capture.OutcomeOK, 42)
	m.SessionFinished(capture.OutcomeEmpty, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.linesReceived))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rowsParsed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.linesIgnored))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stopCommands))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessions.WithLabelValues(capture.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessions.WithLabelValues(capture.OutcomeEmpty)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.sessionRows))

	count, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestRegisterTwiceOnSameRegistryPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCaptureMetrics(reg)
	assert.Panics(t, func() { NewCaptureMetrics(reg) })
}
