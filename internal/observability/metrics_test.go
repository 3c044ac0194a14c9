package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.JobsConsumed.Add(3)
	a.ConversionWarnings.WithLabelValues("lidar").Inc()

	assert.Equal(t, 3.0, testutil.ToFloat64(a.JobsConsumed))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.JobsConsumed))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.ConversionWarnings.WithLabelValues("lidar")))
}

func TestMetrics_ConversionDurationByInstrument(t *testing.T) {
	m := NewMetricsForTesting()
	m.ConversionDuration.WithLabelValues("radiometer").Observe(0.2)
	m.ConversionDuration.WithLabelValues("balloon").Observe(0.1)

	assert.Equal(t, 2, testutil.CollectAndCount(m.ConversionDuration))
}

func TestMetrics_GridsProducedByInstrument(t *testing.T) {
	m := NewMetricsForTesting()
	m.GridsProduced.WithLabelValues("lidar").Add(2)
	m.GridsProduced.WithLabelValues("balloon").Inc()

	assert.Equal(t, 2, testutil.CollectAndCount(m.GridsProduced))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.GridsProduced.WithLabelValues("lidar")))
}
