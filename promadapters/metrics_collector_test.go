package promadapters_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friedgreenrepos/biblioteca/promadapters"
)

func Test_IncrementCounter_IsVisibleOnTheRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)

	labels := map[string]string{"operation": "request_loan", "outcome": "success"}
	collector.IncrementCounter("loan_engine_operation_outcomes", labels)
	collector.IncrementCounter("loan_engine_operation_outcomes", labels)

	families, err := registry.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "loan_engine_operation_outcomes_total", families[0].GetName())
	require.Len(t, families[0].GetMetric(), 1)
	assert.Equal(t, 2.0, families[0].GetMetric()[0].GetCounter().GetValue())
}

func Test_RecordDuration_CreatesAHistogramWithTheLabelSet(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)

	collector.RecordDuration("loan_engine_operation_duration", 150*time.Millisecond, map[string]string{
		"operation": "approve_loan",
		"outcome":   "success",
	})

	families, err := registry.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "loan_engine_operation_duration_seconds", families[0].GetName())
	require.Len(t, families[0].GetMetric(), 1)
	assert.EqualValues(t, 1, families[0].GetMetric()[0].GetHistogram().GetSampleCount())
}

func Test_RecordValue_SetsAGauge(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)

	collector.RecordValue("loan_engine_open_transactions", 3, map[string]string{"store": "postgres"})
	collector.RecordValue("loan_engine_open_transactions", 1, map[string]string{"store": "postgres"})

	families, err := registry.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	require.Len(t, families[0].GetMetric(), 1)
	assert.Equal(t, 1.0, families[0].GetMetric()[0].GetGauge().GetValue())
}
