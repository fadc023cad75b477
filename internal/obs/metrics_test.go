package obs_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pizzeria-api/internal/obs"
)

func TestParseBucketsCSV(t *testing.T) {
	require.Nil(t, obs.ParseBucketsCSV("  "))
	require.Equal(t, []float64{1, 5, 25}, obs.ParseBucketsCSV("25, 5,abc,-3,1,5,0"))
}

func TestNewHTTPMetricsReusesRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := obs.NewHTTPMetrics("pizzeria", nil, registry)
	second := obs.NewHTTPMetrics("pizzeria", nil, registry)

	require.Same(t, first.ReqTotal, second.ReqTotal)
	require.Same(t, first.ReqDur, second.ReqDur)
	require.Equal(t, first.InFlight, second.InFlight)
}
