package obs_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pizzeria-api/internal/obs"
)

func TestDomainMetricsHelpers(t *testing.T) {
	registry := prometheus.NewRegistry()
	obs.MustRegisterDomainMetrics("pizzeria", registry)

	before := testutil.ToFloat64(obs.QuoteTotal.WithLabelValues("PIZZA", "ok"))
	obs.ObserveQuote("PIZZA", "ok")
	require.Equal(t, before+1, testutil.ToFloat64(obs.QuoteTotal.WithLabelValues("PIZZA", "ok")))

	obs.ObserveRepriceLine("mismatch")
	require.GreaterOrEqual(t, testutil.ToFloat64(obs.RepriceLinesTotal.WithLabelValues("mismatch")), 1.0)

	before = testutil.ToFloat64(obs.VerifyLinesTotal.WithLabelValues("match"))
	obs.ObserveVerifyLine("match")
	require.Equal(t, before+1, testutil.ToFloat64(obs.VerifyLinesTotal.WithLabelValues("match")))

	obs.ObserveCatalogSnapshot(3 * time.Millisecond)
	require.Positive(t, testutil.CollectAndCount(obs.CatalogSnapshotDuration))
}
