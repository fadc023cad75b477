package obs

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuoteTotal counts price quote outcomes by line kind.
	QuoteTotal *prometheus.CounterVec
	// RepriceLinesTotal counts server-side re-pricing outcomes per line.
	RepriceLinesTotal *prometheus.CounterVec
	// VerifyLinesTotal counts client price comparisons per priced line.
	VerifyLinesTotal *prometheus.CounterVec
	// CheckoutTotal counts checkout attempts by outcome.
	CheckoutTotal *prometheus.CounterVec
	// MaterializeTotal counts order line materialization outcomes.
	MaterializeTotal *prometheus.CounterVec
	// CatalogSnapshotDuration records catalog snapshot load latency in milliseconds.
	CatalogSnapshotDuration prometheus.Histogram
	// CatalogCacheTotal counts snapshot cache hits and misses.
	CatalogCacheTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuoteTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_total",
			Help:      "Count of price quotes by line kind and outcome.",
		}, []string{"kind", "result"})
		RepriceLinesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reprice_lines_total",
			Help:      "Count of re-priced lines by outcome.",
		}, []string{"result"})
		VerifyLinesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verify_lines_total",
			Help:      "Count of client price comparisons by result (match or mismatch).",
		}, []string{"result"})
		CheckoutTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Count of checkout attempts by outcome.",
		}, []string{"result"})
		MaterializeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "materialize_total",
			Help:      "Count of order line materializations by outcome.",
		}, []string{"result"})
		CatalogSnapshotDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_snapshot_duration_ms",
			Help:      "Latency for loading catalog snapshots in milliseconds.",
			Buckets:   []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500},
		})
		CatalogCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_total",
			Help:      "Count of catalog snapshot cache lookups by result.",
		}, []string{"result"})

		for _, vec := range []**prometheus.CounterVec{&QuoteTotal, &RepriceLinesTotal, &VerifyLinesTotal, &CheckoutTotal, &MaterializeTotal, &CatalogCacheTotal} {
			register(reg, vec)
		}
		register(reg, &CatalogSnapshotDuration)
	})
}

func inc(vec *prometheus.CounterVec, labels ...string) {
	if vec == nil {
		return
	}
	vec.WithLabelValues(labels...).Inc()
}

// ObserveQuote records a quote outcome. It is a no-op before registration.
func ObserveQuote(kind, result string) { inc(QuoteTotal, kind, result) }

// ObserveRepriceLine records the outcome of re-pricing one line.
func ObserveRepriceLine(result string) { inc(RepriceLinesTotal, result) }

// ObserveVerifyLine records whether a client price matched the recomputed one.
func ObserveVerifyLine(result string) { inc(VerifyLinesTotal, result) }

// ObserveCheckout records a checkout outcome.
func ObserveCheckout(result string) { inc(CheckoutTotal, result) }

// ObserveMaterialize records an order line materialization outcome.
func ObserveMaterialize(result string) { inc(MaterializeTotal, result) }

// ObserveCatalogCache records a snapshot cache hit or miss.
func ObserveCatalogCache(result string) { inc(CatalogCacheTotal, result) }

// ObserveCatalogSnapshot records how long a snapshot load took.
func ObserveCatalogSnapshot(d time.Duration) {
	if CatalogSnapshotDuration == nil {
		return
	}
	CatalogSnapshotDuration.Observe(DurationMillis(d))
}
