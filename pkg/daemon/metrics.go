package daemon

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charlie0129/leptong2/pkg/g2"
	"github.com/charlie0129/leptong2/pkg/lepton"
)

type metrics struct {
	registry *prometheus.Registry

	computations *prometheus.CounterVec
	failures     *prometheus.CounterVec
	significance *prometheus.GaugeVec
	duration     prometheus.Histogram
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &metrics{
		registry: reg,
		computations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "g2_computations_total",
			Help: "Significance computations by species, variant, mode and whether an override was applied",
		}, []string{"species", "variant", "mode", "override"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "g2_computation_errors_total",
			Help: "Failed computations by species and HTTP status",
		}, []string{"species", "code"}),
		significance: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "g2_significance_sigma",
			Help: "Last significance by species and variant, computed and applied",
		}, []string{"species", "variant", "kind"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "g2_computation_duration_seconds",
			Help:    "Duration of anomalous-moment computations",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 12), // 10µs to ~20ms
		}),
	}
}

func (m *metrics) observe(res g2.Result, d time.Duration) {
	species, variant := string(res.Species), string(res.Variant)
	m.computations.WithLabelValues(species, variant, string(res.Mode), strconv.FormatBool(res.OverrideApplied)).Inc()
	m.significance.WithLabelValues(species, variant, "computed").Set(res.Computed)
	m.significance.WithLabelValues(species, variant, "applied").Set(res.Applied)
	m.duration.Observe(d.Seconds())
}

func (m *metrics) fail(s lepton.Species, code int) {
	label := string(s)
	if !s.Valid() {
		label = "invalid"
	}
	m.failures.WithLabelValues(label, strconv.Itoa(code)).Inc()
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
