package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"ledgersetup/index"
)

// Recorder counts ensure outcomes for one setup run.
type Recorder struct {
	registry *prometheus.Registry

	// per-table outcome counts (labels: table, action)
	EnsureTotal *prometheus.CounterVec
	// per-request duration
	EnsureDuration prometheus.Histogram
	// last run success (1 ok, 0 failed)
	LastRunSuccess prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		EnsureTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "ledger_index_ensure_total", Help: "Index ensure outcomes per table"},
			[]string{"table", "action"},
		),
		EnsureDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_index_ensure_duration_seconds",
			Help:    "Time spent ensuring one index, catalog lookup included",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		LastRunSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "ledger_index_setup_success", Help: "1 if the last setup run finished without error"},
		),
	}
	r.registry.MustRegister(r.EnsureTotal, r.EnsureDuration, r.LastRunSuccess)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// OnResult implements index.Observer.
func (r *Recorder) OnResult(_ context.Context, res index.Result) error {
	action := res.Action.String()
	if res.Err != nil {
		action = "failed"
	}
	r.EnsureTotal.WithLabelValues(res.Request.TableName, action).Inc()
	r.EnsureDuration.Observe(res.Duration.Seconds())
	return nil
}

func (r *Recorder) SetRunResult(err error) {
	if err != nil {
		r.LastRunSuccess.Set(0)
		return
	}
	r.LastRunSuccess.Set(1)
}

// Push sends the run's metrics to a Prometheus Pushgateway. The process
// exits right after setup, so nothing is left to scrape.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	return push.New(url, job).Gatherer(r.registry).PushContext(ctx)
}
