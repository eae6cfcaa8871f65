package triage

import "github.com/prometheus/client_golang/prometheus"

// EngineHooks are observation callbacks invoked by the engine and
// classifier. The zero value is valid; nil funcs are skipped.
type EngineHooks struct {
	// OnLLMCall fires once per oracle attempt.
	OnLLMCall func(duration float64, failed bool)

	// OnLLMExhausted fires when a candidate's retries run out and the
	// sentinel result is used.
	OnLLMExhausted func()

	// OnCandidate fires once per triaged candidate with its final category.
	OnCandidate func(category Category, enriched bool)

	// OnScanComplete fires at the end of a run.
	OnScanComplete func(status string, duration float64, total int)
}

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	ScansTotal        *prometheus.CounterVec
	ScanDuration      prometheus.Histogram
	ScanSize          prometheus.Histogram
	CandidatesTotal   *prometheus.CounterVec
	EnrichedTotal     prometheus.Counter
	LLMCallsTotal     *prometheus.CounterVec
	LLMCallDuration   prometheus.Histogram
	LLMExhaustedTotal prometheus.Counter
	SnapshotStartups  prometheus.Gauge
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scout_scans_total",
			Help: "Total scan runs by final status.",
		}, []string{"status"}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scout_scan_duration_seconds",
			Help:    "Duration of scan runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s .. ~2048s
		}),
		ScanSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scout_scan_candidates",
			Help:    "Candidates triaged per scan run.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1 .. ~2048
		}),
		CandidatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scout_candidates_total",
			Help: "Total triaged candidates by final category.",
		}, []string{"category"}),
		EnrichedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scout_enriched_total",
			Help: "Total candidates matched against the spin-off registry.",
		}),
		LLMCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scout_llm_calls_total",
			Help: "Total oracle calls by outcome.",
		}, []string{"outcome"}),
		LLMCallDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scout_llm_call_duration_seconds",
			Help:    "Duration of individual oracle calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 0.25s .. ~32s
		}),
		LLMExhaustedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scout_llm_exhausted_total",
			Help: "Total candidates whose classification retries ran out.",
		}),
		SnapshotStartups: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scout_snapshot_startups",
			Help: "Startups in the most recently written snapshot.",
		}),
	}

	reg.MustRegister(
		m.ScansTotal,
		m.ScanDuration,
		m.ScanSize,
		m.CandidatesTotal,
		m.EnrichedTotal,
		m.LLMCallsTotal,
		m.LLMCallDuration,
		m.LLMExhaustedTotal,
		m.SnapshotStartups,
	)

	return m
}

// Hooks returns an EngineHooks that increments the corresponding metrics.
func (m *Metrics) Hooks() EngineHooks {
	return EngineHooks{
		OnLLMCall: func(duration float64, failed bool) {
			outcome := "success"
			if failed {
				outcome = "error"
			}
			m.LLMCallsTotal.WithLabelValues(outcome).Inc()
			m.LLMCallDuration.Observe(duration)
		},
		OnLLMExhausted: func() {
			m.LLMExhaustedTotal.Inc()
		},
		OnCandidate: func(category Category, enriched bool) {
			m.CandidatesTotal.WithLabelValues(string(category)).Inc()
			if enriched {
				m.EnrichedTotal.Inc()
			}
		},
		OnScanComplete: func(status string, duration float64, total int) {
			m.ScansTotal.WithLabelValues(status).Inc()
			m.ScanDuration.Observe(duration)
			m.ScanSize.Observe(float64(total))
			if status == "success" {
				m.SnapshotStartups.Set(float64(total))
			}
		},
	}
}
