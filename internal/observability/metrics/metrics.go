package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for the submit flow and persistence.
type ChatMetrics struct {
	submissions       *prometheus.CounterVec
	completionLatency *prometheus.HistogramVec
	storageWrites     *prometheus.CounterVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geminichat",
			Subsystem: "chat",
			Name:      "submissions_total",
			Help:      "Prompt submissions by outcome",
		}, []string{"status"}),
		completionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "geminichat",
			Subsystem: "chat",
			Name:      "completion_latency_seconds",
			Help:      "Latency of remote completion calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		storageWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geminichat",
			Subsystem: "storage",
			Name:      "writes_total",
			Help:      "Durable storage writes by key and outcome",
		}, []string{"key", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissions, m.completionLatency, m.storageWrites)
	return m
}

// ObserveSubmission records ok, empty, busy or remote_error.
func (m *ChatMetrics) ObserveSubmission(status string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(status).Inc()
}

func (m *ChatMetrics) ObserveCompletionLatency(streamed bool, seconds float64) {
	if m == nil {
		return
	}
	mode := "generate"
	if streamed {
		mode = "stream"
	}
	m.completionLatency.WithLabelValues(mode).Observe(seconds)
}

func (m *ChatMetrics) ObserveStorageWrite(key string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.storageWrites.WithLabelValues(key, status).Inc()
}
