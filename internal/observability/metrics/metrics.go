package metrics

import "github.com/prometheus/client_golang/prometheus"

// PageMetrics exposes counters for the page runtime.
type PageMetrics struct {
	eventsTotal        *prometheus.CounterVec
	dialogsTotal       *prometheus.CounterVec
	rejectionsTotal    *prometheus.CounterVec
	interceptionsTotal *prometheus.CounterVec
	validationsTotal   *prometheus.CounterVec
	activeSessions     prometheus.Gauge
	sessionDuration    prometheus.Histogram
}

func NewPageMetrics(reg prometheus.Registerer) *PageMetrics {
	m := &PageMetrics{
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veris",
			Subsystem: "page",
			Name:      "events_total",
			Help:      "Page events received by type",
		}, []string{"type"}),
		dialogsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veris",
			Subsystem: "page",
			Name:      "dialogs_total",
			Help:      "Resolved alert and confirm prompts",
		}, []string{"backend", "kind", "outcome"}),
		rejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veris",
			Subsystem: "booking",
			Name:      "rejections_total",
			Help:      "Booking actions refused with a warning",
		}, []string{"action"}),
		interceptionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veris",
			Subsystem: "page",
			Name:      "interceptions_total",
			Help:      "Held-back links and forms by outcome",
		}, []string{"kind", "outcome"}),
		validationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veris",
			Subsystem: "validation",
			Name:      "requests_total",
			Help:      "Form validation requests by gate and result",
		}, []string{"gate", "result"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "veris",
			Subsystem: "page",
			Name:      "active_sessions",
			Help:      "Open page runtime connections",
		}),
		sessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "veris",
			Subsystem: "page",
			Name:      "session_duration_seconds",
			Help:      "Lifetime of page runtime connections",
			Buckets:   []float64{1, 5, 30, 60, 300, 900, 1800, 3600},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.eventsTotal, m.dialogsTotal, m.rejectionsTotal, m.interceptionsTotal,
		m.validationsTotal, m.activeSessions, m.sessionDuration)
	return m
}

func (m *PageMetrics) ObserveEvent(eventType string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(eventType).Inc()
}

func (m *PageMetrics) ObserveDialog(backend, kind string, accepted bool) {
	if m == nil {
		return
	}
	outcome := "dismissed"
	if accepted {
		outcome = "accepted"
	}
	m.dialogsTotal.WithLabelValues(backend, kind, outcome).Inc()
}

func (m *PageMetrics) ObserveRejection(action string) {
	if m == nil {
		return
	}
	m.rejectionsTotal.WithLabelValues(action).Inc()
}

func (m *PageMetrics) ObserveInterception(kind, outcome string) {
	if m == nil {
		return
	}
	m.interceptionsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *PageMetrics) ObserveValidation(gate string, valid bool) {
	if m == nil {
		return
	}
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.validationsTotal.WithLabelValues(gate, result).Inc()
}

// SessionOpened marks a connection as active.
func (m *PageMetrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

// SessionClosed records the connection lifetime.
func (m *PageMetrics) SessionClosed(seconds float64) {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
	m.sessionDuration.Observe(seconds)
}
