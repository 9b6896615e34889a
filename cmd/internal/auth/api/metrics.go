package api

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts auth outcomes. A nil *Metrics records nothing.
type Metrics struct {
	events *prometheus.CounterVec
}

// NewMetrics registers the auth collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fotocopie",
			Subsystem: "auth",
			Name:      "events_total",
			Help:      "Auth operations by event and outcome code.",
		}, []string{"event", "outcome"}),
	}
	if err := reg.Register(m.events); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) observe(event, outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(event, outcome).Inc()
}
