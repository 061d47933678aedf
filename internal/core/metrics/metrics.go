package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hoo"

// Stats is a point-in-time view of the server's occupancy.
type Stats struct {
	Capacity    int
	Connected   int
	LoggedIn    int
	ActiveGames int
	Waiting     int
}

// Metrics holds the server's prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	messages    *prometheus.CounterVec
	disconnects *prometheus.CounterVec
	matches     prometheus.Counter
}

// New registers every collector on a private registry. stats is called on
// each scrape to populate the occupancy gauges.
func New(stats func() Stats) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "number of dispatched messages by protocol class",
		}, []string{"class"}),
		disconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disconnects_total",
			Help:      "number of closed sessions by disconnect reason",
		}, []string{"reason"}),
		matches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "number of matches formed by quick match",
		}),
	}

	gauge := func(name, help string, value func(Stats) int) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(value(stats())) })
	}

	m.registry.MustRegister(
		m.messages,
		m.disconnects,
		m.matches,
		gauge("capacity", "maximum number of concurrent sessions", func(s Stats) int { return s.Capacity }),
		gauge("sessions_connected", "number of open sessions", func(s Stats) int { return s.Connected }),
		gauge("sessions_logged_in", "number of logged in sessions", func(s Stats) int { return s.LoggedIn }),
		gauge("games_active", "number of game slots in use", func(s Stats) int { return s.ActiveGames }),
		gauge("quickmatch_waiting", "number of sessions waiting for an opponent", func(s Stats) int { return s.Waiting }),
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) MessageDispatched(class string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(class).Inc()
}

func (m *Metrics) Disconnected(reason string) {
	if m == nil {
		return
	}
	m.disconnects.WithLabelValues(reason).Inc()
}

func (m *Metrics) MatchFormed() {
	if m == nil {
		return
	}
	m.matches.Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
