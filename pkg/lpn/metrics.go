package lpn

import "github.com/prometheus/client_golang/prometheus"

// metricsSet mirrors the teacher's pkg/consensus/prometheus.go pattern: a
// handful of collectors, created per Context with its instance label,
// registered with the default registry and updated inline from the state
// machine, gated by Config.Metrics.Enabled.
type metricsSet struct {
	state             prometheus.Gauge
	pollTimeoutMillis prometheus.Gauge
	reqAttempts       prometheus.Gauge
	friendRequests    prometheus.Counter
	polls             prometheus.Counter
	clears            prometheus.Counter
	established       prometheus.Counter
}

func newMetricsSet(instance string) *metricsSet {
	labels := prometheus.Labels{"instance": instance}
	return &metricsSet{
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "lpn",
			Name:        "state",
			Help:        "Current LPN friendship state as its numeric value.",
			ConstLabels: labels,
		}),
		pollTimeoutMillis: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "lpn",
			Name:        "poll_timeout_ms",
			Help:        "Current Poll Timeout in milliseconds.",
			ConstLabels: labels,
		}),
		reqAttempts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "lpn",
			Name:        "req_attempts",
			Help:        "Retry counter for the in-flight request.",
			ConstLabels: labels,
		}),
		friendRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "lpn",
			Name:        "friend_requests_total",
			Help:        "Total number of Friend Request messages sent.",
			ConstLabels: labels,
		}),
		polls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "lpn",
			Name:        "polls_total",
			Help:        "Total number of Friend Poll messages sent.",
			ConstLabels: labels,
		}),
		clears: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "lpn",
			Name:        "clears_total",
			Help:        "Total number of Friend Clear messages sent.",
			ConstLabels: labels,
		}),
		established: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "lpn",
			Name:        "established_total",
			Help:        "Total number of friendships successfully established.",
			ConstLabels: labels,
		}),
	}
}

func (m *metricsSet) register() {
	prometheus.MustRegister(
		m.state,
		m.pollTimeoutMillis,
		m.reqAttempts,
		m.friendRequests,
		m.polls,
		m.clears,
		m.established,
	)
}
