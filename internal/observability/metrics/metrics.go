package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for booking commands.
type BookingMetrics struct {
	commandsTotal   *prometheus.CounterVec
	conflictsTotal  prometheus.Counter
	commandDuration *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookline",
			Subsystem: "bookings",
			Name:      "commands_total",
			Help:      "Total booking commands by command and outcome",
		}, []string{"command", "outcome"}),
		conflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bookline",
			Subsystem: "bookings",
			Name:      "conflicts_total",
			Help:      "Total booking attempts rejected for staff double-booking",
		}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bookline",
			Subsystem: "bookings",
			Name:      "command_duration_seconds",
			Help:      "Latency of booking command handling",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.commandsTotal, m.conflictsTotal, m.commandDuration)
	return m
}

func (m *BookingMetrics) ObserveCommand(command, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(command, outcome).Inc()
	m.commandDuration.WithLabelValues(command).Observe(seconds)
}

func (m *BookingMetrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.conflictsTotal.Inc()
}
