package controller

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the controller's Prometheus instruments.
type Metrics struct {
	HeatingStartsTotal prometheus.Counter
	HeatingStopsTotal  prometheus.Counter
	RuleTriggeredTotal *prometheus.CounterVec
	TickErrorsTotal    prometheus.Counter
	SnapshotSavesTotal prometheus.Counter
	TankTemp           prometheus.Gauge
	HeaterOn           prometheus.Gauge
}

// NewMetrics builds and registers the instrument set.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HeatingStartsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "solar_router",
			Name:      "heating_starts_total",
			Help:      "Number of times the heater was turned on",
		}),
		HeatingStopsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "solar_router",
			Name:      "heating_stops_total",
			Help:      "Number of times the heater was turned off",
		}),
		RuleTriggeredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solar_router",
			Name:      "rule_triggered_total",
			Help:      "Heater state changes per triggering rule",
		}, []string{"rule"}),
		TickErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "solar_router",
			Name:      "tick_errors_total",
			Help:      "Decision cycles aborted by telemetry or actuator failures",
		}),
		SnapshotSavesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "solar_router",
			Name:      "snapshot_saves_total",
			Help:      "Successful snapshot writes",
		}),
		TankTemp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "solar_router",
			Name:      "tank_temperature_celsius",
			Help:      "Estimated tank temperature",
		}),
		HeaterOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "solar_router",
			Name:      "heater_on_binary",
			Help:      "Whether the heater element is energized",
		}),
	}

	reg.MustRegister(
		m.HeatingStartsTotal,
		m.HeatingStopsTotal,
		m.RuleTriggeredTotal,
		m.TickErrorsTotal,
		m.SnapshotSavesTotal,
		m.TankTemp,
		m.HeaterOn,
	)
	return m
}
