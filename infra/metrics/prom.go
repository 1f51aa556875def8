package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "ampgate/core/metrics"
)

// PromSink records controller activity in Prometheus metrics.
type PromSink struct {
	houseAmps     prometheus.Gauge
	carAmps       prometheus.Gauge
	commandedAmps prometheus.Gauge
	commands      prometheus.Counter
	skips         *prometheus.CounterVec
	restarts      prometheus.Counter
}

// NewPromSink registers controller metrics on the default Prometheus
// registerer. The Prometheus server is started separately.
func NewPromSink() (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		houseAmps: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ampgate_house_amps",
			Help: "Last sampled total house draw in amps",
		}),
		carAmps: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ampgate_car_amps",
			Help: "Last sampled vehicle charging draw in amps",
		}),
		commandedAmps: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ampgate_commanded_amps",
			Help: "Last charging current commanded to the vehicle",
		}),
		commands: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ampgate_commands_total",
			Help: "Total charging current commands sent",
		}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ampgate_controller_skips_total",
			Help: "Controller ticks skipped, by reason",
		}, []string{"reason"}),
		restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ampgate_session_restarts_total",
			Help: "Sessions rebuilt after a tick failure",
		}),
	}
	collectors := []prometheus.Collector{s.houseAmps, s.carAmps, s.commandedAmps, s.commands, s.skips, s.restarts}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return s, nil
}

// RecordSample sets the draw gauges.
func (s *PromSink) RecordSample(sm coremetrics.Sample) error {
	s.houseAmps.Set(sm.HouseAmps)
	s.carAmps.Set(sm.CarAmps)
	return nil
}

// RecordCommand counts the command and sets the commanded gauge.
func (s *PromSink) RecordCommand(c coremetrics.Command) error {
	s.commandedAmps.Set(float64(c.Amps))
	s.commands.Inc()
	return nil
}

// RecordSkip counts a skipped controller tick.
func (s *PromSink) RecordSkip(reason string) error {
	s.skips.WithLabelValues(reason).Inc()
	return nil
}

// RecordRestart counts a session rebuild.
func (s *PromSink) RecordRestart() error {
	s.restarts.Inc()
	return nil
}
