// Package app wires configuration, backends, sinks and the session
// supervisor into the runnable service.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"ampgate/config"
	"ampgate/core/charging"
	"ampgate/core/events"
	"ampgate/core/geo"
	coremetrics "ampgate/core/metrics"
	"ampgate/core/session"
	"ampgate/infra/fixture"
	"ampgate/infra/logger"
	"ampgate/infra/metrics"
	"ampgate/infra/persistence"
	"ampgate/infra/remote"
	"ampgate/internal/eventbus"
)

// Service orchestrates the supervisor and its collaborators.
type Service struct {
	sup         *session.Supervisor
	bus         *eventbus.Bus
	store       session.Store
	log         logger.Logger
	promEnabled bool
	promPort    string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink()
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	var sink coremetrics.Sink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	store, err := persistence.NewStore(cfg.Persistence, logg)
	if err != nil {
		return nil, fmt.Errorf("state store: %w", err)
	}

	bus := eventbus.New()
	sup := session.New(supervisorConfig(cfg), BackendFactory(cfg), store, sink, bus, logg)

	return &Service{
		sup:         sup,
		bus:         bus,
		store:       store,
		log:         logg,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promPort:    cfg.Metrics.PrometheusPort,
	}, nil
}

// BackendFactory returns the session backend factory selected by the
// configuration: fixture-backed in mock mode, network-backed otherwise.
func BackendFactory(cfg *config.Config) session.BackendFactory {
	if cfg.Mock.Enabled {
		return func() (charging.Backend, error) {
			return fixture.New(cfg.Mock.FixturePath, logger.New("fixture-backend")), nil
		}
	}
	return func() (charging.Backend, error) {
		return remote.New(cfg.Remote, logger.New("remote-backend")), nil
	}
}

func supervisorConfig(cfg *config.Config) session.Config {
	return session.Config{
		SamplePeriod:    time.Duration(cfg.Controller.SamplePeriodSeconds) * time.Second,
		ControllerEvery: cfg.Controller.ControllerEveryTicks,
		Cooldown:        time.Duration(cfg.Controller.CooldownSeconds) * time.Second,
		WindowCapacity:  cfg.Controller.WindowCapacity(),
		Geofence:        cfg.Geofence.Enabled,
		MaxSpeedKMH:     cfg.Geofence.MaxSpeedKMH,
		Controller: charging.Config{
			MaxHouseAmps:   cfg.Controller.MaxHouseAmps,
			MaxCarAmps:     cfg.Controller.MaxCarAmps,
			Charger:        geo.Location{Lat: cfg.Geofence.Lat, Lon: cfg.Geofence.Lon},
			ChargerRadiusM: cfg.Geofence.RadiusM,
		},
		Options: charging.Options{
			WarnThresholdAmps: cfg.Controller.WarnThresholdAmps,
			WarnAfterSamples:  cfg.Controller.WarnAfterSamples,
		},
	}
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	go s.watchEvents(ctx)
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	return s.sup.Run(ctx)
}

// watchEvents logs domain events. Notification delivery to the operator's
// desktop is a separate collaborator consuming the same bus.
func (s *Service) watchEvents(ctx context.Context) {
	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub:
			if !ok {
				return
			}
			switch ev := e.(type) {
			case events.CommandIssued:
				s.log.Infof("charging current set to %dA (was %.1fA)", ev.Amps, ev.PreviousAmps)
			case events.OvercurrentDetected:
				s.log.Warnf("high current detected: %.1fA exceeds %.1fA", ev.Amps, ev.Threshold)
			case events.SessionRecovered:
				s.log.Warnf("session recovered: %s", ev.Cause)
			}
		}
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if closer, ok := s.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
