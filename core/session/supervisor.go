// Package session supervises the controller lifecycle: it builds a session,
// runs the periodic ticks, persists state across teardowns and rebuilds the
// whole stack after a failure.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ampgate/core/charging"
	"ampgate/core/events"
	"ampgate/core/geofence"
	"ampgate/core/logger"
	"ampgate/core/metrics"
	"ampgate/internal/eventbus"
)

// Store persists the controller state between sessions. A Load returning
// ok=false or an error means no usable state; the supervisor starts fresh and
// never treats it as fatal.
type Store interface {
	Load() (*charging.State, bool, error)
	Save(*charging.State) error
}

// BackendFactory builds a fresh backend for each session. The backend is
// never reused across a recovery because a failure may have left it in an
// unknown state.
type BackendFactory func() (charging.Backend, error)

// Config holds the supervisor's scheduling parameters.
type Config struct {
	// SamplePeriod is the aggregator tick period.
	SamplePeriod time.Duration
	// ControllerEvery runs the controller tick after every Nth aggregator
	// tick.
	ControllerEvery int
	// Cooldown is the pause between a failed session and the next attempt.
	Cooldown time.Duration
	// WindowCapacity bounds the sample windows.
	WindowCapacity int
	// Geofence runs the arm/disarm gate before the periodic ticks.
	Geofence bool
	// MaxSpeedKMH is the geofence travel-time bound; zero for the default.
	MaxSpeedKMH float64
	// Controller is the persisted controller configuration.
	Controller charging.Config
	// Options are the non-persisted controller knobs.
	Options charging.Options
}

// Supervisor drives sessions until its context is cancelled.
type Supervisor struct {
	cfg        Config
	newBackend BackendFactory
	store      Store
	sink       metrics.Sink
	bus        eventbus.EventBus
	log        logger.Logger
}

// New creates a Supervisor. store, sink and bus may be nil.
func New(cfg Config, factory BackendFactory, store Store, sink metrics.Sink, bus eventbus.EventBus, log logger.Logger) *Supervisor {
	if cfg.ControllerEvery <= 0 {
		cfg.ControllerEvery = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Second
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Supervisor{cfg: cfg, newBackend: factory, store: store, sink: sink, bus: bus, log: log}
}

// Run loops sessions until ctx is cancelled. A tick failure tears the session
// down, persists state, waits the cooldown and starts over. Cancellation is
// the only clean exit and always returns nil.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		err := s.runSession(ctx)
		if ctx.Err() != nil {
			s.log.Infof("shutdown requested, exiting")
			return nil
		}
		s.log.Errorf("session failed: %v; restarting in %s", err, s.cfg.Cooldown)
		if rerr := s.sink.RecordRestart(); rerr != nil {
			s.log.Warnf("record restart: %v", rerr)
		}
		if s.bus != nil {
			s.bus.Publish(events.SessionRecovered{Cause: err.Error(), Time: time.Now()})
		}
		if !sleepCtx(ctx, s.cfg.Cooldown) {
			return nil
		}
	}
}

// runSession is one Starting -> Running pass. It returns the tick error that
// ended the session, or ctx.Err() on cancellation. State is persisted on
// every exit path.
func (s *Supervisor) runSession(ctx context.Context) error {
	id := uuid.NewString()
	s.log.Infof("session %s starting", id)

	state := s.loadState()
	backend, err := s.newBackend()
	if err != nil {
		return err
	}
	if cc, ok := backend.(charging.CacheCarrier); ok && !state.Cache.FetchedAt.IsZero() {
		cc.SeedSnapshot(state.Cache)
	}
	defer s.persist(state, backend)

	ctrl := charging.NewController(backend, state, s.sink, s.bus, s.log, s.cfg.Options)

	if s.cfg.Geofence {
		gate := geofence.New(backend, state, s.log, s.cfg.MaxSpeedKMH)
		if err := gate.Wait(ctx); err != nil {
			return err
		}
	}

	// Both ticks run on this one goroutine: a controller tick always
	// observes a completed aggregator append/evict cycle, never a partial
	// one.
	ticker := time.NewTicker(s.cfg.SamplePeriod)
	defer ticker.Stop()
	s.log.Infof("session %s running (sample period %s, controller every %d ticks)", id, s.cfg.SamplePeriod, s.cfg.ControllerEvery)
	for n := 0; ; {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := ctrl.AggregatorTick(ctx); err != nil {
				return err
			}
			n++
			if n%s.cfg.ControllerEvery == 0 {
				if err := ctrl.ControllerTick(ctx); err != nil {
					return err
				}
			}
		}
	}
}

// loadState returns persisted state when present and structurally compatible
// with the current configuration, fresh state otherwise.
func (s *Supervisor) loadState() *charging.State {
	fresh := charging.NewState(s.cfg.Controller, s.cfg.WindowCapacity)
	if s.store == nil {
		return fresh
	}
	st, ok, err := s.store.Load()
	if err != nil {
		s.log.Warnf("discarding persisted state: %v", err)
		return fresh
	}
	if !ok {
		return fresh
	}
	if !st.Compatible(s.cfg.Controller, s.cfg.WindowCapacity) {
		s.log.Infof("persisted state incompatible with current configuration, starting fresh")
		return fresh
	}
	s.log.Infof("resuming from persisted state (%d samples)", st.Windows.Len())
	return st
}

// persist writes state at teardown, folding the backend's snapshot cache in
// so a restart does not need an immediate vehicle fetch.
func (s *Supervisor) persist(state *charging.State, backend charging.Backend) {
	if s.store == nil {
		return
	}
	if cc, ok := backend.(charging.CacheCarrier); ok {
		state.SetCache(cc.CachedSnapshot())
	}
	if err := s.store.Save(state.Clone()); err != nil {
		s.log.Errorf("persist state: %v", err)
	}
}

// sleepCtx waits d and reports false if ctx was cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
