// Package charging implements the adaptive current controller: the sliding
// window aggregation tick and the feedback tick that keeps total house draw
// under the breaker budget by throttling the vehicle's charging current.
package charging

import (
	"context"
	"time"

	"ampgate/core/events"
	"ampgate/core/logger"
	"ampgate/core/metrics"
	"ampgate/internal/eventbus"
)

// budgetMargin scales the breaker budget before subtracting external
// consumption. Fixed at 1.0: the operator-facing MaxHouseAmps is expected to
// already encode any derating.
const budgetMargin = 1.0

// defaultRefreshDelay is how long after a command the vehicle snapshot is
// forcibly refreshed, so the next tick observes the applied change instead of
// stale cached state.
const defaultRefreshDelay = 10 * time.Second

// Options tune controller behavior outside the persisted Config.
type Options struct {
	// WarnThresholdAmps triggers an OvercurrentDetected event when the
	// instantaneous house reading exceeds it. Zero disables the watch.
	WarnThresholdAmps float64
	// WarnAfterSamples is how many consecutive high samples arm the event.
	WarnAfterSamples int
	// RefreshDelay overrides the post-command snapshot refresh delay.
	RefreshDelay time.Duration
}

// Controller runs the two periodic ticks against shared State. Ticks are
// invoked by the session supervisor and never run concurrently with each
// other.
type Controller struct {
	backend Backend
	state   *State
	sink    metrics.Sink
	bus     eventbus.EventBus
	log     logger.Logger
	opts    Options

	highStreak int

	// afterFunc schedules the delayed forced refresh; swapped in tests.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

// NewController wires a controller. sink and bus may be nil.
func NewController(b Backend, st *State, sink metrics.Sink, bus eventbus.EventBus, log logger.Logger, opts Options) *Controller {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if opts.RefreshDelay <= 0 {
		opts.RefreshDelay = defaultRefreshDelay
	}
	if opts.WarnAfterSamples <= 0 {
		opts.WarnAfterSamples = 2
	}
	return &Controller{
		backend:   b,
		state:     st,
		sink:      sink,
		bus:       bus,
		log:       log,
		opts:      opts,
		afterFunc: time.AfterFunc,
	}
}

// AggregatorTick fetches one paired sample and appends it to the windows.
// The vehicle fetch goes through the backend cache, so most ticks cost a
// single wattmeter read.
func (c *Controller) AggregatorTick(ctx context.Context) error {
	snap, err := c.backend.VehicleState(ctx, false)
	if err != nil {
		return err
	}
	house, err := c.backend.HouseAmps(ctx)
	if err != nil {
		return err
	}
	c.state.Observe(house, snap.ChargeAmps)
	if err := c.sink.RecordSample(metrics.Sample{HouseAmps: house, CarAmps: snap.ChargeAmps, Time: time.Now()}); err != nil {
		c.log.Warnf("record sample: %v", err)
	}
	c.watchOvercurrent(house)
	return nil
}

// watchOvercurrent publishes one event per excursion above the warn
// threshold, after the configured number of consecutive high samples.
func (c *Controller) watchOvercurrent(house float64) {
	if c.opts.WarnThresholdAmps <= 0 || c.bus == nil {
		return
	}
	if house <= c.opts.WarnThresholdAmps {
		c.highStreak = 0
		return
	}
	c.highStreak++
	if c.highStreak == c.opts.WarnAfterSamples {
		c.log.Warnf("house draw %.1fA above threshold %.1fA for %d samples", house, c.opts.WarnThresholdAmps, c.highStreak)
		c.bus.Publish(events.OvercurrentDetected{Amps: house, Threshold: c.opts.WarnThresholdAmps, Time: time.Now()})
	}
}

// ControllerTick derives a safe target charging current from the windows and
// commands the vehicle when the target is outside the hysteresis band.
func (c *Controller) ControllerTick(ctx context.Context) error {
	if !c.state.IsEnabled() {
		c.log.Debugf("controller disabled, skipping tick")
		return c.skip("disabled")
	}
	n, houseAvg, carAvg := c.state.Averages()
	if n == 0 {
		c.log.Debugf("empty sliding window, skipping tick")
		return c.skip("empty_window")
	}
	snap, err := c.backend.VehicleState(ctx, false)
	if err != nil {
		return err
	}
	if !snap.Charging() {
		c.log.Debugf("vehicle not charging (%s), skipping tick", snap.State)
		return c.skip("not_charging")
	}

	cfg := c.state.Config

	// The house average includes the car's own draw.
	externalAvg := houseAvg - carAvg
	raw := cfg.MaxHouseAmps*budgetMargin - externalAvg
	if raw < 0 {
		raw = 0
	}
	if raw > cfg.MaxCarAmps {
		raw = cfg.MaxCarAmps
	}
	// Truncate, never round up: a fractional amp of headroom is not enough
	// to grant a whole one.
	target := int(raw)

	current := int(snap.ChargeAmps)
	// Tolerate a 1A undershoot so measurement noise does not flap the
	// command. Overshoot of any size is always corrected.
	if target == current || target == current-1 {
		c.log.Debugf("target %dA within hysteresis of current %dA, keeping", target, current)
		return c.skip("hysteresis")
	}

	c.log.Infof("house %.2fA (external %.2fA), car %.2fA: commanding %dA (was %dA)",
		houseAvg, externalAvg, carAvg, target, current)
	if err := c.backend.SetChargingAmps(ctx, target); err != nil {
		return err
	}
	c.state.SetLastCommanded(target)
	if err := c.sink.RecordCommand(metrics.Command{Amps: target, PreviousAmps: snap.ChargeAmps, Time: time.Now()}); err != nil {
		c.log.Warnf("record command: %v", err)
	}
	if c.bus != nil {
		c.bus.Publish(events.CommandIssued{Amps: target, PreviousAmps: snap.ChargeAmps, Time: time.Now()})
	}
	c.scheduleRefresh()
	return nil
}

// scheduleRefresh forces a snapshot refetch shortly after a command so the
// next tick sees the applied change rather than the cached pre-command state.
func (c *Controller) scheduleRefresh() {
	c.afterFunc(c.opts.RefreshDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if _, err := c.backend.VehicleState(ctx, true); err != nil {
			c.log.Warnf("post-command refresh: %v", err)
		}
	})
}

func (c *Controller) skip(reason string) error {
	if err := c.sink.RecordSkip(reason); err != nil {
		c.log.Warnf("record skip: %v", err)
	}
	return nil
}
