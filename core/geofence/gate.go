// Package geofence arms and disarms the charge controller based on vehicle
// proximity to the charger. While the vehicle is far away the gate sleeps for
// a lower-bound travel time instead of polling, keeping the rate-limited
// vehicle API quiet.
package geofence

import (
	"context"
	"time"

	"ampgate/core/charging"
	"ampgate/core/geo"
	"ampgate/core/logger"
)

// DefaultMaxSpeedKMH bounds how fast the vehicle could plausibly approach
// the charger. The sleep derived from it is a conservative lower bound on
// arrival time.
const DefaultMaxSpeedKMH = 150.0

// minRecheck keeps the loop from spinning when the vehicle sits just outside
// the radius.
const minRecheck = time.Second

// Gate runs the one-shot arm/disarm loop.
type Gate struct {
	backend     charging.Backend
	state       *charging.State
	log         logger.Logger
	maxSpeedKMH float64

	// sleep is context-aware and swapped in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Gate. maxSpeedKMH <= 0 selects the default.
func New(b charging.Backend, st *charging.State, log logger.Logger, maxSpeedKMH float64) *Gate {
	if maxSpeedKMH <= 0 {
		maxSpeedKMH = DefaultMaxSpeedKMH
	}
	return &Gate{
		backend:     b,
		state:       st,
		log:         log,
		maxSpeedKMH: maxSpeedKMH,
		sleep:       sleepCtx,
	}
}

// Wait disables the controller, then blocks until the vehicle is inside the
// charger radius and re-arms it. It returns early on context cancellation or
// when a vehicle-state fetch ultimately fails.
func (g *Gate) Wait(ctx context.Context) error {
	g.state.SetEnabled(false)
	cfg := g.state.Config
	for {
		snap, err := g.backend.VehicleState(ctx, false)
		if err != nil {
			return err
		}
		d := geo.Distance(snap.Position, cfg.Charger)
		if d < cfg.ChargerRadiusM {
			g.log.Infof("vehicle %.0fm from charger, arming controller", d)
			g.state.SetEnabled(true)
			return nil
		}
		wait := g.minTravelTime(d)
		g.log.Infof("vehicle %.0fm away, at least %s to the charger at %.0f km/h; sleeping", d, wait, g.maxSpeedKMH)
		if err := g.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// minTravelTime is the shortest time the vehicle could need to cover d
// meters at the configured top speed.
func (g *Gate) minTravelTime(d float64) time.Duration {
	maxSpeedMS := g.maxSpeedKMH / 3.6
	wait := time.Duration(d/maxSpeedMS) * time.Second
	if wait < minRecheck {
		wait = minRecheck
	}
	return wait
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
