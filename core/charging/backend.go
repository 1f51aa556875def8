package charging

import (
	"context"

	"ampgate/core/model"
)

// Backend is the boundary to the two remote collaborators: the wattmeter and
// the vehicle API. The controller and supervisor are backend-agnostic; a
// network-backed and a fixture-backed implementation are injected at session
// start.
type Backend interface {
	// HouseAmps reads the instantaneous total house draw from the wattmeter.
	HouseAmps(ctx context.Context) (float64, error)
	// VehicleState returns the vehicle snapshot. Unless force is set, a
	// cached snapshot younger than the backend's TTL is returned without a
	// network call.
	VehicleState(ctx context.Context, force bool) (model.VehicleSnapshot, error)
	// SetChargingAmps commands the vehicle's charging current. Backends
	// suppress the call when amps equals the last confirmed command.
	SetChargingAmps(ctx context.Context, amps int) error
}

// CacheCarrier is implemented by backends that keep a TTL snapshot cache.
// The supervisor persists the cache across sessions and seeds it into the
// rebuilt backend on restart.
type CacheCarrier interface {
	CachedSnapshot() model.CachedSnapshot
	SeedSnapshot(model.CachedSnapshot)
}
