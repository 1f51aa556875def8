package model

import (
	"time"

	"ampgate/core/geo"
)

// ChargingState mirrors the charge session states reported by the vehicle API.
type ChargingState string

const (
	StateComplete     ChargingState = "Complete"
	StateCharging     ChargingState = "Charging"
	StateDisconnected ChargingState = "Disconnected"
	StatePending      ChargingState = "Pending"
	StateStarting     ChargingState = "Starting"
	StateStopped      ChargingState = "Stopped"
)

// VehicleSnapshot is one full-state fetch from the vehicle API. Snapshots are
// immutable once constructed and superseded wholesale by the next fetch.
type VehicleSnapshot struct {
	State                ChargingState `json:"charging_state"`
	ChargeAmps           float64       `json:"charge_amps"`
	ChargeCurrentRequest float64       `json:"charge_current_request"`
	Position             geo.Location  `json:"position"`
	PositionAsOf         time.Time     `json:"position_as_of"`
}

// Charging reports whether the vehicle is actively drawing current. Only an
// active session may be throttled; Pending and Starting are not yet drawing.
func (s VehicleSnapshot) Charging() bool { return s.State == StateCharging }

// CachedSnapshot pairs a snapshot with its fetch time. It is owned by the
// remote client, replaced atomically on refresh and read-only to consumers.
type CachedSnapshot struct {
	Snapshot  VehicleSnapshot `json:"snapshot"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Fresh reports whether the cached snapshot is younger than ttl at now.
func (c CachedSnapshot) Fresh(now time.Time, ttl time.Duration) bool {
	return !c.FetchedAt.IsZero() && now.Sub(c.FetchedAt) < ttl
}
