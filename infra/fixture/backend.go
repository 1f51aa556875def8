// Package fixture implements a charging backend fed from a local JSON file,
// used for offline runs and manual testing. The file is re-read on every call
// so it can be edited while the service runs.
package fixture

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"ampgate/core/geo"
	"ampgate/core/logger"
	"ampgate/core/model"
)

// Data is the fixture file layout.
type Data struct {
	HouseAmps float64      `json:"house_amps"`
	CarAmps   float64      `json:"car_amps"`
	CarGeo    geo.Location `json:"car_geo"`
}

// Backend serves readings from the fixture file and logs commands instead of
// sending them.
type Backend struct {
	path string
	log  logger.Logger
}

// New creates a fixture backend reading from path.
func New(path string, log logger.Logger) *Backend {
	return &Backend{path: path, log: log}
}

func (b *Backend) read() (Data, error) {
	raw, err := os.ReadFile(b.path)
	if err != nil {
		return Data{}, fmt.Errorf("read fixture: %w", err)
	}
	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return Data{}, fmt.Errorf("parse fixture: %w", err)
	}
	return d, nil
}

// HouseAmps returns the fixture's house reading.
func (b *Backend) HouseAmps(context.Context) (float64, error) {
	d, err := b.read()
	if err != nil {
		return 0, err
	}
	return d.HouseAmps, nil
}

// VehicleState builds a snapshot from the fixture. The vehicle is always
// reported as charging so the controller loop can be exercised end to end.
func (b *Backend) VehicleState(context.Context, bool) (model.VehicleSnapshot, error) {
	d, err := b.read()
	if err != nil {
		return model.VehicleSnapshot{}, err
	}
	return model.VehicleSnapshot{
		State:      model.StateCharging,
		ChargeAmps: d.CarAmps,
		Position:   d.CarGeo,
	}, nil
}

// SetChargingAmps logs the command.
func (b *Backend) SetChargingAmps(_ context.Context, amps int) error {
	b.log.Infof("fixture: set charging amps to %d", amps)
	return nil
}
