package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ampgate/app"
	"ampgate/config"
	"ampgate/core/geo"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the vehicle's charging state and distance to the charger",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	backend, err := app.BackendFactory(cfg)()
	if err != nil {
		return fmt.Errorf("backend: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	snap, err := backend.VehicleState(ctx, true)
	if err != nil {
		return fmt.Errorf("vehicle state: %w", err)
	}
	house, err := backend.HouseAmps(ctx)
	if err != nil {
		return fmt.Errorf("house amps: %w", err)
	}

	fmt.Printf("state:            %s\n", snap.State)
	fmt.Printf("charge amps:      %.1f\n", snap.ChargeAmps)
	fmt.Printf("requested amps:   %.1f\n", snap.ChargeCurrentRequest)
	fmt.Printf("house amps:       %.1f\n", house)
	if cfg.Geofence.Enabled {
		charger := geo.Location{Lat: cfg.Geofence.Lat, Lon: cfg.Geofence.Lon}
		d := geo.Distance(snap.Position, charger)
		fmt.Printf("distance (m):     %.0f\n", d)
		fmt.Printf("within geofence:  %t\n", d < cfg.Geofence.RadiusM)
	}
	return nil
}
