// Package config loads the service configuration from a YAML or JSON file
// with optional environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"ampgate/core/metrics"
	"ampgate/infra/persistence"
	"ampgate/infra/remote"
)

// Config is the root configuration.
type Config struct {
	Remote      remote.Config      `json:"remote"`
	Controller  ControllerConfig   `json:"controller"`
	Geofence    GeofenceConfig     `json:"geofence"`
	Persistence persistence.Config `json:"persistence"`
	Metrics     metrics.Config     `json:"metrics"`
	Mock        MockConfig         `json:"mock"`
}

// ControllerConfig holds the control loop parameters.
type ControllerConfig struct {
	// SamplePeriodSeconds is the aggregator tick period.
	SamplePeriodSeconds int `json:"sample_period_seconds"`
	// ControllerEveryTicks runs the feedback tick after every Nth sample.
	ControllerEveryTicks int `json:"controller_every_ticks"`
	// WindowMinutes is the sliding window span.
	WindowMinutes int `json:"window_minutes"`
	// MaxHouseAmps is the breaker budget, margin already applied.
	MaxHouseAmps float64 `json:"max_house_amps"`
	// MaxCarAmps caps the commanded charging current.
	MaxCarAmps float64 `json:"max_car_amps"`
	// WarnThresholdAmps triggers the overcurrent event; zero disables it.
	WarnThresholdAmps float64 `json:"warn_threshold_amps"`
	// WarnAfterSamples is how many consecutive high samples arm the event.
	WarnAfterSamples int `json:"warn_after_samples"`
	// CooldownSeconds is the pause between a failed session and a restart.
	CooldownSeconds int `json:"cooldown_seconds"`
}

// GeofenceConfig describes the charger location gate.
type GeofenceConfig struct {
	Enabled     bool    `json:"enabled"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	RadiusM     float64 `json:"radius_m"`
	MaxSpeedKMH float64 `json:"max_speed_kmh"`
}

// MockConfig switches the service to the fixture backend for offline runs.
type MockConfig struct {
	Enabled     bool   `json:"enabled"`
	FixturePath string `json:"fixture_path"`
}

// Load reads the configuration file, applies AMPGATE_ environment overrides
// and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides, e.g. AMPGATE_REMOTE__TOKEN.
	if err := k.Load(env.Provider("AMPGATE_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "ampgate_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies sane defaults to all sections.
func (c *Config) SetDefaults() {
	c.Remote.SetDefaults()
	c.Persistence.SetDefaults()
	c.Metrics.SetDefaults()
	if c.Controller.SamplePeriodSeconds <= 0 {
		c.Controller.SamplePeriodSeconds = 1
	}
	if c.Controller.ControllerEveryTicks <= 0 {
		c.Controller.ControllerEveryTicks = 5
	}
	if c.Controller.WindowMinutes <= 0 {
		c.Controller.WindowMinutes = 5
	}
	if c.Controller.WarnAfterSamples <= 0 {
		c.Controller.WarnAfterSamples = 2
	}
	if c.Controller.CooldownSeconds <= 0 {
		c.Controller.CooldownSeconds = 15
	}
	if c.Geofence.MaxSpeedKMH <= 0 {
		c.Geofence.MaxSpeedKMH = 150
	}
	if c.Mock.Enabled && c.Mock.FixturePath == "" {
		c.Mock.FixturePath = "mock.json"
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Controller.MaxHouseAmps <= 0 {
		return fmt.Errorf("controller.max_house_amps must be positive")
	}
	if c.Controller.MaxCarAmps <= 0 {
		return fmt.Errorf("controller.max_car_amps must be positive")
	}
	if !c.Mock.Enabled {
		if c.Remote.VehicleAPIURL == "" {
			return fmt.Errorf("remote.vehicle_api_url is required")
		}
		if c.Remote.VehicleID == "" {
			return fmt.Errorf("remote.vehicle_id is required")
		}
		if c.Remote.Token == "" {
			return fmt.Errorf("remote.token is required")
		}
		if c.Remote.SensorURL == "" {
			return fmt.Errorf("remote.sensor_url is required")
		}
	}
	if c.Geofence.Enabled && c.Geofence.RadiusM <= 0 {
		return fmt.Errorf("geofence.radius_m must be positive when the geofence is enabled")
	}
	if err := c.Persistence.Validate(); err != nil {
		return err
	}
	return nil
}

// WindowCapacity derives the bounded window length from span and resolution.
func (c ControllerConfig) WindowCapacity() int {
	return c.WindowMinutes * 60 / c.SamplePeriodSeconds
}
