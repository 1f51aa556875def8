package remote

import "time"

// Config defines the endpoints and resilience parameters of the live backend.
type Config struct {
	// VehicleAPIURL is the base URL of the vehicle control API.
	VehicleAPIURL string `json:"vehicle_api_url"`
	// VehicleID selects the vehicle under the base URL.
	VehicleID string `json:"vehicle_id"`
	// Token is the bearer token for the vehicle API.
	Token string `json:"token"`
	// SensorURL returns the instantaneous house amperage as plain text.
	SensorURL string `json:"sensor_url"`

	VehicleTimeoutSeconds int `json:"vehicle_timeout_seconds"`
	SensorTimeoutSeconds  int `json:"sensor_timeout_seconds"`
	CacheTTLSeconds       int `json:"cache_ttl_seconds"`
	RetryInitialMS        int `json:"retry_initial_ms"`
	RetryMaxElapsedSec    int `json:"retry_max_elapsed_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.VehicleTimeoutSeconds <= 0 {
		c.VehicleTimeoutSeconds = 10
	}
	if c.SensorTimeoutSeconds <= 0 {
		c.SensorTimeoutSeconds = 5
	}
	if c.CacheTTLSeconds <= 0 {
		c.CacheTTLSeconds = 60
	}
	if c.RetryInitialMS <= 0 {
		c.RetryInitialMS = 500
	}
	if c.RetryMaxElapsedSec <= 0 {
		c.RetryMaxElapsedSec = 60
	}
}

func (c Config) vehicleTimeout() time.Duration {
	return time.Duration(c.VehicleTimeoutSeconds) * time.Second
}

func (c Config) sensorTimeout() time.Duration {
	return time.Duration(c.SensorTimeoutSeconds) * time.Second
}

func (c Config) cacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}
