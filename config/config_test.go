package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const validYAML = `
remote:
  vehicle_api_url: https://api.example.com
  vehicle_id: VIN123
  token: secret
  sensor_url: http://10.0.0.5:4000/amps
controller:
  max_house_amps: 11.3
  max_car_amps: 10
geofence:
  enabled: true
  lat: 48.8566
  lon: 2.3522
  radius_m: 150
persistence:
  enabled: true
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", validYAML))
	require.NoError(t, err)

	require.Equal(t, 1, cfg.Controller.SamplePeriodSeconds)
	require.Equal(t, 5, cfg.Controller.ControllerEveryTicks)
	require.Equal(t, 5, cfg.Controller.WindowMinutes)
	require.Equal(t, 300, cfg.Controller.WindowCapacity())
	require.Equal(t, 15, cfg.Controller.CooldownSeconds)
	require.Equal(t, 150.0, cfg.Geofence.MaxSpeedKMH)
	require.Equal(t, 60, cfg.Remote.CacheTTLSeconds)
	require.Equal(t, "file", cfg.Persistence.Backend)
	require.Equal(t, 11.3, cfg.Controller.MaxHouseAmps)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("AMPGATE_REMOTE__TOKEN", "from-env")
	cfg, err := Load(writeConfig(t, "config.yaml", validYAML))
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Remote.Token)
}

func TestLoadRejectsMissingBudget(t *testing.T) {
	bad := `
remote:
  vehicle_api_url: https://api.example.com
  vehicle_id: VIN123
  token: secret
  sensor_url: http://10.0.0.5:4000/amps
`
	_, err := Load(writeConfig(t, "config.yaml", bad))
	require.ErrorContains(t, err, "max_house_amps")
}

func TestLoadMockModeSkipsRemoteValidation(t *testing.T) {
	mock := `
controller:
  max_house_amps: 10
  max_car_amps: 10
mock:
  enabled: true
`
	cfg, err := Load(writeConfig(t, "config.yaml", mock))
	require.NoError(t, err)
	require.Equal(t, "mock.json", cfg.Mock.FixturePath)
}

func TestLoadRejectsGeofenceWithoutRadius(t *testing.T) {
	bad := `
controller:
  max_house_amps: 10
  max_car_amps: 10
mock:
  enabled: true
geofence:
  enabled: true
`
	_, err := Load(writeConfig(t, "config.yaml", bad))
	require.ErrorContains(t, err, "radius_m")
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := Load(writeConfig(t, "config.toml", "x = 1"))
	require.ErrorContains(t, err, "unsupported config format")
}
