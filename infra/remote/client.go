// Package remote implements the network-backed charging backend: the vehicle
// control API and the wattmeter, wrapped with per-call timeouts, bounded
// retry, a circuit breaker per endpoint and a TTL cache around the vehicle
// state fetch.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"ampgate/core/geo"
	"ampgate/core/logger"
	"ampgate/core/model"
)

// vehicleStateResponse is the wire shape of the vehicle full-state response.
type vehicleStateResponse struct {
	ChargeState struct {
		ChargingState        string  `json:"charging_state"`
		ChargeAmps           float64 `json:"charge_amps"`
		ChargeCurrentRequest float64 `json:"charge_current_request"`
	} `json:"charge_state"`
	DriveState struct {
		GPSAsOf   int64   `json:"gps_as_of"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"drive_state"`
}

// Client is the live charging backend. It is rebuilt, not reused, across a
// session recovery.
type Client struct {
	cfg Config
	log logger.Logger

	vehicleHTTP *http.Client
	sensorHTTP  *http.Client

	vehicleBreaker *gobreaker.CircuitBreaker[*http.Response]
	sensorBreaker  *gobreaker.CircuitBreaker[*http.Response]

	cacheMu sync.RWMutex
	cache   model.CachedSnapshot

	cmdMu         sync.Mutex
	lastCommanded int
	hasCommanded  bool

	now func() time.Time
}

// New creates a live backend from cfg. Defaults are applied to zero fields.
func New(cfg Config, log logger.Logger) *Client {
	cfg.SetDefaults()
	return &Client{
		cfg:            cfg,
		log:            log,
		vehicleHTTP:    &http.Client{Timeout: cfg.vehicleTimeout()},
		sensorHTTP:     &http.Client{Timeout: cfg.sensorTimeout()},
		vehicleBreaker: newBreaker("vehicle-api"),
		sensorBreaker:  newBreaker("wattmeter"),
		now:            time.Now,
	}
}

// newBreaker stops hammering an endpoint that keeps failing; an open breaker
// surfaces as an immediate tick failure handled by the supervisor cooldown.
func newBreaker(name string) *gobreaker.CircuitBreaker[*http.Response] {
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
}

// HouseAmps reads the wattmeter: a plain-text decimal number of amps.
func (c *Client) HouseAmps(ctx context.Context) (float64, error) {
	var amps float64
	err := retryTimeouts(ctx, c.cfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.SensorURL, nil)
		if err != nil {
			return err
		}
		resp, err := c.sensorBreaker.Execute(func() (*http.Response, error) {
			resp, err := c.sensorHTTP.Do(req)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode != http.StatusOK {
				_ = resp.Body.Close()
				return nil, fmt.Errorf("wattmeter status %d", resp.StatusCode)
			}
			return resp, nil
		})
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		amps, err = strconv.ParseFloat(strings.TrimSpace(string(body)), 64)
		if err != nil {
			return fmt.Errorf("wattmeter body %q: %w", strings.TrimSpace(string(body)), err)
		}
		return nil
	})
	return amps, err
}

// VehicleState returns the vehicle snapshot, served from the TTL cache unless
// force is set or the cache is stale. The cache is replaced atomically; a
// consumer never observes a snapshot older than the TTL.
func (c *Client) VehicleState(ctx context.Context, force bool) (model.VehicleSnapshot, error) {
	if !force {
		c.cacheMu.RLock()
		cached := c.cache
		c.cacheMu.RUnlock()
		if cached.Fresh(c.now(), c.cfg.cacheTTL()) {
			return cached.Snapshot, nil
		}
	}

	var snap model.VehicleSnapshot
	err := retryTimeouts(ctx, c.cfg, func() error {
		url := fmt.Sprintf("%s/%s/state", strings.TrimSuffix(c.cfg.VehicleAPIURL, "/"), c.cfg.VehicleID)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
		resp, err := c.vehicleBreaker.Execute(func() (*http.Response, error) {
			resp, err := c.vehicleHTTP.Do(req)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode != http.StatusOK {
				_ = resp.Body.Close()
				return nil, fmt.Errorf("vehicle state status %d", resp.StatusCode)
			}
			return resp, nil
		})
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		var ts vehicleStateResponse
		if err := json.NewDecoder(resp.Body).Decode(&ts); err != nil {
			return fmt.Errorf("decode vehicle state: %w", err)
		}
		snap = model.VehicleSnapshot{
			State:                model.ChargingState(ts.ChargeState.ChargingState),
			ChargeAmps:           ts.ChargeState.ChargeAmps,
			ChargeCurrentRequest: ts.ChargeState.ChargeCurrentRequest,
			Position:             geo.Location{Lat: ts.DriveState.Latitude, Lon: ts.DriveState.Longitude},
			PositionAsOf:         time.Unix(ts.DriveState.GPSAsOf, 0),
		}
		return nil
	})
	if err != nil {
		return model.VehicleSnapshot{}, err
	}

	c.cacheMu.Lock()
	c.cache = model.CachedSnapshot{Snapshot: snap, FetchedAt: c.now()}
	c.cacheMu.Unlock()
	return snap, nil
}

// SetChargingAmps commands the vehicle's charging current. The command is
// suppressed when amps equals the last confirmed command; the confirmation is
// recorded only after a successful send, so a failed command stays eligible
// for re-issue.
func (c *Client) SetChargingAmps(ctx context.Context, amps int) error {
	c.cmdMu.Lock()
	last, sent := c.lastCommanded, c.hasCommanded
	c.cmdMu.Unlock()
	if sent && amps == last {
		c.log.Debugf("charging amps already at %d, skipping command", amps)
		return nil
	}

	err := retryTimeouts(ctx, c.cfg, func() error {
		url := fmt.Sprintf("%s/%s/command/set_charging_amps?amps=%d",
			strings.TrimSuffix(c.cfg.VehicleAPIURL, "/"), c.cfg.VehicleID, amps)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
		resp, err := c.vehicleBreaker.Execute(func() (*http.Response, error) {
			resp, err := c.vehicleHTTP.Do(req)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				_ = resp.Body.Close()
				return nil, fmt.Errorf("set_charging_amps status %d", resp.StatusCode)
			}
			return resp, nil
		})
		if err != nil {
			return err
		}
		_ = resp.Body.Close()
		return nil
	})
	if err != nil {
		return err
	}

	c.cmdMu.Lock()
	c.lastCommanded = amps
	c.hasCommanded = true
	c.cmdMu.Unlock()
	return nil
}

// CachedSnapshot returns the current snapshot cache for persistence.
func (c *Client) CachedSnapshot() model.CachedSnapshot {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	return c.cache
}

// SeedSnapshot primes the cache from persisted state so a restart does not
// need an immediate vehicle fetch.
func (c *Client) SeedSnapshot(cs model.CachedSnapshot) {
	c.cacheMu.Lock()
	c.cache = cs
	c.cacheMu.Unlock()
}
