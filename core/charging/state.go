package charging

import (
	"sync"

	"ampgate/core/geo"
	"ampgate/core/model"
	"ampgate/core/window"
)

// StateVersion is bumped whenever the persisted layout changes. A blob with a
// different version is discarded in favor of fresh state.
const StateVersion = 1

// Config holds the operator-supplied controller parameters, constant for a
// session. MaxHouseAmps is the breaker budget and must already encode any
// desired safety margin; the control law applies no multiplier of its own.
type Config struct {
	MaxHouseAmps   float64      `json:"max_house_amps"`
	MaxCarAmps     float64      `json:"max_car_amps"`
	Charger        geo.Location `json:"charger"`
	ChargerRadiusM float64      `json:"charger_radius_m"`
}

// State is the unit of persistence: everything the controller needs to resume
// after a restart. Both periodic ticks are serialized by the supervisor;
// the mutex covers out-of-band readers (status command, persistence).
type State struct {
	mu sync.Mutex

	Version           int                  `json:"version"`
	Windows           *window.Pair         `json:"windows"`
	LastCommandedAmps int                  `json:"last_commanded_amps"`
	Enabled           bool                 `json:"enabled"`
	Config            Config               `json:"config"`
	Cache             model.CachedSnapshot `json:"cache"`
}

// NewState constructs fresh state with empty windows. The controller starts
// enabled; the geofence gate disables it while the vehicle is away.
func NewState(cfg Config, windowCapacity int) *State {
	return &State{
		Version: StateVersion,
		Windows: window.NewPair(windowCapacity),
		Enabled: true,
		Config:  cfg,
	}
}

// Compatible reports whether persisted state can serve a session with the
// given configuration and window capacity.
func (s *State) Compatible(cfg Config, windowCapacity int) bool {
	return s.Version == StateVersion &&
		s.Windows != nil &&
		s.Windows.Capacity == windowCapacity &&
		s.Config == cfg
}

// Observe appends one paired sample.
func (s *State) Observe(house, car float64) {
	s.mu.Lock()
	s.Windows.Observe(house, car)
	s.mu.Unlock()
}

// Averages returns the window length and the weighted house and car averages
// as one consistent reading.
func (s *State) Averages() (n int, house, car float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Windows.Len(), window.WeightedAverage(s.Windows.House), window.WeightedAverage(s.Windows.Car)
}

// SetEnabled arms or disarms the controller.
func (s *State) SetEnabled(v bool) {
	s.mu.Lock()
	s.Enabled = v
	s.mu.Unlock()
}

// IsEnabled reports whether the controller is armed.
func (s *State) IsEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Enabled
}

// SetLastCommanded records the last confirmed command.
func (s *State) SetLastCommanded(amps int) {
	s.mu.Lock()
	s.LastCommandedAmps = amps
	s.mu.Unlock()
}

// LastCommanded returns the last confirmed command.
func (s *State) LastCommanded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.LastCommandedAmps
}

// SetCache stores the snapshot cache extracted from the backend at teardown.
func (s *State) SetCache(c model.CachedSnapshot) {
	s.mu.Lock()
	s.Cache = c
	s.mu.Unlock()
}

// Clone returns a deep copy safe to serialize without holding the lock.
func (s *State) Clone() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := &State{
		Version:           s.Version,
		LastCommandedAmps: s.LastCommandedAmps,
		Enabled:           s.Enabled,
		Config:            s.Config,
		Cache:             s.Cache,
	}
	if s.Windows != nil {
		cp.Windows = window.NewPair(s.Windows.Capacity)
		cp.Windows.House = append([]float64(nil), s.Windows.House...)
		cp.Windows.Car = append([]float64(nil), s.Windows.Car...)
	}
	return cp
}
