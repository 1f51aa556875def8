package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ampgate/core/charging"
	"ampgate/core/model"
	"ampgate/infra/logger"
)

type memStore struct {
	mu    sync.Mutex
	state *charging.State
	saves int
}

func (m *memStore) Load() (*charging.State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil, false, nil
	}
	return m.state, true, nil
}

func (m *memStore) Save(st *charging.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = st
	m.saves++
	return nil
}

func (m *memStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type scriptedBackend struct {
	mu       sync.Mutex
	houseErr error
	ticks    int
}

func (b *scriptedBackend) HouseAmps(context.Context) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ticks++
	return 5, b.houseErr
}

func (b *scriptedBackend) VehicleState(context.Context, bool) (model.VehicleSnapshot, error) {
	return model.VehicleSnapshot{State: model.StateCharging, ChargeAmps: 2}, nil
}

func (b *scriptedBackend) SetChargingAmps(context.Context, int) error { return nil }

func (b *scriptedBackend) fail(err error) {
	b.mu.Lock()
	b.houseErr = err
	b.mu.Unlock()
}

func testConfig() Config {
	return Config{
		SamplePeriod:    5 * time.Millisecond,
		ControllerEvery: 5,
		Cooldown:        10 * time.Millisecond,
		WindowCapacity:  300,
		Controller:      charging.Config{MaxHouseAmps: 10, MaxCarAmps: 10},
	}
}

func TestShutdownPersistsOnceAndExitsClean(t *testing.T) {
	store := &memStore{}
	backend := &scriptedBackend{}
	sup := New(testConfig(), func() (charging.Backend, error) { return backend, nil }, store, nil, nil, logger.NopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v on shutdown, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("supervisor did not exit on cancellation")
	}
	if store.saveCount() != 1 {
		t.Fatalf("state saved %d times, want exactly 1", store.saveCount())
	}
}

func TestTickFailureRecoversAfterCooldown(t *testing.T) {
	store := &memStore{}
	backend := &scriptedBackend{}
	var factoryCalls int
	var mu sync.Mutex
	factory := func() (charging.Backend, error) {
		mu.Lock()
		factoryCalls++
		n := factoryCalls
		mu.Unlock()
		if n == 2 {
			// Second session gets a healthy backend again.
			backend.fail(nil)
		}
		return backend, nil
	}
	sup := New(testConfig(), factory, store, nil, nil, logger.NopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	backend.fail(errors.New("sensor offline"))

	// Wait for teardown, cooldown and a rebuilt session.
	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := factoryCalls
		mu.Unlock()
		if n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("supervisor never rebuilt the session after a tick failure")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if store.saveCount() < 1 {
		t.Fatal("failed session did not persist state")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run returned %v, want nil", err)
	}
}

func TestResumesFromCompatibleState(t *testing.T) {
	cfg := testConfig()
	prev := charging.NewState(cfg.Controller, cfg.WindowCapacity)
	prev.Observe(9, 3)
	prev.SetLastCommanded(4)
	store := &memStore{state: prev}
	sup := New(cfg, func() (charging.Backend, error) { return &scriptedBackend{}, nil }, store, nil, nil, logger.NopLogger{})

	st := sup.loadState()
	if st.Windows.Len() != 1 || st.LastCommanded() != 4 {
		t.Fatalf("persisted state not resumed: len=%d last=%d", st.Windows.Len(), st.LastCommanded())
	}
}

func TestDiscardsIncompatibleState(t *testing.T) {
	cfg := testConfig()
	prev := charging.NewState(charging.Config{MaxHouseAmps: 32, MaxCarAmps: 32}, cfg.WindowCapacity)
	prev.Observe(9, 3)
	store := &memStore{state: prev}
	sup := New(cfg, func() (charging.Backend, error) { return &scriptedBackend{}, nil }, store, nil, nil, logger.NopLogger{})

	st := sup.loadState()
	if st.Windows.Len() != 0 {
		t.Fatal("incompatible persisted state was not discarded")
	}
	if st.Config != cfg.Controller {
		t.Fatalf("fresh state has wrong config: %+v", st.Config)
	}
}
