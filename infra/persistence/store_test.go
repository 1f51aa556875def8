package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"ampgate/core/charging"
	"ampgate/core/geo"
	"ampgate/infra/logger"
)

func sampleState() *charging.State {
	st := charging.NewState(charging.Config{
		MaxHouseAmps:   10,
		MaxCarAmps:     16,
		Charger:        geo.Location{Lat: 48.85, Lon: 2.35},
		ChargerRadiusM: 150,
	}, 300)
	st.Observe(9, 3)
	st.Observe(8.5, 3)
	st.SetLastCommanded(4)
	return st
}

func TestFileStoreRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path, logger.NopLogger{})

	_, ok, err := store.Load()
	require.NoError(t, err)
	require.False(t, ok, "missing file must read as absent")

	require.NoError(t, store.Save(sampleState()))
	st, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, st.Windows.Len())
	require.Equal(t, 4, st.LastCommanded())
	require.Equal(t, 10.0, st.Config.MaxHouseAmps)
	require.True(t, st.Compatible(sampleState().Config, 300))
}

func TestFileStoreCorruptBlob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	store := NewFileStore(path, logger.NopLogger{})
	_, _, err := store.Load()
	require.Error(t, err, "corrupt blob surfaces an error for the caller to discard")
}

func TestSQLiteStoreRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := NewSQLiteStore(path, logger.NopLogger{})
	require.NoError(t, err)
	defer func() { require.NoError(t, store.Close()) }()

	_, ok, err := store.Load()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Save(sampleState()))
	st, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, st.Windows.Len())
	require.Equal(t, []float64{9, 8.5}, st.Windows.House)

	// A second save overwrites the single row.
	st.Observe(7, 2)
	require.NoError(t, store.Save(st))
	st2, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3, st2.Windows.Len())
}

func TestNewStoreSelection(t *testing.T) {
	dir := t.TempDir()

	cfg := Config{Enabled: false}
	cfg.SetDefaults()
	store, err := NewStore(cfg, logger.NopLogger{})
	require.NoError(t, err)
	require.Nil(t, store, "disabled persistence yields no store")

	cfg = Config{Enabled: true, Backend: "file", Path: filepath.Join(dir, "s.json")}
	store, err = NewStore(cfg, logger.NopLogger{})
	require.NoError(t, err)
	require.IsType(t, &FileStore{}, store)

	cfg = Config{Enabled: true, Backend: "sqlite", Path: filepath.Join(dir, "s.db")}
	store, err = NewStore(cfg, logger.NopLogger{})
	require.NoError(t, err)
	require.IsType(t, &SQLiteStore{}, store)

	require.Error(t, Config{Enabled: true, Backend: "redis"}.Validate())
}
