package trunk

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fund-trader/internal/database"
)

func newTestRegistryRepo(t *testing.T) *RegistryRepository {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	return NewRegistryRepository(db.Conn(), zerolog.Nop())
}

func TestRegistryRepository_SaveAndLoad(t *testing.T) {
	repo := newTestRegistryRepo(t)

	reg := testRegistration("fundamental_v1", 0.6)
	reg.Version = "1.1.0"
	reg.IsActive = true
	reg.Description = "Quality and valuation scoring"
	require.NoError(t, repo.SaveRegistration(reg))

	loaded, err := repo.LoadRegistrations()
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	assert.Equal(t, "fundamental_v1", loaded[0].BrainID)
	assert.Equal(t, "1.1.0", loaded[0].Version)
	assert.Equal(t, BrainTypeFundamental, loaded[0].BrainType)
	assert.Equal(t, 0.6, loaded[0].DefaultWeight)
	assert.True(t, loaded[0].IsActive)
	assert.Equal(t, "Quality and valuation scoring", loaded[0].Description)
}

func TestRegistryRepository_SavePreservesActivation(t *testing.T) {
	repo := newTestRegistryRepo(t)

	reg := testRegistration("a", 0.5)
	reg.IsActive = true
	require.NoError(t, repo.SaveRegistration(reg))
	require.NoError(t, repo.SetActive("a", false))

	// Re-registering at startup must not undo the persisted deactivation
	reg.Version = "2.0.0"
	require.NoError(t, repo.SaveRegistration(reg))

	loaded, err := repo.LoadRegistrations()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "2.0.0", loaded[0].Version)
	assert.False(t, loaded[0].IsActive)
}

func TestRegistryRepository_SetActive_UnknownBrain(t *testing.T) {
	repo := newTestRegistryRepo(t)

	assert.ErrorIs(t, repo.SetActive("ghost", true), ErrBrainNotFound)
}

func TestRegistryRepository_WeightHistory(t *testing.T) {
	repo := newTestRegistryRepo(t)

	first := WeightSnapshot{
		Weights:   map[string]float64{"a": 1.0},
		Reason:    "initial",
		UpdatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	second := WeightSnapshot{
		Weights:   map[string]float64{"a": 0.6, "b": 0.4},
		Reason:    "new brain",
		UpdatedAt: time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.AppendWeightSnapshot(first))
	require.NoError(t, repo.AppendWeightSnapshot(second))

	history, err := repo.LoadWeightHistory()
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, "initial", history[0].Reason)
	assert.Equal(t, "new brain", history[1].Reason)
	assert.InDelta(t, 0.4, history[1].Weights["b"], 0.0001)
	assert.True(t, second.UpdatedAt.Equal(history[1].UpdatedAt))
}
