package universe

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProviderDeterminism(t *testing.T) {
	provider := NewMockProvider(zerolog.Nop())

	first, err := provider.Closes("FR0000000001", 100)
	require.NoError(t, err)
	second, err := provider.Closes("FR0000000001", 100)
	require.NoError(t, err)

	assert.Equal(t, first, second, "same ISIN yields the same series")

	other, err := provider.Closes("LU0000000002", 100)
	require.NoError(t, err)
	assert.NotEqual(t, first, other, "different ISINs yield different series")
}

func TestMockProviderNavHistory(t *testing.T) {
	provider := NewMockProvider(zerolog.Nop())

	points, err := provider.NavHistory("FR0000000001", 50)
	require.NoError(t, err)
	require.Len(t, points, 50)

	for i := 1; i < len(points); i++ {
		assert.Greater(t, points[i].Date, points[i-1].Date, "dates are chronological")
	}
	for _, p := range points {
		assert.Greater(t, p.Value, 0.0)
	}
}

func TestMockProviderFundMetrics(t *testing.T) {
	provider := NewMockProvider(zerolog.Nop())

	metrics, err := provider.FundMetrics("FR0000000001")
	require.NoError(t, err)
	require.NotNil(t, metrics)

	require.NotNil(t, metrics.Perf1Y)
	require.NotNil(t, metrics.Vol60D)
	require.NotNil(t, metrics.MaxDrawdown)
	require.NotNil(t, metrics.SharpeRatio)

	assert.Greater(t, *metrics.Vol60D, 0.0)
	assert.GreaterOrEqual(t, *metrics.MaxDrawdown, 0.0)

	// Deterministic per ISIN
	again, err := provider.FundMetrics("FR0000000001")
	require.NoError(t, err)
	assert.Equal(t, *metrics.SharpeRatio, *again.SharpeRatio)
}

func TestHistoryDBRoundTrip(t *testing.T) {
	historyDB := NewHistoryDB(t.TempDir(), zerolog.Nop())
	provider := NewMockProvider(zerolog.Nop())

	points, err := provider.NavHistory("FR0000000001", 30)
	require.NoError(t, err)

	require.NoError(t, historyDB.ReplaceNavHistory("FR0000000001", points))

	closes, err := historyDB.Closes("FR0000000001", 30)
	require.NoError(t, err)
	require.Len(t, closes, 30)
	assert.Equal(t, points[0].Value, closes[0])
	assert.Equal(t, points[len(points)-1].Value, closes[len(closes)-1])
}

func TestHistoryDB_MissingFund(t *testing.T) {
	historyDB := NewHistoryDB(t.TempDir(), zerolog.Nop())

	_, err := historyDB.Closes("XX0000000000", 30)
	assert.Error(t, err)
}
