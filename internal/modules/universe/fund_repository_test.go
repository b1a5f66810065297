package universe

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fund-trader/internal/database"
	"github.com/aristath/fund-trader/internal/domain"
)

func newTestRepo(t *testing.T) *FundRepository {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	return NewFundRepository(db.Conn(), zerolog.Nop())
}

func catalogFixture() []domain.Fund {
	return []domain.Fund{
		{
			ISIN:               "FR0000000001",
			Name:               "World Equity Fund",
			ManagementCompany:  "Amundi",
			SRI:                5,
			AssetClass:         domain.AssetClassEquities,
			Description:        "Global equities",
			AvailablePlatforms: []string{"Linxea", "Boursorama"},
			IsStandardISIN:     true,
			Label:              "ISR",
		},
		{
			ISIN:           "LU0000000002",
			Name:           "Euro Bond Fund",
			SRI:            2,
			AssetClass:     domain.AssetClassBonds,
			IsStandardISIN: true,
		},
		{
			ISIN:       "XX0000000003",
			Name:       "Special Vehicle",
			SRI:        4,
			AssetClass: domain.AssetClassOther,
		},
	}
}

func TestFundRepository_UpsertAndLoad(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.UpsertFunds(catalogFixture()))

	funds, err := repo.AllFunds()
	require.NoError(t, err)
	require.Len(t, funds, 3)

	fund, err := repo.FundByISIN("FR0000000001")
	require.NoError(t, err)
	assert.Equal(t, "World Equity Fund", fund.Name)
	assert.Equal(t, 5, fund.SRI)
	assert.Equal(t, domain.AssetClassEquities, fund.AssetClass)
	assert.Equal(t, []string{"Linxea", "Boursorama"}, fund.AvailablePlatforms)
	assert.True(t, fund.IsStandardISIN)
	assert.Equal(t, "ISR", fund.Label)
}

func TestFundRepository_UpsertOverwrites(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.UpsertFunds(catalogFixture()))

	updated := catalogFixture()[0]
	updated.Name = "World Equity Fund (renamed)"
	updated.SRI = 6
	require.NoError(t, repo.UpsertFunds([]domain.Fund{updated}))

	fund, err := repo.FundByISIN("FR0000000001")
	require.NoError(t, err)
	assert.Equal(t, "World Equity Fund (renamed)", fund.Name)
	assert.Equal(t, 6, fund.SRI)

	funds, err := repo.AllFunds()
	require.NoError(t, err)
	assert.Len(t, funds, 3, "upsert does not duplicate")
}

func TestFundRepository_FundByISIN_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.FundByISIN("FR9999999999")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestFundRepository_FundsByISIN(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.UpsertFunds(catalogFixture()))

	byISIN, err := repo.FundsByISIN([]string{"FR0000000001", "LU0000000002", "FR9999999999"})
	require.NoError(t, err)
	require.Len(t, byISIN, 2, "missing ISINs are absent, not an error")
	assert.Equal(t, "Euro Bond Fund", byISIN["LU0000000002"].Name)

	empty, err := repo.FundsByISIN(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFundRepository_ListFunds(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.UpsertFunds(catalogFixture()))

	tests := []struct {
		name          string
		filter        FundFilter
		expectedISINs []string
		expectedTotal int
	}{
		{
			name:          "no filter returns everything",
			filter:        FundFilter{},
			expectedISINs: []string{"FR0000000001", "LU0000000002", "XX0000000003"},
			expectedTotal: 3,
		},
		{
			name:          "asset class filter",
			filter:        FundFilter{AssetClass: domain.AssetClassBonds},
			expectedISINs: []string{"LU0000000002"},
			expectedTotal: 1,
		},
		{
			name:          "sri range filter",
			filter:        FundFilter{MinSRI: 4, MaxSRI: 5},
			expectedISINs: []string{"FR0000000001", "XX0000000003"},
			expectedTotal: 2,
		},
		{
			name:          "name search",
			filter:        FundFilter{Search: "equity"},
			expectedISINs: []string{"FR0000000001"},
			expectedTotal: 1,
		},
		{
			name:          "pagination",
			filter:        FundFilter{Limit: 1, Offset: 1},
			expectedISINs: []string{"LU0000000002"},
			expectedTotal: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			funds, total, err := repo.ListFunds(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedTotal, total)

			isins := make([]string, 0, len(funds))
			for _, fund := range funds {
				isins = append(isins, fund.ISIN)
			}
			assert.Equal(t, tt.expectedISINs, isins)
		})
	}
}
