package universe

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/fund-trader/internal/domain"
)

// Service coordinates the fund universe: catalog imports, NAV history
// seeding and metric enrichment. It is the fund source for scoring passes.
type Service struct {
	ingestion *Ingestion
	repo      *FundRepository
	history   *HistoryDB
	provider  DataProvider
	log       zerolog.Logger
}

// NewService creates a new universe service
func NewService(
	ingestion *Ingestion,
	repo *FundRepository,
	history *HistoryDB,
	provider DataProvider,
	log zerolog.Logger,
) *Service {
	return &Service{
		ingestion: ingestion,
		repo:      repo,
		history:   history,
		provider:  provider,
		log:       log.With().Str("service", "universe").Logger(),
	}
}

// ImportCatalog loads the catalog file, persists the funds and seeds NAV
// history for standard-ISIN funds. Per-fund history failures are logged and
// skipped so one bad series cannot fail the import.
func (s *Service) ImportCatalog() (ImportStats, error) {
	funds, err := s.ingestion.LoadFunds()
	if err != nil {
		return ImportStats{}, fmt.Errorf("catalog import failed: %w", err)
	}

	if err := s.repo.UpsertFunds(funds); err != nil {
		return ImportStats{}, fmt.Errorf("catalog import failed: %w", err)
	}

	stats := ImportStats{
		TotalRows: len(funds),
		Imported:  len(funds),
	}

	for _, fund := range funds {
		if !fund.IsStandardISIN {
			continue
		}
		stats.StandardISIN++

		points, err := s.provider.NavHistory(fund.ISIN, 0)
		if err != nil {
			s.log.Warn().Err(err).Str("isin", fund.ISIN).Msg("NAV history fetch failed")
			continue
		}

		if err := s.history.ReplaceNavHistory(fund.ISIN, points); err != nil {
			s.log.Warn().Err(err).Str("isin", fund.ISIN).Msg("NAV history write failed")
			continue
		}
		stats.WithHistory++
	}

	s.log.Info().
		Int("imported", stats.Imported).
		Int("standard_isin", stats.StandardISIN).
		Int("with_history", stats.WithHistory).
		Msg("Catalog import complete")

	return stats, nil
}

// ActiveFunds returns the full catalog enriched with provider metrics. This
// is the universe every scoring pass runs over.
func (s *Service) ActiveFunds() ([]domain.Fund, error) {
	funds, err := s.repo.AllFunds()
	if err != nil {
		return nil, fmt.Errorf("failed to load fund universe: %w", err)
	}

	for i := range funds {
		metrics, err := s.provider.FundMetrics(funds[i].ISIN)
		if err != nil {
			s.log.Debug().Err(err).Str("isin", funds[i].ISIN).Msg("Metrics unavailable")
			continue
		}
		funds[i].Metrics = metrics
	}

	return funds, nil
}

// Closes returns NAV closes for a fund, oldest first. Stored history is
// preferred; funds without a history file fall back to the provider.
func (s *Service) Closes(isin string, days int) ([]float64, error) {
	closes, err := s.history.Closes(isin, days)
	if err == nil && len(closes) > 0 {
		return closes, nil
	}

	provider, ok := s.provider.(interface {
		Closes(isin string, days int) ([]float64, error)
	})
	if !ok {
		return nil, fmt.Errorf("no nav history for %s", isin)
	}

	return provider.Closes(isin, days)
}

// NavHistory returns stored NAV points for a fund, falling back to the
// provider when no history file exists.
func (s *Service) NavHistory(isin string, days int) ([]domain.NavPoint, error) {
	points, err := s.history.NavHistory(isin, days)
	if err == nil && len(points) > 0 {
		return points, nil
	}

	return s.provider.NavHistory(isin, days)
}
