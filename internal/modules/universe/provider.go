package universe

import (
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fund-trader/internal/domain"
	"github.com/aristath/fund-trader/pkg/formulas"
)

// DataProvider supplies NAV history and derived metrics for funds
type DataProvider interface {
	NavHistory(isin string, days int) ([]domain.NavPoint, error)
	FundMetrics(isin string) (*domain.FundMetrics, error)
}

const (
	historyYears     = 3
	riskFreeRate     = 0.02
	tradingDaysYear  = 252
	tradingDaysMonth = 21
	tradingDaysWeek  = 5
)

// MockProvider generates deterministic synthetic NAV series per fund. The
// series for an ISIN is a random walk seeded by the ISIN itself, so repeated
// calls and restarts produce identical data. Metrics are computed from the
// generated series with the same formulas a real provider would use.
type MockProvider struct {
	log zerolog.Logger
}

// NewMockProvider creates a new mock data provider
func NewMockProvider(log zerolog.Logger) *MockProvider {
	return &MockProvider{
		log: log.With().Str("component", "mock_provider").Logger(),
	}
}

// NavHistory generates up to `days` business-day NAV points ending today,
// oldest first.
func (p *MockProvider) NavHistory(isin string, days int) ([]domain.NavPoint, error) {
	maxDays := historyYears * tradingDaysYear
	if days <= 0 || days > maxDays {
		days = maxDays
	}

	closes := p.generateSeries(isin, maxDays)
	closes = closes[len(closes)-days:]

	points := make([]domain.NavPoint, 0, len(closes))
	day := businessDaysAgo(time.Now(), len(closes))
	for _, value := range closes {
		day = nextBusinessDay(day)
		points = append(points, domain.NavPoint{
			Date:  day.Format("2006-01-02"),
			Value: value,
		})
	}

	return points, nil
}

// Closes satisfies the momentum brain's NAV source contract
func (p *MockProvider) Closes(isin string, days int) ([]float64, error) {
	points, err := p.NavHistory(isin, days)
	if err != nil {
		return nil, err
	}

	closes := make([]float64, 0, len(points))
	for _, point := range points {
		closes = append(closes, point.Value)
	}
	return closes, nil
}

// FundMetrics derives performance and risk metrics from the fund's synthetic
// NAV series. Performance and volatility figures are percentages; Sharpe and
// Sortino are plain ratios.
func (p *MockProvider) FundMetrics(isin string) (*domain.FundMetrics, error) {
	closes := p.generateSeries(isin, historyYears*tradingDaysYear)

	metrics := &domain.FundMetrics{
		Perf1W:       performancePct(closes, tradingDaysWeek),
		Perf1M:       performancePct(closes, tradingDaysMonth),
		Perf3M:       performancePct(closes, 3*tradingDaysMonth),
		Perf1Y:       performancePct(closes, tradingDaysYear),
		Perf3Y:       performancePct(closes, 3*tradingDaysYear-1),
		Vol60D:       asPct(formulas.CalculateVolatilityWindow(closes, 60)),
		MaxDrawdown:  asPct(formulas.CalculateMaxDrawdown(closes)),
		SharpeRatio:  roundPtr(formulas.CalculateSharpeFromPrices(closes, riskFreeRate)),
		SortinoRatio: roundPtr(formulas.CalculateSortinoRatio(formulas.CalculateReturns(closes), riskFreeRate, riskFreeRate, tradingDaysYear)),
	}

	return metrics, nil
}

// generateSeries builds the deterministic random walk for an ISIN
func (p *MockProvider) generateSeries(isin string, days int) []float64 {
	rng := rand.New(rand.NewSource(seedFor(isin)))

	closes := make([]float64, 0, days)
	value := 100.0
	for i := 0; i < days; i++ {
		dailyReturn := rng.NormFloat64()*0.01 + 0.0002
		value *= 1 + dailyReturn
		closes = append(closes, math.Round(value*10000)/10000)
	}

	return closes
}

func seedFor(isin string) int64 {
	h := fnv.New64a()
	h.Write([]byte(isin))
	return int64(h.Sum64() & math.MaxInt64)
}

// performancePct is the percentage change over the trailing window
func performancePct(closes []float64, days int) *float64 {
	momentum := formulas.CalculateMomentum(closes, days)
	if momentum == nil {
		return nil
	}

	pct := math.Round(*momentum*100*100) / 100
	return &pct
}

// asPct converts a fractional metric to a rounded percentage
func asPct(fraction *float64) *float64 {
	if fraction == nil {
		return nil
	}

	pct := math.Round(*fraction*100*100) / 100
	return &pct
}

func roundPtr(f *float64) *float64 {
	if f == nil {
		return nil
	}

	rounded := math.Round(*f*100) / 100
	return &rounded
}

// businessDaysAgo walks backwards to the date `n` business days before `from`
func businessDaysAgo(from time.Time, n int) time.Time {
	day := from
	for remaining := n; remaining > 0; {
		day = day.AddDate(0, 0, -1)
		if isBusinessDay(day) {
			remaining--
		}
	}
	return day
}

func nextBusinessDay(day time.Time) time.Time {
	next := day.AddDate(0, 0, 1)
	for !isBusinessDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func isBusinessDay(day time.Time) bool {
	wd := day.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}
