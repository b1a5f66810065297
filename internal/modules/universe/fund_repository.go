package universe

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/fund-trader/internal/domain"
)

// FundRepository persists the fund catalog in the main database
type FundRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewFundRepository creates a new fund repository
func NewFundRepository(db *sql.DB, log zerolog.Logger) *FundRepository {
	return &FundRepository{
		db:  db,
		log: log.With().Str("service", "fund_repository").Logger(),
	}
}

const fundColumns = `isin, name, COALESCE(management_company, ''), sri, asset_class,
	COALESCE(description, ''), COALESCE(available_platforms, ''), is_standard_isin, COALESCE(label, '')`

// UpsertFunds inserts or updates catalog funds in one transaction
func (r *FundRepository) UpsertFunds(funds []domain.Fund) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO funds (isin, name, management_company, sri, asset_class, description, available_platforms, is_standard_isin, label)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(isin) DO UPDATE SET
			name = excluded.name,
			management_company = excluded.management_company,
			sri = excluded.sri,
			asset_class = excluded.asset_class,
			description = excluded.description,
			available_platforms = excluded.available_platforms,
			is_standard_isin = excluded.is_standard_isin,
			label = excluded.label
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare fund upsert: %w", err)
	}
	defer stmt.Close()

	for _, fund := range funds {
		isStandard := 0
		if fund.IsStandardISIN {
			isStandard = 1
		}

		_, err := stmt.Exec(
			fund.ISIN, fund.Name, fund.ManagementCompany, fund.SRI,
			string(fund.AssetClass), fund.Description,
			strings.Join(fund.AvailablePlatforms, ";"), isStandard, fund.Label,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert fund %s: %w", fund.ISIN, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit fund upsert: %w", err)
	}

	r.log.Info().Int("funds", len(funds)).Msg("Fund catalog persisted")
	return nil
}

// AllFunds returns every fund in the catalog, ordered by ISIN
func (r *FundRepository) AllFunds() ([]domain.Fund, error) {
	query := fmt.Sprintf(`SELECT %s FROM funds ORDER BY isin`, fundColumns)

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query funds: %w", err)
	}
	defer rows.Close()

	return scanFunds(rows)
}

// FundByISIN returns one fund, or sql.ErrNoRows wrapped when absent
func (r *FundRepository) FundByISIN(isin string) (*domain.Fund, error) {
	query := fmt.Sprintf(`SELECT %s FROM funds WHERE isin = ?`, fundColumns)

	fund, err := scanFund(r.db.QueryRow(query, isin))
	if err != nil {
		return nil, fmt.Errorf("failed to load fund %s: %w", isin, err)
	}
	return fund, nil
}

// FundsByISIN returns the catalog entries for a set of ISINs. Missing ISINs
// are simply absent from the result map.
func (r *FundRepository) FundsByISIN(isins []string) (map[string]domain.Fund, error) {
	if len(isins) == 0 {
		return map[string]domain.Fund{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(isins)), ",")
	query := fmt.Sprintf(`SELECT %s FROM funds WHERE isin IN (%s)`, fundColumns, placeholders)

	args := make([]interface{}, len(isins))
	for i, isin := range isins {
		args[i] = isin
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query funds by isin: %w", err)
	}
	defer rows.Close()

	funds, err := scanFunds(rows)
	if err != nil {
		return nil, err
	}

	byISIN := make(map[string]domain.Fund, len(funds))
	for _, fund := range funds {
		byISIN[fund.ISIN] = fund
	}
	return byISIN, nil
}

// ListFunds returns a filtered page of the catalog plus the total match count
func (r *FundRepository) ListFunds(filter FundFilter) ([]domain.Fund, int, error) {
	var conditions []string
	var args []interface{}

	if filter.AssetClass != "" {
		conditions = append(conditions, "asset_class = ?")
		args = append(args, string(filter.AssetClass))
	}
	if filter.MinSRI > 0 {
		conditions = append(conditions, "sri >= ?")
		args = append(args, filter.MinSRI)
	}
	if filter.MaxSRI > 0 {
		conditions = append(conditions, "sri <= ?")
		args = append(args, filter.MaxSRI)
	}
	if filter.Search != "" {
		conditions = append(conditions, "(name LIKE ? OR isin LIKE ?)")
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM funds" + where
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count funds: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`SELECT %s FROM funds%s ORDER BY isin LIMIT ? OFFSET ?`, fundColumns, where)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query funds: %w", err)
	}
	defer rows.Close()

	funds, err := scanFunds(rows)
	if err != nil {
		return nil, 0, err
	}

	return funds, total, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFund(row rowScanner) (*domain.Fund, error) {
	var fund domain.Fund
	var assetClass, platforms string
	var isStandard int

	err := row.Scan(&fund.ISIN, &fund.Name, &fund.ManagementCompany, &fund.SRI,
		&assetClass, &fund.Description, &platforms, &isStandard, &fund.Label)
	if err != nil {
		return nil, err
	}

	fund.AssetClass = domain.AssetClass(assetClass)
	fund.IsStandardISIN = isStandard != 0
	if platforms != "" {
		fund.AvailablePlatforms = strings.Split(platforms, ";")
	}

	return &fund, nil
}

func scanFunds(rows *sql.Rows) ([]domain.Fund, error) {
	var funds []domain.Fund
	for rows.Next() {
		fund, err := scanFund(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fund: %w", err)
		}
		funds = append(funds, *fund)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating funds: %w", err)
	}

	return funds, nil
}
