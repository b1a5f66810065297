package universe

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/fund-trader/internal/domain"
)

// standardISINPrefixes are the country prefixes treated as standard,
// exchange-listed ISINs. Everything else is an insurer-specific vehicle.
var standardISINPrefixes = map[string]bool{
	"FR": true, "LU": true, "IE": true, "BE": true, "DE": true,
	"AT": true, "GB": true, "NL": true, "XS": true, "LI": true,
	"SC": true,
}

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Ingestion parses the fund catalog CSV export into domain funds. The export
// keeps the source column names; rows missing an ISIN or a name are skipped.
type Ingestion struct {
	filePath string
	log      zerolog.Logger
}

// NewIngestion creates a new catalog ingestion
func NewIngestion(filePath string, log zerolog.Logger) *Ingestion {
	return &Ingestion{
		filePath: filePath,
		log:      log.With().Str("component", "ingestion").Logger(),
	}
}

// LoadFunds reads and parses the whole catalog file
func (i *Ingestion) LoadFunds() ([]domain.Fund, error) {
	f, err := os.Open(i.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("catalog file has no data rows")
	}

	columns := indexColumns(records[0])

	var funds []domain.Fund
	skipped := 0
	for rowNum, record := range records[1:] {
		fund, ok := i.parseRow(record, columns)
		if !ok {
			skipped++
			i.log.Debug().Int("row", rowNum+2).Msg("Skipped catalog row")
			continue
		}
		funds = append(funds, fund)
	}

	i.log.Info().
		Int("funds", len(funds)).
		Int("skipped", skipped).
		Str("path", i.filePath).
		Msg("Catalog loaded")

	return funds, nil
}

// parseRow converts one catalog record into a fund. Returns false for rows
// without an ISIN or name.
func (i *Ingestion) parseRow(record []string, columns map[string]int) (domain.Fund, bool) {
	get := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	isin := get("CODE ISIN")
	name := get("Nom du fonds")
	if isin == "" || name == "" {
		return domain.Fund{}, false
	}

	sri := 4
	if raw := get("SRI"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			sri = parsed
		}
	}
	sri = domain.ClampSRI(sri)

	description := cleanHTML(get("Descriptif"))
	label := get("LABELL")

	var platforms []string
	for _, p := range strings.Split(get("Disponible chez"), ";") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			platforms = append(platforms, trimmed)
		}
	}

	return domain.Fund{
		ISIN:               isin,
		Name:               name,
		ManagementCompany:  get("Société de gestion"),
		SRI:                sri,
		AssetClass:         determineAssetClass(label, description, name),
		Description:        description,
		AvailablePlatforms: platforms,
		IsStandardISIN:     isStandardISIN(isin),
		Label:              label,
	}, true
}

// indexColumns maps header names to their positions
func indexColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for idx, name := range header {
		columns[strings.TrimSpace(name)] = idx
	}
	return columns
}

// isStandardISIN reports whether the ISIN starts with a standard country prefix
func isStandardISIN(isin string) bool {
	if len(isin) < 2 {
		return false
	}
	return standardISINPrefixes[strings.ToUpper(isin[:2])]
}

// cleanHTML strips markup and collapses whitespace in catalog descriptions
func cleanHTML(text string) string {
	clean := htmlTagPattern.ReplaceAllString(text, "")
	clean = whitespacePattern.ReplaceAllString(clean, " ")
	return strings.TrimSpace(clean)
}

// determineAssetClass classifies a fund by keywords in its label, description
// and name. Euro funds are checked first since their names often also match
// broader keywords.
func determineAssetClass(label, description, name string) domain.AssetClass {
	text := strings.ToLower(label + " " + description + " " + name)

	containsAny := func(keywords ...string) bool {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				return true
			}
		}
		return false
	}

	switch {
	case strings.Contains(text, "fond") && strings.Contains(text, "euro"):
		return domain.AssetClassEuroFunds
	case containsAny("immobilier", "scpi", "opci", "pierre"):
		return domain.AssetClassRealEstate
	case containsAny("action", "equity", "stock", "cap."):
		return domain.AssetClassEquities
	case containsAny("obligation", "bond", "taux", "fixed income", "crédit"):
		return domain.AssetClassBonds
	case containsAny("monétaire", "money market", "liquidité"):
		return domain.AssetClassMoneyMarket
	case containsAny("diversifié", "mixte", "flexible", "allocation"):
		return domain.AssetClassDiversified
	default:
		return domain.AssetClassOther
	}
}
