package universe

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"

	"github.com/aristath/fund-trader/internal/domain"
)

// HistoryDB provides access to per-fund NAV history. Each fund gets its own
// SQLite file under the history directory, keyed by ISIN, so a corrupted or
// missing series never affects other funds.
type HistoryDB struct {
	historyDir string
	log        zerolog.Logger
}

// NewHistoryDB creates a new NAV history accessor
func NewHistoryDB(historyDir string, log zerolog.Logger) *HistoryDB {
	return &HistoryDB{
		historyDir: historyDir,
		log:        log.With().Str("component", "history_db").Logger(),
	}
}

// NavHistory fetches up to `limit` most recent NAV points for a fund,
// oldest first.
func (h *HistoryDB) NavHistory(isin string, limit int) ([]domain.NavPoint, error) {
	db, err := h.openHistoryDB(isin, false)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := `
		SELECT date, nav
		FROM nav_history
		ORDER BY date DESC
		LIMIT ?
	`

	rows, err := db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query nav history: %w", err)
	}
	defer rows.Close()

	var points []domain.NavPoint
	for rows.Next() {
		var p domain.NavPoint
		if err := rows.Scan(&p.Date, &p.Value); err != nil {
			return nil, fmt.Errorf("failed to scan nav point: %w", err)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nav history: %w", err)
	}

	// Query returns newest first; reverse into chronological order
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}

	return points, nil
}

// Closes returns up to `days` most recent NAV values for a fund, oldest
// first. Satisfies the momentum brain's NAV source contract.
func (h *HistoryDB) Closes(isin string, days int) ([]float64, error) {
	points, err := h.NavHistory(isin, days)
	if err != nil {
		return nil, err
	}

	closes := make([]float64, 0, len(points))
	for _, p := range points {
		closes = append(closes, p.Value)
	}
	return closes, nil
}

// ReplaceNavHistory rewrites the full NAV series for a fund
func (h *HistoryDB) ReplaceNavHistory(isin string, points []domain.NavPoint) error {
	db, err := h.openHistoryDB(isin, true)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin nav history transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM nav_history`); err != nil {
		return fmt.Errorf("failed to clear nav history: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO nav_history (date, nav) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare nav insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.Exec(p.Date, p.Value); err != nil {
			return fmt.Errorf("failed to insert nav point: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit nav history: %w", err)
	}

	return nil
}

// openHistoryDB opens the history database for a fund, optionally creating
// the file and schema.
func (h *HistoryDB) openHistoryDB(isin string, create bool) (*sql.DB, error) {
	dbPath := filepath.Join(h.historyDir, isin+".db")

	if !create {
		if _, err := os.Stat(dbPath); err != nil {
			return nil, fmt.Errorf("no nav history for %s: %w", isin, err)
		}
	} else if err := os.MkdirAll(h.historyDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open nav history for %s: %w", isin, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping nav history for %s: %w", isin, err)
	}

	if create {
		schema := `
			CREATE TABLE IF NOT EXISTS nav_history (
				date TEXT PRIMARY KEY,
				nav REAL NOT NULL
			)
		`
		if _, err := db.Exec(schema); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create nav history schema for %s: %w", isin, err)
		}
	}

	return db, nil
}
