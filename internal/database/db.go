package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
	path string
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database connection
	// Use WAL mode for better concurrency
	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)

	return &DB{
		conn: conn,
		path: dbPath,
	}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Migrate creates the schema if it does not exist yet
func (db *DB) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS funds (
		isin TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		management_company TEXT,
		sri INTEGER NOT NULL DEFAULT 4,
		asset_class TEXT NOT NULL,
		description TEXT,
		available_platforms TEXT,
		is_standard_isin INTEGER NOT NULL DEFAULT 1,
		label TEXT
	);

	CREATE TABLE IF NOT EXISTS brain_registry (
		brain_id TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		brain_type TEXT NOT NULL,
		version TEXT NOT NULL DEFAULT '1.0.0',
		role TEXT NOT NULL DEFAULT 'core',
		horizon TEXT NOT NULL DEFAULT 'medium_term',
		default_weight REAL NOT NULL DEFAULT 0.25,
		is_active INTEGER NOT NULL DEFAULT 1,
		description TEXT
	);

	CREATE TABLE IF NOT EXISTS weight_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		weights_json TEXT NOT NULL,
		reason TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_funds_sri ON funds(sri);
	CREATE INDEX IF NOT EXISTS idx_funds_asset_class ON funds(asset_class);
	`

	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Begin starts a new transaction
func (db *DB) Begin() (*sql.Tx, error) {
	return db.conn.Begin()
}

// Exec executes a query without returning rows
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.conn.Exec(query, args...)
}

// Query executes a query that returns rows
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

// QueryRow executes a query that returns at most one row
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}
