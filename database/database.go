package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // Import the SQLite3 driver
)

// InitDB opens the sqlite database at dbPath and makes sure the
// violations table exists.
func InitDB(dbPath string) (*sql.DB, error) {
	// Ensure the directory for the database file exists.
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createViolationsTable(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create violations table: %w", err)
	}

	return db, nil
}

func createViolationsTable(db *sql.DB) error {
	query := `
    CREATE TABLE IF NOT EXISTS violations (
        guild_id TEXT NOT NULL,
        user_id TEXT NOT NULL,
        strike_timestamps TEXT NOT NULL DEFAULT '[]',
        warned_terms TEXT NOT NULL DEFAULT '[]',
        updated_at INTEGER NOT NULL,
        PRIMARY KEY (guild_id, user_id)
    );`
	_, err := db.Exec(query)
	return err
}
