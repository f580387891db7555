package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"discord-automod/models"
)

// SQLiteStore keeps violation records in the violations table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := InitDB(dbPath)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Driver() string { return DriverSQLite }

func (s *SQLiteStore) Load(ctx context.Context, key Key) (models.ViolationRecord, bool, error) {
	var strikes, terms string
	row := s.db.QueryRowContext(ctx,
		`SELECT strike_timestamps, warned_terms FROM violations WHERE guild_id = ? AND user_id = ?`,
		key.GuildID, key.UserID)
	if err := row.Scan(&strikes, &terms); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ViolationRecord{}, false, nil
		}
		return models.ViolationRecord{}, false, fmt.Errorf("failed to load violations of %s: %w", key, err)
	}

	rec, err := decodeRecord(strikes, terms)
	if err != nil {
		return models.ViolationRecord{}, false, fmt.Errorf("corrupt violations row %s: %w", key, err)
	}
	return rec, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, key Key, rec models.ViolationRecord) error {
	strikes, terms, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	query := `
    INSERT INTO violations (guild_id, user_id, strike_timestamps, warned_terms, updated_at)
    VALUES (?, ?, ?, ?, ?)
    ON CONFLICT(guild_id, user_id) DO UPDATE SET
        strike_timestamps = excluded.strike_timestamps,
        warned_terms = excluded.warned_terms,
        updated_at = excluded.updated_at;`

	if _, err := s.db.ExecContext(ctx, query, key.GuildID, key.UserID, strikes, terms, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to save violations of %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Keys(ctx context.Context) ([]Key, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT guild_id, user_id FROM violations`)
	if err != nil {
		return nil, fmt.Errorf("failed to list violation keys: %w", err)
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.GuildID, &k.UserID); err != nil {
			return nil, fmt.Errorf("failed to scan violation key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
