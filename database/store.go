package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"discord-automod/models"

	"github.com/bytedance/sonic"
)

// Storage drivers accepted in storage.driver.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// ErrUnknownDriver is returned by Open for an unsupported storage driver.
var ErrUnknownDriver = errors.New("unknown storage driver")

// Key identifies one violation record.
type Key struct {
	GuildID string
	UserID  string
}

func (k Key) String() string {
	return k.GuildID + ":" + k.UserID
}

// ViolationBackend persists violation records. Implementations do no
// locking beyond what their driver gives; callers serialise
// read-modify-write per key.
type ViolationBackend interface {
	// Load returns the record of key. ok is false when none exists yet.
	Load(ctx context.Context, key Key) (rec models.ViolationRecord, ok bool, err error)
	Save(ctx context.Context, key Key, rec models.ViolationRecord) error
	Keys(ctx context.Context) ([]Key, error)
	Driver() string
	Close() error
}

// Open returns the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg models.StorageConfig) (ViolationBackend, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", DriverSQLite:
		path := cfg.Path
		if path == "" {
			path = "data/automod.db"
		}
		return NewSQLiteStore(path)
	case DriverRedis:
		return NewRedisStore(ctx, cfg.RedisURL)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
}

// encodeList and decodeList store the two record fields as JSON arrays.
func encodeList[T any](list []T) (string, error) {
	if list == nil {
		return "[]", nil
	}
	return sonic.MarshalString(list)
}

func decodeList[T any](data string) ([]T, error) {
	var out []T
	if data == "" {
		return out, nil
	}
	if err := sonic.UnmarshalString(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func encodeRecord(rec models.ViolationRecord) (strikes, terms string, err error) {
	if strikes, err = encodeList(rec.StrikeTimestamps); err != nil {
		return "", "", fmt.Errorf("failed to encode strikes: %w", err)
	}
	if terms, err = encodeList(rec.WarnedTerms); err != nil {
		return "", "", fmt.Errorf("failed to encode warned terms: %w", err)
	}
	return strikes, terms, nil
}

func decodeRecord(strikes, terms string) (models.ViolationRecord, error) {
	var rec models.ViolationRecord
	var err error
	if rec.StrikeTimestamps, err = decodeList[int64](strikes); err != nil {
		return models.ViolationRecord{}, fmt.Errorf("failed to decode strikes: %w", err)
	}
	if rec.WarnedTerms, err = decodeList[string](terms); err != nil {
		return models.ViolationRecord{}, fmt.Errorf("failed to decode warned terms: %w", err)
	}
	return rec, nil
}
