// Package violations serialises read-modify-write of violation records
// per (guild, user) on top of a database.ViolationBackend.
package violations

import (
	"context"
	"sync"
	"time"

	"discord-automod/database"
	"discord-automod/metrics"
	"discord-automod/models"

	"go.uber.org/zap"
)

// Tracker owns all access to violation records.
type Tracker struct {
	backend database.ViolationBackend
	logger  *zap.Logger
	locks   *keyedMutex
}

func NewTracker(backend database.ViolationBackend, logger *zap.Logger) *Tracker {
	return &Tracker{
		backend: backend,
		logger:  logger.Named("violations"),
		locks:   newKeyedMutex(),
	}
}

// Backend returns the underlying storage backend.
func (t *Tracker) Backend() database.ViolationBackend { return t.backend }

// Update runs fn on the record of key while holding that key's lock and
// persists the result. A load failure gives fn a fresh record that is
// never written back, so the stored history survives; a save failure is
// logged and the in-memory record is still returned.
func (t *Tracker) Update(ctx context.Context, key database.Key, fn func(rec *models.ViolationRecord)) models.ViolationRecord {
	unlock := t.locks.Lock(key)
	defer unlock()

	rec, loaded := t.load(ctx, key)
	fn(&rec)

	if !loaded {
		t.logger.Warn("Skipping violation record write after failed load",
			zap.String("guild_id", key.GuildID),
			zap.String("user_id", key.UserID))
		return rec.Clone()
	}
	if err := t.backend.Save(ctx, key, rec); err != nil {
		metrics.StoreErrors.WithLabelValues("save").Inc()
		t.logger.Error("Failed to save violation record",
			zap.String("guild_id", key.GuildID),
			zap.String("user_id", key.UserID),
			zap.Error(err))
	}
	return rec.Clone()
}

// Get returns the record of key with strikes older than window pruned.
func (t *Tracker) Get(ctx context.Context, key database.Key, now time.Time, window time.Duration) models.ViolationRecord {
	unlock := t.locks.Lock(key)
	defer unlock()

	rec, _ := t.load(ctx, key)
	rec.PruneStrikes(now.Add(-window))
	return rec
}

// load reports false when the backend failed and rec is a stand-in.
func (t *Tracker) load(ctx context.Context, key database.Key) (models.ViolationRecord, bool) {
	rec, _, err := t.backend.Load(ctx, key)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("load").Inc()
		t.logger.Error("Failed to load violation record, starting fresh",
			zap.String("guild_id", key.GuildID),
			zap.String("user_id", key.UserID),
			zap.Error(err))
		return models.ViolationRecord{}, false
	}
	return rec, true
}

// CompactResult summarises one Compact pass.
type CompactResult struct {
	Records int
	Pruned  int
}

// Compact prunes expired strikes from every stored record and writes
// back only the records that changed. Warned terms are never dropped.
func (t *Tracker) Compact(ctx context.Context, now time.Time, window time.Duration) (CompactResult, error) {
	keys, err := t.backend.Keys(ctx)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("keys").Inc()
		return CompactResult{}, err
	}

	res := CompactResult{Records: len(keys)}
	cutoff := now.Add(-window)
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Pruned += t.compactOne(ctx, key, cutoff)
	}
	return res, nil
}

func (t *Tracker) compactOne(ctx context.Context, key database.Key, cutoff time.Time) int {
	unlock := t.locks.Lock(key)
	defer unlock()

	rec, ok, err := t.backend.Load(ctx, key)
	if err != nil || !ok {
		return 0
	}
	before := len(rec.StrikeTimestamps)
	pruned := before - rec.PruneStrikes(cutoff)
	if pruned == 0 {
		return 0
	}
	if err := t.backend.Save(ctx, key, rec); err != nil {
		metrics.StoreErrors.WithLabelValues("save").Inc()
		t.logger.Warn("Failed to save compacted record", zap.String("key", key.String()), zap.Error(err))
		return 0
	}
	return pruned
}

// keyedMutex hands out one mutex per key and forgets it once no
// goroutine holds or waits on it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[database.Key]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[database.Key]*refMutex)}
}

func (k *keyedMutex) Lock(key database.Key) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
