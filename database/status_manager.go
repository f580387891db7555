package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"discord-automod/models"

	"github.com/bytedance/sonic"
)

// StatusManager manages the storage status file.
type StatusManager struct {
	statusFile string
	mutex      sync.Mutex
	status     *models.StoreStatus
}

// NewStatusManager creates a new status manager for the given backend.
func NewStatusManager(statusFile, driver string) *StatusManager {
	return &StatusManager{
		statusFile: statusFile,
		status:     &models.StoreStatus{Driver: driver},
	}
}

// RecordCompaction stores the outcome of one compaction pass.
func (sm *StatusManager) RecordCompaction(records, pruned int, at time.Time) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.status.Records = records
	sm.status.LastCompaction = at
	sm.status.PrunedStrikes += pruned
}

// Status returns a copy of the current status.
func (sm *StatusManager) Status() models.StoreStatus {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	return *sm.status
}

// Save commits the current status to the JSON file.
func (sm *StatusManager) Save() error {
	if sm.statusFile == "" {
		return nil
	}

	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.status.LastUpdated = time.Now()

	// Ensure the directory exists.
	dir := filepath.Dir(sm.statusFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create status directory: %w", err)
	}

	data, err := sonic.MarshalIndent(sm.status, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	// Write to a temp file first so readers never see a partial file.
	tmp := sm.statusFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write status file: %w", err)
	}
	if err := os.Rename(tmp, sm.statusFile); err != nil {
		return fmt.Errorf("failed to replace status file: %w", err)
	}

	return nil
}
