package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// startScheduler schedules violation compaction with the given cron expression.
func (b *Bot) startScheduler(spec string) error {
	if spec == "" {
		spec = "@hourly"
	}
	b.scheduler = cron.New()
	if _, err := b.scheduler.AddFunc(spec, b.compact); err != nil {
		return fmt.Errorf("could not set up compaction job %q: %w", spec, err)
	}
	b.scheduler.Start()
	b.Logger.Info("Violation compaction scheduled", zap.String("spec", spec))
	return nil
}

// stopScheduler stops the cron jobs and waits for a running one.
func (b *Bot) stopScheduler() {
	if b.scheduler == nil {
		return
	}
	<-b.scheduler.Stop().Done()
	b.Logger.Info("Scheduler stopped")
}

// compact prunes expired strikes from all stored records.
func (b *Bot) compact() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	now := time.Now()
	res, err := b.Tracker.Compact(ctx, now, b.Engine.Snapshot().StrikeWindow())
	if err != nil {
		b.Logger.Error("Violation compaction failed", zap.Error(err))
		return
	}

	b.Status.RecordCompaction(res.Records, res.Pruned, now)
	if err := b.Status.Save(); err != nil {
		b.Logger.Warn("Failed to save storage status", zap.Error(err))
	}
	b.Logger.Info("Violation compaction finished",
		zap.Int("records", res.Records),
		zap.Int("pruned", res.Pruned),
		zap.Duration("took", time.Since(now)))
}
