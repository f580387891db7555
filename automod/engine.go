package automod

import (
	"context"
	"sync/atomic"

	"discord-automod/metrics"
	"discord-automod/models"

	"go.uber.org/zap"
)

// Executor applies a sanction decision.
type Executor interface {
	Apply(ctx context.Context, snap *Snapshot, msg models.Message, d Decision)
}

// Engine runs the automod pipeline for inbound messages against the
// currently active Snapshot.
type Engine struct {
	snap     atomic.Pointer[Snapshot]
	version  atomic.Uint64
	selfID   atomic.Value
	policy   *Policy
	executor Executor
	logger   *zap.Logger
}

func NewEngine(policy *Policy, executor Executor, snap *Snapshot, logger *zap.Logger) *Engine {
	e := &Engine{
		policy:   policy,
		executor: executor,
		logger:   logger.Named("automod"),
	}
	e.selfID.Store("")
	e.Reload(snap)
	return e
}

// SetSelfID records the bot's own user id once the session is ready.
func (e *Engine) SetSelfID(id string) {
	e.selfID.Store(id)
}

func (e *Engine) SelfID() string {
	return e.selfID.Load().(string)
}

// Snapshot returns the active snapshot.
func (e *Engine) Snapshot() *Snapshot {
	return e.snap.Load()
}

// Reload assigns snap the next version and makes it active. In-flight
// evaluations keep the snapshot they started with.
func (e *Engine) Reload(snap *Snapshot) *Snapshot {
	next := snap.withDefaults()
	next.Version = e.version.Add(1)
	e.snap.Store(next)

	metrics.SnapshotVersion.Set(float64(next.Version))
	e.logger.Info("Moderation snapshot activated",
		zap.Uint64("version", next.Version),
		zap.Int("terms", next.Rules.TermCount()),
		zap.Int("templates", len(next.Templates)),
		zap.String("classifier", next.Classifier.Name()))
	return next
}

// Evaluate decides msg without executing anything.
func (e *Engine) Evaluate(ctx context.Context, msg models.Message) Decision {
	d, _ := e.evaluate(ctx, e.Snapshot(), msg)
	return d
}

func (e *Engine) evaluate(ctx context.Context, snap *Snapshot, msg models.Message) (Decision, bool) {
	if IsExempt(snap.Settings, msg, e.SelfID()) {
		return ignore(), true
	}
	return e.policy.Decide(ctx, snap, msg), false
}

// Handle evaluates msg and applies the resulting sanction.
func (e *Engine) Handle(ctx context.Context, msg models.Message) Decision {
	snap := e.Snapshot()

	d, exempt := e.evaluate(ctx, snap, msg)
	if exempt {
		metrics.MessagesProcessed.WithLabelValues("exempt").Inc()
		return d
	}

	metrics.MessagesProcessed.WithLabelValues(d.Kind.String()).Inc()
	if !d.Sanctioned() {
		return d
	}

	metrics.Decisions.WithLabelValues(d.Kind.String(), string(d.Source)).Inc()
	e.logger.Info("Automod decision",
		zap.String("guild_id", msg.GuildID),
		zap.String("channel_id", msg.ChannelID),
		zap.String("user_id", msg.AuthorID),
		zap.String("message_id", msg.MessageID),
		zap.Stringer("decision", d),
		zap.Uint64("snapshot", snap.Version))

	if e.executor != nil {
		e.executor.Apply(ctx, snap, msg, d)
	}
	return d
}
