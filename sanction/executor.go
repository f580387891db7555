package sanction

import (
	"context"
	"time"

	"discord-automod/automod"
	"discord-automod/metrics"
	"discord-automod/models"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxTimeout is the longest communication timeout Discord accepts.
const MaxTimeout = 28 * 24 * time.Hour

// Audit actions.
const (
	ActionDecision = "decision"
	ActionDelete   = "delete"
	ActionMute     = "mute"
	ActionDM       = "dm"
	ActionNotice   = "notice"
)

// Platform is the subset of *discordgo.Session the executor drives.
type Platform interface {
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	GuildMemberTimeout(guildID, userID string, until *time.Time, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// AuditSink receives one event per executed action.
type AuditSink interface {
	Record(event models.AuditEvent)
}

// Executor applies automod decisions on Discord. Every step runs even
// when an earlier one failed.
type Executor struct {
	platform Platform
	audit    AuditSink
	logger   *zap.Logger
	now      func() time.Time
}

func NewExecutor(platform Platform, audit AuditSink, logger *zap.Logger) *Executor {
	return &Executor{
		platform: platform,
		audit:    audit,
		logger:   logger.Named("sanction"),
		now:      time.Now,
	}
}

// Apply executes d for msg. Ignore decisions do nothing.
func (e *Executor) Apply(ctx context.Context, snap *automod.Snapshot, msg models.Message, d automod.Decision) {
	if !d.Sanctioned() {
		return
	}
	now := e.now()
	staffer := snap.StafferName()

	e.record(staffer, msg, d, ActionDecision, nil, false)

	err := e.platform.ChannelMessageDelete(msg.ChannelID, msg.MessageID, discordgo.WithContext(ctx))
	e.record(staffer, msg, d, ActionDelete, err, false)

	if d.Kind == automod.Mute {
		until := now.Add(min(d.Duration, MaxTimeout))
		err := e.platform.GuildMemberTimeout(msg.GuildID, msg.AuthorID, &until,
			discordgo.WithContext(ctx), discordgo.WithAuditLogReason(d.Reason))
		e.record(staffer, msg, d, ActionMute, err, false)
	}

	e.sendDM(ctx, snap, staffer, msg, d, now)

	_, err = e.platform.ChannelMessageSend(msg.ChannelID, ChannelNotice(msg, d), discordgo.WithContext(ctx))
	e.record(staffer, msg, d, ActionNotice, err, false)
}

func (e *Executor) sendDM(ctx context.Context, snap *automod.Snapshot, staffer string, msg models.Message, d automod.Decision, now time.Time) {
	tpl, ok := snap.Template(templateKind(d))
	if !ok {
		e.record(staffer, msg, d, ActionDM, nil, true)
		return
	}

	ch, err := e.platform.UserChannelCreate(msg.AuthorID, discordgo.WithContext(ctx))
	if err == nil {
		_, err = e.platform.ChannelMessageSendEmbed(ch.ID, RenderDM(tpl, staffer, msg, d, now), discordgo.WithContext(ctx))
	}
	// closed DMs are common and never block the rest of the sanction
	e.record(staffer, msg, d, ActionDM, err, false)
}

func (e *Executor) record(staffer string, msg models.Message, d automod.Decision, action string, err error, skipped bool) {
	event := models.AuditEvent{
		ID:        uuid.NewString(),
		Actor:     staffer,
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		TargetID:  msg.AuthorID,
		Action:    action,
		Reason:    d.Reason,
		Outcome:   models.OutcomeOK,
		Timestamp: e.now(),
	}
	if d.Kind == automod.Mute {
		event.Duration = d.DurationToken
	}
	switch {
	case skipped:
		event.Outcome = models.OutcomeSkipped
	case err != nil:
		event.Outcome = models.OutcomeFailed
		event.Error = err.Error()
	}

	if action != ActionDecision {
		metrics.SanctionActions.WithLabelValues(action, event.Outcome).Inc()
	}
	if err != nil {
		e.logger.Warn("Sanction action failed",
			zap.String("action", action),
			zap.String("guild_id", msg.GuildID),
			zap.String("user_id", msg.AuthorID),
			zap.Error(err))
	}
	if e.audit != nil {
		e.audit.Record(event)
	}
}
