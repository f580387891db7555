package utils

import (
	"fmt"
	"strings"
	"time"

	"discord-automod/models"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	ColorInfo  = 0x00ff00 // Green
	ColorWarn  = 0xffff00 // Yellow
	ColorError = 0xff0000 // Red
)

// NewLogger builds the process logger. level is a zap level name.
func NewLogger(level string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// EmbedSender posts embeds to a channel.
type EmbedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// AuditLogger writes audit events and lifecycle notes to zap and, when
// an admin channel is configured, mirrors them there as embeds.
type AuditLogger struct {
	sender    EmbedSender
	channelID string
	logger    *zap.Logger
}

func NewAuditLogger(sender EmbedSender, channelID string, logger *zap.Logger) *AuditLogger {
	log := logger.Named("audit")
	if channelID == "" {
		log.Warn("bot.adminChannelId is not set, audit events are only logged locally")
	}
	return &AuditLogger{sender: sender, channelID: channelID, logger: log}
}

// Record logs one sanction action. Decisions and failed actions are also
// posted to the admin channel.
func (a *AuditLogger) Record(event models.AuditEvent) {
	fields := []zap.Field{
		zap.String("id", event.ID),
		zap.String("actor", event.Actor),
		zap.String("guild_id", event.GuildID),
		zap.String("channel_id", event.ChannelID),
		zap.String("target_id", event.TargetID),
		zap.String("action", event.Action),
		zap.String("reason", event.Reason),
		zap.String("outcome", event.Outcome),
	}
	if event.Duration != "" {
		fields = append(fields, zap.String("duration", event.Duration))
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error", event.Error))
	}

	if event.Outcome == models.OutcomeFailed {
		a.logger.Warn("Automod action", fields...)
	} else {
		a.logger.Info("Automod action", fields...)
	}

	if event.Action != "decision" && event.Outcome != models.OutcomeFailed {
		return
	}
	a.send(auditEmbed(event))
}

func auditEmbed(event models.AuditEvent) *discordgo.MessageEmbed {
	color := ColorWarn
	if event.Outcome == models.OutcomeFailed {
		color = ColorError
	}

	embed := &discordgo.MessageEmbed{
		Title:     "Automod: " + event.Action,
		Color:     color,
		Timestamp: event.Timestamp.Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: "<@" + event.TargetID + ">", Inline: true},
			{Name: "Channel", Value: "<#" + event.ChannelID + ">", Inline: true},
			{Name: "Actor", Value: event.Actor, Inline: true},
			{Name: "Reason", Value: event.Reason},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: event.ID},
	}
	if event.Duration != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Duration", Value: event.Duration, Inline: true})
	}
	if event.Error != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Error", Value: event.Error})
	}
	return embed
}

// Log sends a lifecycle note to the admin channel.
func (a *AuditLogger) Log(level, module, operation, details string) {
	var color int
	switch level {
	case "WARN":
		color = ColorWarn
		a.logger.Warn(details, zap.String("module", module), zap.String("operation", operation))
	case "ERROR":
		color = ColorError
		a.logger.Error(details, zap.String("module", module), zap.String("operation", operation))
	default:
		color = ColorInfo
		a.logger.Info(details, zap.String("module", module), zap.String("operation", operation))
	}

	a.send(&discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Log Level: %s", level),
		Color:     color,
		Timestamp: time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Module", Value: module, Inline: true},
			{Name: "Operation", Value: operation, Inline: true},
			{Name: "Details", Value: details},
		},
	})
}

func (a *AuditLogger) Info(module, operation, details string) {
	a.Log("INFO", module, operation, details)
}

func (a *AuditLogger) Warn(module, operation, details string) {
	a.Log("WARN", module, operation, details)
}

func (a *AuditLogger) Error(module, operation, details string) {
	a.Log("ERROR", module, operation, details)
}

func (a *AuditLogger) send(embed *discordgo.MessageEmbed) {
	if a.sender == nil || a.channelID == "" {
		return
	}
	if _, err := a.sender.ChannelMessageSendEmbed(a.channelID, embed); err != nil {
		a.logger.Warn("Failed to send log message to Discord", zap.Error(err))
	}
}
