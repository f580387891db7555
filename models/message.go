package models

import (
	"slices"
	"time"
)

// Message represents an inbound guild message as seen by automod.
type Message struct {
	MessageID   string     `json:"message_id"`
	GuildID     string     `json:"guild_id"`
	ChannelID   string     `json:"channel_id"`
	AuthorID    string     `json:"author_id"`
	AuthorIsBot bool       `json:"author_is_bot"`
	AuthorRoles []string   `json:"author_roles"`
	Text        string     `json:"text"`
	CreatedAt   time.Time  `json:"created_at"`
	MutedUntil  *time.Time `json:"muted_until,omitempty"` // communication disabled deadline, if any
}

// HasRole reports whether the author holds roleID.
func (m Message) HasRole(roleID string) bool {
	return roleID != "" && slices.Contains(m.AuthorRoles, roleID)
}

// IsMuted reports whether the author is under a timed restriction at now.
func (m Message) IsMuted(now time.Time) bool {
	return m.MutedUntil != nil && m.MutedUntil.After(now)
}

// Mention returns the Discord mention string of the author.
func (m Message) Mention() string {
	return "<@" + m.AuthorID + ">"
}

// AuditEvent represents one automod action recorded for audit purposes.
type AuditEvent struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	GuildID   string    `json:"guild_id"`
	ChannelID string    `json:"channel_id"`
	TargetID  string    `json:"target_id"`
	Action    string    `json:"action"`  // decision, delete, mute, dm, notice
	Reason    string    `json:"reason"`
	Duration  string    `json:"duration,omitempty"`
	Outcome   string    `json:"outcome"` // ok, failed, skipped
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Audit outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)
