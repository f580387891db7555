package automod

import (
	"slices"

	"discord-automod/models"
)

// IsExempt reports whether msg bypasses automod entirely. It depends only
// on its arguments.
func IsExempt(settings models.ModerationConfig, msg models.Message, selfID string) bool {
	if selfID != "" && msg.AuthorID == selfID {
		return true
	}
	if msg.AuthorIsBot && settings.IgnoreBots {
		return true
	}
	if msg.HasRole(settings.StaffRoleID) {
		return true
	}
	for _, roleID := range settings.NoAutomod {
		if msg.HasRole(roleID) {
			return true
		}
	}
	return slices.Contains(settings.ExemptChannels, msg.ChannelID)
}
