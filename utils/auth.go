package utils

import (
	"slices"

	"discord-automod/models"

	"github.com/bwmarrin/discordgo"
)

// Permission levels of slash commands.
const (
	LevelDeveloper = "developer"
	LevelAdmin     = "admin"
	LevelStaff     = "staff"
	LevelGuest     = "guest"
)

// Auth provides methods for authorization checks.
type Auth struct {
	config      models.CommandsConfig
	staffRoleID func() string
}

// NewAuth creates an Auth. staffRoleID returns the current
// moderation.staff_role_id so reloads are picked up.
func NewAuth(cfg models.CommandsConfig, staffRoleID func() string) *Auth {
	return &Auth{config: cfg, staffRoleID: staffRoleID}
}

// IsDeveloper checks if a user is a developer.
func (a *Auth) IsDeveloper(userID string) bool {
	return slices.Contains(a.config.Auth.Developers, userID)
}

// IsAdmin checks if a member has an admin role.
func (a *Auth) IsAdmin(member *discordgo.Member) bool {
	if member == nil {
		return false
	}
	for _, roleID := range member.Roles {
		if slices.Contains(a.config.Auth.AdminsRoles, roleID) {
			return true
		}
	}
	return false
}

// IsStaff checks if a member holds the moderation staff role.
func (a *Auth) IsStaff(member *discordgo.Member) bool {
	if member == nil || a.staffRoleID == nil {
		return false
	}
	staff := a.staffRoleID()
	return staff != "" && slices.Contains(member.Roles, staff)
}

// CheckPermission checks if the caller of i has the required level.
func (a *Auth) CheckPermission(i *discordgo.InteractionCreate, requiredLevel string) bool {
	member := i.Member
	var userID string
	switch {
	case member != nil && member.User != nil:
		userID = member.User.ID
	case i.User != nil:
		userID = i.User.ID
	}

	switch requiredLevel {
	case LevelDeveloper:
		return a.IsDeveloper(userID)
	case LevelAdmin:
		return a.IsDeveloper(userID) || a.IsAdmin(member)
	case LevelStaff:
		return a.IsDeveloper(userID) || a.IsAdmin(member) || a.IsStaff(member)
	case LevelGuest:
		return true
	default:
		return false
	}
}
