package command

import (
	"discord-automod/utils"

	"github.com/bwmarrin/discordgo"
)

var staffPermissions int64 = discordgo.PermissionModerateMembers

// PingCommand defines the structure for the /ping command.
type PingCommand struct{}

// Definition returns the application command definition.
func (c *PingCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "ping",
		Description: "Responds with Pong!",
	}
}

// ReloadModCommand defines the structure for the /reloadmod command.
type ReloadModCommand struct{}

// Definition returns the application command definition.
func (c *ReloadModCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     "reloadmod",
		Description:              "Reload banned terms, notice templates and classifier settings",
		DefaultMemberPermissions: &staffPermissions,
	}
}

// ViolationsCommand defines the structure for the /violations command.
type ViolationsCommand struct{}

// Definition returns the application command definition.
func (c *ViolationsCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     "violations",
		Description:              "Show the automod history of a member",
		DefaultMemberPermissions: &staffPermissions,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "user",
				Description: "The member to look up",
				Type:        discordgo.ApplicationCommandOptionUser,
				Required:    true,
			},
		},
	}
}

// StatusCommand defines the structure for the /automod_status command.
type StatusCommand struct{}

// Definition returns the application command definition.
func (c *StatusCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     "automod_status",
		Description:              "Show the active moderation snapshot and storage status",
		DefaultMemberPermissions: &staffPermissions,
	}
}

func (c *PingCommand) Level() string { return utils.LevelGuest }

func (c *ReloadModCommand) Level() string { return utils.LevelAdmin }

func (c *ViolationsCommand) Level() string { return utils.LevelStaff }

func (c *StatusCommand) Level() string { return utils.LevelStaff }
