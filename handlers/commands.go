package handlers

import (
	"discord-automod/bot"
	"discord-automod/command"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// CommandDispatcher returns the central handler for all application command
// interactions. It performs permission checks and then dispatches the
// interaction to the appropriate handler.
func CommandDispatcher(b *bot.Bot) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	commandPermissions := command.Permissions()
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		commandName := i.ApplicationCommandData().Name

		if requiredLevel, ok := commandPermissions[commandName]; ok {
			if !b.Auth.CheckPermission(i, requiredLevel) {
				respondEphemeral(b, s, i, "🚫 You do not have permission to run this command.")
				return
			}
		}

		switch commandName {
		case "ping":
			HandlePing(b, s, i)
		case "reloadmod":
			HandleReloadMod(b, s, i)
		case "violations":
			HandleViolations(b, s, i)
		case "automod_status":
			HandleStatus(b, s, i)
		default:
			respondEphemeral(b, s, i, "🚫 Internal error: unknown command.")
		}
	}
}

func respondEphemeral(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.Logger.Warn("Failed to respond to interaction",
			zap.String("command", i.ApplicationCommandData().Name),
			zap.Error(err))
	}
}
