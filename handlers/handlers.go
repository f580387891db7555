package handlers

import (
	"discord-automod/bot"
	"discord-automod/handlers/message"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Register all handlers to the bot.
func Register(b *bot.Bot) {
	msgs := message.NewAutomodHandler(b.Engine, b.Logger)
	b.OnStop(msgs.Close)

	b.Session.AddHandler(msgs.HandleCreate)
	b.Session.AddHandler(msgs.HandleUpdate)
	b.Session.AddHandler(InteractionCreate(b))

	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.Engine.SetSelfID(r.User.ID)
		if h := b.Health(); h != nil {
			h.SetServing(true)
		}
		b.Logger.Info("Logged in",
			zap.String("user", r.User.Username),
			zap.Int("guilds", len(r.Guilds)))
	})
	b.Session.AddHandler(func(s *discordgo.Session, d *discordgo.Disconnect) {
		if h := b.Health(); h != nil {
			h.SetServing(false)
		}
		b.Logger.Warn("Gateway disconnected")
	})
}
