package message

import (
	"github.com/bwmarrin/discordgo"
)

// MessageHandler defines the interface for handling Discord message events.
type MessageHandler interface {
	// HandleCreate is called when a new message is created.
	HandleCreate(s *discordgo.Session, m *discordgo.MessageCreate)

	// HandleUpdate is called when a message is edited.
	HandleUpdate(s *discordgo.Session, m *discordgo.MessageUpdate)

	// Close waits for in-flight work and releases resources.
	Close() error
}
