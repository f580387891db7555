package command

import "github.com/bwmarrin/discordgo"

// Command is a slash command together with the permission level needed
// to run it.
type Command interface {
	Definition() *discordgo.ApplicationCommand
	Level() string
}

// AllCommands holds all the command instances.
var AllCommands = []Command{
	&PingCommand{},
	&ReloadModCommand{},
	&ViolationsCommand{},
	&StatusCommand{},
}

// GetCommandDefinitions returns a slice of all command definitions.
func GetCommandDefinitions() []*discordgo.ApplicationCommand {
	defs := make([]*discordgo.ApplicationCommand, 0, len(AllCommands))
	for _, cmd := range AllCommands {
		defs = append(defs, cmd.Definition())
	}
	return defs
}

// Permissions maps command names to their required permission level.
func Permissions() map[string]string {
	levels := make(map[string]string, len(AllCommands))
	for _, cmd := range AllCommands {
		levels[cmd.Definition().Name] = cmd.Level()
	}
	return levels
}
