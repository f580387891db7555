package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"discord-automod/automod"
	"discord-automod/bot"
	"discord-automod/database"
	"discord-automod/models"

	"github.com/bwmarrin/discordgo"
)

// HandlePing handles the logic for the /ping command.
func HandlePing(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	respondEphemeral(b, s, i, "Pong!")
}

// HandleReloadMod handles the logic for the /reloadmod command.
func HandleReloadMod(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	snap, err := b.Reload()
	respondEphemeral(b, s, i, reloadContent(snap, err))
}

// HandleViolations handles the logic for the /violations command.
func HandleViolations(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		respondEphemeral(b, s, i, "This command can only be used in a server.")
		return
	}

	var target *discordgo.User
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "user" {
			target = opt.UserValue(nil)
		}
	}
	if target == nil {
		respondEphemeral(b, s, i, "Error: a user is required.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	window := b.Engine.Snapshot().StrikeWindow()
	rec := b.Tracker.Get(ctx, database.Key{GuildID: i.GuildID, UserID: target.ID}, time.Now(), window)
	respondEphemeral(b, s, i, violationsContent(target.ID, rec, window))
}

// HandleStatus handles the logic for the /automod_status command.
func HandleStatus(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	respondEphemeral(b, s, i, statusContent(b.Engine.Snapshot(), b.Status.Status()))
}

func reloadContent(snap *automod.Snapshot, err error) string {
	if err != nil {
		return fmt.Sprintf("❌ Reload failed, the previous configuration stays active: %v", err)
	}
	return fmt.Sprintf("✅ Moderation configuration reloaded (version %d, %d banned terms, %d templates, classifier %s).",
		snap.Version, snap.Rules.TermCount(), len(snap.Templates), snap.Classifier.Name())
}

func violationsContent(userID string, rec models.ViolationRecord, window time.Duration) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Automod history of <@%s>**\n", userID)
	fmt.Fprintf(&sb, "Classifier strikes in the last %s: %d\n", window, len(rec.StrikeTimestamps))
	if len(rec.WarnedTerms) == 0 {
		sb.WriteString("Warned terms: none")
	} else {
		fmt.Fprintf(&sb, "Warned terms (%d): %s", len(rec.WarnedTerms), strings.Join(rec.WarnedTerms, ", "))
	}
	return sb.String()
}

func statusContent(snap *automod.Snapshot, st models.StoreStatus) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Snapshot** v%d loaded %s\n", snap.Version, snap.LoadedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Banned terms: %d, templates: %d, classifier: %s\n",
		snap.Rules.TermCount(), len(snap.Templates), snap.Classifier.Name())
	fmt.Fprintf(&sb, "**Storage** %s, %d records", st.Driver, st.Records)
	if !st.LastCompaction.IsZero() {
		fmt.Fprintf(&sb, ", last compaction %s (%d strikes pruned in total)",
			st.LastCompaction.Format(time.RFC3339), st.PrunedStrikes)
	}
	return sb.String()
}
