package sanction

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"discord-automod/automod"
	"discord-automod/models"

	"github.com/bwmarrin/discordgo"
	"github.com/bytedance/sonic"
)

// Template names looked up per decision kind.
const (
	TemplateWarning = "word_warning"
	TemplateMute    = "mute"
)

const (
	defaultTitle = "Sanzione"
	defaultColor = 0xff0000
	timeLayout   = "2006-01-02 15:04:05"
	notAvailable = "N/A"
	aiWord       = "inappropriate content"
)

// LoadTemplates reads direct notice templates from path. Templates are
// taken from the dm_messages object when present, otherwise from every
// top-level object value. Array values (rule buckets) are skipped.
func LoadTemplates(path string) (map[string]models.DMTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates file: %w", err)
	}

	var wrapped struct {
		DMMessages map[string]models.DMTemplate `json:"dm_messages"`
	}
	if err := sonic.Unmarshal(data, &wrapped); err == nil && len(wrapped.DMMessages) > 0 {
		return wrapped.DMMessages, nil
	}

	var raw map[string]any
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse templates file: %w", err)
	}

	out := make(map[string]models.DMTemplate)
	for kind, v := range raw {
		if _, ok := v.(map[string]any); !ok {
			continue
		}
		encoded, err := sonic.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", kind, err)
		}
		var tpl models.DMTemplate
		if err := sonic.Unmarshal(encoded, &tpl); err != nil {
			return nil, fmt.Errorf("template %s: %w", kind, err)
		}
		out[kind] = tpl
	}
	return out, nil
}

// templateKind returns the template name used for d.
func templateKind(d automod.Decision) string {
	if d.Kind == automod.Mute {
		return TemplateMute
	}
	return TemplateWarning
}

// placeholders builds the substitutions of a direct notice.
func placeholders(staffer string, msg models.Message, d automod.Decision, now time.Time) *strings.Replacer {
	duration := notAvailable
	if d.Kind == automod.Mute {
		duration = d.DurationToken
	}

	word := notAvailable
	switch {
	case d.Term != "":
		word = d.Term
	case d.Source == automod.SourceAI:
		word = aiWord
	}

	return strings.NewReplacer(
		"{reason}", d.Reason,
		"{staffer}", staffer,
		"{time}", now.UTC().Format(timeLayout),
		"{duration}", duration,
		"{total_warns}", strconv.Itoa(d.TotalWarns),
		"{mention}", msg.Mention(),
		"{word}", word,
	)
}

// RenderDM builds the direct notice embed from tpl.
func RenderDM(tpl models.DMTemplate, staffer string, msg models.Message, d automod.Decision, now time.Time) *discordgo.MessageEmbed {
	r := placeholders(staffer, msg, d, now)

	embed := &discordgo.MessageEmbed{
		Title:       r.Replace(tpl.Title),
		Description: r.Replace(tpl.Description),
		Color:       tpl.Color,
	}
	if embed.Title == "" {
		embed.Title = defaultTitle
	}
	if embed.Color == 0 {
		embed.Color = defaultColor
	}
	if tpl.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: tpl.Thumbnail}
	}
	if tpl.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: r.Replace(tpl.Footer)}
	}
	return embed
}

// ChannelNotice is the public message posted where the violation
// happened. It names the user and the sanction, never the content.
func ChannelNotice(msg models.Message, d automod.Decision) string {
	mention := msg.Mention()
	switch {
	case d.Kind == automod.Mute && d.Source == automod.SourceInvite:
		return fmt.Sprintf("%s was automatically muted for 1 day for posting a Discord invite link.", mention)
	case d.Kind == automod.Mute && d.Source == automod.SourceTerm:
		return fmt.Sprintf("%s was automatically muted for %s for repeating a banned word.", mention, d.DurationToken)
	case d.Kind == automod.Mute:
		return fmt.Sprintf("%s was automatically muted for %s.", mention, d.DurationToken)
	case d.Source == automod.SourceTerm:
		return fmt.Sprintf("%s received a warning for a banned word. Don't repeat it!", mention)
	default:
		return fmt.Sprintf("%s received a warning: %s", mention, d.Reason)
	}
}
