package automod

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the sanction kind of a Decision.
type Kind int

const (
	Ignore Kind = iota
	Warn
	Mute
)

func (k Kind) String() string {
	switch k {
	case Ignore:
		return "ignore"
	case Warn:
		return "warn"
	case Mute:
		return "mute"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Source names the signal a Decision was taken on.
type Source string

const (
	SourceNone   Source = ""
	SourceInvite Source = "invite"
	SourceTerm   Source = "term"
	SourceAI     Source = "ai"
)

// Decision is the output of evaluating one message.
type Decision struct {
	Kind          Kind
	Source        Source
	Duration      time.Duration // Mute only
	DurationToken string        // e.g. "1d", "30m"; shown to the user
	Reason        string
	Term          string   // banned term, SourceTerm only
	Categories    []string // SourceAI only
	TotalWarns    int
}

// Sanctioned reports whether the decision deletes the message.
func (d Decision) Sanctioned() bool {
	return d.Kind != Ignore
}

func (d Decision) String() string {
	switch d.Kind {
	case Ignore:
		return "ignore"
	case Mute:
		return fmt.Sprintf("mute(%s, %q)", d.DurationToken, d.Reason)
	default:
		return fmt.Sprintf("%s(%q)", d.Kind, d.Reason)
	}
}

func ignore() Decision {
	return Decision{Kind: Ignore}
}

func inviteMute(d time.Duration) Decision {
	return Decision{
		Kind:          Mute,
		Source:        SourceInvite,
		Duration:      d,
		DurationToken: "1d",
		Reason:        "invite link",
	}
}

func termWarn(term string, total int) Decision {
	return Decision{
		Kind:       Warn,
		Source:     SourceTerm,
		Reason:     "banned term: " + term,
		Term:       term,
		TotalWarns: total,
	}
}

func termMute(term, token string, d time.Duration, total int) Decision {
	return Decision{
		Kind:          Mute,
		Source:        SourceTerm,
		Duration:      d,
		DurationToken: token,
		Reason:        "repeated banned term: " + term,
		Term:          term,
		TotalWarns:    total,
	}
}

func aiWarn(categories []string, strikes int) Decision {
	return Decision{
		Kind:       Warn,
		Source:     SourceAI,
		Reason:     "AI-flagged content",
		Categories: categories,
		TotalWarns: strikes,
	}
}

// unspecifiedCategory names a flagged verdict that reported no categories.
const unspecifiedCategory = "violation"

func aiMute(categories []string, minutes, strikes int) Decision {
	label := strings.Join(categories, ", ")
	if label == "" {
		label = unspecifiedCategory
	}
	return Decision{
		Kind:          Mute,
		Source:        SourceAI,
		Duration:      time.Duration(minutes) * time.Minute,
		DurationToken: fmt.Sprintf("%dm", minutes),
		Reason:        "AI-flagged content: " + label,
		Categories:    categories,
		TotalWarns:    strikes,
	}
}
