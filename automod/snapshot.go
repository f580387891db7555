package automod

import (
	"time"

	"discord-automod/classifier"
	"discord-automod/models"
	"discord-automod/rules"
)

// Snapshot is one immutable view of the moderation configuration.
// Reload builds a new Snapshot; nothing mutates one after Engine.Reload.
type Snapshot struct {
	Version    uint64
	LoadedAt   time.Time
	Settings   models.ModerationConfig
	Rules      *rules.RuleSet
	Templates  map[string]models.DMTemplate
	Classifier classifier.Classifier
}

// StrikeWindow is the rolling window classifier strikes are counted in.
func (s *Snapshot) StrikeWindow() time.Duration {
	return time.Duration(s.Settings.AI.StrikeWindowSec) * time.Second
}

// Template returns the direct notice template of kind, if configured.
func (s *Snapshot) Template(kind string) (models.DMTemplate, bool) {
	t, ok := s.Templates[kind]
	return t, ok
}

// StafferName is the actor shown to users for automated sanctions.
func (s *Snapshot) StafferName() string {
	if s.Settings.StafferName == "" {
		return "Sistema"
	}
	return s.Settings.StafferName
}

// withDefaults fills the parts a caller may leave nil.
func (s *Snapshot) withDefaults() *Snapshot {
	out := *s
	if out.Rules == nil {
		out.Rules = rules.Empty(out.Settings.InvitePattern)
	}
	if out.Classifier == nil {
		out.Classifier = classifier.Disabled{}
	}
	if out.Templates == nil {
		out.Templates = map[string]models.DMTemplate{}
	}
	if out.LoadedAt.IsZero() {
		out.LoadedAt = time.Now()
	}
	return &out
}
