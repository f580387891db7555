package config

import (
	"errors"
	"fmt"
	"time"

	"discord-automod/automod"
	"discord-automod/classifier"
	"discord-automod/rules"
	"discord-automod/sanction"

	"go.uber.org/zap"
)

// BuildSnapshot assembles a moderation snapshot from the current viper
// state and the rules and templates files.
//
// When the rules or templates file cannot be read, the returned snapshot
// is still usable (empty rule set, no templates) and err describes what
// was degraded. Startup uses it anyway; a reload keeps the previous one.
func BuildSnapshot(logger *zap.Logger) (*automod.Snapshot, error) {
	settings, err := Moderation()
	if err != nil {
		return nil, err
	}

	c, err := classifier.New(settings.AI, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}

	snap := &automod.Snapshot{
		LoadedAt:   time.Now(),
		Settings:   settings,
		Classifier: c,
	}

	var errs []error
	rs, err := rules.Load(settings.RulesPath, settings.InvitePattern)
	if err != nil {
		errs = append(errs, err)
		rs = rules.Empty(settings.InvitePattern)
	}
	snap.Rules = rs

	if settings.TemplatesPath != "" {
		tpls, err := sanction.LoadTemplates(settings.TemplatesPath)
		if err != nil {
			errs = append(errs, err)
		}
		snap.Templates = tpls
	}

	return snap, errors.Join(errs...)
}
