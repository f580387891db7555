package automod

import (
	"context"
	"time"

	"discord-automod/classifier"
	"discord-automod/database"
	"discord-automod/models"
	"discord-automod/rules"
	"discord-automod/violations"

	"go.uber.org/zap"
)

// Policy decides the sanction for a non-exempt message.
// Precedence is invite link, then banned term, then the classifier.
type Policy struct {
	tracker *violations.Tracker
	logger  *zap.Logger
	now     func() time.Time
}

func NewPolicy(tracker *violations.Tracker, logger *zap.Logger) *Policy {
	return &Policy{
		tracker: tracker,
		logger:  logger.Named("policy"),
		now:     time.Now,
	}
}

// Decide evaluates msg against snap and updates the author's violation
// record. It never returns an error: classifier failures are Ignore and
// storage failures are logged by the tracker.
func (p *Policy) Decide(ctx context.Context, snap *Snapshot, msg models.Message) Decision {
	now := p.now()
	if msg.IsMuted(now) {
		return ignore()
	}

	key := database.Key{GuildID: msg.GuildID, UserID: msg.AuthorID}
	match := snap.Rules.Match(msg.Text)

	if match.Invite {
		return inviteMute(rules.InviteDuration)
	}
	if match.Hit() {
		return p.decideTerm(ctx, snap, key, match)
	}

	verdict := classifier.FailOpen(ctx, snap.Classifier, msg.Text, p.logger)
	if !verdict.OK || !verdict.Flagged {
		return ignore()
	}
	return p.decideStrike(ctx, snap, key, verdict, now)
}

func (p *Policy) decideTerm(ctx context.Context, snap *Snapshot, key database.Key, match rules.Match) Decision {
	var repeated bool
	rec := p.tracker.Update(ctx, key, func(rec *models.ViolationRecord) {
		repeated = !rec.MarkWarned(match.Term)
	})

	if repeated {
		return termMute(match.Term, match.Token, snap.Rules.DurationFor(match.Token), len(rec.WarnedTerms))
	}
	return termWarn(match.Term, len(rec.WarnedTerms))
}

func (p *Policy) decideStrike(ctx context.Context, snap *Snapshot, key database.Key, verdict classifier.Verdict, now time.Time) Decision {
	var n int
	p.tracker.Update(ctx, key, func(rec *models.ViolationRecord) {
		rec.AddStrike(now)
		n = rec.PruneStrikes(now.Add(-snap.StrikeWindow()))
	})

	ai := snap.Settings.AI
	if n > ai.EscalateAfter {
		return aiMute(verdict.Categories, ai.TimeoutMinutes, n)
	}
	return aiWarn(verdict.Categories, n)
}
