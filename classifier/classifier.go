package classifier

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"discord-automod/models"

	"go.uber.org/zap"
)

// Provider names accepted in moderation.ai.provider.
const (
	ProviderPerspective = "perspective"
	ProviderOpenAI      = "openai"
)

// ErrUnknownProvider is returned by New for an unsupported provider name.
var ErrUnknownProvider = errors.New("unknown classifier provider")

// Verdict is the outcome of classifying one message.
// OK is false when the remote call did not succeed, which is distinct
// from a successful "not flagged" answer.
type Verdict struct {
	OK         bool
	Flagged    bool
	Categories []string
	Provider   string
}

// Classifier classifies message text with a remote provider.
type Classifier interface {
	Classify(ctx context.Context, text string) (Verdict, error)
	Name() string
}

// Kind classifies classifier failures.
type Kind string

const (
	KindDisabled    Kind = "disabled"
	KindCredentials Kind = "credentials"
	KindTimeout     Kind = "timeout"
	KindStatus      Kind = "status"
	KindNetwork     Kind = "network"
	KindMalformed   Kind = "malformed"
	KindUnavailable Kind = "unavailable"
)

// Error is returned by every Classifier on failure.
type Error struct {
	Kind     Kind
	Provider string
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s classifier: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s classifier: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the failure kind of err, or "" if err is not a classifier error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// FailOpen classifies text and collapses every failure into a
// not-flagged verdict with OK=false. Failures are logged, never returned.
func FailOpen(ctx context.Context, c Classifier, text string, logger *zap.Logger) Verdict {
	v, err := c.Classify(ctx, text)
	if err != nil {
		if KindOf(err) != KindDisabled {
			logger.Warn("Classifier failed, treating message as not flagged",
				zap.String("provider", c.Name()),
				zap.String("kind", string(KindOf(err))),
				zap.Error(err))
		}
		return Verdict{OK: false, Flagged: false, Provider: c.Name()}
	}
	return v
}

// New returns the classifier selected by cfg.Provider.
func New(cfg models.AIConfig, logger *zap.Logger) (Classifier, error) {
	if !cfg.Enabled {
		return Disabled{}, nil
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "perspective", "google", "google_perspective":
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("PERSPECTIVE_API_KEY")
		}
		return NewPerspective(cfg, logger), nil
	case "openai", "":
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		return NewOpenAI(cfg, logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}

// Disabled never calls out and always reports KindDisabled.
type Disabled struct{}

func (Disabled) Classify(context.Context, string) (Verdict, error) {
	return Verdict{}, &Error{Kind: KindDisabled, Provider: "disabled"}
}

func (Disabled) Name() string { return "disabled" }

// prepareText trims text and truncates it to maxChars runes.
func prepareText(text string, maxChars int) string {
	text = strings.TrimSpace(text)
	if maxChars <= 0 {
		return text
	}
	r := []rune(text)
	if len(r) > maxChars {
		return string(r[:maxChars])
	}
	return text
}

// triggered returns the sorted names of the categories set to true.
func triggered(categories map[string]bool) []string {
	out := make([]string, 0, len(categories))
	for name, hit := range categories {
		if hit {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func timeoutOf(cfg models.AIConfig) time.Duration {
	if cfg.TimeoutMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(cfg.TimeoutMS) * time.Millisecond
}
