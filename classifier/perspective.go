package classifier

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"discord-automod/models"

	"go.uber.org/zap"
)

const defaultPerspectiveEndpoint = "https://commentanalyzer.googleapis.com/v1alpha1/comments:analyze"

// DefaultAttributes are requested when moderation.ai.requested_attributes is empty.
var DefaultAttributes = []string{"TOXICITY", "INSULT", "THREAT", "PROFANITY", "SEXUALLY_EXPLICIT", "IDENTITY_ATTACK"}

// DefaultThresholds are the per-attribute flag thresholds.
var DefaultThresholds = map[string]float64{
	"TOXICITY":          0.80,
	"INSULT":            0.80,
	"THREAT":            0.70,
	"PROFANITY":         0.85,
	"SEXUALLY_EXPLICIT": 0.85,
	"IDENTITY_ATTACK":   0.70,
}

const fallbackThreshold = 0.80

// Perspective scores text per attribute and flags it when any requested
// attribute reaches its threshold.
type Perspective struct {
	t          *transport
	endpoint   string
	apiKey     string
	language   string
	attributes []string
	thresholds map[string]float64
	maxChars   int
}

type perspectiveRequest struct {
	Comment             perspectiveComment  `json:"comment"`
	Languages           []string            `json:"languages"`
	RequestedAttributes map[string]struct{} `json:"requestedAttributes"`
	DoNotStore          bool                `json:"doNotStore"`
}

type perspectiveComment struct {
	Text string `json:"text"`
}

type perspectiveResponse struct {
	AttributeScores map[string]struct {
		SummaryScore struct {
			Value *float64 `json:"value"`
		} `json:"summaryScore"`
	} `json:"attributeScores"`
}

// NewPerspective creates a per-category score classifier.
func NewPerspective(cfg models.AIConfig, logger *zap.Logger) *Perspective {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultPerspectiveEndpoint
	}
	// viper lower-cases map keys, attribute names are upper case on the wire
	attributes := make([]string, 0, len(cfg.RequestedAttributes))
	for _, a := range cfg.RequestedAttributes {
		attributes = append(attributes, strings.ToUpper(a))
	}
	if len(attributes) == 0 {
		attributes = DefaultAttributes
	}
	language := cfg.Language
	if language == "" {
		language = "it"
	}

	thresholds := make(map[string]float64, len(DefaultThresholds)+len(cfg.Thresholds))
	for k, v := range DefaultThresholds {
		thresholds[k] = v
	}
	for k, v := range cfg.Thresholds {
		thresholds[strings.ToUpper(k)] = v
	}

	return &Perspective{
		t:          newTransport(ProviderPerspective, cfg, logger),
		endpoint:   endpoint,
		apiKey:     cfg.APIKey,
		language:   language,
		attributes: attributes,
		thresholds: thresholds,
		maxChars:   cfg.MaxMessageChars,
	}
}

func (p *Perspective) Name() string { return ProviderPerspective }

// Threshold returns the configured threshold of attribute.
func (p *Perspective) Threshold(attribute string) float64 {
	if v, ok := p.thresholds[attribute]; ok {
		return v
	}
	return fallbackThreshold
}

func (p *Perspective) Classify(ctx context.Context, text string) (Verdict, error) {
	text = prepareText(text, p.maxChars)
	if text == "" {
		return Verdict{OK: true, Provider: p.Name()}, nil
	}
	if p.apiKey == "" {
		return Verdict{}, &Error{Kind: KindCredentials, Provider: p.Name(), Err: errors.New("PERSPECTIVE_API_KEY is not configured")}
	}

	requested := make(map[string]struct{}, len(p.attributes))
	for _, a := range p.attributes {
		requested[a] = struct{}{}
	}
	body := perspectiveRequest{
		Comment:             perspectiveComment{Text: text},
		Languages:           []string{p.language},
		RequestedAttributes: requested,
		DoNotStore:          true,
	}

	u := p.endpoint + "?key=" + url.QueryEscape(p.apiKey)

	var resp perspectiveResponse
	if err := p.t.post(ctx, u, nil, body, &resp); err != nil {
		return Verdict{}, err
	}
	if resp.AttributeScores == nil {
		return Verdict{}, &Error{Kind: KindMalformed, Provider: p.Name(), Err: errors.New("response has no attributeScores")}
	}

	categories := make(map[string]bool, len(p.attributes))
	for _, attr := range p.attributes {
		score, ok := resp.AttributeScores[attr]
		if !ok || score.SummaryScore.Value == nil {
			continue
		}
		categories[attr] = *score.SummaryScore.Value >= p.Threshold(attr)
	}

	hits := triggered(categories)
	return Verdict{OK: true, Flagged: len(hits) > 0, Categories: hits, Provider: p.Name()}, nil
}
