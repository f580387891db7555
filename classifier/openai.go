package classifier

import (
	"context"
	"errors"
	"net/http"

	"discord-automod/models"

	"go.uber.org/zap"
)

const (
	defaultOpenAIEndpoint = "https://api.openai.com/v1/moderations"
	defaultOpenAIModel    = "omni-moderation-latest"
)

// OpenAI uses a single-flag moderation endpoint that returns one
// boolean plus a category map, copied through as is.
type OpenAI struct {
	t        *transport
	endpoint string
	apiKey   string
	model    string
	maxChars int
}

type openAIRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIResponse struct {
	Results []struct {
		Flagged    bool            `json:"flagged"`
		Categories map[string]bool `json:"categories"`
	} `json:"results"`
}

// NewOpenAI creates a single-flag classifier.
func NewOpenAI(cfg models.AIConfig, logger *zap.Logger) *OpenAI {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultOpenAIEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAI{
		t:        newTransport(ProviderOpenAI, cfg, logger),
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		model:    model,
		maxChars: cfg.MaxMessageChars,
	}
}

func (o *OpenAI) Name() string { return ProviderOpenAI }

func (o *OpenAI) Classify(ctx context.Context, text string) (Verdict, error) {
	text = prepareText(text, o.maxChars)
	if text == "" {
		return Verdict{OK: true, Provider: o.Name()}, nil
	}
	if o.apiKey == "" {
		return Verdict{}, &Error{Kind: KindCredentials, Provider: o.Name(), Err: errors.New("OPENAI_API_KEY is not configured")}
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+o.apiKey)

	var resp openAIResponse
	if err := o.t.post(ctx, o.endpoint, header, openAIRequest{Model: o.model, Input: text}, &resp); err != nil {
		return Verdict{}, err
	}
	if len(resp.Results) == 0 {
		return Verdict{}, &Error{Kind: KindMalformed, Provider: o.Name(), Err: errors.New("response has no results")}
	}

	result := resp.Results[0]
	return Verdict{
		OK:         true,
		Flagged:    result.Flagged,
		Categories: triggered(result.Categories),
		Provider:   o.Name(),
	}, nil
}
