package classifier

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"discord-automod/models"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(provider, endpoint string) models.AIConfig {
	return models.AIConfig{
		Enabled:         true,
		Provider:        provider,
		Endpoint:        endpoint,
		APIKey:          "test-key",
		TimeoutMS:       500,
		MaxMessageChars: 1200,
	}
}

func TestOpenAIClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		body      string
		wantKind  Kind
		wantFlag  bool
		wantCats  []string
		checkBody func(t *testing.T, r *http.Request, body []byte)
	}{
		{
			name:     "flagged",
			status:   http.StatusOK,
			body:     `{"results":[{"flagged":true,"categories":{"harassment":true,"violence":false,"hate":true}}]}`,
			wantFlag: true,
			wantCats: []string{"harassment", "hate"},
			checkBody: func(t *testing.T, r *http.Request, body []byte) {
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
				var req openAIRequest
				require.NoError(t, sonic.Unmarshal(body, &req))
				assert.Equal(t, defaultOpenAIModel, req.Model)
				assert.Equal(t, "you are awful", req.Input)
			},
		},
		{
			name:     "not flagged",
			status:   http.StatusOK,
			body:     `{"results":[{"flagged":false,"categories":{"harassment":false}}]}`,
			wantFlag: false,
			wantCats: []string{},
		},
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			body:     `oops`,
			wantKind: KindStatus,
		},
		{
			name:     "malformed json",
			status:   http.StatusOK,
			body:     `{"results":`,
			wantKind: KindMalformed,
		},
		{
			name:     "empty results",
			status:   http.StatusOK,
			body:     `{"results":[]}`,
			wantKind: KindMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				if tt.checkBody != nil {
					tt.checkBody(t, r, body)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewOpenAI(testConfig(ProviderOpenAI, srv.URL), zap.NewNop())
			v, err := c.Classify(context.Background(), "  you are awful  ")

			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, KindOf(err))
				assert.False(t, v.OK)
				return
			}
			require.NoError(t, err)
			assert.True(t, v.OK)
			assert.Equal(t, tt.wantFlag, v.Flagged)
			assert.Equal(t, tt.wantCats, v.Categories)
			assert.Equal(t, ProviderOpenAI, v.Provider)
		})
	}
}

func TestPerspectiveClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      func(cfg *models.AIConfig)
		body     string
		wantKind Kind
		wantFlag bool
		wantCats []string
	}{
		{
			name:     "score reaches threshold",
			body:     `{"attributeScores":{"TOXICITY":{"summaryScore":{"value":0.8}},"THREAT":{"summaryScore":{"value":0.2}}}}`,
			wantFlag: true,
			wantCats: []string{"TOXICITY"},
		},
		{
			name:     "all below threshold",
			body:     `{"attributeScores":{"TOXICITY":{"summaryScore":{"value":0.79}},"PROFANITY":{"summaryScore":{"value":0.84}}}}`,
			wantFlag: false,
			wantCats: []string{},
		},
		{
			name: "unrequested attribute is ignored",
			cfg: func(cfg *models.AIConfig) {
				cfg.RequestedAttributes = []string{"INSULT"}
			},
			body:     `{"attributeScores":{"TOXICITY":{"summaryScore":{"value":0.99}},"INSULT":{"summaryScore":{"value":0.1}}}}`,
			wantFlag: false,
			wantCats: []string{},
		},
		{
			name: "custom threshold",
			cfg: func(cfg *models.AIConfig) {
				cfg.RequestedAttributes = []string{"SPAM"}
				cfg.Thresholds = map[string]float64{"SPAM": 0.5}
			},
			body:     `{"attributeScores":{"SPAM":{"summaryScore":{"value":0.55}}}}`,
			wantFlag: true,
			wantCats: []string{"SPAM"},
		},
		{
			name:     "missing attributeScores",
			body:     `{}`,
			wantKind: KindMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got perspectiveRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "test-key", r.URL.Query().Get("key"))
				body, _ := io.ReadAll(r.Body)
				_ = sonic.Unmarshal(body, &got)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			cfg := testConfig(ProviderPerspective, srv.URL)
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			c := NewPerspective(cfg, zap.NewNop())
			v, err := c.Classify(context.Background(), "ciao")

			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, v.OK)
			assert.Equal(t, tt.wantFlag, v.Flagged)
			assert.Equal(t, tt.wantCats, v.Categories)

			assert.Equal(t, "ciao", got.Comment.Text)
			assert.Equal(t, []string{"it"}, got.Languages)
			assert.True(t, got.DoNotStore)
		})
	}
}

func TestPerspectiveThresholdFallback(t *testing.T) {
	t.Parallel()

	p := NewPerspective(models.AIConfig{}, zap.NewNop())
	assert.InDelta(t, 0.70, p.Threshold("THREAT"), 1e-9)
	assert.InDelta(t, fallbackThreshold, p.Threshold("UNKNOWN"), 1e-9)
}

func TestClassifyTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := testConfig(ProviderOpenAI, srv.URL)
	cfg.TimeoutMS = 50
	c := NewOpenAI(cfg, zap.NewNop())

	start := time.Now()
	_, err := c.Classify(context.Background(), "slow")
	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestClassifyWithoutKey(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	for _, c := range []Classifier{
		NewOpenAI(models.AIConfig{Endpoint: srv.URL}, zap.NewNop()),
		NewPerspective(models.AIConfig{Endpoint: srv.URL}, zap.NewNop()),
	} {
		_, err := c.Classify(context.Background(), "hello")
		require.Error(t, err, c.Name())
		assert.Equal(t, KindCredentials, KindOf(err), c.Name())
	}
	assert.Zero(t, calls)
}

func TestClassifyEmptyText(t *testing.T) {
	t.Parallel()

	c := NewOpenAI(models.AIConfig{APIKey: "k", Endpoint: "http://127.0.0.1:0"}, zap.NewNop())
	v, err := c.Classify(context.Background(), "   ")
	require.NoError(t, err)
	assert.True(t, v.OK)
	assert.False(t, v.Flagged)
}

func TestClassifyTruncatesInput(t *testing.T) {
	t.Parallel()

	var got openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = sonic.Unmarshal(body, &got)
		_, _ = w.Write([]byte(`{"results":[{"flagged":false}]}`))
	}))
	defer srv.Close()

	cfg := testConfig(ProviderOpenAI, srv.URL)
	cfg.MaxMessageChars = 5
	_, err := NewOpenAI(cfg, zap.NewNop()).Classify(context.Background(), strings.Repeat("è", 10))
	require.NoError(t, err)
	assert.Equal(t, "èèèèè", got.Input)
}

func TestFailOpen(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewOpenAI(testConfig(ProviderOpenAI, srv.URL), zap.NewNop())
	v := FailOpen(context.Background(), c, "hello", zap.NewNop())
	assert.False(t, v.OK)
	assert.False(t, v.Flagged)

	v = FailOpen(context.Background(), Disabled{}, "hello", zap.NewNop())
	assert.False(t, v.OK)
	assert.False(t, v.Flagged)
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      models.AIConfig
		wantName string
		wantErr  bool
	}{
		{name: "disabled", cfg: models.AIConfig{Enabled: false, Provider: "openai"}, wantName: "disabled"},
		{name: "default provider", cfg: models.AIConfig{Enabled: true}, wantName: ProviderOpenAI},
		{name: "perspective alias", cfg: models.AIConfig{Enabled: true, Provider: "Google_Perspective"}, wantName: ProviderPerspective},
		{name: "unknown", cfg: models.AIConfig{Enabled: true, Provider: "nope"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, err := New(tt.cfg, zap.NewNop())
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownProvider)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, c.Name())
		})
	}
}
