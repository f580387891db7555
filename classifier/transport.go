package classifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"discord-automod/metrics"
	"discord-automod/models"

	"github.com/bytedance/sonic"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const maxResponseBytes = 1 << 20

// transport is the HTTP plumbing shared by both providers: bounded
// concurrency, a circuit breaker and a per-call timeout. It never retries.
type transport struct {
	provider string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	sem      *semaphore.Weighted
	timeout  time.Duration
	logger   *zap.Logger
}

func newTransport(provider string, cfg models.AIConfig, logger *zap.Logger) *transport {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	log := logger.Named("classifier").With(zap.String("provider", provider))

	settings := gobreaker.Settings{
		Name:        provider,
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		OnStateChange: func(_ string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &transport{
		provider: provider,
		client:   &http.Client{},
		breaker:  gobreaker.NewCircuitBreaker(settings),
		sem:      semaphore.NewWeighted(maxConcurrent),
		timeout:  timeoutOf(cfg),
		logger:   log,
	}
}

// post sends body as JSON to url and decodes the JSON answer into out.
func (t *transport) post(ctx context.Context, url string, header http.Header, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := t.sem.Acquire(ctx, 1); err != nil {
		return t.record(t.wrapContextErr(err, KindUnavailable))
	}
	defer t.sem.Release(1)

	start := time.Now()
	_, err := t.breaker.Execute(func() (any, error) {
		return nil, t.do(ctx, url, header, body, out)
	})
	metrics.ClassifierDuration.WithLabelValues(t.provider).Observe(time.Since(start).Seconds())

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = &Error{Kind: KindUnavailable, Provider: t.provider, Err: err}
	}
	return t.record(err)
}

func (t *transport) do(ctx context.Context, url string, header http.Header, body, out any) error {
	payload, err := sonic.Marshal(body)
	if err != nil {
		return &Error{Kind: KindMalformed, Provider: t.provider, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &Error{Kind: KindNetwork, Provider: t.provider, Err: err}
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return t.wrapContextErr(err, KindNetwork)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return t.wrapContextErr(err, KindNetwork)
	}

	if resp.StatusCode != http.StatusOK {
		snippet := data
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return &Error{Kind: KindStatus, Provider: t.provider, Err: fmt.Errorf("status %d: %s", resp.StatusCode, snippet)}
	}

	if err := sonic.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindMalformed, Provider: t.provider, Err: err}
	}
	return nil
}

// wrapContextErr maps deadline errors to KindTimeout and anything else to fallback.
func (t *transport) wrapContextErr(err error, fallback Kind) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Provider: t.provider, Err: err}
	}
	return &Error{Kind: fallback, Provider: t.provider, Err: err}
}

func (t *transport) record(err error) error {
	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
	}
	metrics.ClassifierRequests.WithLabelValues(t.provider, outcome).Inc()
	return err
}
