package anonymizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/hannes/pellucid-sanitizer/pii"
)

const (
	DefaultTimeout = 10 * time.Second
	// maxResponseBytes caps how much of a response body is read
	maxResponseBytes = 10 << 20
)

// Client talks to the remote anonymization service. It is safe for
// concurrent use.
type Client struct {
	baseURL        string
	http           *http.Client
	timeout        time.Duration
	limiter        *rate.Limiter
	customEntities []string
	logger         zerolog.Logger
}

type Option func(*Client)

// WithTimeout bounds every call, including time spent waiting on the limiter
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit caps outbound requests per second. rps <= 0 disables the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithCustomEntities forwards extra entity labels on every anonymize request
func WithCustomEntities(entities []string) Option {
	return func(c *Client) { c.customEntities = entities }
}

// New creates a Client for the service at baseURL (e.g. "http://anonymizer:8001")
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: DefaultTimeout,
		limiter: rate.NewLimiter(rate.Inf, 0),
		logger:  log.With().Str("component", "anonymizer").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service address
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) newRequest(text string, cfg pii.PrivacyConfig) anonymizeRequest {
	return anonymizeRequest{
		Text:           text,
		PrivacyLevel:   RemoteLevel(cfg.PrivacyLevel),
		PreserveFormat: cfg.PreserveContext,
		CustomEntities: c.customEntities,
	}
}

// Anonymize sanitizes one text remotely
func (c *Client) Anonymize(ctx context.Context, text string, cfg pii.PrivacyConfig) (pii.SanitizationResult, error) {
	var resp anonymizeResponse
	if err := c.do(ctx, http.MethodPost, "/anonymize", c.newRequest(text, cfg), &resp); err != nil {
		return pii.SanitizationResult{}, err
	}
	return resp.toResult(cfg.PreserveContext)
}

// AnonymizeBatch sanitizes texts with a single request. The results are in
// input order; any failed item fails the whole batch.
func (c *Client) AnonymizeBatch(ctx context.Context, texts []string, cfg pii.PrivacyConfig) ([]pii.SanitizationResult, error) {
	reqs := make([]anonymizeRequest, len(texts))
	for i, text := range texts {
		reqs[i] = c.newRequest(text, cfg)
	}

	var resp batchResponse
	if err := c.do(ctx, http.MethodPost, "/batch-anonymize", reqs, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) != len(texts) {
		return nil, fmt.Errorf("%w: batch returned %d results for %d texts", ErrProtocol, len(resp.Results), len(texts))
	}

	results := make([]pii.SanitizationResult, len(texts))
	for i, item := range resp.Results {
		result, err := item.toResult(cfg.PreserveContext)
		if err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
		results[i] = result
	}
	return results, nil
}

// Health probes GET /health
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// Stats fetches GET /stats
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := c.do(ctx, http.MethodGet, "/stats", nil, &stats)
	return stats, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limit: %w", ErrUnavailable, err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("anonymizer: marshal: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("anonymizer: request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrUnavailable, path, err)
	}

	c.logger.Debug().
		Str("request_id", requestID).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("remote call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s returned status %d", ErrUnavailable, method, path, resp.StatusCode)
	}
	if len(data) > maxResponseBytes {
		return fmt.Errorf("%w: %s response exceeds %d bytes", ErrProtocol, path, maxResponseBytes)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrProtocol, path, err)
	}
	return nil
}
