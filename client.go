package serp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/serpkit/serp-go/internal/cache"
	"github.com/serpkit/serp-go/internal/quota"
	"github.com/serpkit/serp-go/metrics"
)

const (
	defaultBaseURL = "https://serpapi.com"
	defaultTimeout = 30 * time.Second

	envAPIKey = "SERP_API_KEY"
)

// Config carries the client settings. The zero value of every field has a
// sensible meaning, so Config{APIKey: key} is a complete configuration.
type Config struct {
	// APIKey authenticates requests. When empty, New falls back to the
	// SERP_API_KEY environment variable.
	APIKey string

	// BaseURL overrides the API endpoint, mainly for tests. Defaults to
	// https://serpapi.com.
	BaseURL string

	// Timeout bounds a single HTTP attempt. Defaults to 30s.
	Timeout time.Duration

	// Retry controls how failed attempts are repeated. The zero value
	// means DefaultRetryPolicy.
	Retry RetryPolicy

	// UserAgent replaces the default User-Agent header.
	UserAgent string

	// Headers are extra headers sent with every request.
	Headers map[string]string

	// CacheTTL enables in-memory response caching when positive.
	// Identical queries within the TTL are served without a request.
	CacheTTL time.Duration

	// QuotaPerMinute caps searches per sliding minute when positive.
	// Searches beyond the cap fail with ErrQuotaExceeded.
	QuotaPerMinute int

	// Metrics receives Prometheus instrumentation when non-nil.
	Metrics *metrics.Metrics
}

// Client is a search API client. It is safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retry      RetryPolicy
	userAgent  string
	headers    map[string]string

	logger  *zap.Logger
	metrics *metrics.Metrics

	cache    *cache.Cache
	cacheTTL time.Duration
	quota    *quota.Window
}

// New builds a client from cfg, filling defaults for zero-value fields.
// A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(envAPIKey)
	}
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: blank api key", ErrInvalidParameter)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: base url %q", ErrInvalidParameter, cfg.BaseURL)
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("%w: negative timeout", ErrInvalidParameter)
	}

	if cfg.Retry == (RetryPolicy{}) {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.Retry.MaxRetries < 0 || cfg.Retry.BaseDelay < 0 || cfg.Retry.MaxDelay < 0 || cfg.Retry.BackoffMultiplier < 0 {
		return nil, fmt.Errorf("%w: negative retry policy value", ErrInvalidParameter)
	}

	headers := make(map[string]string, len(cfg.Headers))
	for name, value := range cfg.Headers {
		if name == "" || strings.ContainsAny(name, " \t\r\n:") {
			return nil, fmt.Errorf("%w: header name %q", ErrInvalidParameter, name)
		}
		headers[name] = value
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = "serp-go/" + Version
	}

	c := &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retry:      cfg.Retry,
		userAgent:  cfg.UserAgent,
		headers:    headers,
		logger:     logger,
		metrics:    cfg.Metrics,
		cacheTTL:   cfg.CacheTTL,
	}

	if cfg.CacheTTL > 0 {
		c.cache = cache.New(0)
	}
	if cfg.QuotaPerMinute > 0 {
		c.quota = quota.New(cfg.QuotaPerMinute, time.Minute)
	}

	logger.Debug("search client configured",
		zap.String("base_url", c.baseURL),
		zap.String("api_key", c.MaskedAPIKey()),
		zap.Int("max_retries", c.retry.MaxRetries),
	)

	return c, nil
}

// Search runs one search request, retrying per the configured policy.
// Rate-limit responses wait for the server-announced interval; server and
// network errors back off exponentially. Client errors, malformed response
// bodies and context cancellation fail immediately.
func (c *Client) Search(ctx context.Context, query Query) (*SearchResults, error) {
	if err := query.validate(); err != nil {
		return nil, err
	}

	if c.quota != nil && !c.quota.Allow() {
		if c.metrics != nil {
			c.metrics.RecordQuotaRejection()
		}
		resetAt := c.quota.ResetAt()
		c.logger.Warn("local quota exhausted",
			zap.String("query", query.Text()),
			zap.Time("resets_at", resetAt),
		)
		return nil, fmt.Errorf("%w: window resets at %s", ErrQuotaExceeded, resetAt.Format(time.RFC3339))
	}

	var key string
	if c.cache != nil {
		key = cacheKey(query)
		if cached, ok := c.cache.Get(key); ok {
			if c.metrics != nil {
				c.metrics.RecordCacheHit()
			}
			c.logger.Debug("response cache hit", zap.String("query", query.Text()))
			return cached.(*SearchResults), nil
		}
		if c.metrics != nil {
			c.metrics.RecordCacheMiss()
		}
	}

	start := time.Now()
	if c.metrics != nil {
		c.metrics.IncSearchesInFlight()
	}
	results, err := c.searchWithRetry(ctx, query)
	if c.metrics != nil {
		c.metrics.DecSearchesInFlight()
		c.metrics.RecordSearch(statusLabel(err), time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Set(key, results, c.cacheTTL)
	}
	return results, nil
}

func (c *Client) searchWithRetry(ctx context.Context, query Query) (*SearchResults, error) {
	requestID := uuid.NewString()

	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := retryDelay(c.retry, attempt-1, lastErr)
			if c.metrics != nil {
				c.metrics.RecordRetry(retryReason(lastErr))
			}
			c.logger.Debug("retrying search",
				zap.String("request_id", requestID),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(lastErr),
			)
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
		}

		results, err := c.execute(ctx, query, requestID)
		if err == nil {
			return results, nil
		}
		lastErr = err

		if !shouldRetry(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

func (c *Client) execute(ctx context.Context, query Query, requestID string) (*SearchResults, error) {
	params := query.Values()
	params.Set("api_key", c.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	for name, value := range c.headers {
		httpReq.Header.Set(name, value)
	}

	c.logger.Debug("search request",
		zap.String("request_id", requestID),
		zap.String("query", query.Text()),
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrRequestFailed, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var results SearchResults
		if err := json.Unmarshal(body, &results); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		return &results, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		if c.metrics != nil {
			c.metrics.RecordRateLimitHit()
		}
		return nil, &RateLimitError{RetryAfter: retryAfter(resp.Header)}

	default:
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
}

// MaskedAPIKey returns the configured key with the middle hidden, safe to
// log. Keys of eight characters or fewer are fully masked.
func (c *Client) MaskedAPIKey() string {
	if len(c.apiKey) <= 8 {
		return "***"
	}
	return c.apiKey[:4] + "***" + c.apiKey[len(c.apiKey)-4:]
}

// IsConfigured reports whether an API key is set.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// QuotaRemaining reports how many searches the local quota still allows in
// the current window, or -1 when no quota is configured.
func (c *Client) QuotaRemaining() int {
	if c.quota == nil {
		return -1
	}
	return c.quota.Remaining()
}

// Close releases background resources. Needed only when response caching is
// enabled; a closed client must not be reused.
func (c *Client) Close() {
	if c.cache != nil {
		c.cache.Stop()
	}
}

// retryAfter reads the server-announced wait from a 429 response, falling
// back to 60s when the header is absent or not a whole number of seconds.
func retryAfter(h http.Header) time.Duration {
	const fallback = 60 * time.Second

	v := h.Get("Retry-After")
	if v == "" {
		return fallback
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}

func retryDelay(policy RetryPolicy, attempt int, err error) time.Duration {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle.RetryAfter
	}
	return policy.BackoffDuration(attempt)
}

func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsServerError()
	}
	if errors.Is(err, ErrInvalidResponse) {
		return false
	}
	return errors.Is(err, ErrRequestFailed)
}

func retryReason(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrRequestFailed):
		return "network_error"
	default:
		return "server_error"
	}
}

func statusLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrInvalidResponse):
		return "parse_error"
	case errors.Is(err, ErrRequestFailed):
		return "network_error"
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.IsServerError() {
			return "server_error"
		}
		return "client_error"
	}
	return "error"
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func cacheKey(query Query) string {
	sum := sha256.Sum256([]byte(query.Values().Encode()))
	return hex.EncodeToString(sum[:])
}
