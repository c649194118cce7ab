package serp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

const minimalBody = `{"search_metadata":{"id":"abc123","status":"Success"},"search_parameters":{"engine":"google","q":"test"}}`

// noRetry keeps tests to a single attempt. The zero RetryPolicy cannot be
// used for that because New treats it as "use the default policy".
var noRetry = RetryPolicy{BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffMultiplier: 1}

func TestNew_Validation(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name:    "missing api key",
			cfg:     Config{},
			wantErr: ErrMissingAPIKey,
		},
		{
			name:    "blank api key",
			cfg:     Config{APIKey: "   "},
			wantErr: ErrInvalidParameter,
		},
		{
			name:    "relative base url",
			cfg:     Config{APIKey: "key", BaseURL: "serpapi.com/search"},
			wantErr: ErrInvalidParameter,
		},
		{
			name:    "unparseable base url",
			cfg:     Config{APIKey: "key", BaseURL: "://bad"},
			wantErr: ErrInvalidParameter,
		},
		{
			name:    "negative timeout",
			cfg:     Config{APIKey: "key", Timeout: -time.Second},
			wantErr: ErrInvalidParameter,
		},
		{
			name:    "negative retries",
			cfg:     Config{APIKey: "key", Retry: RetryPolicy{MaxRetries: -1, BaseDelay: time.Millisecond}},
			wantErr: ErrInvalidParameter,
		},
		{
			name:    "header name with space",
			cfg:     Config{APIKey: "key", Headers: map[string]string{"Bad Header": "v"}},
			wantErr: ErrInvalidParameter,
		},
		{
			name:    "empty header name",
			cfg:     Config{APIKey: "key", Headers: map[string]string{"": "v"}},
			wantErr: ErrInvalidParameter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(envAPIKey, "")

			_, err := New(tt.cfg, logger)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	client, err := New(Config{APIKey: "test-key", BaseURL: "https://api.example.com/"}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if client.baseURL != "https://api.example.com" {
		t.Errorf("baseURL = %q, want trailing slash trimmed", client.baseURL)
	}
	if client.retry != DefaultRetryPolicy() {
		t.Errorf("retry = %+v, want default policy", client.retry)
	}
	if client.userAgent != "serp-go/"+Version {
		t.Errorf("userAgent = %q", client.userAgent)
	}
	if client.cache != nil {
		t.Error("cache enabled without CacheTTL")
	}
	if client.quota != nil {
		t.Error("quota enabled without QuotaPerMinute")
	}
}

func TestNew_EnvFallback(t *testing.T) {
	t.Setenv(envAPIKey, "env-key-123456")

	client, err := New(Config{}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if client.apiKey != "env-key-123456" {
		t.Errorf("apiKey = %q, want value from environment", client.apiKey)
	}

	// an explicit key wins over the environment
	client, err = New(Config{APIKey: "explicit-key"}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if client.apiKey != "explicit-key" {
		t.Errorf("apiKey = %q, want explicit value", client.apiKey)
	}
}

func TestClient_MaskedAPIKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"long key", "test-key-longer", "test***nger"},
		{"nine chars", "123456789", "1234***6789"},
		{"eight chars", "12345678", "***"},
		{"short key", "abc", "***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(Config{APIKey: tt.key}, nil)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if got := client.MaskedAPIKey(); got != tt.want {
				t.Errorf("MaskedAPIKey() = %q, want %q", got, tt.want)
			}
			if !client.IsConfigured() {
				t.Error("IsConfigured() = false")
			}
		})
	}
}

func TestClient_Search_StatusClassification(t *testing.T) {
	logger := zap.NewNop()

	policy := RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffMultiplier: 2.0}

	tests := []struct {
		name          string
		statusCode    int
		body          string
		retryAfter    string
		wantErr       error // matched with errors.Is when set
		wantAPIStatus int   // matched with errors.As when non-zero
		wantCalls     int32
	}{
		{
			name:       "success",
			statusCode: http.StatusOK,
			body:       minimalBody,
			wantCalls:  1,
		},
		{
			name:       "malformed body not retried",
			statusCode: http.StatusOK,
			body:       "not json",
			wantErr:    ErrInvalidResponse,
			wantCalls:  1,
		},
		{
			name:          "bad request not retried",
			statusCode:    http.StatusBadRequest,
			body:          `{"error":"bad request"}`,
			wantAPIStatus: http.StatusBadRequest,
			wantCalls:     1,
		},
		{
			name:          "unauthorized not retried",
			statusCode:    http.StatusUnauthorized,
			body:          `{"error":"invalid api key"}`,
			wantAPIStatus: http.StatusUnauthorized,
			wantCalls:     1,
		},
		{
			name:          "not found not retried",
			statusCode:    http.StatusNotFound,
			body:          `{"error":"not found"}`,
			wantAPIStatus: http.StatusNotFound,
			wantCalls:     1,
		},
		{
			name:       "rate limited retried until budget",
			statusCode: http.StatusTooManyRequests,
			body:       `{"error":"rate limit"}`,
			retryAfter: "0",
			wantErr:    ErrRateLimited,
			wantCalls:  3,
		},
		{
			name:          "server error retried until budget",
			statusCode:    http.StatusServiceUnavailable,
			body:          `{"error":"unavailable"}`,
			wantAPIStatus: http.StatusServiceUnavailable,
			wantCalls:     3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := New(Config{APIKey: "test-key", BaseURL: server.URL, Retry: policy}, logger)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			results, err := client.Search(context.Background(), NewQuery("test"))

			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("HTTP calls = %d, want %d", got, tt.wantCalls)
			}

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Search() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if tt.wantAPIStatus != 0 {
				var apiErr *APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("Search() error = %v, want *APIError", err)
				}
				if apiErr.StatusCode != tt.wantAPIStatus {
					t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.wantAPIStatus)
				}
				return
			}

			if err != nil {
				t.Fatalf("Search() unexpected error = %v", err)
			}
			if results == nil || results.SearchMetadata.ID == "" {
				t.Error("Search() returned empty results")
			}
		})
	}
}

func TestClient_Search_RecoversAfterServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(minimalBody))
	}))
	defer server.Close()

	client, err := New(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Retry:   RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, BackoffMultiplier: 2.0},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	results, err := client.Search(context.Background(), NewQuery("test"))
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if results.SearchMetadata.ID != "abc123" {
		t.Errorf("SearchMetadata.ID = %q", results.SearchMetadata.ID)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("HTTP calls = %d, want 3", got)
	}
}

func TestClient_Search_ExhaustionReturnsLastError(t *testing.T) {
	statuses := []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable}

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.WriteHeader(statuses[(n-1)%int32(len(statuses))])
	}))
	defer server.Close()

	client, err := New(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Retry:   RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffMultiplier: 1},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = client.Search(context.Background(), NewQuery("test"))

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Search() error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want the last observed status %d", apiErr.StatusCode, http.StatusServiceUnavailable)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("HTTP calls = %d, want 3", got)
	}
}

func TestClient_Search_RateLimitHonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(minimalBody))
	}))
	defer server.Close()

	client, err := New(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Retry:   RetryPolicy{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffMultiplier: 1},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	start := time.Now()
	_, err = client.Search(context.Background(), NewQuery("test"))
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("HTTP calls = %d, want 2", got)
	}
	if elapsed < time.Second {
		t.Errorf("elapsed = %v, want at least the announced 1s wait", elapsed)
	}
	if elapsed > 3*time.Second {
		t.Errorf("elapsed = %v, backoff policy must not add to the announced wait", elapsed)
	}
}

func TestClient_Search_RateLimitErrorCarriesWait(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := New(Config{APIKey: "test-key", BaseURL: server.URL, Retry: noRetry}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = client.Search(context.Background(), NewQuery("test"))

	var rle *RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("Search() error = %v, want *RateLimitError", err)
	}
	if rle.RetryAfter != 60*time.Second {
		t.Errorf("RetryAfter = %v, want the 60s fallback", rle.RetryAfter)
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Error("RateLimitError does not match ErrRateLimited")
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"absent", "", 60 * time.Second},
		{"whole seconds", "30", 30 * time.Second},
		{"zero", "0", 0},
		{"negative", "-5", 60 * time.Second},
		{"http date", "Wed, 21 Oct 2026 07:28:00 GMT", 60 * time.Second},
		{"garbage", "soon", 60 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Retry-After", tt.header)
			}
			if got := retryAfter(h); got != tt.want {
				t.Errorf("retryAfter(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}

func TestClient_Search_NetworkErrorRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		hj, ok := w.(http.Hijacker)
		if !ok {
			return
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer server.Close()

	client, err := New(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Retry:   RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffMultiplier: 1},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = client.Search(context.Background(), NewQuery("test"))

	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("Search() error = %v, want ErrRequestFailed", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("HTTP calls = %d, want 3", got)
	}
}

func TestClient_Search_CanceledDuringBackoff(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := New(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Retry:   RetryPolicy{MaxRetries: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: time.Second, BackoffMultiplier: 2.0},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.Search(ctx, NewQuery("test"))

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Search() error = %v, want context.DeadlineExceeded", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("HTTP calls = %d, want 1, no attempt after cancellation", got)
	}
}

func TestClient_Search_CanceledBeforeStart(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(minimalBody))
	}))
	defer server.Close()

	client, err := New(Config{APIKey: "test-key", BaseURL: server.URL}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.Search(ctx, NewQuery("test"))

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Search() error = %v, want context.Canceled", err)
	}
	if got := calls.Load(); got != 0 {
		t.Errorf("HTTP calls = %d, want 0", got)
	}
}

func TestClient_Search_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	client, err := New(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 100 * time.Millisecond,
		Retry:   noRetry,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = client.Search(context.Background(), NewQuery("test"))

	// a per-attempt timeout is a transport failure, not caller cancellation
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("Search() error = %v, want ErrRequestFailed", err)
	}
}

func TestClient_Search_SendsParamsAndHeaders(t *testing.T) {
	var (
		gotQuery    string
		gotAPIKey   string
		gotUA       string
		gotAccept   string
		gotCustom   string
		gotNum      string
		gotLocation string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = q.Get("q")
		gotAPIKey = q.Get("api_key")
		gotNum = q.Get("num")
		gotLocation = q.Get("location")
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		gotCustom = r.Header.Get("X-Team")
		w.Write([]byte(minimalBody))
	}))
	defer server.Close()

	client, err := New(Config{
		APIKey:    "test-api-key-12345",
		BaseURL:   server.URL,
		UserAgent: "research-pipeline/2.1",
		Headers:   map[string]string{"X-Team": "data"},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	query, err := NewQuery("golang concurrency").Location("Austin, Texas").Limit(25)
	if err != nil {
		t.Fatalf("Limit() error = %v", err)
	}
	if _, err := client.Search(context.Background(), query); err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if gotQuery != "golang concurrency" {
		t.Errorf("q = %q", gotQuery)
	}
	if gotAPIKey != "test-api-key-12345" {
		t.Errorf("api_key = %q", gotAPIKey)
	}
	if gotNum != "25" {
		t.Errorf("num = %q", gotNum)
	}
	if gotLocation != "Austin, Texas" {
		t.Errorf("location = %q", gotLocation)
	}
	if gotUA != "research-pipeline/2.1" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q", gotAccept)
	}
	if gotCustom != "data" {
		t.Errorf("X-Team = %q", gotCustom)
	}
}

func TestClient_Search_DefaultUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(minimalBody))
	}))
	defer server.Close()

	client, err := New(Config{APIKey: "test-key", BaseURL: server.URL}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := client.Search(context.Background(), NewQuery("test")); err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if !strings.HasPrefix(gotUA, "serp-go/") {
		t.Errorf("User-Agent = %q, want serp-go/ prefix", gotUA)
	}
}

func TestClient_Search_CachesResponses(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(minimalBody))
	}))
	defer server.Close()

	client, err := New(Config{APIKey: "test-key", BaseURL: server.URL, CacheTTL: time.Minute}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Close()

	for i := 0; i < 3; i++ {
		if _, err := client.Search(context.Background(), NewQuery("repeated")); err != nil {
			t.Fatalf("Search() error = %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("HTTP calls = %d, want 1, repeats served from cache", got)
	}

	if _, err := client.Search(context.Background(), NewQuery("different")); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("HTTP calls = %d, want 2 after a distinct query", got)
	}

	if _, err := client.Search(context.Background(), NewQuery("repeated").Offset(10)); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("HTTP calls = %d, want 3, offsets must not share a cache entry", got)
	}
}

func TestClient_Search_QuotaExceeded(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(minimalBody))
	}))
	defer server.Close()

	client, err := New(Config{APIKey: "test-key", BaseURL: server.URL, QuotaPerMinute: 2}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := client.Search(context.Background(), NewQuery("test")); err != nil {
			t.Fatalf("Search() %d error = %v", i, err)
		}
	}

	_, err = client.Search(context.Background(), NewQuery("test"))
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("Search() error = %v, want ErrQuotaExceeded", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("HTTP calls = %d, want 2, rejected search must not reach the server", got)
	}
	if got := client.QuotaRemaining(); got != 0 {
		t.Errorf("QuotaRemaining() = %d, want 0", got)
	}
}

func TestClient_QuotaRemaining_Unlimited(t *testing.T) {
	client, err := New(Config{APIKey: "test-key"}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := client.QuotaRemaining(); got != -1 {
		t.Errorf("QuotaRemaining() = %d, want -1 without a quota", got)
	}
}

func TestClient_Search_EmptyQueryRejected(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(minimalBody))
	}))
	defer server.Close()

	client, err := New(Config{APIKey: "test-key", BaseURL: server.URL}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = client.Search(context.Background(), NewQuery("  "))
	if !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Search() error = %v, want ErrInvalidParameter", err)
	}
	if got := calls.Load(); got != 0 {
		t.Errorf("HTTP calls = %d, want 0", got)
	}
}
