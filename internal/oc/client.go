package oc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/matsen/oc2skg/internal/cache"
	"github.com/matsen/oc2skg/internal/logging"
	"golang.org/x/time/rate"
)

const (
	// IndexBaseURL is the OpenCitations Index v2 API base URL.
	IndexBaseURL = "https://w3id.org/oc/index/api/v2"

	// MetaBaseURL is the OpenCitations Meta v1 API base URL.
	MetaBaseURL = "https://w3id.org/oc/meta/api/v1"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default request rate in requests per second.
	DefaultRateLimit = 5.0

	// DefaultRetries is the default number of attempts for transient failures.
	DefaultRetries = 3

	// DefaultRetryDelay is the initial delay between attempts; it doubles.
	DefaultRetryDelay = time.Second

	// maxBodySize bounds the size of a single API response.
	maxBodySize = 32 << 20

	userAgent = "oc2skg"
)

// Client is a rate-limited HTTP client for the OpenCitations Index and Meta
// APIs. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	token      string
	indexURL   string
	metaURL    string
	attempts   int
	retryDelay time.Duration
	cache      cache.Cache
	cacheTTL   time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAccessToken sets the OpenCitations access token sent with every request.
func WithAccessToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithBaseURLs sets custom Index and Meta base URLs (for testing or mirrors).
func WithBaseURLs(indexURL, metaURL string) ClientOption {
	return func(c *Client) {
		c.indexURL = strings.TrimSuffix(indexURL, "/")
		c.metaURL = strings.TrimSuffix(metaURL, "/")
	}
}

// WithRateLimit sets the maximum request rate in requests per second.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithRetry sets the number of attempts for transient failures (429, 5xx,
// network errors) and the initial delay between them.
func WithRetry(attempts int, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.attempts = max(attempts, 1)
		c.retryDelay = delay
	}
}

// WithCache stores successful response bodies in store for ttl.
func WithCache(store cache.Cache, ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.cache = store
		c.cacheTTL = ttl
	}
}

// NewClient creates a new OpenCitations API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		indexURL:   IndexBaseURL,
		metaURL:    MetaBaseURL,
		attempts:   DefaultRetries,
		retryDelay: DefaultRetryDelay,
		cache:      cache.NewNull(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// References fetches the citation links whose citing side is id,
// e.g. "doi:10.1162/qss_a_00023". An empty result is not an error.
func (c *Client) References(ctx context.Context, id string) ([]Link, error) {
	body, err := c.get(ctx, "index", c.indexURL+"/references/"+id)
	if err != nil {
		return nil, err
	}

	var links []Link
	if err := json.Unmarshal(body, &links); err != nil {
		return nil, fmt.Errorf("%w: parsing references for %s: %v", ErrInvalidResponse, id, err)
	}
	return links, nil
}

// Metadata fetches the bibliographic records for id. The Meta API answers
// unknown identifiers with an empty array, which is reported as ErrNotFound.
func (c *Client) Metadata(ctx context.Context, id string) ([]Record, error) {
	body, err := c.get(ctx, "meta", c.metaURL+"/metadata/"+EscapeID(id))
	if err != nil {
		return nil, err
	}

	var set RecordSet
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("%w: parsing metadata for %s: %v", ErrInvalidResponse, id, err)
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return set, nil
}

// get returns the response body for url, serving from the cache when possible.
func (c *Client) get(ctx context.Context, prefix, url string) ([]byte, error) {
	logger := logging.FromContext(ctx)
	key := cache.Key(prefix, url)

	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("cache read failed", "url", url, "err", err)
	} else if ok {
		logger.Debug("cache hit", "url", url)
		return data, nil
	}

	var body []byte
	err = c.retry(ctx, func() error {
		var err error
		body, err = c.do(ctx, url)
		if err != nil && isRetryable(err) {
			logger.Debug("transient failure", "url", url, "err", err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, body, c.cacheTTL); err != nil {
		logger.Warn("cache write failed", "url", url, "err", err)
	}
	return body, nil
}

// retry runs fn up to c.attempts times, doubling the delay after each
// retryable failure. Non-retryable errors are returned immediately.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	delay := c.retryDelay
	var lastErr error

	for i := 0; i < c.attempts; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err

		if i < c.attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}

	// Strip the retry marker so callers see the underlying error.
	if r, ok := lastErr.(*retryableError); ok {
		return r.err
	}
	return lastErr
}

// do performs a single rate-limited GET.
func (c *Client) do(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("authorization", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &retryableError{fmt.Errorf("%w: %v", ErrNetworkError, err)}
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp, url); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &retryableError{fmt.Errorf("%w: reading body: %v", ErrNetworkError, err)}
	}
	return body, nil
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
// Rate limiting and server errors are marked retryable.
func checkHTTPErrors(resp *http.Response, url string) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrAuthError, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, url)
	case resp.StatusCode == http.StatusTooManyRequests:
		return &retryableError{fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)}
	case resp.StatusCode >= 500:
		return &retryableError{&APIError{StatusCode: resp.StatusCode, URL: url, Message: readSnippet(resp.Body)}}
	case resp.StatusCode >= 400:
		return &APIError{StatusCode: resp.StatusCode, URL: url, Message: readSnippet(resp.Body)}
	}
	return nil
}

func readSnippet(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 200))
	if msg := strings.TrimSpace(string(data)); msg != "" {
		return msg
	}
	return "no response body"
}

// EscapeID percent-encodes an identifier for use in a URL path. Only
// unreserved characters and '/' are left as-is, so "doi:10.1/x" becomes
// "doi%3A10.1/x".
func EscapeID(id string) string {
	var b strings.Builder
	for i := 0; i < len(id); i++ {
		ch := id[i]
		if isUnreserved(ch) || ch == '/' {
			b.WriteByte(ch)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", ch)
	}
	return b.String()
}

func isUnreserved(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || '0' <= ch && ch <= '9' ||
		ch == '-' || ch == '_' || ch == '.' || ch == '~'
}
