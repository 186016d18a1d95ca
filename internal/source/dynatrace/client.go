// Package dynatrace provides a problem source backed by the Dynatrace Problems API v2.
package dynatrace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bissquit/problem-dashboard/internal/dashboard"
	"github.com/bissquit/problem-dashboard/internal/domain"
	"github.com/bissquit/problem-dashboard/internal/pkg/metrics"
	"golang.org/x/time/rate"
)

const (
	problemsPath   = "/api/v2/problems"
	problemsFields = "+evidenceDetails,+recentComments,+impactAnalysis"
	maxPages       = 100
	maxErrorBody   = 4 << 10

	defaultTimeout        = 30 * time.Second
	defaultPageSize       = 100
	defaultRateLimit      = 5.0
	defaultRateBurst      = 5
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 10 * time.Second
	backoffMultiplier     = 2.0
)

// Config holds Dynatrace client configuration.
type Config struct {
	BaseURL        string        // environment URL, e.g. https://abc123.live.dynatrace.com
	APIToken       string        // token with problems.read scope
	Timeout        time.Duration // per-request timeout
	PageSize       int
	RateLimit      float64 // requests per second
	RateBurst      int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Client fetches problems from Dynatrace.
type Client struct {
	config     Config
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new Dynatrace client.
// Returns error if the base URL or token is missing.
func NewClient(config Config) (*Client, error) {
	if config.BaseURL == "" || config.APIToken == "" {
		return nil, ErrMissingCredentials
	}
	if _, err := url.ParseRequestURI(config.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.PageSize <= 0 {
		config.PageSize = defaultPageSize
	}
	if config.RateLimit <= 0 {
		config.RateLimit = defaultRateLimit
	}
	if config.RateBurst <= 0 {
		config.RateBurst = defaultRateBurst
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaultMaxAttempts
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = defaultInitialBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = defaultMaxBackoff
	}

	slog.Info("dynatrace client configured",
		"base_url", config.BaseURL,
		"page_size", config.PageSize,
		"rate_limit", config.RateLimit,
		"max_attempts", config.MaxAttempts,
	)

	return &Client{
		config:  config,
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
	}, nil
}

// Fetch returns every problem in the time range, following pagination.
func (c *Client) Fetch(ctx context.Context, timeRange domain.TimeRange) (*dashboard.FetchResult, error) {
	query := url.Values{}
	query.Set("from", timeRange.From)
	query.Set("to", timeRange.To)
	query.Set("pageSize", strconv.Itoa(c.config.PageSize))
	query.Set("fields", problemsFields)

	problems := make([]domain.Problem, 0)

	for page := 0; ; page++ {
		if page == maxPages {
			return nil, &APIError{Message: fmt.Sprintf("pagination exceeded %d pages", maxPages)}
		}

		resp, err := c.fetchPage(ctx, query)
		if err != nil {
			return nil, err
		}

		for i := range resp.Problems {
			problems = append(problems, resp.Problems[i].toDomain())
		}

		if resp.NextPageKey == "" {
			break
		}

		// Follow-up pages accept only the page key.
		query = url.Values{}
		query.Set("nextPageKey", resp.NextPageKey)
	}

	slog.Debug("dynatrace problems fetched", "count", len(problems))

	return &dashboard.FetchResult{Problems: problems}, nil
}

// fetchPage performs one page request, retrying retryable failures.
func (c *Client) fetchPage(ctx context.Context, query url.Values) (*problemsPage, error) {
	var lastErr error

	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		page, err := c.doRequest(ctx, query)
		if err == nil {
			return page, nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == c.config.MaxAttempts {
			break
		}

		backoff := c.calculateBackoff(attempt)
		slog.Warn("dynatrace request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &APIError{Message: "request cancelled", Err: ctx.Err()}
		case <-timer.C:
		}
	}

	return nil, lastErr
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := float64(c.config.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= backoffMultiplier
	}

	if backoff > float64(c.config.MaxBackoff) {
		backoff = float64(c.config.MaxBackoff)
	}

	return time.Duration(backoff)
}

func (c *Client) doRequest(ctx context.Context, query url.Values) (*problemsPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &APIError{Message: "rate limiter", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+problemsPath+"?"+query.Encode(), nil)
	if err != nil {
		return nil, &APIError{Message: "create request", Err: err}
	}
	req.Header.Set("Authorization", "Api-Token "+c.config.APIToken)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequestDuration.WithLabelValues("dynatrace", "error").Observe(time.Since(start).Seconds())
		if ctx.Err() != nil {
			return nil, &APIError{Message: "request cancelled", Err: ctx.Err()}
		}
		return nil, &APIError{Message: fmt.Sprintf("send request: %v", err), Retryable: true, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.UpstreamRequestDuration.WithLabelValues("dynatrace", strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		return nil, handleErrorResponse(resp)
	}

	var page problemsPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "decode response", Err: err}
	}

	return &page, nil
}

func handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	message := errorMessage(body)

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("bad request: %s", message)}

	case http.StatusUnauthorized, http.StatusForbidden:
		return &APIError{StatusCode: resp.StatusCode, Message: "invalid token or missing problems.read scope"}

	case http.StatusNotFound:
		return &APIError{StatusCode: resp.StatusCode, Message: "problems endpoint not found, check the environment URL"}

	case http.StatusTooManyRequests:
		return &APIError{StatusCode: resp.StatusCode, Message: "rate limited", Retryable: true}

	default:
		if resp.StatusCode >= 500 {
			return &APIError{
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("server error: %s", message),
				Retryable:  true,
			}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("unexpected status: %s", message)}
	}
}

// errorMessage extracts the message of a Dynatrace error envelope, falling back to the raw body.
func errorMessage(body []byte) string {
	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return strings.TrimSpace(string(body))
}

var _ dashboard.Source = (*Client)(nil)
