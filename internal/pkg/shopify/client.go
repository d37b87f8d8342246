package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sony/gobreaker"
)

// Config tunes the Admin API client. Zero values fall back to defaults.
type Config struct {
	APIVersion string
	// MaxRetries bounds attempts for transient failures (5xx, network
	// errors, rate limits).
	MaxRetries int
	// MaxThrottleRetries separately bounds retries for cost-throttled
	// GraphQL responses; those do not consume the general budget.
	MaxThrottleRetries int
	// Backoff is the initial wait, doubled per attempt up to MaxWait.
	Backoff time.Duration
	MaxWait time.Duration
	// Timeout is generous to accommodate bulk-style queries.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.APIVersion == "" {
		c.APIVersion = "2024-07"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.MaxThrottleRetries <= 0 {
		c.MaxThrottleRetries = 5
	}
	if c.Backoff <= 0 {
		c.Backoff = 500 * time.Millisecond
	}
	if c.MaxWait <= 0 {
		c.MaxWait = 8 * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 3 * time.Minute
	}
	return c
}

// Client calls the Shopify Admin GraphQL API with retry, rate-limit and
// circuit-breaker handling. Safe for concurrent use.
type Client struct {
	http    *http.Client
	cfg     Config
	breaker *gobreaker.CircuitBreaker
	// baseURL overrides the per-shop admin URL in tests.
	baseURL string
}

// NewClient creates an Admin API client.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "shopify-admin-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 8
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("[Shopify] Circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		breaker: breaker,
	}
}

// GraphQLRequest is the wire shape of an Admin GraphQL call.
type GraphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// GraphQLError is one error entry in a GraphQL response.
type GraphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

// GraphQLResponse carries the raw data payload plus any errors.
type GraphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

func (r *GraphQLResponse) throttled() bool {
	for _, e := range r.Errors {
		if e.Extensions.Code == "THROTTLED" {
			return true
		}
	}
	return false
}

// Err folds non-throttle GraphQL errors into one error value.
func (r *GraphQLResponse) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("graphql: %s", r.Errors[0].Message)
}

func (c *Client) endpoint(shop string) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shop, c.cfg.APIVersion)
}

// GraphQL executes one query against a shop's Admin API. Transient
// failures are retried with doubling backoff; 429 responses honor
// Retry-After; cost-throttled GraphQL responses retry on their own
// bounded budget.
func (c *Client) GraphQL(ctx context.Context, shop, token, query string, variables map[string]interface{}) (*GraphQLResponse, error) {
	if token == "" {
		return nil, errors.New("missing access token")
	}

	body, err := json.Marshal(GraphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	throttleRetries := 0

	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		resp, err := c.do(ctx, shop, token, body)
		if err != nil {
			if !isRetryableNetErr(err) {
				return nil, err
			}
			lastErr = err
			log.Warnf("[Shopify] %s attempt %d/%d failed: %v", shop, attempt, c.cfg.MaxRetries, err)
			if attempt == c.cfg.MaxRetries {
				break
			}
			if err := sleepCtx(ctx, backoffWait(c.cfg.Backoff, c.cfg.MaxWait, attempt)); err != nil {
				return nil, err
			}
			continue
		}

		if resp.status == http.StatusTooManyRequests || resp.status >= 500 {
			wait := backoffWait(c.cfg.Backoff, c.cfg.MaxWait, attempt)
			if resp.status == http.StatusTooManyRequests {
				lastErr = fmt.Errorf("rate limited: status 429")
				if ra := retryAfterWait(resp.header); ra > 0 {
					wait = ra
				}
			} else {
				lastErr = fmt.Errorf("server error: status %d", resp.status)
			}
			if attempt == c.cfg.MaxRetries {
				continue
			}
			log.Warnf("[Shopify] %s attempt %d/%d got status %d, waiting %s", shop, attempt, c.cfg.MaxRetries, resp.status, wait)
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}
		if resp.status >= 300 {
			return nil, fmt.Errorf("status %d: %s", resp.status, string(resp.body))
		}

		var gqlResp GraphQLResponse
		if err := json.Unmarshal(resp.body, &gqlResp); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}

		if gqlResp.throttled() {
			throttleRetries++
			if throttleRetries > c.cfg.MaxThrottleRetries {
				return nil, fmt.Errorf("throttled %d times, giving up", throttleRetries-1)
			}
			wait := backoffWait(c.cfg.Backoff, c.cfg.MaxWait, throttleRetries)
			log.Warnf("[Shopify] %s query throttled (%d/%d), waiting %s", shop, throttleRetries, c.cfg.MaxThrottleRetries, wait)
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			// Throttle retries do not consume the general attempt budget.
			attempt--
			continue
		}

		return &gqlResp, nil
	}

	return nil, fmt.Errorf("admin api call failed after %d attempts: %w", c.cfg.MaxRetries, lastErr)
}

type rawResponse struct {
	status int
	header http.Header
	body   []byte
}

func (c *Client) do(ctx context.Context, shop, token string, body []byte) (*rawResponse, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(shop), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Shopify-Access-Token", token)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return &rawResponse{status: resp.StatusCode, header: resp.Header, body: raw}, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*rawResponse), nil
}

// isRetryableNetErr reports whether a transport-level error is worth
// another attempt (timeouts, resets, temporary DNS trouble). Breaker
// rejections are not retried; the breaker reopens on its own schedule.
func isRetryableNetErr(err error) bool {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
