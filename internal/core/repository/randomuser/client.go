// Package randomuser fetches synthetic user records from the randomuser.me API.
package randomuser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/duynhne/profile-card-service/internal/core/domain"
	"github.com/duynhne/profile-card-service/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultEndpoint = "https://randomuser.me/api/"
	DefaultSeed     = "abc"

	// maxErrorBody caps how much of a failed response is kept for logs
	maxErrorBody = 512
)

// Config is the fixed request shape. The seed makes repeated fetches against
// the same backend return the same person.
type Config struct {
	Endpoint    string
	Page        int
	ResultCount int
	Seed        string
}

// DefaultConfig mirrors the public demo setup: one result from page 1, seed "abc"
func DefaultConfig() Config {
	return Config{
		Endpoint:    DefaultEndpoint,
		Page:        1,
		ResultCount: 1,
		Seed:        DefaultSeed,
	}
}

// Validate rejects configurations that could never produce a request
func (c Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint %q: %w", c.Endpoint, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("endpoint %q must be an absolute URL", c.Endpoint)
	}
	if c.Page < 1 {
		return fmt.Errorf("page must be >= 1, got %d", c.Page)
	}
	if c.ResultCount < 1 {
		return fmt.Errorf("result count must be >= 1, got %d", c.ResultCount)
	}
	if c.Seed == "" {
		return errors.New("seed must not be empty")
	}
	return nil
}

// Client implements domain.UserFetcher. It issues exactly one request per
// call: no retries, no backoff, and no deadline beyond the caller's context.
type Client struct {
	requestURL string
	seed       string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for failure diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient validates cfg and builds the request URL once
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid randomuser config: %w", err)
	}

	u, _ := url.Parse(cfg.Endpoint)
	q := u.Query()
	q.Set("page", strconv.Itoa(cfg.Page))
	q.Set("results", strconv.Itoa(cfg.ResultCount))
	q.Set("seed", cfg.Seed)
	u.RawQuery = q.Encode()

	c := &Client{
		requestURL: u.String(),
		seed:       cfg.Seed,
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RequestURL returns the fully built upstream URL
func (c *Client) RequestURL() string {
	return c.requestURL
}

// FetchUser performs the single upstream call and returns the first result.
// Every failure wraps domain.ErrFetchFailure.
func (c *Client) FetchUser(ctx context.Context) (*domain.UserRecord, error) {
	ctx, span := middleware.StartSpan(ctx, "randomuser.fetch_user", trace.WithAttributes(
		attribute.String("layer", "repository"),
		attribute.String("randomuser.seed", c.seed),
	))
	defer span.End()

	start := time.Now()
	user, err := c.fetch(ctx)
	middleware.ObserveFetch(err, time.Since(start))

	if err != nil {
		span.RecordError(err)
		c.logger.Error("Error fetching user data",
			zap.String("url", c.requestURL),
			zap.Error(err),
		)
		return nil, err
	}

	span.SetAttributes(attribute.Bool("user.found", true))
	return user, nil
}

func (c *Client) fetch(ctx context.Context) (*domain.UserRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", domain.ErrFetchFailure, err)
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request randomuser: %w", domain.ErrFetchFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: randomuser status %d: %s", domain.ErrFetchFailure, resp.StatusCode, string(body))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", domain.ErrFetchFailure, err)
	}
	if env.Error != "" {
		return nil, fmt.Errorf("%w: randomuser error: %s", domain.ErrFetchFailure, env.Error)
	}
	if len(env.Results) == 0 {
		return nil, fmt.Errorf("%w: response has no results", domain.ErrFetchFailure)
	}

	user := env.Results[0].toDomain()
	return &user, nil
}
