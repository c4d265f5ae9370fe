package broker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/roach88/druidq/internal/query"
	"github.com/roach88/druidq/internal/wire"
)

const (
	queryPath  = "/druid/v2"
	healthPath = "/status/health"
)

// Client executes queries against one broker. It is safe for concurrent
// use.
type Client struct {
	cfg     Config
	base    *url.URL
	http    *http.Client
	logger  *slog.Logger
	breaker *gobreaker.CircuitBreaker[[]byte]
	limiter *rate.Limiter
	cache   *lru.Cache[string, []byte]
	newID   func() string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its Timeout is left as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithQueryIDs replaces the queryId generator.
func WithQueryIDs(fn func() string) Option {
	return func(c *Client) { c.newID = fn }
}

// New returns a client for cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid broker url: %w", err)
	}

	c := &Client{
		cfg:    cfg,
		base:   base,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: slog.Default(),
		newID:  func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(c)
	}

	limit := rate.Inf
	if cfg.RateLimit.PerSecond > 0 {
		limit = rate.Limit(cfg.RateLimit.PerSecond)
	}
	c.limiter = rate.NewLimiter(limit, cfg.RateLimit.Burst)

	if cfg.CacheSize > 0 {
		c.cache, err = lru.New[string, []byte](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create response cache: %w", err)
		}
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        base.Host,
		MaxRequests: cfg.Breaker.HalfOpenRequests,
		Timeout:     cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Breaker.ConsecutiveFailures
		},
		// Only failures that say something about broker health count.
		IsSuccessful: func(err error) bool {
			return err == nil || !IsTemporary(err)
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("broker circuit breaker state changed",
				"broker", name, "from", from.String(), "to", to.String())
		},
	})
	return c, nil
}

// BreakerState returns the circuit breaker state: "closed", "half-open" or
// "open".
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// Execute sends q and returns the raw response body.
//
// A queryId is added to the request context unless the query already
// carries one. Responses are cached by the request fingerprint, computed
// before the queryId is added.
func (c *Client) Execute(ctx context.Context, q query.Query) ([]byte, error) {
	req := q.Wire()
	fingerprint, err := wire.Fingerprint(req)
	if err != nil {
		return nil, fmt.Errorf("fingerprint request: %w", err)
	}

	if c.cache != nil {
		if body, ok := c.cache.Get(fingerprint); ok {
			c.logger.Debug("druid response cache hit", "fingerprint", fingerprint, "shape", q.Shape())
			return slices.Clone(body), nil
		}
	}

	queryID := withQueryID(req, c.newID)
	payload, err := wire.MarshalCanonical(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	logger := c.logger.With("query_id", queryID, "shape", q.Shape(), "datasource", q.DataSource().String())
	logger.Debug("executing druid query", "fingerprint", fingerprint)
	start := time.Now()

	body, err := backoff.Retry(ctx,
		func() ([]byte, error) { return c.attempt(ctx, payload) },
		backoff.WithBackOff(c.backOff()),
		backoff.WithMaxTries(c.cfg.Retry.MaxTries),
		backoff.WithMaxElapsedTime(c.cfg.Retry.MaxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("retrying druid query", "error", err, "backoff", next)
		}),
	)
	if err != nil {
		logger.Error("druid query failed", "error", err, "duration", time.Since(start))
		return nil, err
	}
	logger.Info("druid query completed", "duration", time.Since(start), "bytes", len(body))

	if c.cache != nil {
		c.cache.Add(fingerprint, slices.Clone(body))
	}
	return body, nil
}

// Status checks the broker's health endpoint.
func (c *Client) Status(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.JoinPath(healthPath).String(), nil)
	if err != nil {
		return &APIError{Message: "failed to create request", Err: err}
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Message: "failed to execute request", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Status: resp.StatusCode, Message: "failed to read response body", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(resp.StatusCode, body)
	}
	if strings.TrimSpace(string(body)) != "true" {
		return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("broker reports unhealthy: %s", strings.TrimSpace(string(body)))}
	}
	return nil
}

func (c *Client) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.Retry.InitialInterval
	b.MaxInterval = c.cfg.Retry.MaxInterval
	return b
}

// attempt runs one rate-limited request through the circuit breaker.
// Errors that retrying cannot fix are marked permanent.
func (c *Client) attempt(ctx context.Context, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, backoff.Permanent(&APIError{Message: "rate limiter", Err: err})
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.post(ctx, payload)
	})
	switch {
	case err == nil:
		return body, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, backoff.Permanent(&APIError{
			Status:  http.StatusServiceUnavailable,
			Message: "circuit breaker rejected request",
			Err:     err,
		})
	case IsTemporary(err):
		return nil, err
	default:
		return nil, backoff.Permanent(err)
	}
}

func (c *Client) post(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.JoinPath(queryPath).String(), bytes.NewReader(payload))
	if err != nil {
		return nil, &APIError{Message: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &APIError{Message: "failed to execute request", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Status: resp.StatusCode, Message: "failed to read response body", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, responseError(resp.StatusCode, body)
	}
	return body, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}
}

// withQueryID sets context.queryId on req unless present and returns the
// id in effect.
func withQueryID(req wire.Object, newID func() string) string {
	ctx, _ := req["context"].(wire.Object)
	if existing, ok := wire.Text(ctx["queryId"]); ok {
		return existing
	}
	next := ctx.Clone()
	if next == nil {
		next = wire.Object{}
	}
	id := newID()
	next["queryId"] = wire.String(id)
	req["context"] = next
	return id
}
