// Package httpclient provides a resilient HTTP client with per-host circuit
// breakers, automatic retries and transparent decompression.
//
// The client wraps the standard http.Client and adds:
//   - A circuit breaker per upstream host
//   - Retries with exponential backoff on transport errors and 429/502/503/504
//   - Transparent decompression (gzip, deflate, brotli)
//   - A response size limit applied after decompression
package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Common errors returned by the client.
var (
	ErrCircuitOpen      = errors.New("circuit breaker is open")
	ErrMaxRetries       = errors.New("max retries exceeded")
	ErrResponseTooLarge = errors.New("response body exceeds maximum size limit")
)

// Default configuration values.
const (
	DefaultTimeout              = 30 * time.Second
	DefaultRetryAttempts        = 2
	DefaultRetryDelay           = 250 * time.Millisecond
	DefaultRetryMaxDelay        = 2 * time.Second
	DefaultBackoffMultiplier    = 2.0
	DefaultCircuitThreshold     = 5
	DefaultCircuitTimeout       = 30 * time.Second
	DefaultCircuitHalfOpenMax   = 1
	DefaultMaxResponseSize      = 16 << 20
	DefaultAcceptEncodingHeader = "gzip, deflate, br"
	DefaultUserAgentHeader      = "streamfold/1.0"
)

// HTTP header constants.
const (
	HeaderAccept          = "Accept"
	HeaderAcceptEncoding  = "Accept-Encoding"
	HeaderContentEncoding = "Content-Encoding"
	HeaderUserAgent       = "User-Agent"

	EncodingGzip    = "gzip"
	EncodingDeflate = "deflate"
	EncodingBrotli  = "br"
)

// StatusError is returned by GetJSON for a non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// Config holds the configuration for the HTTP client.
type Config struct {
	// Timeout is the overall request timeout.
	Timeout time.Duration `mapstructure:"timeout"`

	// RetryAttempts is the number of retries after the first attempt.
	RetryAttempts int `mapstructure:"retry_attempts"`

	// RetryDelay is the initial delay between retries.
	RetryDelay time.Duration `mapstructure:"retry_delay"`

	// RetryMaxDelay caps the backoff delay.
	RetryMaxDelay time.Duration `mapstructure:"retry_max_delay"`

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier"`

	// CircuitThreshold is the number of consecutive failures before a
	// host's circuit opens.
	CircuitThreshold int `mapstructure:"circuit_threshold"`

	// CircuitTimeout is how long a circuit stays open before probing.
	CircuitTimeout time.Duration `mapstructure:"circuit_timeout"`

	// CircuitHalfOpenMax is the max probe requests in half-open state.
	CircuitHalfOpenMax int `mapstructure:"circuit_half_open_max"`

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string `mapstructure:"user_agent"`

	// MaxResponseSize limits the decompressed body. 0 disables the limit.
	MaxResponseSize int64 `mapstructure:"max_response_size"`

	// EnableDecompression enables automatic response decompression.
	EnableDecompression bool `mapstructure:"enable_decompression"`

	// Logger is the structured logger for request logging.
	Logger *slog.Logger `mapstructure:"-"`

	// BaseClient is the underlying http.Client. A default is created if nil.
	BaseClient *http.Client `mapstructure:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:             DefaultTimeout,
		RetryAttempts:       DefaultRetryAttempts,
		RetryDelay:          DefaultRetryDelay,
		RetryMaxDelay:       DefaultRetryMaxDelay,
		BackoffMultiplier:   DefaultBackoffMultiplier,
		CircuitThreshold:    DefaultCircuitThreshold,
		CircuitTimeout:      DefaultCircuitTimeout,
		CircuitHalfOpenMax:  DefaultCircuitHalfOpenMax,
		UserAgent:           DefaultUserAgentHeader,
		MaxResponseSize:     DefaultMaxResponseSize,
		EnableDecompression: true,
		Logger:              slog.Default(),
	}
}

// Client is a resilient HTTP client. It is safe for concurrent use.
type Client struct {
	config   Config
	client   *http.Client
	breakers *BreakerSet
	logger   *slog.Logger
}

// New creates a new resilient HTTP client with the given configuration.
func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.BackoffMultiplier <= 0 {
		cfg.BackoffMultiplier = DefaultBackoffMultiplier
	}

	baseClient := cfg.BaseClient
	if baseClient == nil {
		baseClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		config:   cfg,
		client:   baseClient,
		breakers: NewBreakerSet(cfg.CircuitThreshold, cfg.CircuitTimeout, cfg.CircuitHalfOpenMax),
		logger:   cfg.Logger,
	}
}

// NewWithDefaults creates a new client with default configuration.
func NewWithDefaults() *Client {
	return New(DefaultConfig())
}

// Do executes an HTTP request with circuit breaker protection and retries.
// The request context bounds every attempt and every backoff wait.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if req.Header.Get(HeaderUserAgent) == "" && c.config.UserAgent != "" {
		req.Header.Set(HeaderUserAgent, c.config.UserAgent)
	}
	if c.config.EnableDecompression && req.Header.Get(HeaderAcceptEncoding) == "" {
		req.Header.Set(HeaderAcceptEncoding, DefaultAcceptEncodingHeader)
	}

	breaker := c.breakers.For(req.URL.Host)
	var lastErr error
	delay := c.config.RetryDelay

	for attempt := 0; attempt <= c.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			c.logger.DebugContext(ctx, "retrying request",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("url", req.URL.String()),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.config.BackoffMultiplier)
			if c.config.RetryMaxDelay > 0 && delay > c.config.RetryMaxDelay {
				delay = c.config.RetryMaxDelay
			}
		}

		if !breaker.Allow() {
			c.logger.WarnContext(ctx, "circuit breaker open, skipping request",
				slog.String("host", req.URL.Host),
				slog.String("state", breaker.State().String()),
			)
			return nil, fmt.Errorf("%w for %s", ErrCircuitOpen, req.URL.Host)
		}

		start := time.Now()
		resp, err := c.client.Do(req)
		duration := time.Since(start)

		if err != nil {
			// The caller gave up; the host is not at fault.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			breaker.RecordFailure()
			lastErr = err
			c.logger.WarnContext(ctx, "request failed",
				slog.String("url", req.URL.String()),
				slog.String("method", req.Method),
				slog.Duration("duration", duration),
				slog.String("error", err.Error()),
				slog.Int("attempt", attempt),
			)
			continue
		}

		if isRetryableStatus(resp.StatusCode) {
			breaker.RecordFailure()
			lastErr = fmt.Errorf("retryable status code: %d", resp.StatusCode)
			c.logger.WarnContext(ctx, "retryable status code",
				slog.String("url", req.URL.String()),
				slog.Int("status", resp.StatusCode),
				slog.Duration("duration", duration),
				slog.Int("attempt", attempt),
			)
			resp.Body.Close()
			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			breaker.RecordFailure()
		} else {
			breaker.RecordSuccess()
		}
		c.logger.DebugContext(ctx, "request completed",
			slog.String("url", req.URL.String()),
			slog.String("method", req.Method),
			slog.Int("status", resp.StatusCode),
			slog.Duration("duration", duration),
			slog.Int64("content_length", resp.ContentLength),
		)

		if c.config.EnableDecompression {
			resp.Body = c.wrapDecompression(resp)
		}
		if c.config.MaxResponseSize > 0 {
			resp.Body = newLimitedReader(resp.Body, c.config.MaxResponseSize)
		}
		return resp, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrMaxRetries, lastErr)
	}
	return nil, ErrMaxRetries
}

// Get performs a GET request to the specified URL.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return c.Do(req)
}

// GetJSON performs a GET request and decodes a 2xx JSON body into v.
// Other statuses return a *StatusError.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set(HeaderAccept, "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, URL: url}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// CircuitStates returns the breaker state of every host seen so far.
func (c *Client) CircuitStates() map[string]CircuitState {
	return c.breakers.States()
}

// ResetCircuits closes every breaker.
func (c *Client) ResetCircuits() {
	c.breakers.Reset()
}

// isRetryableStatus returns true if the HTTP status code is retryable.
func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
