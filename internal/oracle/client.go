package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/freeeve/puzzlecheck/internal/metrics"
)

// DefaultURL is the lichess standard-chess tablebase endpoint.
const DefaultURL = "http://tablebase.lichess.ovh/standard"

// ClientConfig configures the HTTP tablebase client.
type ClientConfig struct {
	BaseURL        string
	Logger         zerolog.Logger
	HTTPClient     *http.Client  // optional; built from Timeout when nil
	Timeout        time.Duration // connection + read timeout per attempt
	MaxRetries     int           // retries after the first attempt
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	UserAgent      string
}

// Client looks positions up over HTTP with a bounded retry budget.
type Client struct {
	cfg  ClientConfig
	base *url.URL
	http *http.Client
	log  zerolog.Logger
}

// NewClient creates a tablebase client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries must be >= 0, got %d", cfg.MaxRetries)
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = 10 * time.Second
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 5 * time.Minute
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "puzzlecheck"
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse oracle url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("oracle url %q: scheme must be http or https", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{cfg: cfg, base: base, http: hc, log: cfg.Logger}, nil
}

// Classify fetches the tablebase entry for fen. Transient failures (429, 5xx,
// transport errors) are retried with exponential backoff up to MaxRetries
// times; anything else fails immediately. Failures are returned as *Error.
func (c *Client) Classify(ctx context.Context, fen string) (*Response, error) {
	var (
		resp       *Response
		attempts   int
		lastStatus int
		gotReply   bool
	)

	op := func() error {
		attempts++
		r, status, err := c.fetch(ctx, fen)
		if status != 0 {
			gotReply = true
			lastStatus = status
		}
		if err != nil {
			return err
		}
		resp = r
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff
	b.MaxInterval = c.cfg.MaxBackoff
	b.MaxElapsedTime = 0 // the retry count is the only budget

	notify := func(err error, wait time.Duration) {
		metrics.OracleRetries.Inc()
		c.log.Warn().Err(err).Str("fen", fen).Int("attempt", attempts).Dur("wait", wait).Msg("oracle lookup failed, backing off")
	}

	err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxRetries)), ctx), notify)
	if err != nil {
		metrics.OracleRequests.WithLabelValues("error").Inc()
		return nil, &Error{
			FEN:         fen,
			Status:      lastStatus,
			Attempts:    attempts,
			Unreachable: !gotReply && ctx.Err() == nil,
			Err:         err,
		}
	}

	metrics.OracleRequests.WithLabelValues("ok").Inc()
	c.log.Debug().Str("fen", fen).Str("category", resp.Category.String()).Int("replies", len(resp.Replies)).Msg("oracle response")
	return resp, nil
}

// fetch performs one attempt. Errors that must not be retried are wrapped in
// backoff.Permanent. status is 0 when no HTTP response was received.
func (c *Client) fetch(ctx context.Context, fen string) (*Response, int, error) {
	u := *c.base
	q := u.Query()
	q.Set("fen", fen)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	res, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, backoff.Permanent(ctx.Err())
		}
		return nil, 0, fmt.Errorf("request: %w", err)
	}
	defer res.Body.Close()

	if isTransient(res.StatusCode) {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil, res.StatusCode, fmt.Errorf("transient status %d", res.StatusCode)
	}
	if res.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil, res.StatusCode, backoff.Permanent(fmt.Errorf("unexpected status %d", res.StatusCode))
	}

	var out Response
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		if !errors.Is(err, ErrMalformed) {
			err = fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return nil, res.StatusCode, backoff.Permanent(err)
	}
	if err := out.Validate(); err != nil {
		return nil, res.StatusCode, backoff.Permanent(err)
	}
	return &out, res.StatusCode, nil
}

func isTransient(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
