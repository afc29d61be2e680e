// Package recoup is the HTTP client for the Recoup API. It implements the
// job source, scrape launcher, result store, pro-artist source and chat
// dispatcher used by the orchestrator.
//
// Every response is decoded into a schema.Result: transport and HTTP
// failures are Absent, bodies that do not match the expected shape are
// Invalid. Reads are retried on transient failures; scrape launches are
// sent exactly once. Status polls are also single attempts, logged at Warn,
// since the poller asks again on its next tick.
package recoup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"socialscraper/pkg/config"
	errs "socialscraper/pkg/errors"
	"socialscraper/pkg/logger"
	"socialscraper/pkg/ratelimit"
	"socialscraper/pkg/retry"
	"socialscraper/pkg/schema"
)

// maxBodySize caps how much of a response body is read
const maxBodySize = 32 << 20

// severity is how loudly a failed exchange is logged
type severity int

const (
	severityError severity = iota
	// severityWarn is for exchanges the caller repeats on its own
	severityWarn
)

func (s severity) log(l logger.Logger, msg string, fields map[string]interface{}) {
	if s == severityWarn {
		l.WarnWithFields(msg, fields)
		return
	}
	l.ErrorWithFields(msg, fields)
}

// Client handles HTTP requests to the Recoup API
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	jobsURL    string
	chatURL    string
	limiter    ratelimit.Limiter
	retry      *retry.Config
	logger     logger.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLimiter replaces the outbound rate limiter
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetry replaces the retry policy for reads
func WithRetry(r *retry.Config) Option {
	return func(c *Client) { c.retry = r }
}

// NewClient creates a client from the API, rate limit and retry settings
func NewClient(cfg *config.Config, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}

	headers := map[string]string{
		"Accept":     "application/json",
		"User-Agent": cfg.API.UserAgent,
	}
	if cfg.API.APIKey != "" {
		headers["x-api-key"] = cfg.API.APIKey
	}

	limiter, err := ratelimit.New(ratelimit.Strategy(cfg.RateLimit.Strategy), cfg.RateLimit.RequestsPerMinute)
	if err != nil {
		log.WarnWithFields("Falling back to token bucket rate limiting", map[string]interface{}{
			"error": err.Error(),
		})
		limiter = ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute)
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.API.Timeout},
		headers:    headers,
		baseURL:    cfg.API.BaseURL,
		jobsURL:    cfg.API.JobsURL,
		chatURL:    cfg.API.ChatURL,
		limiter:    limiter,
		retry: &retry.Config{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Backoff:     retry.FromSettings(cfg.Retry.BaseDelay, cfg.Retry.MaxDelay),
			RetryIf:     retry.DefaultRetryIf,
			Logger:      log,
		},
		logger: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// doRequest sends one request and returns the body of a 2xx response
func (c *Client) doRequest(ctx context.Context, method, rawURL string, payload interface{}, sev severity) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, errs.Wrap(errs.ErrorTypeValidation, "encode request", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeConfiguration, "build request", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": method,
		"url":    rawURL,
	})

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		sev.log(c.logger, "HTTP request failed", map[string]interface{}{
			"method": method,
			"url":    rawURL,
			"error":  err.Error(),
		})
		return nil, &errs.Error{Type: errs.ErrorTypeNetwork, Op: method + " " + redact(rawURL), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	elapsed := float64(time.Since(start).Microseconds()) / 1000
	if sev == severityWarn {
		logger.LogRepeatedRequest(c.logger, method, rawURL, resp.StatusCode, elapsed)
	} else {
		logger.LogRequest(c.logger, method, rawURL, resp.StatusCode, elapsed)
	}
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Op:      method + " " + redact(rawURL),
			Message: "failed to read response body",
			Code:    resp.StatusCode,
			Err:     err,
		}
	}

	if err := checkResponseStatus(method, rawURL, resp.StatusCode, data); err != nil {
		return nil, err
	}
	return data, nil
}

// checkResponseStatus maps a non-2xx status to a classified error
func checkResponseStatus(method, rawURL string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	preview := string(body)
	if len(preview) > 200 {
		preview = truncate(preview, 200) + "..."
	}
	if preview == "" {
		preview = http.StatusText(status)
	}
	return &errs.Error{
		Type:    errs.FromStatusCode(status),
		Op:      method + " " + redact(rawURL),
		Message: preview,
		Code:    status,
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// read performs a GET with the retry policy
func (c *Client) read(ctx context.Context, rawURL string) ([]byte, error) {
	return retry.DoWithResult(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.doRequest(ctx, http.MethodGet, rawURL, nil, severityError)
	})
}

// readOnce performs a single GET whose failures are logged at Warn
func (c *Client) readOnce(ctx context.Context, rawURL string) ([]byte, error) {
	return c.doRequest(ctx, http.MethodGet, rawURL, nil, severityWarn)
}

// send performs a POST exactly once
func (c *Client) send(ctx context.Context, rawURL string, payload interface{}) ([]byte, error) {
	return c.doRequest(ctx, http.MethodPost, rawURL, payload, severityError)
}

// decode turns a raw exchange into a tagged result, logging anything not Ok
func decode[T any](c *Client, op string, body []byte, err error, fields map[string]interface{}) schema.Result[T] {
	return decodeAt[T](c, severityError, op, body, err, fields)
}

func decodeAt[T any](c *Client, sev severity, op string, body []byte, err error, fields map[string]interface{}) schema.Result[T] {
	log := c.logger.WithFields(fields)
	if err != nil {
		sev.log(log.WithError(err), fmt.Sprintf("Recoup %s request failed", op), nil)
		return schema.AbsentOf[T](err)
	}

	res := schema.Decode[T](body)
	switch res.State {
	case schema.Invalid:
		sev.log(log, fmt.Sprintf("Invalid response from Recoup %s API", op), map[string]interface{}{
			"issues": issueStrings(res.Issues),
			"error":  res.Cause().Error(),
		})
	case schema.Absent:
		sev.log(log.WithError(res.Cause()), fmt.Sprintf("Empty response from Recoup %s API", op), nil)
	}
	return res
}

func issueStrings(issues []schema.Issue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.String()
	}
	return out
}

// redact drops the query string so ids do not leak into error messages
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	return u.String()
}
