// Package portal is the HTTP client for the test portal API.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/mocktest/internal/exam"
)

// Envelope wraps every portal response body.
type Envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// IdempotencyHeader carries the attempt ID on submissions so the portal can
// drop duplicates.
const IdempotencyHeader = "Idempotency-Key"

const maxBodyBytes = 8 << 20

// Config configures a Client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Retry   RetryConfig
}

// Client talks to the portal. It satisfies the catalog, question bank,
// result store and review source the test session depends on.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
	retry RetryConfig
	log   *zap.Logger
}

// New creates a Client. A nil logger disables logging.
func New(cfg Config, log *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("portal: base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("portal: parse base URL: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryConfig()
	}
	return &Client{
		base:  base,
		token: cfg.Token,
		http:  &http.Client{Timeout: timeout},
		retry: retry,
		log:   log.Named("portal"),
	}, nil
}

// FetchTest returns the test's metadata.
func (c *Client) FetchTest(ctx context.Context, testID string) (*exam.Test, error) {
	var t exam.Test
	if err := c.get(ctx, testPath(testID), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// FetchQuestions returns the test's questions in display order.
func (c *Client) FetchQuestions(ctx context.Context, testID string) ([]exam.Question, error) {
	var qs []exam.Question
	if err := c.get(ctx, testPath(testID, "questions"), &qs); err != nil {
		return nil, err
	}
	return qs, nil
}

// PriorResults returns the authenticated student's results for the test.
func (c *Client) PriorResults(ctx context.Context, testID string) ([]exam.Result, error) {
	var rs []exam.Result
	if err := c.get(ctx, testPath(testID, "results"), &rs); err != nil {
		return nil, err
	}
	return rs, nil
}

// SubmitResult posts the final submission. It is never retried; the
// caller decides whether to try again.
func (c *Client) SubmitResult(ctx context.Context, sub exam.Submission) (*exam.Result, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("portal: encode submission: %w", err)
	}
	key := sub.AttemptID
	if key == "" {
		key = uuid.NewString()
	}
	var res exam.Result
	if err := c.do(ctx, http.MethodPost, testPath(sub.TestID, "results"), body, map[string]string{IdempotencyHeader: key}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// FetchReview returns the test with its answer key and the student's
// latest result.
func (c *Client) FetchReview(ctx context.Context, testID string) (*exam.ReviewData, error) {
	var rd exam.ReviewData
	if err := c.get(ctx, testPath(testID, "review"), &rd); err != nil {
		return nil, err
	}
	return &rd, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	_, err := withRetry(ctx, c.retry, func() (struct{}, error) {
		return struct{}{}, c.do(ctx, http.MethodGet, path, nil, nil, out)
	})
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, headers map[string]string, out any) error {
	u := c.base.JoinPath(path)

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return fmt.Errorf("portal: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Debug("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return &ErrUnavailable{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &ErrUnavailable{Err: fmt.Errorf("read body: %w", err)}
	}
	c.log.Debug("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	var env Envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ae := &APIError{Status: resp.StatusCode}
		if decodeErr == nil {
			ae.Code, ae.Message = env.Code, env.Message
		}
		if s := resp.Header.Get("Retry-After"); s != "" {
			if secs, err := strconv.Atoi(s); err == nil {
				ae.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		return ae
	}
	if decodeErr != nil {
		return fmt.Errorf("portal: decode envelope: %w", decodeErr)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("portal: decode %s: %w", path, err)
	}
	return nil
}

func testPath(testID string, rest ...string) string {
	return "/api/tests/" + url.PathEscape(testID) + joinRest(rest)
}

func joinRest(rest []string) string {
	if len(rest) == 0 {
		return ""
	}
	return "/" + strings.Join(rest, "/")
}
