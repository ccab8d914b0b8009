package lichess

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://lichess.org/api"
	DefaultUserAgent = "ChessWatch/1.0 (+https://github.com/park285/chesswatch)"

	mimeJSON   = "application/json"
	mimeNDJSON = "application/x-ndjson"

	maxLineSize = 4 << 20
)

var ErrNotFound = errors.New("lichess: not found")

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("lichess %s: status=%d body=%s", e.Op, e.Status, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.Status == fasthttp.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Observer receives per-attempt request outcomes. Implementations must be
// safe for concurrent use.
type Observer interface {
	ObserveRequest(op string, status int, err error, elapsed time.Duration)
	ObserveRetry(op string, attempt int)
}

type Client struct {
	baseURL   string
	http      *fasthttp.Client
	userAgent string
	limiter   *rate.Limiter
	observer  Observer

	defaultTimeout time.Duration
	retryMax       int
	backoff        func(attempt int) time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

// WithRetry sets how many times a failed request is retried after the first attempt.
func WithRetry(max int) Option {
	return func(c *Client) {
		if max >= 0 {
			c.retryMax = max
		}
	}
}

// WithBackoff sets the delay unit of the linear retry backoff.
func WithBackoff(unit time.Duration) Option {
	return func(c *Client) {
		if unit >= 0 {
			c.backoff = linearBackoff(unit)
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if strings.TrimSpace(ua) != "" {
			c.userAgent = strings.TrimSpace(ua)
		}
	}
}

// WithRateLimit caps outgoing attempts per second. Zero disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func NewClient(baseURL string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:        strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		userAgent:      DefaultUserAgent,
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
		backoff:        linearBackoff(time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TopBroadcasts fetches one page of the official top listing.
func (c *Client) TopBroadcasts(ctx context.Context, page int) (*TopPage, error) {
	if page < 1 {
		page = 1
	}
	var out TopPage
	path := "/broadcast/top?page=" + strconv.Itoa(page)
	if err := c.getJSON(ctx, "top", path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Broadcasts reads the NDJSON stream of official broadcasts. nb <= 0 leaves
// the upstream default.
func (c *Client) Broadcasts(ctx context.Context, nb int) ([]Broadcast, error) {
	path := "/broadcast"
	if nb > 0 {
		path += "?nb=" + strconv.Itoa(nb)
	}
	body, err := c.do(ctx, "list", path, mimeNDJSON)
	if err != nil {
		return nil, err
	}
	return decodeNDJSON(body)
}

// Broadcast fetches a tournament with all of its rounds.
func (c *Client) Broadcast(ctx context.Context, tourID string) (*Broadcast, error) {
	tourID = strings.TrimSpace(tourID)
	if tourID == "" {
		return nil, fmt.Errorf("lichess broadcast: empty id")
	}
	var out Broadcast
	if err := c.getJSON(ctx, "broadcast", "/broadcast/"+url.PathEscape(tourID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Round fetches one round with its games.
func (c *Client) Round(ctx context.Context, roundID string) (*RoundPage, error) {
	roundID = strings.TrimSpace(roundID)
	if roundID == "" {
		return nil, fmt.Errorf("lichess round: empty id")
	}
	var out RoundPage
	if err := c.getJSON(ctx, "round", "/broadcast/-/-/"+url.PathEscape(roundID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	body, err := c.do(ctx, op, path, mimeJSON)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, path, accept string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.baseURL + path)
	req.Header.Set("Accept", accept)
	req.Header.SetUserAgent(c.userAgent)

	attempts := c.retryMax + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if c.observer != nil {
				c.observer.ObserveRetry(op, attempt-1)
			}
			if err := sleepWithContext(ctx, c.backoff(attempt-1)); err != nil {
				return nil, lastErr
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				if lastErr != nil {
					return nil, lastErr
				}
				return nil, fmt.Errorf("lichess %s: %w", op, err)
			}
		}

		start := time.Now()
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			c.observe(op, 0, err, start)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("lichess %s: %w", op, ctxErr)
			}
			lastErr = fmt.Errorf("lichess %s: request failed: %w", op, err)
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			serr := &StatusError{Op: op, Status: status, Body: truncate(string(resp.Body()), 512)}
			c.observe(op, status, serr, start)
			if !shouldRetryStatus(status) {
				return nil, serr
			}
			lastErr = serr
			continue
		}

		c.observe(op, status, nil, start)
		return append([]byte(nil), resp.Body()...), nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, lastErr
}

func (c *Client) observe(op string, status int, err error, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(op, status, err, time.Since(start))
	}
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func decodeNDJSON(body []byte) ([]Broadcast, error) {
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	out := make([]Broadcast, 0)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var b Broadcast
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("decode ndjson line %d: %w", line, err)
		}
		out = append(out, b)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read ndjson: %w", err)
	}
	return out, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// linearBackoff waits attempt*unit before the n-th retry: 1s, 2s, 3s with the default unit.
func linearBackoff(unit time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return time.Duration(attempt) * unit
	}
}

func shouldRetryStatus(code int) bool {
	return code >= 500 && code <= 599
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
