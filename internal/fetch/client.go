package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"sync"
	"syscall"
	"time"

	"sjsage522/listingscout/helpers"
	"sjsage522/listingscout/logger"
	apperrors "sjsage522/listingscout/pkg/errors"
	"sjsage522/listingscout/services/cache"
)

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher is the capability the crawler depends on.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, domainHint string) (*Response, error)
}

// Observer receives request outcomes. services/metrics implements it.
type Observer interface {
	RequestDone(domain, outcome string)
	RetryScheduled(domain string)
}

// Response is a fetched page decoded to UTF-8.
type Response struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Client issues GET requests with per-domain pacing, retry with backoff and
// a fixed header set. Requests to one domain never overlap.
type Client struct {
	doer     Doer
	policy   Policy
	cache    cache.CacheService
	observer Observer
	log      *logger.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	rnd     *rand.Rand
	last    map[string]time.Time
	domains map[string]*sync.Mutex
}

// Option configures a Client
type Option func(*Client)

// WithDoer replaces the HTTP transport
func WithDoer(d Doer) Option {
	return func(c *Client) { c.doer = d }
}

// WithCache enables the cross-run cooldown of rate-limited domains
func WithCache(cs cache.CacheService) Option {
	return func(c *Client) { c.cache = cs }
}

// WithObserver reports outcomes to o
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithClock replaces the wall clock and the sleeper
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.now = now
		c.sleep = sleep
	}
}

// WithRand seeds the delay jitter
func WithRand(r *rand.Rand) Option {
	return func(c *Client) { c.rnd = r }
}

// NewClient creates a Client for the given policy
func NewClient(policy Policy, opts ...Option) *Client {
	c := &Client{
		policy:  policy,
		log:     logger.ForFetcher(),
		now:     time.Now,
		sleep:   sleepCtx,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		last:    make(map[string]time.Time),
		domains: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.doer == nil {
		timeout := policy.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		c.doer = &http.Client{Timeout: timeout}
	}
	if c.policy.RetryDelays == nil {
		c.policy.RetryDelays = DefaultRetryDelays
	}
	return c
}

// Fetch GETs rawURL. domainHint names the pacing bucket; when empty the
// URL's host is used. On 429, 5xx or network failure the request is retried
// after each configured backoff delay; when retries run out a retry_exhausted
// error is returned and the caller should skip the URL. Other non-2xx statuses
// return the response together with an http_status error.
func (c *Client) Fetch(ctx context.Context, rawURL, domainHint string) (*Response, error) {
	domain := strings.TrimPrefix(strings.ToLower(domainHint), "www.")
	if domain == "" {
		domain = helpers.DomainOf(rawURL)
	}
	referer, err := helpers.SiteRoot(rawURL)
	if err != nil {
		return nil, apperrors.NewParsing(domain, "invalid request url", err)
	}

	if c.blocked(domain) {
		c.observe(domain, "rate_limit")
		return nil, apperrors.NewRateLimit(domain, c.policy.BlockTime)
	}

	lock := c.domainLock(domain)
	lock.Lock()
	defer lock.Unlock()

	b := &backoff{delays: c.policy.RetryDelays}
	var lastErr error
	lastStatus := 0
	for {
		if err := c.pace(ctx, domain); err != nil {
			return nil, err
		}

		resp, err := c.do(ctx, domain, rawURL, referer)
		switch {
		case err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300:
			c.observe(domain, "ok")
			return resp, nil
		case err == nil && !retryableStatus(resp.StatusCode):
			c.observe(domain, "http_status")
			return resp, apperrors.NewHTTPStatus(domain, resp.StatusCode)
		case err == nil:
			lastStatus = resp.StatusCode
			lastErr = apperrors.NewHTTPStatus(domain, resp.StatusCode)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case !retryableNetErr(err):
			c.observe(domain, "network")
			return nil, apperrors.NewNetwork(domain, "request failed", err)
		default:
			lastStatus = 0
			lastErr = apperrors.NewNetwork(domain, "request failed", err)
		}

		delay, ok := b.next()
		if !ok {
			break
		}
		c.log.Warn().
			Str("url", rawURL).
			Int("attempt", b.attempt).
			Dur("backoff", delay).
			Err(lastErr).
			Msg("retrying request")
		if c.observer != nil {
			c.observer.RetryScheduled(domain)
		}
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	c.observe(domain, "retry_exhausted")
	if lastStatus == http.StatusTooManyRequests {
		c.block(domain)
	}
	return nil, apperrors.NewRetryExhausted(domain, b.attempts(), lastErr)
}

func (c *Client) do(ctx context.Context, domain, rawURL, referer string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	helpers.SetStaticHeaders(req, c.policy.UserAgent, c.policy.AcceptLanguage, referer)

	resp, err := c.doer.Do(req)
	c.mu.Lock()
	c.last[domain] = c.now()
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	limit := c.policy.MaxBodyBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, err
	}
	body, err := helpers.DecodeUTF8(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		body = raw
	}
	return &Response{URL: rawURL, StatusCode: resp.StatusCode, Body: body}, nil
}

// pace sleeps until the politeness gap since the previous request to domain has passed.
func (c *Client) pace(ctx context.Context, domain string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	last, seen := c.last[domain]
	gap := c.gapLocked(domain)
	now := c.now()
	c.mu.Unlock()

	if !seen {
		return nil
	}
	wait := last.Add(gap).Sub(now)
	if wait <= 0 {
		return nil
	}
	c.log.Debug().Str("domain", domain).Dur("wait", wait).Msg("politeness delay")
	return c.sleep(ctx, wait)
}

func (c *Client) gapLocked(domain string) time.Duration {
	if d, ok := c.policy.DomainDelays[domain]; ok {
		return d
	}
	lo, hi := c.policy.MinDelay, c.policy.MaxDelay
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(c.rnd.Int63n(int64(hi-lo)+1))
}

func (c *Client) domainLock(domain string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.domains[domain]
	if !ok {
		l = &sync.Mutex{}
		c.domains[domain] = l
	}
	return l
}

func blockKey(domain string) string {
	return domain + "_rate_limited"
}

func (c *Client) blocked(domain string) bool {
	if c.cache == nil {
		return false
	}
	_, err := c.cache.Get(blockKey(domain))
	return err == nil
}

func (c *Client) block(domain string) {
	if c.cache == nil || c.policy.BlockTime <= 0 {
		return
	}
	secs := fmt.Sprintf("%d", int(c.policy.BlockTime/time.Second))
	if err := c.cache.Set(blockKey(domain), []byte(secs), c.policy.BlockTime); err != nil {
		c.log.Warn().Err(err).Str("domain", domain).Msg("failed to store rate limit cooldown")
		return
	}
	c.log.Warn().Str("domain", domain).Dur("block", c.policy.BlockTime).Msg("domain blocked after repeated 429")
}

func (c *Client) observe(domain, outcome string) {
	if c.observer != nil {
		c.observer.RequestDone(domain, outcome)
	}
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
}

func retryableNetErr(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "broken pipe")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
