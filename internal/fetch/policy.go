package fetch

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "sjsage522/listingscout/pkg/errors"
)

// DefaultRetryDelays is the wait before each retry after a 429, 5xx or network failure
var DefaultRetryDelays = []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}

// Policy is the immutable request policy of a Client.
type Policy struct {
	// MinDelay and MaxDelay bound the random gap between two requests to one domain.
	MinDelay time.Duration
	MaxDelay time.Duration
	// DomainDelays replaces the random gap with a fixed one for listed domains.
	DomainDelays map[string]time.Duration
	// RetryDelays lists the backoff before each retry; its length is the retry count.
	RetryDelays []time.Duration
	// BlockTime is how long a domain stays blocked after retries run out on 429s.
	BlockTime time.Duration

	UserAgent      string
	AcceptLanguage string
	Timeout        time.Duration
	MaxBodyBytes   int64
}

// DefaultPolicy returns the 2-6s politeness window with 2/4/8s retries.
func DefaultPolicy() Policy {
	return Policy{
		MinDelay:     2 * time.Second,
		MaxDelay:     6 * time.Second,
		RetryDelays:  DefaultRetryDelays,
		BlockTime:    5 * time.Minute,
		Timeout:      20 * time.Second,
		MaxBodyBytes: 10 << 20,
	}
}

// Validate rejects policies the client cannot honor.
func (p Policy) Validate() error {
	if p.MinDelay < 0 || p.MaxDelay < 0 {
		return apperrors.NewConfiguration("delay bounds must not be negative", nil)
	}
	if p.MinDelay > p.MaxDelay {
		return apperrors.NewConfiguration(fmt.Sprintf("min delay %v exceeds max delay %v", p.MinDelay, p.MaxDelay), nil)
	}
	for domain, d := range p.DomainDelays {
		if d < 0 {
			return apperrors.NewConfiguration(fmt.Sprintf("negative delay for %s", domain), nil)
		}
	}
	return nil
}

// ParseDomainDelays parses "domain=seconds" pairs separated by commas,
// e.g. "ycombinator.com=8,salemgaming.com=3.5".
func ParseDomainDelays(value string) (map[string]time.Duration, error) {
	out := make(map[string]time.Duration)
	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		domain, secs, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, apperrors.NewConfiguration(fmt.Sprintf("rate limit %q is not domain=seconds", pair), nil)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(secs), 64)
		if err != nil || f < 0 {
			return nil, apperrors.NewConfiguration(fmt.Sprintf("rate limit %q has an invalid delay", pair), err)
		}
		domain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "www.")
		out[domain] = time.Duration(f * float64(time.Second))
	}
	return out, nil
}

// backoff walks the retry delays one attempt at a time.
type backoff struct {
	delays  []time.Duration
	attempt int
}

// next returns the delay before the next retry, or false when retries are spent.
func (b *backoff) next() (time.Duration, bool) {
	if b.attempt >= len(b.delays) {
		return 0, false
	}
	d := b.delays[b.attempt]
	b.attempt++
	return d, true
}

// attempts is the number of requests issued so far, including the first.
func (b *backoff) attempts() int {
	return b.attempt + 1
}
