package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents transient network-level failures (timeouts, resets)
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeHTTPStatus represents a non-retryable HTTP status
	ErrorTypeHTTPStatus ErrorType = "http_status"
	// ErrorTypeRateLimit represents a domain that is cooling down after being rate limited
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeRetryExhausted represents a request that failed after every retry
	ErrorTypeRetryExhausted ErrorType = "retry_exhausted"
	// ErrorTypeParsing represents HTML or JSON parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeInfeasible represents a source whose markup cannot be extracted this run
	ErrorTypeInfeasible ErrorType = "infeasible"
	// ErrorTypePersistence represents dedup state load or commit failures
	ErrorTypePersistence ErrorType = "persistence"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// CrawlerError represents a crawler-specific error
type CrawlerError struct {
	Type     ErrorType
	Provider string
	Message  string
	Err      error
	Time     time.Time
}

// Error implements the error interface
func (e *CrawlerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Provider, e.Message)
}

// Unwrap returns the underlying error
func (e *CrawlerError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *CrawlerError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork:
		return true
	default:
		return false
	}
}

// IsFatal reports whether the error must terminate a run.
func (e *CrawlerError) IsFatal() bool {
	return e.Type == ErrorTypePersistence || e.Type == ErrorTypeConfiguration
}

// New creates a new CrawlerError
func New(errType ErrorType, provider, message string, err error) *CrawlerError {
	return &CrawlerError{
		Type:     errType,
		Provider: provider,
		Message:  message,
		Err:      err,
		Time:     time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeNetwork, provider, message, err)
}

// NewHTTPStatus creates an error for a status code that is not retried
func NewHTTPStatus(provider string, status int) *CrawlerError {
	return New(ErrorTypeHTTPStatus, provider, fmt.Sprintf("unexpected status code: %d", status), nil)
}

// NewParsing creates a new parsing error
func NewParsing(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeParsing, provider, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(provider string, duration time.Duration) *CrawlerError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, provider, message, nil)
}

// NewRetryExhausted creates an error for a request that ran out of attempts
func NewRetryExhausted(provider string, attempts int, err error) *CrawlerError {
	message := fmt.Sprintf("gave up after %d attempts", attempts)
	return New(ErrorTypeRetryExhausted, provider, message, err)
}

// NewInfeasible creates an error for a source skipped by its feasibility probe
func NewInfeasible(provider, message string) *CrawlerError {
	return New(ErrorTypeInfeasible, provider, message, nil)
}

// NewPersistence creates a new persistence error
func NewPersistence(provider, message string, err error) *CrawlerError {
	return New(ErrorTypePersistence, provider, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *CrawlerError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// IsType reports whether err wraps a CrawlerError of the given type.
func IsType(err error, errType ErrorType) bool {
	var ce *CrawlerError
	if stderrors.As(err, &ce) {
		return ce.Type == errType
	}
	return false
}

// TypeOf returns the type of the outermost CrawlerError in err, or "" if none.
func TypeOf(err error) ErrorType {
	var ce *CrawlerError
	if stderrors.As(err, &ce) {
		return ce.Type
	}
	return ""
}

// IsFatal reports whether err wraps a CrawlerError that must end a run.
func IsFatal(err error) bool {
	var ce *CrawlerError
	return stderrors.As(err, &ce) && ce.IsFatal()
}
