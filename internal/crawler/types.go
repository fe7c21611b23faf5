package crawler

import (
	"fmt"

	"sjsage522/listingscout/internal/fetch"
	"sjsage522/listingscout/internal/listing"
	apperrors "sjsage522/listingscout/pkg/errors"
)

// SourceConfig enables one source, optionally overriding its listing URL.
type SourceConfig struct {
	Source listing.Source
	URL    string
}

// CrawlConfig is built once per run and never mutated during a crawl.
type CrawlConfig struct {
	MaxPages int
	Sources  []SourceConfig
	Fetch    fetch.Policy
}

// Validate rejects configurations a run cannot start with
func (c CrawlConfig) Validate() error {
	if c.MaxPages < 1 {
		return apperrors.NewConfiguration(fmt.Sprintf("max pages must be at least 1, got %d", c.MaxPages), nil)
	}
	if len(c.Sources) == 0 {
		return apperrors.NewConfiguration("no sources enabled", nil)
	}
	seen := make(map[listing.Source]bool)
	for _, s := range c.Sources {
		if _, ok := defaultConfigs[s.Source]; !ok {
			return apperrors.NewConfiguration(fmt.Sprintf("unknown source %q", s.Source), nil)
		}
		if seen[s.Source] {
			return apperrors.NewConfiguration(fmt.Sprintf("source %q enabled twice", s.Source), nil)
		}
		seen[s.Source] = true
	}
	return c.Fetch.Validate()
}

// StopReason explains why pagination ended
type StopReason string

const (
	StopMaxPages    StopReason = "max_pages"
	StopEmptyPage   StopReason = "empty_page"
	StopNoNextPage  StopReason = "no_next_page"
	StopPageFailed  StopReason = "page_failed"
	StopInterrupted StopReason = "interrupted"
)

// Result is the outcome of crawling one source
type Result struct {
	Source         listing.Source
	Kind           listing.Kind
	Listings       []listing.PartialListing
	Pages          int
	Strategy       string
	DetailFailures int
	StopReason     StopReason
}
