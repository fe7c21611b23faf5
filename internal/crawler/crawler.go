package crawler

import (
	"context"
	"time"

	"sjsage522/listingscout/internal/fetch"
	"sjsage522/listingscout/internal/listing"
	"sjsage522/listingscout/logger"
	apperrors "sjsage522/listingscout/pkg/errors"
)

// cardMatcher is implemented by adapters that can name the strategy that matched
type cardMatcher interface {
	MatchCards(p *Page) ([]listing.PartialListing, string)
}

// PaginatedCrawler drives one adapter across listing pages and detail pages.
// All requests go through the fetcher, one at a time.
type PaginatedCrawler struct {
	adapter  Adapter
	fetcher  fetch.Fetcher
	maxPages int
	log      *logger.Logger
	now      func() time.Time
}

// NewPaginatedCrawler creates a crawler for one source
func NewPaginatedCrawler(adapter Adapter, fetcher fetch.Fetcher, maxPages int) *PaginatedCrawler {
	return &PaginatedCrawler{
		adapter:  adapter,
		fetcher:  fetcher,
		maxPages: maxPages,
		log:      logger.ForSource(string(adapter.Source())),
		now:      time.Now,
	}
}

// Source returns the source of the adapter
func (c *PaginatedCrawler) Source() listing.Source { return c.adapter.Source() }

// Kind returns the listing domain of the adapter
func (c *PaginatedCrawler) Kind() listing.Kind { return c.adapter.Kind() }

// Crawl collects the source's listings in first-seen order.
//
// A failure on page 1 (fetch, parse or feasibility probe) is returned and the
// source should be skipped. Failures on later pages end pagination, and
// failed detail fetches leave the card without a description. When ctx is
// cancelled the cards gathered so far are returned with ctx.Err().
func (c *PaginatedCrawler) Crawl(ctx context.Context) (Result, error) {
	res := Result{Source: c.adapter.Source(), Kind: c.adapter.Kind()}
	items := newCollected()

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			res.StopReason = StopInterrupted
			res.Listings = items.Values()
			return res, err
		}
		if page > c.maxPages {
			res.StopReason = StopMaxPages
			break
		}

		p, err := c.fetchPage(ctx, c.adapter.PageURL(page))
		if err == nil && page == 1 {
			if prober, ok := c.adapter.(Prober); ok {
				err = prober.Probe(p)
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				res.StopReason = StopInterrupted
				res.Listings = items.Values()
				return res, ctx.Err()
			}
			if page == 1 {
				return res, err
			}
			c.log.Warn().Err(err).Int("page", page).Msg("listing page failed, keeping earlier pages")
			res.StopReason = StopPageFailed
			break
		}

		cards, strategy := c.extract(p)
		res.Pages = page
		if page == 1 {
			res.Strategy = strategy
		}
		if len(cards) == 0 {
			if page > 1 {
				c.log.Info().Int("page", page).Msg("no cards, end of pagination")
				res.StopReason = StopEmptyPage
				break
			}
			c.log.Warn().Str("url", p.URL).Msg("no cards on first page, markup may have changed")
		}

		fetchedAt := c.now()
		added := 0
		for _, card := range cards {
			if card.FetchedAt.IsZero() {
				card.FetchedAt = fetchedAt
			}
			if items.InsertIfAbsent(card) {
				added++
			}
		}
		c.log.Debug().
			Int("page", page).
			Str("strategy", strategy).
			Int("cards", len(cards)).
			Int("added", added).
			Msg("page extracted")

		if !c.adapter.HasNextPage(p) {
			res.StopReason = StopNoNextPage
			break
		}
	}

	if skipper, ok := c.adapter.(DetailSkipper); ok && skipper.SkipDetail() {
		res.Listings = items.Values()
		return res, nil
	}

	for _, url := range items.URLs() {
		if err := ctx.Err(); err != nil {
			res.StopReason = StopInterrupted
			res.Listings = items.Values()
			return res, err
		}
		card, _ := items.Get(url)
		enriched, err := c.enrich(ctx, card)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			res.DetailFailures++
			c.log.Warn().Err(err).Str("url", url).Msg("detail fetch failed, keeping listing without description")
		}
		items.Replace(enriched)
	}

	res.Listings = items.Values()
	return res, nil
}

// FirstPage fetches and extracts listing page 1 only, without detail fetches.
// It backs the smoke test command.
func (c *PaginatedCrawler) FirstPage(ctx context.Context) (Result, error) {
	res := Result{Source: c.adapter.Source(), Kind: c.adapter.Kind(), Pages: 1}
	p, err := c.fetchPage(ctx, c.adapter.PageURL(1))
	if err != nil {
		return res, err
	}
	if prober, ok := c.adapter.(Prober); ok {
		if err := prober.Probe(p); err != nil {
			return res, err
		}
	}
	res.Listings, res.Strategy = c.extract(p)
	if !c.adapter.HasNextPage(p) {
		res.StopReason = StopNoNextPage
	}
	return res, nil
}

func (c *PaginatedCrawler) fetchPage(ctx context.Context, url string) (*Page, error) {
	resp, err := c.fetcher.Fetch(ctx, url, "")
	if err != nil {
		return nil, err
	}
	p, err := NewPage(url, resp.Body)
	if err != nil {
		return nil, apperrors.NewParsing(string(c.adapter.Source()), "failed to parse "+url, err)
	}
	return p, nil
}

func (c *PaginatedCrawler) extract(p *Page) ([]listing.PartialListing, string) {
	if m, ok := c.adapter.(cardMatcher); ok {
		return m.MatchCards(p)
	}
	return c.adapter.ExtractListingCards(p), ""
}

// enrich fetches the card's detail page. The returned card is always usable;
// on error it carries the detail timestamp and whatever the card already had.
func (c *PaginatedCrawler) enrich(ctx context.Context, card listing.PartialListing) (listing.PartialListing, error) {
	card.FetchedAt = c.now()
	p, err := c.fetchPage(ctx, card.CanonicalURL)
	if err != nil {
		return card, err
	}
	if text := c.adapter.ExtractDetail(p); text != "" {
		card.Description = text
	}
	if card.Pay == "" {
		if pe, ok := c.adapter.(PayExtractor); ok {
			card.Pay = pe.ExtractPay(p)
		}
	}
	return card, nil
}
