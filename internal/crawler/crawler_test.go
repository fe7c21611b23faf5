package crawler

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/listingscout/internal/listing"
	apperrors "sjsage522/listingscout/pkg/errors"
)

const salemBase = "https://fake.salem/collections/laptops"

func salemPage(next bool, products ...string) string {
	html := "<html><body><div class=\"grid\">"
	for _, slug := range products {
		html += fmt.Sprintf(`<div class="product-card">
			<a href="/products/%s"><h3>%s laptop</h3></a>
			<span class="price">From $%d.00</span>
			<span class="badge">In stock</span>
		</div>`, slug, slug, 500+len(slug))
	}
	html += "</div>"
	if next {
		html += `<nav class="pagination"><a rel="next" href="?page=next">Next</a></nav>`
	}
	return html + "</body></html>"
}

func salemDetail(text string) string {
	return `<html><body><main><div class="product-description"><p>` + text + `</p></div></main></body></html>`
}

func pageURL(n int) string {
	return fmt.Sprintf("%s?page=%d", salemBase, n)
}

func newSalemCrawler(t *testing.T, fetcher *MockFetcher, maxPages int) *PaginatedCrawler {
	t.Helper()
	adapter, err := NewAdapter(SourceConfig{Source: listing.SourceSalem, URL: salemBase})
	require.NoError(t, err)
	return NewPaginatedCrawler(adapter, fetcher, maxPages)
}

func TestCrawlStopsOnEmptyPageAfterFirst(t *testing.T) {
	fetcher := NewMockFetcher(map[string]string{
		pageURL(1): salemPage(true, "a1", "a2"),
		pageURL(2): salemPage(true, "b1"),
		pageURL(3): salemPage(true),
		pageURL(4): salemPage(true, "d1"),
	})

	res, err := newSalemCrawler(t, fetcher, 10).Crawl(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, StopEmptyPage, res.StopReason)
	assert.False(t, fetcher.Called(pageURL(4)), "page 4 must never be fetched")
	assert.Len(t, res.Listings, 3)
}

func TestCrawlStopsAtMaxPages(t *testing.T) {
	fetcher := NewMockFetcher(map[string]string{
		pageURL(1): salemPage(true, "a1"),
		pageURL(2): salemPage(true, "b1"),
		pageURL(3): salemPage(true, "c1"),
	})

	res, err := newSalemCrawler(t, fetcher, 2).Crawl(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StopMaxPages, res.StopReason)
	assert.Equal(t, 2, res.Pages)
	assert.False(t, fetcher.Called(pageURL(3)))
}

func TestCrawlStopsWithoutNextControl(t *testing.T) {
	fetcher := NewMockFetcher(map[string]string{
		pageURL(1): salemPage(false, "a1"),
		pageURL(2): salemPage(true, "b1"),
	})

	res, err := newSalemCrawler(t, fetcher, 5).Crawl(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StopNoNextPage, res.StopReason)
	assert.False(t, fetcher.Called(pageURL(2)))
}

func TestCrawlFirstOccurrenceWinsAndOrderIsStable(t *testing.T) {
	p2 := `<html><body>
		<div class="product-card"><a href="/products/a2"><h3>renamed a2</h3></a></div>
		<div class="product-card"><a href="/products/c9"><h3>c9 laptop</h3></a></div>
	</body></html>`
	fetcher := NewMockFetcher(map[string]string{
		pageURL(1): salemPage(true, "a1", "a2"),
		pageURL(2): p2,
	})

	res, err := newSalemCrawler(t, fetcher, 5).Crawl(context.Background())

	require.NoError(t, err)
	require.Len(t, res.Listings, 3)
	assert.Equal(t, "https://fake.salem/products/a1", res.Listings[0].CanonicalURL)
	assert.Equal(t, "https://fake.salem/products/a2", res.Listings[1].CanonicalURL)
	assert.Equal(t, "a2 laptop", res.Listings[1].Title)
	assert.Equal(t, "https://fake.salem/products/c9", res.Listings[2].CanonicalURL)
}

func TestCrawlDetailFailureKeepsListing(t *testing.T) {
	fetcher := NewMockFetcher(map[string]string{
		pageURL(1):                       salemPage(false, "a1", "a2"),
		"https://fake.salem/products/a1": salemDetail("Lightweight ultrabook with 16GB RAM"),
	})
	fetcher.errs["https://fake.salem/products/a2"] = apperrors.NewRetryExhausted("fake.salem", 4, nil)

	res, err := newSalemCrawler(t, fetcher, 5).Crawl(context.Background())

	require.NoError(t, err)
	require.Len(t, res.Listings, 2)
	assert.Equal(t, "Lightweight ultrabook with 16GB RAM", res.Listings[0].Description)
	assert.Empty(t, res.Listings[1].Description)
	assert.False(t, res.Listings[1].FetchedAt.IsZero())
	assert.Equal(t, 1, res.DetailFailures)
	require.NotNil(t, res.Listings[0].Price)
	assert.Equal(t, 502.0, res.Listings[0].Price.Amount)
	assert.Equal(t, listing.StatusInStock, res.Listings[0].Status)
}

func TestCrawlFirstPageFailureSkipsSource(t *testing.T) {
	fetcher := NewMockFetcher(map[string]string{})
	fetcher.errs[pageURL(1)] = apperrors.NewRetryExhausted("fake.salem", 4, nil)

	res, err := newSalemCrawler(t, fetcher, 5).Crawl(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRetryExhausted))
	assert.Empty(t, res.Listings)
}

func TestCrawlLaterPageFailureKeepsEarlierPages(t *testing.T) {
	fetcher := NewMockFetcher(map[string]string{
		pageURL(1): salemPage(true, "a1"),
	})
	fetcher.errs[pageURL(2)] = apperrors.NewRetryExhausted("fake.salem", 4, nil)

	res, err := newSalemCrawler(t, fetcher, 5).Crawl(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StopPageFailed, res.StopReason)
	assert.Len(t, res.Listings, 1)
}

func TestCrawlCancelledBetweenDetailFetches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fetcher := NewMockFetcher(map[string]string{
		pageURL(1):                       salemPage(false, "a1", "a2", "a3"),
		"https://fake.salem/products/a1": salemDetail("first"),
		"https://fake.salem/products/a2": salemDetail("second"),
	})
	fetcher.onFetch = func(url string) {
		if url == "https://fake.salem/products/a1" {
			cancel()
		}
	}

	res, err := newSalemCrawler(t, fetcher, 5).Crawl(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StopInterrupted, res.StopReason)
	require.Len(t, res.Listings, 3, "every collected card is returned")
	assert.Equal(t, "first", res.Listings[0].Description)
	assert.Empty(t, res.Listings[1].Description)
	assert.False(t, fetcher.Called("https://fake.salem/products/a2"))
}

func TestCrawlCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fetcher := NewMockFetcher(map[string]string{pageURL(1): salemPage(false, "a1")})

	res, err := newSalemCrawler(t, fetcher, 5).Crawl(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Listings)
	assert.Empty(t, fetcher.Calls())
}

func TestWellfoundProbeMarksSourceInfeasible(t *testing.T) {
	base := "https://fake.wellfound/role/l/internship"
	adapter, err := NewAdapter(SourceConfig{Source: listing.SourceWellfound, URL: base})
	require.NoError(t, err)
	fetcher := NewMockFetcher(map[string]string{
		base + "?page=1": `<html><body><div id="__next"></div><script src="/app.js"></script></body></html>`,
	})

	_, err = NewPaginatedCrawler(adapter, fetcher, 3).Crawl(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInfeasible))
	assert.Len(t, fetcher.Calls(), 1)
}

func TestWellfoundStaticCardsSkipDetail(t *testing.T) {
	base := "https://fake.wellfound/role/l/internship"
	adapter, err := NewAdapter(SourceConfig{Source: listing.SourceWellfound, URL: base})
	require.NoError(t, err)
	fetcher := NewMockFetcher(map[string]string{
		base + "?page=1": `<html><body>
			<div data-test="job-card">
				<a href="/jobs/77-ml-intern"><h3 data-test="job-title">ML Intern</h3></a>
				<span data-test="company-name">Orbital.ai</span>
				<p>Train PyTorch models on Kubernetes</p>
			</div></body></html>`,
	})

	res, err := NewPaginatedCrawler(adapter, fetcher, 3).Crawl(context.Background())

	require.NoError(t, err)
	require.Len(t, res.Listings, 1)
	assert.Equal(t, "ML Intern", res.Listings[0].Title)
	assert.Equal(t, "Orbital.ai", res.Listings[0].Company)
	assert.Equal(t, "Train PyTorch models on Kubernetes", res.Listings[0].Description)
	assert.Equal(t, "div[data-test=job-card]", res.Strategy)
	assert.Len(t, fetcher.Calls(), 1, "wellfound cards are not followed")
}

func TestYCFallsBackToInlineState(t *testing.T) {
	base := "https://fake.yc/internships"
	adapter, err := NewAdapter(SourceConfig{Source: listing.SourceYC, URL: base})
	require.NoError(t, err)
	fetcher := NewMockFetcher(map[string]string{
		base + "?page=1": `<html><body><div id="app"></div><script>
			window.__INITIAL_STATE__ = {"jobs":[{"title":"Backend Intern","companyName":"Acme","url":"/companies/acme/jobs/1"}]};
		</script></body></html>`,
		"https://fake.yc/companies/acme/jobs/1": `<section id="job-description"><p>Build Go APIs on AWS.</p></section>`,
	})

	res, err := NewPaginatedCrawler(adapter, fetcher, 3).Crawl(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "inline-state", res.Strategy)
	require.Len(t, res.Listings, 1)
	assert.Equal(t, "Acme", res.Listings[0].Company)
	assert.Equal(t, "Build Go APIs on AWS.", res.Listings[0].Description)
}

func TestStartupJobsPayFromDetail(t *testing.T) {
	base := "https://fake.startup.jobs/list"
	adapter, err := NewAdapter(SourceConfig{Source: listing.SourceStartupJobs, URL: base})
	require.NoError(t, err)
	fetcher := NewMockFetcher(map[string]string{
		base + "?page=1": `<html><body><ul class="jobs-list"><li>
			<a class="job-listing__link" href="/job/456">View</a>
			<div class="job-listing__title">Data Science Intern</div>
			<div class="job-listing__company">Beta Analytics</div>
			<div class="job-listing__location">New York, NY</div>
		</li></ul></body></html>`,
		"https://fake.startup.jobs/job/456": `<html><body>
			<div class="section--responsibilities"><li>Analyze datasets with SQL and Python.</li></div>
			<div class="section--benefits"><p>Salary: $20/hr plus bonuses</p></div>
		</body></html>`,
	})

	res, err := NewPaginatedCrawler(adapter, fetcher, 3).Crawl(context.Background())

	require.NoError(t, err)
	require.Len(t, res.Listings, 1)
	got := res.Listings[0]
	assert.Equal(t, "Data Science Intern", got.Title)
	assert.Equal(t, "Beta Analytics", got.Company)
	assert.Equal(t, "New York, NY", got.Location)
	assert.Contains(t, got.Pay, "Salary: $20/hr")
	assert.Contains(t, got.Description, "SQL and Python")
}

func TestHasNextPageIgnoresDisabledControls(t *testing.T) {
	adapter, err := NewAdapter(SourceConfig{Source: listing.SourceSalem})
	require.NoError(t, err)

	disabled := mustPage(t, salemBase, `<div class="pagination"><a class="next disabled" rel="next" aria-disabled="true">Next</a></div>`)
	assert.False(t, adapter.HasNextPage(disabled))

	byText := mustPage(t, salemBase, `<div><a href="?page=3"> Next </a></div>`)
	assert.True(t, adapter.HasNextPage(byText))
}

func TestPagers(t *testing.T) {
	assert.Equal(t, "https://x.test/c?page=3", QueryPager("page")("https://x.test/c", 3))
	assert.Equal(t, "https://x.test/jobs?q=intern&start=20", OffsetPager("start", 10)("https://x.test/jobs?q=intern", 3))
	assert.Equal(t, "https://x.test/jobs?q=intern", OffsetPager("start", 10)("https://x.test/jobs?q=intern", 1))
}

func TestCrawlConfigValidate(t *testing.T) {
	cfg := CrawlConfig{MaxPages: 0, Sources: []SourceConfig{{Source: listing.SourceYC}}}
	assert.True(t, apperrors.IsType(cfg.Validate(), apperrors.ErrorTypeConfiguration))

	cfg.MaxPages = 3
	cfg.Sources = append(cfg.Sources, SourceConfig{Source: "craigslist"})
	assert.Error(t, cfg.Validate())

	cfg.Sources = []SourceConfig{{Source: listing.SourceYC}, {Source: listing.SourceYC}}
	assert.Error(t, cfg.Validate())
}

func TestCollectedInsertIfAbsent(t *testing.T) {
	c := newCollected()
	assert.True(t, c.InsertIfAbsent(listing.PartialListing{CanonicalURL: "u1", Title: "first"}))
	assert.True(t, c.InsertIfAbsent(listing.PartialListing{CanonicalURL: "u2"}))
	assert.False(t, c.InsertIfAbsent(listing.PartialListing{CanonicalURL: "u1", Title: "second"}))

	c.Replace(listing.PartialListing{CanonicalURL: "u3"})
	assert.Equal(t, []string{"u1", "u2"}, c.URLs())
	got, _ := c.Get("u1")
	assert.Equal(t, "first", got.Title)
}
