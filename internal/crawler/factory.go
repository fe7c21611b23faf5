package crawler

import (
	"fmt"

	"sjsage522/listingscout/internal/fetch"
	"sjsage522/listingscout/internal/listing"
)

// Default listing URLs
const (
	SalemURL       = "https://salemtechsperts.com/collections/laptops-for-sale"
	YCURL          = "https://www.workatastartup.com/internships"
	StartupJobsURL = "https://startup.jobs/?q=internship"
	WellfoundURL   = "https://wellfound.com/role/l/internship"
)

// SearchURL replaces the q parameter of a listing URL
func SearchURL(base, query string) string {
	if query == "" {
		return base
	}
	return withQuery(base, "q", query)
}

var titleSelectors = []string{"h3", "h4", ".product-title", ".product-name", ".product-card__title", "a"}

// defaultConfigs holds the fallback chains of each built-in source.
// Strategies are listed from the most specific marker to the most generic.
var defaultConfigs = map[listing.Source]AdapterConfig{
	listing.SourceSalem: {
		Source: listing.SourceSalem,
		Kind:   listing.KindLaptop,
		URL:    SalemURL,
		Pager:  QueryPager("page"),
		Cards: CardChain{
			SelectorStrategy(".product-item", CardSelectors{
				Item:   ".product-item",
				Link:   []string{`a[href*="/products/"]`, "a[href]"},
				Title:  titleSelectors,
				Price:  []string{".price", ".product-item__price", selfSelector},
				Status: []string{selfSelector},
			}),
			SelectorStrategy(".product-card", CardSelectors{
				Item:   ".product-card",
				Link:   []string{`a[href*="/products/"]`, "a[href]"},
				Title:  titleSelectors,
				Price:  []string{".price", ".product-card__price", selfSelector},
				Status: []string{selfSelector},
			}),
			SelectorStrategy(".grid-product", CardSelectors{
				Item:   ".grid-product",
				Link:   []string{`a[href*="/products/"]`, "a[href]"},
				Title:  append([]string{".grid-product__title"}, titleSelectors...),
				Price:  []string{".grid-product__price", selfSelector},
				Status: []string{selfSelector},
			}),
			JSONLDCards(),
			SelectorStrategy("product-link", CardSelectors{
				Item:   `a[href*="/products/"]`,
				Link:   []string{selfSelector},
				Title:  []string{"h3", "h4", ".product-title", ".product-name", selfSelector},
				Price:  []string{selfSelector},
				Status: []string{selfSelector},
			}),
		},
		Details: DetailChain{
			SelectorDetail(`[itemprop="description"]`),
			SelectorDetail(".product-single__description"),
			SelectorDetail(".product__description"),
			SelectorDetail(".product-description"),
			SelectorDetail(`div[id*="Description"]`),
			SelectorDetail(".product-details"),
			SelectorDetail(".product-info"),
			JSONLDDetail(),
			MainContentDetail(),
		},
		NextPage: []string{`a[rel="next"]`, "link[rel=\"next\"]", ".pagination .next a", ".pagination .next", ".pagination-next"},
		NextText: "Next",
	},
	listing.SourceYC: {
		Source: listing.SourceYC,
		Kind:   listing.KindJob,
		URL:    YCURL,
		Pager:  QueryPager("page"),
		Cards: CardChain{
			SelectorStrategy("div.w-full.bg-beige-lighter", CardSelectors{
				Item:     "div.w-full.bg-beige-lighter",
				Link:     []string{"a[data-jobid]", `a[href*="/jobs/"]`},
				Title:    []string{"a[data-jobid]", ".job-name a"},
				Company:  []string{"a[target='company'] span.font-bold", ".company-details span.font-bold"},
				Location: []string{".job-details span"},
				Pay:      []string{"[data-testid='salary']", ".salary"},
			}),
			SelectorStrategy("div.role-card", CardSelectors{
				Item:     "div.role-card",
				Link:     []string{"a.role-card__link", `a[href*="/jobs/"]`, "a[href]"},
				Title:    []string{".role-card__title", "h3"},
				Company:  []string{".role-card__company", "h4"},
				Location: []string{".role-card__location"},
				Pay:      []string{".role-card__salary", "[data-testid='salary']", ".salary"},
			}),
			SelectorStrategy("article[class*=role]", CardSelectors{
				Item:     "article[class*='role']",
				Link:     []string{`a[href*="/jobs/"]`, "a[href]"},
				Title:    []string{"h3", "h2"},
				Company:  []string{"h4", "[class*='company']"},
				Location: []string{"[class*='location']"},
				Pay:      []string{"[class*='salary']"},
			}),
			InlineStateCards(),
			JSONLDCards(),
		},
		Details: DetailChain{
			SelectorDetail("section#job-description"),
			SelectorDetail("div[data-testid='job-description']"),
			JSONLDDetail(),
			MainContentDetail(),
		},
		Pay:      []string{"[data-testid='salary']", ".salary", ".pay"},
		NextPage: []string{`a[rel="next"]`},
	},
	listing.SourceStartupJobs: {
		Source: listing.SourceStartupJobs,
		Kind:   listing.KindJob,
		URL:    StartupJobsURL,
		Pager:  QueryPager("page"),
		Cards: CardChain{
			SelectorStrategy("ul.jobs-list li", CardSelectors{
				Item:     "ul.jobs-list li",
				Link:     []string{"a.job-listing__link", "a[href]"},
				Title:    []string{".job-listing__title", "h3", "a.job-listing__link"},
				Company:  []string{".job-listing__company"},
				Location: []string{".job-listing__location"},
				Pay:      []string{".job-listing__salary"},
			}),
			SelectorStrategy("div[data-jk]", CardSelectors{
				Item:     "div[data-jk]",
				Link:     []string{"h2.jobTitle a", "a[data-jk]"},
				Title:    []string{"h2.jobTitle a", "a[data-jk]"},
				Company:  []string{"span[data-testid='company-name']", ".companyName"},
				Location: []string{"div[data-testid='job-location']", ".companyLocation"},
			}),
			SelectorStrategy("div.job_seen_beacon", CardSelectors{
				Item:     "div.job_seen_beacon",
				Link:     []string{"h2.jobTitle a", "a[data-jk]", "a[href]"},
				Title:    []string{"h2.jobTitle a", "a[data-jk]"},
				Company:  []string{"span[data-testid='company-name']", ".companyName"},
				Location: []string{"div[data-testid='job-location']", ".companyLocation"},
			}),
			JSONLDCards(),
			InlineStateCards(),
		},
		Details: DetailChain{
			SelectorDetail(".section--responsibilities"),
			SelectorDetail("div#jobDescriptionText"),
			SelectorDetail("div.jobsearch-jobDescriptionText"),
			JSONLDDetail(),
			MainContentDetail(),
		},
		Pay:      []string{".section--benefits", "span[data-testid='attribute_snippet_testid']", ".salary"},
		NextPage: []string{"a[aria-label='Next Page']", `a[rel="next"]`},
		NextText: "Next",
	},
	listing.SourceWellfound: {
		Source: listing.SourceWellfound,
		Kind:   listing.KindJob,
		URL:    WellfoundURL,
		Pager:  QueryPager("page"),
		Cards: CardChain{
			SelectorStrategy("div[data-test=job-card]", wellfoundCard("div[data-test='job-card']")),
			SelectorStrategy("div.job-card", wellfoundCard("div.job-card")),
			SelectorStrategy("div[class*=job]", wellfoundCard("div[class*='job']")),
			JSONLDCards(),
		},
		Details: DetailChain{
			SelectorDetail("[data-test='job-description']"),
			JSONLDDetail(),
			MainContentDetail(),
		},
		NextPage: []string{`a[rel="next"]`},
		ProbeMarkers: []string{
			`data-test="job-card"`,
			`class="job-card"`,
			`data-testid="job-card"`,
			"jobTitle",
			"companyName",
		},
		NoDetail: true,
	},
}

func wellfoundCard(item string) CardSelectors {
	return CardSelectors{
		Item:        item,
		Link:        []string{"a[href]"},
		Title:       []string{"[data-test='job-title']", ".job-title", "h3", "h2"},
		Company:     []string{"[data-test='company-name']", ".company-name", ".company", "span[class*='company']"},
		Location:    []string{"[data-test='job-location']", ".location", "span[class*='location']"},
		Pay:         []string{"[data-test='salary-range']", ".salary", "span[class*='salary']"},
		Description: []string{"[data-test='job-description']", ".description", "p"},
	}
}

// NewAdapter returns the adapter of a built-in source, with its URL overridden
// when the source config carries one.
func NewAdapter(sc SourceConfig) (*SourceAdapter, error) {
	config, ok := defaultConfigs[sc.Source]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", sc.Source)
	}
	if sc.URL != "" {
		config.URL = sc.URL
	}
	return NewSourceAdapter(config), nil
}

// CreateCrawlers builds one crawler per enabled source, in configured order.
func CreateCrawlers(cfg CrawlConfig, fetcher fetch.Fetcher) ([]*PaginatedCrawler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	crawlers := make([]*PaginatedCrawler, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		adapter, err := NewAdapter(sc)
		if err != nil {
			return nil, err
		}
		crawlers = append(crawlers, NewPaginatedCrawler(adapter, fetcher, cfg.MaxPages))
	}
	return crawlers, nil
}
