package crawler

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/listingscout/internal/listing"
	apperrors "sjsage522/listingscout/pkg/errors"
)

// Adapter converts the pages of one source into partial listings.
type Adapter interface {
	// Source names the origin of the listings
	Source() listing.Source

	// Kind is the listing domain of the source
	Kind() listing.Kind

	// PageURL returns the address of listing page n, starting at 1
	PageURL(page int) string

	// ExtractListingCards returns the cards of a listing page, empty when no strategy matched
	ExtractListingCards(p *Page) []listing.PartialListing

	// ExtractDetail returns the description found on a detail page
	ExtractDetail(p *Page) string

	// HasNextPage reports whether the page shows an enabled next-page control
	HasNextPage(p *Page) bool
}

// Prober is implemented by adapters that can tell from the first page
// whether their markup is extractable at all.
type Prober interface {
	Probe(p *Page) error
}

// PayExtractor is implemented by adapters that can read pay from a detail page.
type PayExtractor interface {
	ExtractPay(p *Page) string
}

// DetailSkipper is implemented by adapters whose cards already carry everything
// the detail page would.
type DetailSkipper interface {
	SkipDetail() bool
}

// Pager builds the URL of a listing page from the source's base URL.
type Pager func(base string, page int) string

// QueryPager sets a page number query parameter.
func QueryPager(param string) Pager {
	return func(base string, page int) string {
		return withQuery(base, param, strconv.Itoa(page))
	}
}

// OffsetPager sets a result offset query parameter, size results per page.
func OffsetPager(param string, size int) Pager {
	return func(base string, page int) string {
		if page <= 1 {
			return base
		}
		return withQuery(base, param, strconv.Itoa((page-1)*size))
	}
}

func withQuery(base, key, value string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

// AdapterConfig describes one source: its pager, its fallback chains and its
// pagination controls.
type AdapterConfig struct {
	Source   listing.Source
	Kind     listing.Kind
	URL      string
	Pager    Pager
	Cards    CardChain
	Details  DetailChain
	Pay      []string
	NextPage []string
	// NextText matches an anchor by its visible text when no NextPage selector does.
	NextText string
	// ProbeMarkers must contain at least one substring found in the raw first page.
	ProbeMarkers []string
	NoDetail     bool
}

// SourceAdapter is the config-driven Adapter used by every built-in source.
type SourceAdapter struct {
	config AdapterConfig
}

// NewSourceAdapter creates an adapter from a config
func NewSourceAdapter(config AdapterConfig) *SourceAdapter {
	if config.Pager == nil {
		config.Pager = QueryPager("page")
	}
	return &SourceAdapter{config: config}
}

func (a *SourceAdapter) Source() listing.Source { return a.config.Source }
func (a *SourceAdapter) Kind() listing.Kind     { return a.config.Kind }
func (a *SourceAdapter) SkipDetail() bool       { return a.config.NoDetail }

// PageURL returns the address of listing page n
func (a *SourceAdapter) PageURL(page int) string {
	return a.config.Pager(a.config.URL, page)
}

// ExtractListingCards runs the card chain
func (a *SourceAdapter) ExtractListingCards(p *Page) []listing.PartialListing {
	cards, _ := a.MatchCards(p)
	return cards
}

// MatchCards runs the card chain and also returns the name of the strategy that matched.
func (a *SourceAdapter) MatchCards(p *Page) ([]listing.PartialListing, string) {
	return a.config.Cards.Run(p)
}

// ExtractDetail runs the detail chain
func (a *SourceAdapter) ExtractDetail(p *Page) string {
	text, _ := a.config.Details.Run(p)
	return text
}

// ExtractPay returns the first pay text found by the configured selectors.
func (a *SourceAdapter) ExtractPay(p *Page) string {
	if len(a.config.Pay) == 0 {
		return ""
	}
	return firstText(p.Doc.Selection, a.config.Pay)
}

// HasNextPage looks for an enabled next-page control.
func (a *SourceAdapter) HasNextPage(p *Page) bool {
	for _, selector := range a.config.NextPage {
		found := false
		p.Doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if !disabled(s) {
				found = true
			}
			return !found
		})
		if found {
			return true
		}
	}
	if a.config.NextText == "" {
		return false
	}
	found := false
	p.Doc.Find("a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(strings.TrimSpace(s.Text()), a.config.NextText) && !disabled(s) {
			found = true
		}
		return !found
	})
	return found
}

func disabled(s *goquery.Selection) bool {
	if s.HasClass("disabled") || s.HasClass("is-disabled") {
		return true
	}
	if v, ok := s.Attr("aria-disabled"); ok && v == "true" {
		return true
	}
	_, ok := s.Attr("disabled")
	return ok
}

// Probe declares the source infeasible when none of its markers is present.
func (a *SourceAdapter) Probe(p *Page) error {
	if len(a.config.ProbeMarkers) == 0 {
		return nil
	}
	for _, marker := range a.config.ProbeMarkers {
		if strings.Contains(p.Raw, marker) {
			return nil
		}
	}
	return apperrors.NewInfeasible(string(a.config.Source), "page carries no static job cards, it likely needs javascript rendering")
}
