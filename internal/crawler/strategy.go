package crawler

import (
	"github.com/PuerkitoBio/goquery"

	"sjsage522/listingscout/helpers"
	"sjsage522/listingscout/internal/listing"
)

// CardStrategy extracts listing cards from a page. An empty result lets the
// next strategy in the chain run.
type CardStrategy struct {
	Name    string
	Extract func(p *Page) []listing.PartialListing
}

// CardChain is an ordered fallback chain of card strategies.
type CardChain []CardStrategy

// Run returns the result of the first strategy yielding at least one card,
// together with its name. Results of different strategies are never merged.
func (c CardChain) Run(p *Page) ([]listing.PartialListing, string) {
	for _, strategy := range c {
		if strategy.Extract == nil {
			continue
		}
		if cards := strategy.Extract(p); len(cards) > 0 {
			return cards, strategy.Name
		}
	}
	return nil, ""
}

// DetailStrategy extracts a description from a detail page.
type DetailStrategy struct {
	Name    string
	Extract func(p *Page) string
}

// DetailChain is an ordered fallback chain of detail strategies.
type DetailChain []DetailStrategy

// Run returns the first non-empty description and the strategy that produced it.
func (c DetailChain) Run(p *Page) (string, string) {
	for _, strategy := range c {
		if strategy.Extract == nil {
			continue
		}
		if text := strategy.Extract(p); text != "" {
			return text, strategy.Name
		}
	}
	return "", ""
}

// CardSelectors configures a structural card strategy. Each field lists
// selectors relative to the card, tried in order; selfSelector ("") means
// the card element itself.
type CardSelectors struct {
	Item        string
	Link        []string
	Title       []string
	Company     []string
	Location    []string
	Pay         []string
	Price       []string
	Status      []string
	Description []string
}

// SelectorStrategy builds a card strategy over CSS selectors. Cards without a
// resolvable link are dropped since they have no identity. When several
// elements on one page point at the same URL, the first is kept and its
// empty fields are filled from the later ones.
func SelectorStrategy(name string, sel CardSelectors) CardStrategy {
	return CardStrategy{
		Name: name,
		Extract: func(p *Page) []listing.PartialListing {
			var cards []listing.PartialListing
			index := make(map[string]int)
			p.Doc.Find(sel.Item).Each(func(_ int, s *goquery.Selection) {
				card, ok := parseCard(p, s, sel)
				if !ok {
					return
				}
				if i, dup := index[card.CanonicalURL]; dup {
					cards[i] = fillEmpty(cards[i], card)
					return
				}
				index[card.CanonicalURL] = len(cards)
				cards = append(cards, card)
			})
			return cards
		},
	}
}

func parseCard(p *Page, s *goquery.Selection, sel CardSelectors) (listing.PartialListing, bool) {
	link := firstHref(p, s, sel.Link)
	if link == "" {
		return listing.PartialListing{}, false
	}
	card := listing.PartialListing{
		CanonicalURL: link,
		Title:        firstText(s, sel.Title),
		Company:      firstText(s, sel.Company),
		Location:     firstText(s, sel.Location),
		Pay:          firstText(s, sel.Pay),
		Description:  firstText(s, sel.Description),
	}
	if len(sel.Price) > 0 {
		card.Price = listing.ParsePrice(firstText(s, sel.Price))
	}
	if len(sel.Status) > 0 {
		card.Status = listing.ParseStatus(firstText(s, sel.Status))
	}
	return card, true
}

func fillEmpty(dst, src listing.PartialListing) listing.PartialListing {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if dst.Company == "" {
		dst.Company = src.Company
	}
	if dst.Location == "" {
		dst.Location = src.Location
	}
	if dst.Pay == "" {
		dst.Pay = src.Pay
	}
	if dst.Price == nil {
		dst.Price = src.Price
	}
	if dst.Status == "" || dst.Status == listing.StatusUnknown {
		if src.Status != "" {
			dst.Status = src.Status
		}
	}
	if dst.Description == "" {
		dst.Description = src.Description
	}
	return dst
}

// SelectorDetail returns the text of the first element matching selector.
func SelectorDetail(selector string) DetailStrategy {
	return DetailStrategy{
		Name: selector,
		Extract: func(p *Page) string {
			return blockText(p.Doc.Find(selector).First())
		},
	}
}

// MainContentDetail is the last resort of every detail chain: the text of
// <main>, or <body> when there is none, truncated.
func MainContentDetail() DetailStrategy {
	return DetailStrategy{
		Name: "main-content",
		Extract: func(p *Page) string {
			main := p.Doc.Find("main").First()
			if main.Length() == 0 {
				main = p.Doc.Find("body").First()
			}
			return helpers.Truncate(blockText(main), listing.MaxDescriptionLength)
		},
	}
}
