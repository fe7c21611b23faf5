package crawler

import "sjsage522/listingscout/internal/listing"

// collected is an insertion-ordered map from canonical URL to card.
// The first card stored under a URL keeps its position and its identity.
type collected struct {
	order []string
	items map[string]listing.PartialListing
}

func newCollected() *collected {
	return &collected{items: make(map[string]listing.PartialListing)}
}

// InsertIfAbsent stores card unless its URL is already present.
// It reports whether the card was stored.
func (c *collected) InsertIfAbsent(card listing.PartialListing) bool {
	if _, ok := c.items[card.CanonicalURL]; ok {
		return false
	}
	c.order = append(c.order, card.CanonicalURL)
	c.items[card.CanonicalURL] = card
	return true
}

// Replace swaps a stored card for a fully built one. Unknown URLs are ignored.
func (c *collected) Replace(card listing.PartialListing) {
	if _, ok := c.items[card.CanonicalURL]; ok {
		c.items[card.CanonicalURL] = card
	}
}

// Get returns the card stored under url
func (c *collected) Get(url string) (listing.PartialListing, bool) {
	card, ok := c.items[url]
	return card, ok
}

// Len returns the number of stored cards
func (c *collected) Len() int {
	return len(c.order)
}

// URLs returns the stored URLs in first-seen order
func (c *collected) URLs() []string {
	return append([]string(nil), c.order...)
}

// Values returns the stored cards in first-seen order
func (c *collected) Values() []listing.PartialListing {
	out := make([]listing.PartialListing, 0, len(c.order))
	for _, url := range c.order {
		out = append(out, c.items[url])
	}
	return out
}
