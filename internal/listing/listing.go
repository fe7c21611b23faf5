package listing

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"time"

	"sjsage522/listingscout/helpers"
)

// MaxDescriptionLength bounds descriptions kept on a listing
const MaxDescriptionLength = 3000

// Source identifies where a listing was crawled from
type Source string

const (
	SourceSalem       Source = "salem"
	SourceYC          Source = "yc"
	SourceStartupJobs Source = "startup_jobs"
	SourceWellfound   Source = "wellfound"
)

// Kind is the listing domain
type Kind string

const (
	KindLaptop Kind = "laptop"
	KindJob    Kind = "job"
)

// Status is the availability of a listing
type Status string

const (
	StatusInStock Status = "in_stock"
	StatusSoldOut Status = "sold_out"
	StatusUnknown Status = "unknown"
	StatusOpen    Status = "open"
)

// Score names used by the laptop domain
const (
	ScoreBusiness = "business_score"
	ScoreServer   = "server_score"
)

// Price is a parsed amount. A listing without a price carries a nil *Price.
type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// PartialListing is what an extraction strategy can read off a page before
// identity and scores are assigned.
type PartialListing struct {
	CanonicalURL string
	Title        string
	Company      string
	Location     string
	Pay          string
	Price        *Price
	Status       Status
	Description  string
	FetchedAt    time.Time
}

// Listing is a scored, identified record. Values are not mutated after scoring.
type Listing struct {
	ID           string             `json:"id"`
	Source       Source             `json:"source"`
	Kind         Kind               `json:"kind"`
	CanonicalURL string             `json:"canonical_url"`
	Title        string             `json:"title"`
	Company      string             `json:"company,omitempty"`
	Location     string             `json:"location,omitempty"`
	Pay          string             `json:"pay,omitempty"`
	Price        *Price             `json:"price,omitempty"`
	Status       Status             `json:"status"`
	Description  string             `json:"description,omitempty"`
	Scores       map[string]float64 `json:"scores,omitempty"`
	Tags         []string           `json:"tags,omitempty"`
	FetchedAt    time.Time          `json:"fetched_at"`
}

// MakeID derives the dedup key of a listing from its source and canonical URL.
func MakeID(source Source, canonicalURL string) string {
	sum := sha256.Sum256([]byte(string(source) + "\x00" + canonicalURL))
	return hex.EncodeToString(sum[:])
}

// New builds a Listing from a partial record. Text fields are normalized and
// the description is truncated.
func New(source Source, kind Kind, p PartialListing) Listing {
	status := p.Status
	if status == "" {
		status = StatusUnknown
		if kind == KindJob {
			status = StatusOpen
		}
	}
	return Listing{
		ID:           MakeID(source, p.CanonicalURL),
		Source:       source,
		Kind:         kind,
		CanonicalURL: p.CanonicalURL,
		Title:        helpers.NormalizeSpace(p.Title),
		Company:      helpers.NormalizeSpace(p.Company),
		Location:     helpers.NormalizeSpace(p.Location),
		Pay:          helpers.NormalizeSpace(p.Pay),
		Price:        p.Price,
		Status:       status,
		Description:  helpers.Truncate(helpers.NormalizeSpace(p.Description), MaxDescriptionLength),
		FetchedAt:    p.FetchedAt,
	}
}

// Text is the corpus scored by the keyword rules.
func (l Listing) Text() string {
	parts := make([]string, 0, 4)
	for _, s := range []string{l.Title, l.Company, l.Pay, l.Description} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

var priceRegex = regexp.MustCompile(`(?i)(?:from\s*)?\$\s?(\d{1,3}(?:,\d{3})+|\d+)(\.\d{1,2})?`)

// ParsePrice reads the first dollar amount in text. "From $899" and "$1,299.99"
// are accepted. Returns nil when no amount is found.
func ParsePrice(text string) *Price {
	m := priceRegex.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	amount, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "")+m[2], 64)
	if err != nil {
		return nil
	}
	return &Price{Amount: amount, Currency: "USD"}
}

var (
	soldOutRegex = regexp.MustCompile(`\b(sold out|out of stock|unavailable|not available|no longer available)\b`)
	inStockRegex = regexp.MustCompile(`\b(in stock|available|add to cart)\b`)
)

// ParseStatus maps stock wording to a Status. Negative wording wins over
// positive wording found in the same text.
func ParseStatus(text string) Status {
	t := strings.ToLower(text)
	switch {
	case soldOutRegex.MatchString(t):
		return StatusSoldOut
	case inStockRegex.MatchString(t):
		return StatusInStock
	default:
		return StatusUnknown
	}
}
