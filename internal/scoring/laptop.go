package scoring

import (
	"math"

	"sjsage522/listingscout/internal/listing"
)

// LaptopRules holds the keyword tables of the laptop scores.
type LaptopRules struct {
	// CPU is a tier table: the best matching tier is added to both scores.
	CPU      RuleSet
	Business RuleSet
	Server   RuleSet
	// NeutralPrice stands in for the price of listings without one.
	NeutralPrice float64
}

// DefaultLaptopRules returns the built-in business and server tables.
// Each call returns fresh slices.
func DefaultLaptopRules() LaptopRules {
	return LaptopRules{
		CPU: RuleSet{
			{"i9", 10}, {"i7", 8}, {"i5", 6}, {"i3", 4},
			{"ryzen 9", 10}, {"ryzen 7", 8}, {"ryzen 5", 6}, {"ryzen 3", 4},
			{"m1", 9}, {"m2", 10}, {"m3", 11},
		},
		Business: RuleSet{
			{"lightweight", 3}, {"thin", 2}, {"ultrabook", 4}, {"portable", 2},
			{"battery", 2}, {"long battery", 3}, {"battery life", 2},
			{"ips", 1}, {"fhd", 1}, {"oled", 2},
			{"nvme", 2}, {"512gb", 1}, {"1tb", 2},
			{"gaming", -3}, {"rgb", -2}, {"3060", -2}, {"3070", -2}, {"3080", -2},
		},
		Server: RuleSet{
			{"16gb", 3}, {"32gb", 5}, {"64gb", 7}, {"ecc", 2},
			{"core", 1}, {"threads", 1}, {"thread", 1},
			{"nvme", 2}, {"ssd", 1}, {"2tb", 3},
			{"docker", 2}, {"proxmox", 3}, {"vm", 2}, {"virtualization", 2},
			{"ethernet", 1}, {"2.5g", 2}, {"10g", 3},
		},
		NeutralPrice: 1000,
	}
}

// LaptopScorer computes business_score and server_score
type LaptopScorer struct {
	rules LaptopRules
}

// NewLaptopScorer creates a scorer over the given tables
func NewLaptopScorer(rules LaptopRules) *LaptopScorer {
	return &LaptopScorer{rules: rules}
}

// Score scans title and description and divides each raw score by
// log(price + 10), so equal keyword density ranks cheaper machines higher.
func (s *LaptopScorer) Score(l listing.Listing) map[string]float64 {
	text := l.Title + " " + l.Description
	cpu := s.rules.CPU.Max(text)
	divisor := s.divisor(l.Price)
	return map[string]float64{
		listing.ScoreBusiness: (cpu + s.rules.Business.Scan(text)) / divisor,
		listing.ScoreServer:   (cpu + s.rules.Server.Scan(text)) / divisor,
	}
}

func (s *LaptopScorer) divisor(p *listing.Price) float64 {
	amount := s.rules.NeutralPrice
	if p != nil && p.Amount >= 0 {
		amount = p.Amount
	}
	return math.Log(amount + 10)
}
