package scoring

import (
	"sort"

	"sjsage522/listingscout/internal/listing"
)

// Engine scores laptops and tags jobs. It holds no mutable state and gives
// the same output for the same input.
type Engine struct {
	laptops *LaptopScorer
	jobs    *TagInferer
}

// NewEngine creates an engine over the given rule tables
func NewEngine(laptop LaptopRules, tags TagRules) *Engine {
	return &Engine{
		laptops: NewLaptopScorer(laptop),
		jobs:    NewTagInferer(tags),
	}
}

// DefaultEngine uses the built-in tables
func DefaultEngine() *Engine {
	return NewEngine(DefaultLaptopRules(), DefaultTagRules())
}

// Score returns a copy of l carrying scores (laptops) or tags (jobs).
func (e *Engine) Score(l listing.Listing) listing.Listing {
	switch l.Kind {
	case listing.KindLaptop:
		l.Scores = e.laptops.Score(l)
		l.Tags = nil
	case listing.KindJob:
		l.Tags = e.jobs.Infer(l)
		l.Scores = nil
	}
	return l
}

// ScoreAll scores every listing, keeping order
func (e *Engine) ScoreAll(listings []listing.Listing) []listing.Listing {
	out := make([]listing.Listing, len(listings))
	for i, l := range listings {
		out[i] = e.Score(l)
	}
	return out
}

// TopN returns the n listings with the highest named score. Listings without
// that score are left out; ties keep input order.
func TopN(listings []listing.Listing, score string, n int) []listing.Listing {
	ranked := make([]listing.Listing, 0, len(listings))
	for _, l := range listings {
		if _, ok := l.Scores[score]; ok {
			ranked = append(ranked, l)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Scores[score] > ranked[j].Scores[score]
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
