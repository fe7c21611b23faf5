package scoring

import "strings"

// Rule adds Weight to a score when Pattern occurs in the text.
// Patterns are case-insensitive substrings and may span several words.
type Rule struct {
	Pattern string
	Weight  float64
}

// RuleSet is an ordered list of rules
type RuleSet []Rule

// Scan sums the weights of every distinct pattern found in text. A pattern
// counts once no matter how often it occurs, and a pattern listed twice is
// only counted the first time.
func (rs RuleSet) Scan(text string) float64 {
	var total float64
	for _, r := range rs.Matches(text) {
		total += r.Weight
	}
	return total
}

// Max returns the highest weight among the matching rules, or 0 when none match.
// It scores tiered signals such as CPU class, where only the best match counts.
func (rs RuleSet) Max(text string) float64 {
	var best float64
	for _, r := range rs.Matches(text) {
		if r.Weight > best {
			best = r.Weight
		}
	}
	return best
}

// Matches returns the rules whose pattern occurs in text, in rule order
func (rs RuleSet) Matches(text string) []Rule {
	lower := strings.ToLower(text)
	seen := make(map[string]bool, len(rs))
	var out []Rule
	for _, r := range rs {
		p := strings.ToLower(r.Pattern)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		if strings.Contains(lower, p) {
			out = append(out, r)
		}
	}
	return out
}
