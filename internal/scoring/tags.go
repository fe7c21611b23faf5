package scoring

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"sjsage522/listingscout/internal/listing"
)

// Category is a named keyword set. Keywords are lowercase and hold one or two words.
type Category struct {
	Name     string
	Keywords []string
}

// RoleTemplate maps role-title tokens to a starter stack.
type RoleTemplate struct {
	Category string
	Tokens   []string
	Tags     []string
}

// TagRules configures tag inference.
type TagRules struct {
	Categories []Category
	// Labels overrides the display form of a keyword; others are title-cased.
	Labels map[string]string
	// Roles are tried in order when the text matches no keyword.
	Roles []RoleTemplate
	// DefaultTemplate is used when no role matches the title
	DefaultTemplate []string
	// DomainHints appends one tag when the company or listing host ends with the suffix.
	DomainHints    map[string]string
	MaxPerCategory int
	MinTags        int
	MaxTags        int
}

// DefaultTagRules returns the built-in category tables
func DefaultTagRules() TagRules {
	return TagRules{
		Categories: []Category{
			{"languages", []string{"python", "java", "javascript", "typescript", "go", "rust", "ruby", "c++", "c#", "swift", "kotlin"}},
			{"web", []string{"react", "vue", "angular", "node", "django", "flask", "fastapi", "graphql"}},
			{"cloud", []string{"aws", "azure", "gcp", "docker", "kubernetes", "terraform"}},
			{"data", []string{"sql", "postgres", "mysql", "mongodb", "spark", "pandas", "numpy"}},
			{"mobile", []string{"android", "ios", "react native", "flutter"}},
			{"ml", []string{"machine learning", "deep learning", "pytorch", "tensorflow", "mlops"}},
			{"devops", []string{"ci/cd", "github actions", "jenkins", "devops"}},
			{"security", []string{"security", "penetration testing", "iam", "oauth"}},
			{"product", []string{"figma", "jira", "notion"}},
		},
		Labels: map[string]string{
			"aws": "AWS", "gcp": "Google Cloud", "ci/cd": "CI/CD", "iam": "IAM",
			"sql": "SQL", "mysql": "MySQL", "mongodb": "MongoDB", "numpy": "NumPy",
			"javascript": "JavaScript", "typescript": "TypeScript", "node": "Node.js",
			"fastapi": "FastAPI", "graphql": "GraphQL", "ios": "iOS", "oauth": "OAuth",
			"pytorch": "PyTorch", "tensorflow": "TensorFlow", "mlops": "MLOps",
			"github actions": "GitHub Actions", "devops": "DevOps",
		},
		Roles: []RoleTemplate{
			{"backend", []string{"backend", "back-end", "server", "api"}, []string{"Python", "REST APIs", "Postgres", "Docker"}},
			{"frontend", []string{"frontend", "front-end", "ui", "web"}, []string{"TypeScript", "React", "CSS", "Design Systems"}},
			{"fullstack", []string{"fullstack", "full-stack", "full stack"}, []string{"JavaScript", "React", "Node.js", "SQL"}},
			{"data", []string{"data", "analytics", "bi"}, []string{"Python", "Pandas", "SQL", "Data Visualization"}},
			{"ml", []string{"ml", "machine learning", "ai"}, []string{"Python", "TensorFlow", "Model Evaluation"}},
			{"mobile", []string{"mobile", "android", "ios"}, []string{"Kotlin", "Android Studio", "REST APIs"}},
			{"security", []string{"security", "infosec"}, []string{"Python", "Security Auditing", "IAM"}},
			{"product", []string{"product", "ux", "designer"}, []string{"Figma", "User Research", "A/B Testing"}},
		},
		DefaultTemplate: []string{"JavaScript", "React", "Node.js", "SQL"},
		DomainHints:     map[string]string{".ai": "Machine Learning Foundations"},
		MaxPerCategory:  2,
		MinTags:         3,
		MaxTags:         7,
	}
}

var tokenRegex = regexp.MustCompile(`[a-z0-9+#]+(?:[/\-][a-z0-9+#]+)*`)

// Tokenize lowercases text and splits it into words. "c++", "ci/cd" and
// "back-end" stay whole; other punctuation separates words.
func Tokenize(text string) []string {
	return tokenRegex.FindAllString(strings.ToLower(text), -1)
}

type hit struct {
	keyword  string
	category int
	order    int
	score    float64
}

// TagInferer picks a short, diverse list of skills for a job listing.
type TagInferer struct {
	rules    TagRules
	keywords map[string]hit
}

// NewTagInferer indexes the category tables
func NewTagInferer(rules TagRules) *TagInferer {
	index := make(map[string]hit)
	order := 0
	for ci, c := range rules.Categories {
		for _, kw := range c.Keywords {
			kw = strings.ToLower(kw)
			if _, dup := index[kw]; dup {
				continue
			}
			index[kw] = hit{keyword: kw, category: ci, order: order}
			order++
		}
	}
	return &TagInferer{rules: rules, keywords: index}
}

// Infer returns between MinTags and MaxTags labels for l.
//
// Title, description and pay are tokenized into words and bigrams. At each
// position a bigram keyword is preferred over the single word it starts with.
// Keywords are weighted by word count times occurrences and picked round-robin
// across categories, at most MaxPerCategory from each, best category first.
// Short lists are topped up from the role template, and without any hit the
// role title alone selects the template.
func (t *TagInferer) Infer(l listing.Listing) []string {
	tokens := Tokenize(strings.Join([]string{l.Title, l.Description, l.Pay}, " "))
	hits := t.match(tokens)
	if len(hits) == 0 {
		return t.fallback(l)
	}
	return t.pad(t.selectDiverse(hits), t.template(l.Title))
}

func (t *TagInferer) match(tokens []string) []hit {
	found := make(map[string]*hit)
	count := func(kw string, weight float64) bool {
		h, ok := t.keywords[kw]
		if !ok {
			return false
		}
		if found[kw] == nil {
			hc := h
			found[kw] = &hc
		}
		found[kw].score += weight
		return true
	}
	for i := 0; i < len(tokens); i++ {
		if i+1 < len(tokens) && count(tokens[i]+" "+tokens[i+1], 2) {
			i++
			continue
		}
		count(tokens[i], 1)
	}

	out := make([]hit, 0, len(found))
	for _, h := range found {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].order < out[j].order
	})
	return out
}

func (t *TagInferer) selectDiverse(hits []hit) []string {
	// group per category, keeping the ranking inside each group
	groups := make(map[int][]hit)
	catScore := make(map[int]float64)
	var cats []int
	for _, h := range hits {
		if _, ok := groups[h.category]; !ok {
			cats = append(cats, h.category)
		}
		groups[h.category] = append(groups[h.category], h)
		catScore[h.category] += h.score
	}
	sort.SliceStable(cats, func(i, j int) bool {
		if catScore[cats[i]] != catScore[cats[j]] {
			return catScore[cats[i]] > catScore[cats[j]]
		}
		return cats[i] < cats[j]
	})

	var picked []string
	used := make(map[string]bool)
	add := func(h hit) {
		if !used[h.keyword] && len(picked) < t.rules.MaxTags {
			used[h.keyword] = true
			picked = append(picked, t.label(h.keyword))
		}
	}
	for round := 0; round < t.rules.MaxPerCategory; round++ {
		for _, c := range cats {
			if round < len(groups[c]) {
				add(groups[c][round])
			}
		}
	}
	// too few distinct categories: relax the per-category cap
	for _, h := range hits {
		if len(picked) >= t.rules.MinTags {
			break
		}
		add(h)
	}
	return picked
}

func (t *TagInferer) fallback(l listing.Listing) []string {
	tags := t.pad(nil, t.template(l.Title))
	if hint := t.domainHint(l); hint != "" && len(tags) < t.rules.MaxTags && !contains(tags, hint) {
		tags = append(tags, hint)
	}
	return tags
}

// template returns the starter stack of the first role whose tokens appear in title
func (t *TagInferer) template(title string) []string {
	tokens := Tokenize(title)
	words := make(map[string]bool, 2*len(tokens))
	for i, tok := range tokens {
		words[tok] = true
		if i+1 < len(tokens) {
			words[tok+" "+tokens[i+1]] = true
		}
	}
	for _, role := range t.rules.Roles {
		for _, tok := range role.Tokens {
			if words[tok] {
				return role.Tags
			}
		}
	}
	return t.rules.DefaultTemplate
}

// pad tops tags up to MinTags from the template, then caps at MaxTags.
func (t *TagInferer) pad(tags, template []string) []string {
	out := append([]string(nil), tags...)
	for _, tag := range template {
		if len(out) >= t.rules.MinTags && len(tags) > 0 {
			break
		}
		if len(out) >= t.rules.MaxTags {
			break
		}
		if !contains(out, tag) {
			out = append(out, tag)
		}
	}
	if len(out) > t.rules.MaxTags {
		out = out[:t.rules.MaxTags]
	}
	return out
}

func (t *TagInferer) domainHint(l listing.Listing) string {
	candidates := []string{strings.ToLower(l.Company)}
	if u, err := url.Parse(l.CanonicalURL); err == nil {
		candidates = append(candidates, strings.ToLower(u.Hostname()))
	}
	suffixes := make([]string, 0, len(t.rules.DomainHints))
	for s := range t.rules.DomainHints {
		suffixes = append(suffixes, s)
	}
	sort.Strings(suffixes)
	for _, s := range suffixes {
		for _, c := range candidates {
			if strings.HasSuffix(c, s) {
				return t.rules.DomainHints[s]
			}
		}
	}
	return ""
}

func (t *TagInferer) label(keyword string) string {
	if l, ok := t.rules.Labels[keyword]; ok {
		return l
	}
	words := strings.Fields(keyword)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
