package listing

import (
	"regexp"
	"sort"
	"strings"
)

// Job types
const (
	JobTypeInternship = "internship"
	JobTypeFullTime   = "fulltime"
	JobTypeContract   = "contract"
	JobTypePartTime   = "parttime"
)

// Role categories
const (
	RoleBackend   = "backend"
	RoleFrontend  = "frontend"
	RoleFullstack = "fullstack"
	RoleData      = "data"
	RoleAI        = "ai"
	RoleMobile    = "mobile"
	RoleDevOps    = "devops"
	RoleProduct   = "product"
	RoleDesign    = "design"
)

var (
	internshipRegex = regexp.MustCompile(`(?i)\b(intern|interns|internship|internships|co-op|coop|student|trainee)\b`)
	contractRegex   = regexp.MustCompile(`(?i)\b(contract|contractor|freelance|temporary)\b`)
	partTimeRegex   = regexp.MustCompile(`(?i)\b(part[- ]?time)\b`)
)

// jobTypeSearch is the search phrase of each job type
var jobTypeSearch = map[string]string{
	JobTypeInternship: "internship",
	JobTypeFullTime:   "full time",
	JobTypeContract:   "contract",
	JobTypePartTime:   "part time",
}

type roleCategory struct {
	search string
	title  *regexp.Regexp
}

// roleCategories maps a category to its search phrase and the title words that place a job in it
var roleCategories = map[string]roleCategory{
	RoleBackend:   {"backend engineer", regexp.MustCompile(`(?i)\b(backend|back-end|back end|server|api|platform)\b`)},
	RoleFrontend:  {"frontend engineer", regexp.MustCompile(`(?i)\b(frontend|front-end|front end|ui|web)\b`)},
	RoleFullstack: {"full stack engineer", regexp.MustCompile(`(?i)\b(fullstack|full-stack|full stack)\b`)},
	RoleData:      {"data scientist data engineer", regexp.MustCompile(`(?i)\b(data|analytics|analyst|bi)\b`)},
	RoleAI:        {"machine learning AI engineer", regexp.MustCompile(`(?i)\b(ai|ml|machine learning|deep learning)\b`)},
	RoleMobile:    {"mobile developer iOS Android", regexp.MustCompile(`(?i)\b(mobile|ios|android)\b`)},
	RoleDevOps:    {"devops engineer", regexp.MustCompile(`(?i)\b(devops|sre|site reliability|infrastructure|cloud)\b`)},
	RoleProduct:   {"product manager", regexp.MustCompile(`(?i)\b(product|pm)\b`)},
	RoleDesign:    {"UX UI designer", regexp.MustCompile(`(?i)\b(design|designer|ux|ui)\b`)},
}

// JobTypes lists the accepted job types
func JobTypes() []string {
	return []string{JobTypeInternship, JobTypeFullTime, JobTypeContract, JobTypePartTime}
}

// RoleCategories lists the accepted role categories, sorted
func RoleCategories() []string {
	out := make([]string, 0, len(roleCategories))
	for name := range roleCategories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ValidJobType reports whether t is empty or a known job type
func ValidJobType(t string) bool {
	_, ok := jobTypeSearch[strings.ToLower(t)]
	return t == "" || ok
}

// ValidRoleCategory reports whether r is empty or a known role category
func ValidRoleCategory(r string) bool {
	_, ok := roleCategories[strings.ToLower(r)]
	return r == "" || ok
}

// Filter narrows job listings by job type, role category and keyword.
// Laptop listings pass through.
type Filter struct {
	Keywords     []string
	JobType      string
	RoleCategory string
}

// Active reports whether the filter would drop anything
func (f Filter) Active() bool {
	return len(f.Keywords) > 0 || f.JobType != "" || f.RoleCategory != ""
}

// Match reports whether l passes the filter.
//
// Internship, contract and part-time listings must say so in the title or
// description. Full-time is what is left: a listing passes unless it reads as
// one of the other three. The role category looks at the title only.
func (f Filter) Match(l Listing) bool {
	if l.Kind != KindJob {
		return true
	}
	if !matchJobType(strings.ToLower(f.JobType), l.Title+" "+l.Description) {
		return false
	}
	if role, ok := roleCategories[strings.ToLower(f.RoleCategory)]; ok && !role.title.MatchString(l.Title) {
		return false
	}
	if len(f.Keywords) == 0 {
		return true
	}
	haystack := strings.ToLower(l.Title + " " + l.Company + " " + l.Description)
	for _, kw := range f.Keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" && strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

func matchJobType(jobType, text string) bool {
	switch jobType {
	case JobTypeInternship:
		return internshipRegex.MatchString(text)
	case JobTypeContract:
		return contractRegex.MatchString(text)
	case JobTypePartTime:
		return partTimeRegex.MatchString(text)
	case JobTypeFullTime:
		return !internshipRegex.MatchString(text) && !contractRegex.MatchString(text) && !partTimeRegex.MatchString(text)
	default:
		return true
	}
}

// Apply returns the listings passing the filter, keeping their order.
func (f Filter) Apply(listings []Listing) []Listing {
	if !f.Active() {
		return listings
	}
	out := make([]Listing, 0, len(listings))
	for _, l := range listings {
		if f.Match(l) {
			out = append(out, l)
		}
	}
	return out
}

// SearchQuery joins the job type, role and keyword phrases into one search
// query. The job type defaults to internship.
func (f Filter) SearchQuery() string {
	parts := []string{jobTypeSearch[JobTypeInternship]}
	if phrase, ok := jobTypeSearch[strings.ToLower(f.JobType)]; ok {
		parts[0] = phrase
	}
	if role, ok := roleCategories[strings.ToLower(f.RoleCategory)]; ok {
		parts = append(parts, role.search)
	}
	for _, kw := range f.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			parts = append(parts, kw)
		}
	}
	return strings.Join(parts, " ")
}
