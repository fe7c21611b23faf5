package crawler

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/listingscout/internal/listing"
)

// JSONLDCards reads Product, JobPosting and ItemList entries from
// <script type="application/ld+json"> blocks.
func JSONLDCards() CardStrategy {
	return CardStrategy{
		Name: "json-ld",
		Extract: func(p *Page) []listing.PartialListing {
			var cards []listing.PartialListing
			seen := make(map[string]bool)
			for _, node := range jsonLDNodes(p) {
				walkJSONLD(node, func(obj map[string]any) {
					card, ok := jsonLDCard(p, obj)
					if !ok || seen[card.CanonicalURL] {
						return
					}
					seen[card.CanonicalURL] = true
					cards = append(cards, card)
				})
			}
			return cards
		},
	}
}

// JSONLDDetail reads the description of the first JobPosting or Product on a detail page.
func JSONLDDetail() DetailStrategy {
	return DetailStrategy{
		Name: "json-ld",
		Extract: func(p *Page) string {
			var text string
			for _, node := range jsonLDNodes(p) {
				walkJSONLD(node, func(obj map[string]any) {
					if text == "" && (hasType(obj, "JobPosting") || hasType(obj, "Product")) {
						text = htmlText(str(obj["description"]))
					}
				})
			}
			return text
		},
	}
}

func jsonLDNodes(p *Page) []any {
	var nodes []any
	p.Doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var v any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &v); err == nil {
			nodes = append(nodes, v)
		}
	})
	return nodes
}

// walkJSONLD visits every typed object, descending into @graph and ItemList entries.
func walkJSONLD(v any, visit func(map[string]any)) {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			walkJSONLD(item, visit)
		}
	case map[string]any:
		if graph, ok := t["@graph"]; ok {
			walkJSONLD(graph, visit)
		}
		if hasType(t, "ItemList") {
			walkJSONLD(t["itemListElement"], visit)
			return
		}
		if hasType(t, "ListItem") {
			if item, ok := t["item"].(map[string]any); ok {
				walkJSONLD(item, visit)
				return
			}
		}
		visit(t)
	}
}

func hasType(obj map[string]any, want string) bool {
	switch t := obj["@type"].(type) {
	case string:
		return t == want
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && s == want {
				return true
			}
		}
	}
	return false
}

func jsonLDCard(p *Page, obj map[string]any) (listing.PartialListing, bool) {
	link := p.Resolve(str(obj["url"]))
	if link == "" {
		return listing.PartialListing{}, false
	}
	switch {
	case hasType(obj, "Product"):
		card := listing.PartialListing{
			CanonicalURL: link,
			Title:        str(obj["name"]),
			Description:  htmlText(str(obj["description"])),
			Status:       listing.StatusUnknown,
		}
		if offer := firstObject(obj["offers"]); offer != nil {
			if amount, err := strconv.ParseFloat(str(offer["price"]), 64); err == nil {
				currency := str(offer["priceCurrency"])
				if currency == "" {
					currency = "USD"
				}
				card.Price = &listing.Price{Amount: amount, Currency: currency}
			}
			card.Status = schemaAvailability(str(offer["availability"]))
		}
		return card, true
	case hasType(obj, "JobPosting"):
		card := listing.PartialListing{
			CanonicalURL: link,
			Title:        str(obj["title"]),
			Description:  htmlText(str(obj["description"])),
		}
		switch org := obj["hiringOrganization"].(type) {
		case map[string]any:
			card.Company = str(org["name"])
		case string:
			card.Company = org
		}
		if loc := firstObject(obj["jobLocation"]); loc != nil {
			if addr, ok := loc["address"].(map[string]any); ok {
				card.Location = joinNonEmpty(", ", str(addr["addressLocality"]), str(addr["addressRegion"]))
			}
		}
		card.Pay = salaryText(obj["baseSalary"])
		return card, true
	case hasType(obj, "ListItem"):
		return listing.PartialListing{CanonicalURL: link, Title: str(obj["name"])}, true
	}
	return listing.PartialListing{}, false
}

func schemaAvailability(v string) listing.Status {
	v = strings.ToLower(v)
	switch {
	case strings.HasSuffix(v, "instock"), strings.HasSuffix(v, "limitedavailability"):
		return listing.StatusInStock
	case strings.HasSuffix(v, "outofstock"), strings.HasSuffix(v, "soldout"), strings.HasSuffix(v, "discontinued"):
		return listing.StatusSoldOut
	}
	return listing.StatusUnknown
}

func salaryText(v any) string {
	salary, ok := v.(map[string]any)
	if !ok {
		return str(v)
	}
	currency := str(salary["currency"])
	value, ok := salary["value"].(map[string]any)
	if !ok {
		return joinNonEmpty(" ", str(salary["value"]), currency)
	}
	amount := str(value["value"])
	if lo, hi := str(value["minValue"]), str(value["maxValue"]); lo != "" && hi != "" {
		amount = lo + "-" + hi
	}
	unit := strings.ToLower(str(value["unitText"]))
	if unit != "" {
		unit = "/" + unit
	}
	return joinNonEmpty(" ", amount+unit, currency)
}

// inline state markers, tried in order
var stateMarkers = []string{"window.__INITIAL_STATE__", `"jobs":`}

// InlineStateCards reads job records from a state blob inlined into the page
// by a client-side app, e.g. window.__INITIAL_STATE__ = {...}.
func InlineStateCards() CardStrategy {
	return CardStrategy{
		Name: "inline-state",
		Extract: func(p *Page) []listing.PartialListing {
			for _, marker := range stateMarkers {
				blob, ok := decodeAfter(p.Raw, marker)
				if !ok {
					continue
				}
				jobs := findJobs(blob, 0)
				if len(jobs) == 0 {
					continue
				}
				var cards []listing.PartialListing
				seen := make(map[string]bool)
				for _, job := range jobs {
					card, ok := stateJobCard(p, job)
					if !ok || seen[card.CanonicalURL] {
						continue
					}
					seen[card.CanonicalURL] = true
					cards = append(cards, card)
				}
				if len(cards) > 0 {
					return cards
				}
			}
			return nil
		},
	}
}

// decodeAfter decodes the first JSON object or array following marker in raw.
func decodeAfter(raw, marker string) (any, bool) {
	idx := strings.Index(raw, marker)
	if idx < 0 {
		return nil, false
	}
	rest := raw[idx+len(marker):]
	start := strings.IndexAny(rest, "{[")
	if start < 0 {
		return nil, false
	}
	var v any
	if err := json.NewDecoder(strings.NewReader(rest[start:])).Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}

// findJobs locates the job array inside a decoded blob.
func findJobs(v any, depth int) []map[string]any {
	if depth > 4 {
		return nil
	}
	switch t := v.(type) {
	case []any:
		var out []map[string]any
		for _, item := range t {
			if obj, ok := item.(map[string]any); ok {
				out = append(out, obj)
			}
		}
		return out
	case map[string]any:
		if jobs, ok := t["jobs"]; ok {
			if found := findJobs(jobs, depth+1); len(found) > 0 {
				return found
			}
		}
		for _, key := range sortedKeys(t) {
			if key == "jobs" {
				continue
			}
			if child, ok := t[key].(map[string]any); ok {
				if found := findJobs(child, depth+1); len(found) > 0 {
					return found
				}
			}
		}
	}
	return nil
}

func stateJobCard(p *Page, job map[string]any) (listing.PartialListing, bool) {
	link := p.Resolve(firstString(job, "url", "jobUrl", "path"))
	if link == "" {
		return listing.PartialListing{}, false
	}
	company := firstString(job, "companyName")
	if company == "" {
		if c, ok := job["company"].(map[string]any); ok {
			company = str(c["name"])
		} else {
			company = str(job["company"])
		}
	}
	description := htmlText(firstString(job, "description", "responsibilities"))
	if skills := stringList(job["skills"]); len(skills) > 0 {
		description = joinNonEmpty(" ", description, "Skills: "+strings.Join(skills, ", "))
	}
	return listing.PartialListing{
		CanonicalURL: link,
		Title:        firstString(job, "title", "roleTitle", "name"),
		Company:      company,
		Location:     firstString(job, "location", "locations"),
		Pay:          firstString(job, "salaryRange", "salary", "pay"),
		Description:  description,
	}, true
}

func firstObject(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case []any:
		for _, item := range t {
			if obj, ok := item.(map[string]any); ok {
				return obj
			}
		}
	}
	return nil
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := str(obj[k]); s != "" {
			return s
		}
	}
	return ""
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		return strings.Join(stringList(t), ", ")
	case nil:
		return ""
	default:
		return ""
	}
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		var s string
		if obj, ok := item.(map[string]any); ok {
			s = str(obj["name"])
		} else {
			s = str(item)
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// htmlText strips markup from a description that may carry HTML.
func htmlText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return blockText(doc.Selection)
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
