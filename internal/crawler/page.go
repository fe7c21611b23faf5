package crawler

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"sjsage522/listingscout/helpers"
)

// Page is a fetched document parsed once and shared by every strategy.
type Page struct {
	URL string
	Raw string
	Doc *goquery.Document
}

// NewPage parses body as HTML. url is used to resolve relative links.
func NewPage(url string, body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return &Page{URL: url, Raw: string(body), Doc: doc}, nil
}

// Resolve turns href into an absolute URL relative to the page.
func (p *Page) Resolve(href string) string {
	return helpers.ResolveURL(p.URL, href)
}

// blockText returns the visible text of s with a space between text nodes,
// skipping script, style and noscript content.
func blockText(s *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "template", "svg":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return helpers.NormalizeSpace(b.String())
}

// selfSelector selects the card element itself
const selfSelector = ""

func selectIn(s *goquery.Selection, selector string) *goquery.Selection {
	if selector == selfSelector {
		return s
	}
	return s.Find(selector).First()
}

// firstText tries selectors in order and returns the first non-empty text.
func firstText(s *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		sel := selectIn(s, selector)
		if sel.Length() == 0 {
			continue
		}
		if text := blockText(sel); text != "" {
			return text
		}
		if title, ok := sel.Attr("title"); ok && strings.TrimSpace(title) != "" {
			return helpers.NormalizeSpace(title)
		}
	}
	return ""
}

// firstHref tries selectors in order and returns the first resolvable link.
func firstHref(p *Page, s *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		sel := selectIn(s, selector)
		if sel.Length() == 0 {
			continue
		}
		if href, ok := sel.Attr("href"); ok {
			if abs := p.Resolve(href); abs != "" {
				return abs
			}
		}
	}
	return ""
}
