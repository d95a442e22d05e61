package crawler

import (
	"io"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
)

// Parser extracts the title and the outbound page links of one HTML file.
//
// Design decision: We use golang.org/x/net/html for parsing rather than
// regex because:
//  1. It correctly handles malformed HTML and attributes in any order
//  2. Only real <a> elements are considered, not text that looks like one
//  3. Attribute values are unescaped for us
type Parser struct {
	// page is the corpus-relative name of the file being parsed.
	// Relative hrefs are resolved against its directory.
	page string
}

// ParseResult contains the information extracted from one page.
type ParseResult struct {
	// Title is the page title from the <title> tag.
	Title string

	// Links contains every local link target, resolved to a cleaned
	// corpus-relative path, in document order. Duplicates are kept.
	Links []string

	// External counts hrefs that were not local links: other schemes,
	// absolute URLs with a host, or pure fragments.
	External int
}

// NewParser creates a parser for the page with the given corpus-relative name.
func NewParser(page string) *Parser {
	return &Parser{page: page}
}

// Parse parses HTML content and extracts the title and links.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Links: make([]string, 0),
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			p.processElement(n, result)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

// processElement handles HTML element nodes.
func (p *Parser) processElement(n *html.Node, result *ParseResult) {
	switch n.Data {
	case "title":
		if result.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			result.Title = strings.TrimSpace(n.FirstChild.Data)
		}

	case "a":
		href, ok := getAttr(n, "href")
		if !ok {
			return
		}
		if target := p.resolve(href); target != "" {
			result.Links = append(result.Links, target)
		} else {
			result.External++
		}
	}
}

// resolve turns an href into a cleaned corpus-relative path.
// It returns "" for hrefs that cannot name a page of the corpus.
//
// Design decision: Query strings and fragments are stripped because:
//  1. The corpus is a set of static files, so "a.html?x=1" is a.html
//  2. "a.html#top" is still a link to a.html
func (p *Parser) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if u.Scheme != "" || u.Host != "" || u.Opaque != "" {
		// javascript:, mailto:, tel:, data:, http://host/... and friends.
		return ""
	}

	if u.Path == "" {
		// "?page=2" refers to the page itself.
		return p.page
	}

	var target string
	if strings.HasPrefix(u.Path, "/") {
		target = path.Clean(strings.TrimPrefix(u.Path, "/"))
	} else {
		target = path.Join(path.Dir(p.page), u.Path)
	}
	if target == "." || target == ".." || strings.HasPrefix(target, "../") {
		return ""
	}
	return target
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}
