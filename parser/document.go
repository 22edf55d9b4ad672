package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Node is a read-only view over one element of a parsed page. Selectors are
// CSS selectors evaluated beneath the node.
type Node interface {
	// Find returns every match in document order.
	Find(selector string) []Node
	// First returns the first match, if any.
	First(selector string) (Node, bool)
	// Text returns the element's text content, untrimmed.
	Text() string
	// Attr looks up an attribute on the element.
	Attr(name string) (string, bool)
	// Classes returns the class tokens in declaration order.
	Classes() []string
}

// Document is a parsed page plus the locator it was fetched from.
type Document interface {
	Node
	URL() *url.URL
}

// NewDocument parses an HTML body fetched from pageURL.
func NewDocument(body []byte, pageURL *url.URL) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc.Url = pageURL
	return &goqueryDocument{
		goqueryNode: goqueryNode{sel: doc.Selection},
		url:         pageURL,
	}, nil
}

// ParseHTML is a convenience for fixtures and tests.
func ParseHTML(html, pageURL string) (Document, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	return NewDocument([]byte(html), u)
}

type goqueryDocument struct {
	goqueryNode
	url *url.URL
}

func (d *goqueryDocument) URL() *url.URL {
	return d.url
}

type goqueryNode struct {
	sel *goquery.Selection
}

func (n goqueryNode) Find(selector string) []Node {
	matches := n.sel.Find(selector)
	nodes := make([]Node, 0, matches.Length())
	matches.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, goqueryNode{sel: s})
	})
	return nodes
}

func (n goqueryNode) First(selector string) (Node, bool) {
	match := n.sel.Find(selector).First()
	if match.Length() == 0 {
		return nil, false
	}
	return goqueryNode{sel: match}, true
}

func (n goqueryNode) Text() string {
	return n.sel.Text()
}

func (n goqueryNode) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

func (n goqueryNode) Classes() []string {
	class, ok := n.sel.Attr("class")
	if !ok {
		return nil
	}
	return strings.Fields(class)
}
