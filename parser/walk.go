package parser

import (
	"net/url"
	"strings"
)

// Index page anchors.
const (
	selItemLink = "h3 > a"
	selNext     = "li.next"
)

// Listing is what one index page links to.
type Listing struct {
	Items []string
	Next  string
}

// HasNext reports whether the page continues the pagination chain.
func (l Listing) HasNext() bool {
	return l.Next != ""
}

// WalkListing collects the item links of an index page in document order and
// the next-page link, all resolved against catalogueBase.
func WalkListing(doc Document, catalogueBase *url.URL) (Listing, error) {
	pageURL := ""
	if u := doc.URL(); u != nil {
		pageURL = u.String()
	}

	var listing Listing
	for _, anchor := range doc.Find(selItemLink) {
		href, ok := anchor.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			continue
		}
		abs, err := ResolveRelative(catalogueBase, href)
		if err != nil {
			return Listing{}, invalid(pageURL, AnchorItemLink, err)
		}
		listing.Items = append(listing.Items, abs)
	}

	control, ok := doc.First(selNext)
	if !ok {
		return listing, nil
	}
	link, ok := control.First("a")
	if !ok {
		return listing, nil
	}
	href, ok := link.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return listing, nil
	}
	next, err := ResolveRelative(catalogueBase, href)
	if err != nil {
		return Listing{}, invalid(pageURL, AnchorNextLink, err)
	}
	listing.Next = next
	return listing, nil
}
