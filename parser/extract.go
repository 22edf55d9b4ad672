package parser

import (
	"net/url"
	"strings"

	"github.com/aluiziolira/bookcrawl/models"
)

// Detail page anchors.
const (
	selTitle        = "h1"
	selPrice        = "p.price_color"
	selRating       = "p.star-rating"
	selAvailability = "p.instock.availability"
	selBreadcrumb   = "ul.breadcrumb li"
	selImage        = "div.item.active img"

	categoryCrumb = 2
)

// ExtractBook reads one book out of its detail page. Image paths are resolved
// against siteBase rather than the page URL, matching how the catalog lays
// out its media directory.
//
// A missing or unrecognized rating, and a missing image, do not fail the
// extraction; the remaining anchors are required.
func ExtractBook(doc Document, sourceURL string, siteBase *url.URL) (*models.Book, error) {
	title := ""
	if node, ok := doc.First(selTitle); ok {
		title = strings.TrimSpace(node.Text())
	}
	if title == "" {
		return nil, missing(sourceURL, AnchorTitle)
	}

	priceNode, ok := doc.First(selPrice)
	if !ok {
		return nil, missing(sourceURL, AnchorPrice)
	}
	price, err := ParsePrice(priceNode.Text())
	if err != nil {
		return nil, invalid(sourceURL, AnchorPrice, err)
	}

	availability := ""
	if node, ok := doc.First(selAvailability); ok {
		availability = NormalizeAvailability(node.Text())
	}
	if availability == "" {
		return nil, missing(sourceURL, AnchorAvailability)
	}

	category := extractCategory(doc)
	if category == "" {
		return nil, missing(sourceURL, AnchorCategory)
	}

	return &models.Book{
		Title:        title,
		Price:        price,
		Rating:       extractRating(doc),
		Availability: availability,
		Category:     category,
		ImageURL:     extractImage(doc, siteBase),
		URL:          sourceURL,
	}, nil
}

func extractRating(doc Document) string {
	node, ok := doc.First(selRating)
	if !ok {
		return models.NotAvailable
	}
	classes := node.Classes()
	if len(classes) < 2 {
		return models.NotAvailable
	}
	return NormalizeRating(classes[1])
}

func extractCategory(doc Document) string {
	crumbs := doc.Find(selBreadcrumb)
	if len(crumbs) <= categoryCrumb {
		return ""
	}
	link, ok := crumbs[categoryCrumb].First("a")
	if !ok {
		return ""
	}
	return strings.TrimSpace(link.Text())
}

func extractImage(doc Document, siteBase *url.URL) string {
	node, ok := doc.First(selImage)
	if !ok {
		return models.NotAvailable
	}
	src, ok := node.Attr("src")
	if !ok || strings.TrimSpace(src) == "" {
		return models.NotAvailable
	}
	abs, err := ResolveRelative(siteBase, src)
	if err != nil {
		return models.NotAvailable
	}
	return abs
}
