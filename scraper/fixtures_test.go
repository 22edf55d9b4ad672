package scraper

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/aluiziolira/bookcrawl/config"
	"github.com/jarcoal/httpmock"
)

const testBaseURL = "http://example.test/"

type testItem struct {
	slug     string
	title    string
	price    string
	rating   string
	category string
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BaseURL = testBaseURL
	cfg.OutputFile = t.TempDir() + "/books.csv"
	return cfg
}

func newTestScraper(t *testing.T, cfg *config.Config, transport *httpmock.MockTransport) *Scraper {
	t.Helper()
	s, err := NewScraper(cfg)
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	s.fetcher.(*Fetcher).collector.WithTransport(transport)
	return s
}

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html")
	return httpmock.ResponderFromResponse(resp)
}

func indexURL(page int) string {
	return fmt.Sprintf("%scatalogue/page-%d.html", testBaseURL, page)
}

func itemURL(slug string) string {
	return testBaseURL + "catalogue/" + slug + "/index.html"
}

func buildIndexPage(items []testItem, next string) string {
	var b strings.Builder
	b.WriteString(`<html><body><section><ol class="row">`)
	for _, item := range items {
		fmt.Fprintf(&b, `<li><article class="product_pod"><h3><a href="%s/index.html" title="%s">%s</a></h3></article></li>`, item.slug, item.title, item.title)
	}
	b.WriteString(`</ol><ul class="pager">`)
	if next != "" {
		fmt.Fprintf(&b, `<li class="next"><a href="%s">next</a></li>`, next)
	}
	b.WriteString(`</ul></section></body></html>`)
	return b.String()
}

func buildDetailPage(item testItem) string {
	var b strings.Builder
	b.WriteString(`<html><body><ul class="breadcrumb"><li><a href="../../index.html">Home</a></li>`)
	b.WriteString(`<li><a href="../category/books_1/index.html">Books</a></li>`)
	fmt.Fprintf(&b, `<li><a href="../category/books/x_2/index.html">%s</a></li>`, item.category)
	fmt.Fprintf(&b, `<li class="active">%s</li></ul>`, item.title)
	fmt.Fprintf(&b, `<div class="item active"><img src="../../media/cache/%s.jpg" alt="%s"/></div>`, item.slug, item.title)
	fmt.Fprintf(&b, `<div class="product_main"><h1>%s</h1>`, item.title)
	if item.price != "" {
		fmt.Fprintf(&b, `<p class="price_color">%s</p>`, item.price)
	}
	b.WriteString(`<p class="instock availability"><i class="icon-ok"></i>
    In stock (5 available)
</p>`)
	fmt.Fprintf(&b, `<p class="star-rating %s"></p></div></body></html>`, item.rating)
	return b.String()
}

// registerCatalog serves pages[i] as index page i+1, each linking to the next.
func registerCatalog(transport *httpmock.MockTransport, pages [][]testItem) {
	for i, items := range pages {
		next := ""
		if i < len(pages)-1 {
			next = fmt.Sprintf("page-%d.html", i+2)
		}
		transport.RegisterResponder(http.MethodGet, indexURL(i+1), htmlResponder(buildIndexPage(items, next)))
		for _, item := range items {
			transport.RegisterResponder(http.MethodGet, itemURL(item.slug), htmlResponder(buildDetailPage(item)))
		}
	}
}

// twoPageCatalog has three items on page one, the second without a price,
// and two items on page two.
func twoPageCatalog() [][]testItem {
	return [][]testItem{
		{
			{slug: "p1-item1_1", title: "Page One First", price: "£10.00", rating: "One", category: "Poetry"},
			{slug: "p1-item2_2", title: "Page One Second", price: "", rating: "Two", category: "Poetry"},
			{slug: "p1-item3_3", title: "Page One Third", price: "£12.50", rating: "Three", category: "Travel"},
		},
		{
			{slug: "p2-item1_4", title: "Page Two First", price: "£7.99", rating: "Four", category: "Fiction"},
			{slug: "p2-item2_5", title: "Page Two Second", price: "£0.50", rating: "Seven", category: "Fiction"},
		},
	}
}
