// Package models defines data structures for the crawler.
package models

import "time"

// NotAvailable is recorded for an optional field the page did not provide:
// a rating outside the five-level scale or a missing cover image.
const NotAvailable = "N/A"

// Book is one extracted catalog item. Fields are set once by the extractor
// and never mutated afterwards.
type Book struct {
	Title        string  `csv:"title" json:"title"`
	Price        float64 `csv:"price" json:"price"`
	Rating       string  `csv:"rating" json:"rating"`
	Availability string  `csv:"availability" json:"availability"`
	Category     string  `csv:"category" json:"category"`
	ImageURL     string  `csv:"image_url" json:"image_url"`
	URL          string  `csv:"-" json:"url"`
}

// CrawlResult holds the overall result of a crawl run.
type CrawlResult struct {
	StartTime    time.Time
	EndTime      time.Time
	PageCount    int
	TotalCount   int
	FailureCount int
	Duplicates   int
	RequestCount int
	FailedURLs   []string
	ErrorsByType map[string]int

	// Aborted is set when traversal stopped before the catalog's last page.
	Aborted     bool
	AbortReason string
}

// Duration reports the wall-clock time the crawl took.
func (r *CrawlResult) Duration() time.Duration {
	if r == nil || r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}
