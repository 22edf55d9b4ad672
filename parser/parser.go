// Package parser turns fetched catalog pages into books and listing links.
package parser

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/aluiziolira/bookcrawl/models"
)

var ratingLabels = map[string]struct{}{
	"One":   {},
	"Two":   {},
	"Three": {},
	"Four":  {},
	"Five":  {},
}

// ValidateBook ensures the extractor captured the required fields.
func ValidateBook(b *models.Book) error {
	if b == nil {
		return fmt.Errorf("book is nil")
	}
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("book missing title")
	}
	if b.Price < 0 || math.Signbit(b.Price) || math.IsNaN(b.Price) || math.IsInf(b.Price, 0) {
		return fmt.Errorf("book has invalid price for %s", b.Title)
	}
	if strings.TrimSpace(b.Availability) == "" {
		return fmt.Errorf("book missing availability for %s", b.Title)
	}
	if strings.TrimSpace(b.Category) == "" {
		return fmt.Errorf("book missing category for %s", b.Title)
	}
	return nil
}

// NormalizePrice removes the currency symbol and surrounding whitespace.
// The mis-decoded "Â£" form shows up when the page is read as Latin-1.
func NormalizePrice(price string) string {
	price = strings.TrimSpace(price)
	price = strings.ReplaceAll(price, "Â£", "")
	price = strings.ReplaceAll(price, "£", "")
	return strings.TrimSpace(price)
}

var priceShape = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// ParsePrice strips the currency and parses a plain non-negative decimal
// such as "51.77". Signs, exponents and digit separators are rejected.
func ParsePrice(text string) (float64, error) {
	cleaned := NormalizePrice(text)
	if cleaned == "" {
		return 0, fmt.Errorf("empty price")
	}
	if !priceShape.MatchString(cleaned) {
		return 0, fmt.Errorf("price %q is not a plain decimal", cleaned)
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", cleaned, err)
	}
	return value, nil
}

// FormatPrice renders a price as plain decimal text with no trailing zeros.
func FormatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}

// NormalizeAvailability collapses the whitespace runs the markup wraps the
// stock text in.
func NormalizeAvailability(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// NormalizeRating maps a star-rating class token to its label, or N/A when
// the token is not on the five-level scale.
func NormalizeRating(token string) string {
	token = strings.TrimSpace(token)
	if _, ok := ratingLabels[token]; ok {
		return token
	}
	return models.NotAvailable
}

// ResolveRelative drops leading "../" segments from href and resolves the
// remainder against base.
func ResolveRelative(base *url.URL, href string) (string, error) {
	href = strings.TrimSpace(href)
	for strings.HasPrefix(href, "../") {
		href = strings.TrimPrefix(href, "../")
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse link %q: %w", href, err)
	}
	return base.ResolveReference(ref).String(), nil
}
