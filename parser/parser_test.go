package parser

import (
	"net/url"
	"testing"

	"github.com/aluiziolira/bookcrawl/models"
)

func TestValidateBook(t *testing.T) {
	tests := []struct {
		name    string
		book    *models.Book
		wantErr bool
	}{
		{
			name: "valid book",
			book: &models.Book{
				Title:        "Test Book",
				Price:        10,
				Rating:       "Five",
				Availability: "In stock",
				Category:     "Poetry",
				URL:          "http://example.com",
			},
			wantErr: false,
		},
		{
			name: "unknown rating is still valid",
			book: &models.Book{
				Title:        "Test Book",
				Price:        10,
				Rating:       models.NotAvailable,
				Availability: "In stock",
				Category:     "Poetry",
			},
			wantErr: false,
		},
		{
			name:    "nil book",
			book:    nil,
			wantErr: true,
		},
		{
			name: "missing title",
			book: &models.Book{
				Title:        "",
				Price:        10,
				Availability: "In stock",
				Category:     "Poetry",
			},
			wantErr: true,
		},
		{
			name: "negative price",
			book: &models.Book{
				Title:        "Test Book",
				Price:        -1,
				Availability: "In stock",
				Category:     "Poetry",
			},
			wantErr: true,
		},
		{
			name: "missing category",
			book: &models.Book{
				Title:        "Test Book",
				Price:        10,
				Availability: "In stock",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBook(tt.book)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBook() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "with currency symbol",
			input:    "£51.77",
			expected: "51.77",
		},
		{
			name:     "mis-decoded currency symbol",
			input:    "Â£51.77",
			expected: "51.77",
		},
		{
			name:     "with whitespace",
			input:    "  £10.50  ",
			expected: "10.50",
		},
		{
			name:     "already clean",
			input:    "25.99",
			expected: "25.99",
		},
		{
			name:     "multiple symbols",
			input:    "£ 99.99 £",
			expected: "99.99",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizePrice(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizePrice(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{input: "£51.77", want: 51.77},
		{input: "£0.00", want: 0},
		{input: "12.50", want: 12.5},
		{input: "", wantErr: true},
		{input: "£", wantErr: true},
		{input: "free", wantErr: true},
		{input: "£-3.00", wantErr: true},
		{input: "NaN", wantErr: true},
		{input: "Inf", wantErr: true},
		{input: "1,000.00", wantErr: true},
		{input: "£-0.00", wantErr: true},
		{input: "£1e3", wantErr: true},
		{input: "£0x1p4", wantErr: true},
		{input: "£+5", wantErr: true},
		{input: "£1_000", wantErr: true},
		{input: "£.5", wantErr: true},
		{input: "£5.", wantErr: true},
		{input: "£7", want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePrice(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePrice(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Fatalf("ParsePrice(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{input: 12.50, expected: "12.5"},
		{input: 51.77, expected: "51.77"},
		{input: 10, expected: "10"},
		{input: 0, expected: "0"},
		{input: 1234.5, expected: "1234.5"},
	}

	for _, tt := range tests {
		if got := FormatPrice(tt.input); got != tt.expected {
			t.Errorf("FormatPrice(%v) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestNormalizeRating(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "One", input: "One", expected: "One"},
		{name: "Two", input: "Two", expected: "Two"},
		{name: "Three", input: "Three", expected: "Three"},
		{name: "Four", input: "Four", expected: "Four"},
		{name: "Five", input: "Five", expected: "Five"},
		{name: "Zero", input: "Zero", expected: "N/A"},
		{name: "invalid rating", input: "Invalid", expected: "N/A"},
		{name: "empty string", input: "", expected: "N/A"},
		{name: "lowercase", input: "three", expected: "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeRating(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeRating(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeAvailability(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "with whitespace",
			input:    "  In stock (22 available)  ",
			expected: "In stock (22 available)",
		},
		{
			name:     "markup newlines",
			input:    "\n\n    \n    In stock (19 available)\n    \n",
			expected: "In stock (19 available)",
		},
		{
			name:     "no whitespace",
			input:    "In stock",
			expected: "In stock",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeAvailability(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeAvailability(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestResolveRelative(t *testing.T) {
	base, _ := url.Parse("https://books.toscrape.com/")
	catalogue, _ := url.Parse("https://books.toscrape.com/catalogue/")

	tests := []struct {
		name     string
		base     *url.URL
		href     string
		expected string
	}{
		{
			name:     "image from detail page",
			base:     base,
			href:     "../../media/cache/fe/72/fe72f0532301ec28892ae79a629a293c.jpg",
			expected: "https://books.toscrape.com/media/cache/fe/72/fe72f0532301ec28892ae79a629a293c.jpg",
		},
		{
			name:     "item link from catalogue page",
			base:     catalogue,
			href:     "a-light-in-the-attic_1000/index.html",
			expected: "https://books.toscrape.com/catalogue/a-light-in-the-attic_1000/index.html",
		},
		{
			name:     "item link from category page",
			base:     catalogue,
			href:     "../../../sharp-objects_997/index.html",
			expected: "https://books.toscrape.com/catalogue/sharp-objects_997/index.html",
		},
		{
			name:     "absolute link",
			base:     catalogue,
			href:     "http://other.test/x.html",
			expected: "http://other.test/x.html",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveRelative(tt.base, tt.href)
			if err != nil {
				t.Fatalf("ResolveRelative: %v", err)
			}
			if got != tt.expected {
				t.Fatalf("ResolveRelative(%q) = %q, want %q", tt.href, got, tt.expected)
			}
		})
	}
}
