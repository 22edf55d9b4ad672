package parser

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAnchor marks a structural anchor that is absent or empty.
	ErrMissingAnchor = errors.New("missing anchor")
	// ErrInvalidValue marks an anchor whose text cannot be converted.
	ErrInvalidValue = errors.New("invalid value")
)

// Anchor names reported by ExtractionError.
const (
	AnchorTitle        = "title"
	AnchorPrice        = "price"
	AnchorAvailability = "availability"
	AnchorCategory     = "category"
	AnchorItemLink     = "item_link"
	AnchorNextLink     = "next_link"
)

// ExtractionError reports which anchor of which page could not be read.
type ExtractionError struct {
	URL    string
	Anchor string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s from %s: %v", e.Anchor, e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func missing(url, anchor string) error {
	return &ExtractionError{URL: url, Anchor: anchor, Err: ErrMissingAnchor}
}

func invalid(url, anchor string, err error) error {
	return &ExtractionError{URL: url, Anchor: anchor, Err: fmt.Errorf("%w: %v", ErrInvalidValue, err)}
}
