package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aluiziolira/bookcrawl/models"
)

// DualWriter stages the dataset as CSV and as JSON lines. The two files are
// committed together: if either write fails, neither destination changes.
type DualWriter struct {
	csv  *CSVWriter
	json *JSONWriter

	mu     sync.Mutex
	failed bool
}

// NewDualWriter stages both outputs. csvPath keeps the dataset header.
func NewDualWriter(csvPath, jsonPath string) (*DualWriter, error) {
	csvOut, err := NewCSVWriter(csvPath)
	if err != nil {
		return nil, fmt.Errorf("stage csv output: %w", err)
	}

	jsonOut, err := NewJSONWriter(jsonPath)
	if err != nil {
		csvOut.Discard()
		return nil, fmt.Errorf("stage json output: %w", err)
	}

	return &DualWriter{csv: csvOut, json: jsonOut}, nil
}

// Write hands books to both staged files.
func (dw *DualWriter) Write(books []*models.Book) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if err := dw.csv.Write(books); err != nil {
		dw.failed = true
		return fmt.Errorf("csv output: %w", err)
	}
	if err := dw.json.Write(books); err != nil {
		dw.failed = true
		return fmt.Errorf("json output: %w", err)
	}
	return nil
}

// Close commits both files, CSV first. After a failed Write both staged
// files are dropped instead.
func (dw *DualWriter) Close() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.failed {
		dw.csv.Discard()
		dw.json.Discard()
		return nil
	}

	if err := dw.csv.Close(); err != nil {
		dw.json.Discard()
		return fmt.Errorf("commit csv output: %w", err)
	}
	if err := dw.json.Close(); err != nil {
		return fmt.Errorf("commit json output: %w", err)
	}
	return nil
}

// Discard drops both staged files.
func (dw *DualWriter) Discard() {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	dw.failed = true
	dw.csv.Discard()
	dw.json.Discard()
}

// Validate checks both committed files.
func (dw *DualWriter) Validate() error {
	return errors.Join(dw.csv.Validate(), dw.json.Validate())
}
