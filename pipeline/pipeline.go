// Package pipeline accumulates crawled books and writes the dataset.
package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aluiziolira/bookcrawl/config"
	"github.com/aluiziolira/bookcrawl/models"
	"github.com/aluiziolira/bookcrawl/parser"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
	// ErrDuplicate is returned for a book whose item URL was already accepted.
	ErrDuplicate = errors.New("pipeline: duplicate item")
	// ErrInvalidRecord is returned for a book that fails validation.
	ErrInvalidRecord = errors.New("pipeline: invalid record")
)

// OutputWriter defines the interface for data output. Close commits the
// output; nothing is visible at the destination before it succeeds. Discard
// abandons staged output without touching the destination.
type OutputWriter interface {
	Write(books []*models.Book) error
	Close() error
	Discard()
	Validate() error
}

// Pipeline accumulates validated, de-duplicated books in arrival order and
// hands them to the writer in a single flush on Close.
type Pipeline struct {
	writer OutputWriter

	books []*models.Book
	seen  *lru.Cache[string, struct{}]

	metrics metrics

	mu     sync.Mutex
	closed bool
	err    error
}

// NewPipeline builds a pipeline whose de-duplication window holds
// cfg.DedupeMaxSize item URLs.
func NewPipeline(writer OutputWriter, cfg *config.Config) (*Pipeline, error) {
	seen, err := lru.New[string, struct{}](cfg.DedupeMaxSize)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}
	return &Pipeline{
		writer:  writer,
		seen:    seen,
		metrics: newMetrics(),
	}, nil
}

// Process validates book and appends it to the dataset.
func (p *Pipeline) Process(book *models.Book) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPipelineClosed
	}

	if err := parser.ValidateBook(book); err != nil {
		p.metrics.addValidation("invalid_record")
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	if book.URL != "" {
		if p.seen.Contains(book.URL) {
			p.metrics.addValidation("duplicate_url")
			return ErrDuplicate
		}
		p.seen.Add(book.URL, struct{}{})
	}

	p.books = append(p.books, book)
	p.metrics.incrementProcessed()
	return nil
}

// Seen reports whether an item URL is already part of the dataset.
func (p *Pipeline) Seen(itemURL string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seen.Contains(itemURL)
}

// Books returns the accumulated dataset in arrival order.
func (p *Pipeline) Books() []*models.Book {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*models.Book, len(p.books))
	copy(out, p.books)
	return out
}

// Len returns the number of accepted books.
func (p *Pipeline) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.books)
}

// Close writes every accumulated book and commits the output. It is safe to
// call more than once; later calls return the first result.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return p.err
	}
	p.closed = true

	if err := p.writer.Write(p.books); err != nil {
		p.err = fmt.Errorf("write dataset: %w", err)
		if closeErr := p.writer.Close(); closeErr != nil {
			p.err = errors.Join(p.err, closeErr)
		}
		return p.err
	}
	if err := p.writer.Close(); err != nil {
		p.err = fmt.Errorf("commit dataset: %w", err)
	}
	return p.err
}

// Discard closes the pipeline without writing anything. The previous output
// at the destination is left untouched. It is a no-op after Close.
func (p *Pipeline) Discard() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	p.writer.Discard()
}

// Err returns the error recorded by Close, if any.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"processed_books":   m.processed,
		"validation_errors": copyValidation,
	}
}
