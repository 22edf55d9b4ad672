package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aluiziolira/bookcrawl/models"
	"github.com/aluiziolira/bookcrawl/parser"
)

// Header is the fixed column order of the CSV dataset.
var Header = []string{"title", "price", "rating", "availability", "category", "image_url"}

// WriteError reports an output destination that could not be written.
type WriteError struct {
	Path string
	Op   string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// atomicFile stages output in a temp file next to path and renames it over
// path on commit, so readers see either the previous dataset or the new one.
type atomicFile struct {
	path string
	tmp  *os.File
	done bool
}

func newAtomicFile(path string) (*atomicFile, error) {
	if err := ensureDir(path); err != nil {
		return nil, &WriteError{Path: path, Op: "create directory", Err: err}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, &WriteError{Path: path, Op: "create", Err: err}
	}
	return &atomicFile{path: path, tmp: tmp}, nil
}

func (af *atomicFile) commit() error {
	if af.done {
		return nil
	}
	af.done = true

	if err := af.tmp.Sync(); err != nil {
		af.cleanup()
		return &WriteError{Path: af.path, Op: "sync", Err: err}
	}
	if err := af.tmp.Chmod(0o644); err != nil {
		af.cleanup()
		return &WriteError{Path: af.path, Op: "chmod", Err: err}
	}
	if err := af.tmp.Close(); err != nil {
		os.Remove(af.tmp.Name())
		return &WriteError{Path: af.path, Op: "close", Err: err}
	}
	if err := os.Rename(af.tmp.Name(), af.path); err != nil {
		os.Remove(af.tmp.Name())
		return &WriteError{Path: af.path, Op: "rename", Err: err}
	}
	return nil
}

// discard removes the staged file. It does nothing once the file has been
// committed or discarded.
func (af *atomicFile) discard() {
	if af.done {
		return
	}
	af.done = true
	af.cleanup()
}

func (af *atomicFile) cleanup() {
	af.tmp.Close()
	os.Remove(af.tmp.Name())
}

// CSVWriter writes records to CSV.
type CSVWriter struct {
	file   *atomicFile
	writer *csv.Writer
	failed bool
	mu     sync.Mutex
}

// NewCSVWriter stages a CSV file and writes the header row. The destination
// is replaced only when Close succeeds.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	f, err := newAtomicFile(filename)
	if err != nil {
		return nil, err
	}

	writer := csv.NewWriter(f.tmp)
	if err := writer.Write(Header); err != nil {
		f.discard()
		return nil, &WriteError{Path: filename, Op: "write header", Err: err}
	}

	return &CSVWriter{
		file:   f,
		writer: writer,
	}, nil
}

// Write appends books to the CSV output.
func (cw *CSVWriter) Write(books []*models.Book) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, book := range books {
		if err := cw.writer.Write(csvRecord(book)); err != nil {
			cw.failed = true
			return &WriteError{Path: cw.file.path, Op: "write record", Err: err}
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		cw.failed = true
		return &WriteError{Path: cw.file.path, Op: "flush", Err: err}
	}
	return nil
}

// Close flushes and commits the file. After a failed Write the staged file
// is discarded and the previous output is left untouched.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.failed {
		cw.file.discard()
		return nil
	}

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		cw.file.discard()
		return &WriteError{Path: cw.file.path, Op: "flush", Err: err}
	}
	return cw.file.commit()
}

// Discard drops the staged file and leaves the previous output in place.
func (cw *CSVWriter) Discard() {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.failed = true
	cw.file.discard()
}

// Validate ensures the committed file has at least the header.
func (cw *CSVWriter) Validate() error {
	return validateOutput(cw.file.path, "csv")
}

func csvRecord(book *models.Book) []string {
	return []string{
		book.Title,
		parser.FormatPrice(book.Price),
		book.Rating,
		book.Availability,
		book.Category,
		book.ImageURL,
	}
}

// JSONWriter writes newline-delimited JSON records.
type JSONWriter struct {
	file    *atomicFile
	writer  *bufio.Writer
	encoder *json.Encoder
	failed  bool
	mu      sync.Mutex
}

// NewJSONWriter stages a JSON Lines file.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	f, err := newAtomicFile(filename)
	if err != nil {
		return nil, err
	}

	buffer := bufio.NewWriter(f.tmp)
	return &JSONWriter{
		file:    f,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends books in JSONL format.
func (jw *JSONWriter) Write(books []*models.Book) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, book := range books {
		if err := jw.encoder.Encode(book); err != nil {
			jw.failed = true
			return &WriteError{Path: jw.file.path, Op: "encode record", Err: err}
		}
	}

	if err := jw.writer.Flush(); err != nil {
		jw.failed = true
		return &WriteError{Path: jw.file.path, Op: "flush", Err: err}
	}

	return nil
}

// Close flushes buffers and commits the file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.failed {
		jw.file.discard()
		return nil
	}

	if err := jw.writer.Flush(); err != nil {
		jw.file.discard()
		return &WriteError{Path: jw.file.path, Op: "flush", Err: err}
	}
	return jw.file.commit()
}

// Discard drops the staged file and leaves the previous output in place.
func (jw *JSONWriter) Discard() {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	jw.failed = true
	jw.file.discard()
}

// Validate ensures the committed JSON file exists. An empty crawl yields an
// empty file, which is valid.
func (jw *JSONWriter) Validate() error {
	if _, err := os.Stat(jw.file.path); err != nil {
		return fmt.Errorf("stat json file: %w", err)
	}
	return nil
}

func validateOutput(path, kind string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s file: %w", kind, err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("%s file is empty", kind)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
