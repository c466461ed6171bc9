// Package ledger implements the append-only CSV result ledger.
//
// A ledger file starts with the header image_path,<category...> and holds one
// row per classified image. Rows are appended with open-append-close and are
// never rewritten, read back or deduplicated by the writer: classifying the
// same image twice produces two rows. Concurrent writers to one file are not
// coordinated.
package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/qualitylab/partclass/internal/errors"
	"github.com/qualitylab/partclass/internal/logger"
)

// Decimals is the number of fractional digits written for probabilities.
const Decimals = 4

// retryDelay separates the first attempt and the single retry of the header
// creation and first row write.
var retryDelay = 50 * time.Millisecond

// Row is one classification result in schema order.
type Row struct {
	ImagePath     string
	Probabilities []float64
}

// Ledger appends rows to a CSV file under a fixed header.
type Ledger struct {
	path   string
	header []string

	mu      sync.Mutex
	written bool // first row of this handle has been written

	// openFile is swapped in tests to inject write failures
	openFile func(name string, flag int, perm os.FileMode) (*os.File, error)
}

// Open returns a ledger for path with the given header. Nothing is created
// until the first Append. If the file already exists its header must match
// exactly, so rows of different category schemas never mix in one file.
func Open(path string, header []string) (*Ledger, error) {
	if path == "" {
		return nil, errors.Newf("ledger path is empty").
			Category(errors.CategoryValidation).
			Build()
	}
	if len(header) < 2 {
		return nil, errors.Newf("ledger header needs image_path and at least one category, got %v", header).
			Category(errors.CategoryValidation).
			Build()
	}

	l := &Ledger{
		path:     path,
		header:   slices.Clone(header),
		openFile: os.OpenFile,
	}

	existing, err := readHeader(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, ledgerError(err, path, "read_header")
	case existing != nil && !slices.Equal(existing, l.header):
		return nil, errors.Newf("ledger %s has header %v, expected %v", path, existing, l.header).
			Category(errors.CategoryLedger).
			Context("path", path).
			Build()
	}

	return l, nil
}

// Path returns the ledger file path.
func (l *Ledger) Path() string { return l.path }

// Header returns a copy of the ledger header.
func (l *Ledger) Header() []string { return slices.Clone(l.header) }

// Append writes row to the ledger, creating the file with its header first
// when it does not exist. Header creation and the first row written by this
// handle are retried once; later rows are not retried.
func (l *Ledger) Append(row Row) error {
	if len(row.Probabilities) != len(l.header)-1 {
		return errors.Newf("row for %s has %d values, ledger has %d categories",
			row.ImagePath, len(row.Probabilities), len(l.header)-1).
			Category(errors.CategoryValidation).
			Context("path", l.path).
			Build()
	}
	record := FormatRecord(row)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.written {
		if err := l.appendRecord(record); err != nil {
			return ledgerError(err, l.path, "append_row")
		}
		return nil
	}

	err := l.writeFirst(record)
	if err != nil {
		GetLogger().Warn("Ledger write failed, retrying once",
			logger.String("path", l.path),
			logger.Error(err))
		time.Sleep(retryDelay)
		err = l.writeFirst(record)
	}
	if err != nil {
		return ledgerError(err, l.path, "first_write")
	}

	l.written = true
	return nil
}

// writeFirst creates the file with its header if needed and appends record.
func (l *Ledger) writeFirst(record []string) error {
	if err := l.ensureHeader(); err != nil {
		return err
	}
	return l.appendRecord(record)
}

// ensureHeader creates the ledger exclusively and writes the header. An
// existing file only gets a header when it is empty. A file this call
// created but could not finish is removed so that a retry starts clean.
func (l *Ledger) ensureHeader() error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := l.openFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if os.IsExist(err) {
		return l.headerIfEmpty()
	}
	if err != nil {
		return err
	}

	if err := writeRecords(f, l.header); err != nil {
		_ = f.Close()
		_ = os.Remove(l.path)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(l.path)
		return err
	}

	GetLogger().Info("Ledger created",
		logger.String("path", l.path),
		logger.Int("categories", len(l.header)-1))
	return nil
}

// headerIfEmpty writes the header into an existing zero-length file.
func (l *Ledger) headerIfEmpty() error {
	info, err := os.Stat(l.path)
	if err != nil {
		return err
	}
	if info.Size() > 0 {
		return nil
	}
	return l.appendRecord(l.header)
}

// appendRecord opens the ledger for appending, writes one record and closes it.
// A last line left without its newline by an interrupted writer is terminated
// first, and a failed write is truncated away so the file still ends on a
// complete line.
func (l *Ledger) appendRecord(record []string) error {
	f, err := l.openFile(l.path, os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	size := info.Size()

	if err := terminateLastLine(f, size); err != nil {
		_ = f.Truncate(size)
		_ = f.Close()
		return err
	}
	if err := writeRecords(f, record); err != nil {
		_ = f.Truncate(size)
		_ = f.Close()
		return err
	}
	return f.Close()
}

// terminateLastLine appends a newline when the file of the given size does
// not end with one.
func terminateLastLine(f *os.File, size int64) error {
	if size == 0 {
		return nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}
	GetLogger().Warn("Ledger did not end with a newline, terminating the last line",
		logger.String("path", f.Name()))
	_, err := f.Write([]byte{'\n'})
	return err
}

func writeRecords(w io.Writer, records ...[]string) error {
	return csv.NewWriter(w).WriteAll(records)
}

// FormatRecord renders row as CSV fields with fixed 4-decimal probabilities.
func FormatRecord(row Row) []string {
	record := make([]string, 0, len(row.Probabilities)+1)
	record = append(record, row.ImagePath)
	for _, p := range row.Probabilities {
		record = append(record, strconv.FormatFloat(p, 'f', Decimals, 64))
	}
	return record
}

func ledgerError(err error, path, operation string) error {
	return errors.New(fmt.Errorf("ledger %s: %w", path, err)).
		Category(errors.CategoryLedger).
		Context("path", path).
		Context("operation", operation).
		Build()
}
