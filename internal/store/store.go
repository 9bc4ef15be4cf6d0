// Package store persists the final aggregate for later retrieval.
//
// The store is a single fixed-name text file treated as a last-write-wins
// sink: every write fully replaces the previous content, and reading
// distinguishes a store that was never written from one that exists but is
// empty.
package store

import (
	"errors"
	"fmt"
	"os"
	"strings"

	apperrors "github.com/clavet/spotmean/internal/errors"
)

// resultLineFormat is the persisted wire format. %v renders floats the way
// the CLI prints them: integral values without a decimal point, NaN as "NaN".
const resultLineFormat = "Final aggregate of USD prices of BTC: %v\n"

// Sentinel read states. Neither is a failure at the CLI level; they map to
// distinct user-facing messages.
var (
	// ErrAbsent reports that the store file was never created.
	ErrAbsent = errors.New("result store does not exist")
	// ErrEmpty reports that the store file exists but holds nothing.
	ErrEmpty = errors.New("result store is empty")
)

// FileStore persists the final aggregate as a single line of text.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore writing to the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file path backing the store.
func (s *FileStore) Path() string { return s.path }

// WriteAggregate replaces the store content with the formatted aggregate.
// The file is truncated, not appended, so the last write always wins.
func (s *FileStore) WriteAggregate(aggregate float64) error {
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return apperrors.WrapError(err, "create result file %s", s.path)
	}

	if _, err := fmt.Fprintf(f, resultLineFormat, aggregate); err != nil {
		f.Close()
		return apperrors.WrapError(err, "write result file %s", s.path)
	}
	if err := f.Close(); err != nil {
		return apperrors.WrapError(err, "close result file %s", s.path)
	}
	return nil
}

// ReadAggregate returns the persisted line without its trailing newline.
// It returns ErrAbsent when the file does not exist and ErrEmpty when it
// exists with zero length.
func (s *FileStore) ReadAggregate() (string, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrAbsent
		}
		return "", apperrors.WrapError(err, "stat result file %s", s.path)
	}
	if info.Size() == 0 {
		return "", ErrEmpty
	}

	content, err := os.ReadFile(s.path)
	if err != nil {
		return "", apperrors.WrapError(err, "read result file %s", s.path)
	}
	return strings.TrimRight(string(content), "\n"), nil
}
