// Package store reads and conditionally rewrites the JSON document that records
// the last observed versions and digests.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"

	"github.com/moby/sys/atomicwriter"
	"github.com/rh-ecosystem-edge/versionsync/pkg/logging"
	"github.com/rh-ecosystem-edge/versionsync/pkg/syncerr"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// WriteMode selects how a changed document is written back.
type WriteMode string

const (
	// WriteAtomic writes a temporary file next to the document and renames it over the original.
	WriteAtomic WriteMode = "atomic"
	// WriteInPlace rewinds the open handle, rewrites it and truncates the leftover bytes.
	// A failure in the middle of the write can leave the document truncated.
	WriteInPlace WriteMode = "in-place"
)

// ParseWriteMode validates a configured write mode. Empty means WriteAtomic.
func ParseWriteMode(s string) (WriteMode, error) {
	switch WriteMode(s) {
	case "", WriteAtomic:
		return WriteAtomic, nil
	case WriteInPlace:
		return WriteInPlace, nil
	default:
		return "", fmt.Errorf("%w: unknown write mode %q", syncerr.ErrConfig, s)
	}
}

// Store gives access to one document on disk.
type Store struct {
	path   string
	mode   WriteMode
	logger *otelzap.Logger
}

// New creates a Store for path. The file itself must already exist.
func New(path string, mode WriteMode, logger *otelzap.Logger) *Store {
	if mode == "" {
		mode = WriteAtomic
	}
	return &Store{path: path, mode: mode, logger: logger}
}

// Path returns the document location.
func (s *Store) Path() string {
	return s.path
}

// Load reads and decodes the document.
func (s *Store) Load() (Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, s.openError(err)
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	return doc, nil
}

// Save replaces the document content with doc.
func (s *Store) Save(ctx context.Context, doc Document) error {
	_, err := s.update(ctx, func(current Document) bool {
		for k := range current {
			delete(current, k)
		}
		for k, v := range doc {
			current[k] = v
		}
		return true
	})
	return err
}

// Reconcile stores value at key unless it is already there. The file is not
// touched at all when nothing changes.
func (s *Store) Reconcile(ctx context.Context, key, value string) (bool, error) {
	changed, err := s.Patch(ctx, map[string]string{key: value})
	if err != nil {
		return false, err
	}
	return len(changed) > 0, nil
}

// Patch applies every value in one read-modify-write cycle and returns the
// sorted keys whose value changed.
func (s *Store) Patch(ctx context.Context, values map[string]string) ([]string, error) {
	logger := logging.C(ctx, s.logger)

	var changed []string
	_, err := s.update(ctx, func(doc Document) bool {
		for key, value := range values {
			old, ok := doc.Get(key)
			if ok && old == value {
				logger.Debug("Value unchanged", zap.String("key", key), zap.String("value", value))
				continue
			}
			logger.Info("New value detected",
				zap.String("key", key),
				zap.String("value", value),
				zap.Any("previous", doc[key]))
			doc.Set(key, value)
			changed = append(changed, key)
		}
		return len(changed) > 0
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(changed)
	return changed, nil
}

// update runs one read-modify-write cycle on a single handle, which is closed
// on every path. fn reports whether the document must be written back.
func (s *Store) update(ctx context.Context, fn func(Document) bool) (changed bool, err error) {
	f, err := os.OpenFile(s.path, os.O_RDWR, 0)
	if err != nil {
		return false, s.openError(err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", s.path, cerr)
		}
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", s.path, err)
	}
	doc, err := Decode(data)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", s.path, err)
	}

	if !fn(doc) {
		return false, nil
	}

	out, err := Encode(doc)
	if err != nil {
		return false, err
	}

	switch s.mode {
	case WriteInPlace:
		err = writeInPlace(f, out)
	default:
		err = writeAtomic(f, s.path, out)
	}
	if err != nil {
		return false, fmt.Errorf("writing %s: %w", s.path, err)
	}

	logging.C(ctx, s.logger).Debug("Document written",
		zap.String("path", s.path),
		zap.String("mode", string(s.mode)),
		zap.Int("bytes", len(out)))
	return true, nil
}

func (s *Store) openError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: document %s does not exist", syncerr.ErrConfig, s.path)
	}
	return fmt.Errorf("opening %s: %w", s.path, err)
}

func writeInPlace(f *os.File, data []byte) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Truncate(int64(len(data)))
}

func writeAtomic(f *os.File, path string, data []byte) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	return atomicwriter.WriteFile(path, data, info.Mode().Perm())
}
