// Package pkg provides small reusable utilities for subsample.
package pkg

import (
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileSpill buffers items of type T in a gob-encoded temp file instead of
// memory. The report aggregator uses it to hold per-subject results, which
// keeps large runs (datasets with thousands of subjects) off the heap.
type FileSpill[T any] interface {
	Len() uint64
	Path() string
	Append(item T) error
	Range(f func(index uint64, item T) error) error
	Close() error
}

type fileSpillImpl[T any] struct {
	path    string
	file    *os.File
	encoder *gob.Encoder
	mu      sync.Mutex
	length  uint64
}

// NewFileSpill creates a FileSpill backed by a fresh temp file. Close removes
// nothing; the file lives under the OS temp dir and is cleaned up with it.
func NewFileSpill[T any]() (FileSpill[T], error) {
	spillDir := filepath.Join(os.TempDir(), "subsample-spill")
	if err := os.MkdirAll(spillDir, 0o750); err != nil {
		return nil, fmt.Errorf("create spill directory: %w", err)
	}

	file, err := os.CreateTemp(spillDir, "spill-*.gob")
	if err != nil {
		return nil, fmt.Errorf("create spill file: %w", err)
	}

	slog.Debug("created filespill", "path", file.Name())

	return &fileSpillImpl[T]{
		path:    file.Name(),
		file:    file,
		encoder: gob.NewEncoder(file),
	}, nil
}

// Append encodes one item at the end of the spill file.
func (f *fileSpillImpl[T]) Append(item T) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.encoder.Encode(item); err != nil {
		slog.Error("failed to encode spill item", "path", f.path, "index", f.length, "error", err)
		return fmt.Errorf("encode spill item: %w", err)
	}

	f.length++

	return nil
}

// Len returns the number of items appended so far.
func (f *fileSpillImpl[T]) Len() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.length
}

// Path returns the location of the spill file.
func (f *fileSpillImpl[T]) Path() string {
	return f.path
}

// Range replays every item in append order. It stops at the first callback
// error and returns it.
func (f *fileSpillImpl[T]) Range(fn func(index uint64, item T) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.path)
	if err != nil {
		slog.Error("failed to open spill file for range", "path", f.path, "error", err)
		return fmt.Errorf("open spill file: %w", err)
	}

	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("failed to close spill file", "path", f.path, "error", err)
		}
	}()

	decoder := gob.NewDecoder(file)

	var item T

	for i := range f.length {
		if err := decoder.Decode(&item); err != nil {
			return fmt.Errorf("decode spill item at index %d: %w", i, err)
		}

		if err := fn(i, item); err != nil {
			return err
		}
	}

	return nil
}

// Close closes the underlying file handle.
func (f *fileSpillImpl[T]) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}

	if err := f.file.Close(); err != nil {
		slog.Error("failed to close filespill", "path", f.path, "error", err)
		return err
	}

	f.file = nil

	return nil
}
