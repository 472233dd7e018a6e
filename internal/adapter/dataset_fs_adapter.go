package adapter

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	m "subsample.dev/pkg/subsample/internal/model"
)

// DatasetFSAdapter abstracts filesystem operations on the bound working copy.
// It hides direct `os` access so the binding and index logic can be tested
// against temp-dir fixtures.
type DatasetFSAdapter interface {
	// Walk traverses the working copy rooted at root. Entries are visited
	// with lstat metadata, so annex placeholder symlinks report their own
	// (tiny) size rather than following the link.
	Walk(root m.Path, fn WalkFunc) error

	// Lstat returns metadata for a path without following symlinks.
	Lstat(path m.Path) (os.FileInfo, error)

	// Stat returns metadata for a path, following symlinks. Used to size
	// annexed content after resolution.
	Stat(path m.Path) (os.FileInfo, error)

	// Exists reports whether a path exists (following symlinks).
	Exists(path m.Path) bool

	// Open opens a file for reading, following symlinks.
	Open(path m.Path) (io.ReadCloser, error)
}

// WalkFunc mirrors the callback shape of filepath.WalkDir. Defined here to
// avoid leaking the standard-library type into the domain layer.
type WalkFunc func(path string, entry fs.DirEntry, err error) error

// LocalDatasetFSAdapter is the concrete implementation backed by the OS.
type LocalDatasetFSAdapter struct{}

// NewLocalDatasetFSAdapter constructs a LocalDatasetFSAdapter.
func NewLocalDatasetFSAdapter() *LocalDatasetFSAdapter {
	return &LocalDatasetFSAdapter{}
}

// Walk implements DatasetFSAdapter.
func (a *LocalDatasetFSAdapter) Walk(root m.Path, fn WalkFunc) error {
	return filepath.WalkDir(string(root), fs.WalkDirFunc(fn))
}

// Lstat implements DatasetFSAdapter.
func (a *LocalDatasetFSAdapter) Lstat(path m.Path) (os.FileInfo, error) {
	return os.Lstat(string(path))
}

// Stat implements DatasetFSAdapter.
func (a *LocalDatasetFSAdapter) Stat(path m.Path) (os.FileInfo, error) {
	return os.Stat(string(path))
}

// Exists implements DatasetFSAdapter.
func (a *LocalDatasetFSAdapter) Exists(path m.Path) bool {
	_, err := os.Stat(string(path))
	return err == nil
}

// Open implements DatasetFSAdapter.
func (a *LocalDatasetFSAdapter) Open(path m.Path) (io.ReadCloser, error) {
	return os.Open(string(path))
}
