package adapter

import (
	"context"
	"fmt"
	"io"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
)

// OutputStore receives the recordings selected by a run. Keys use forward
// slashes ("<subject>/<file>"); subject subdirectories come into existence on
// first write, which keeps concurrent creation attempts race-free.
type OutputStore interface {
	// Put writes one recording under key.
	Put(ctx context.Context, key string, r io.Reader) error

	// Close releases the underlying bucket.
	Close() error
}

// BlobOutputStore writes recordings through a gocloud.dev bucket. The default
// driver is fileblob (a local directory), but any registered driver works,
// which leaves the door open for object-store output folders.
type BlobOutputStore struct {
	bucket *blob.Bucket
}

// NewLocalOutputStore opens a fileblob bucket rooted at dir, creating the
// directory if needed.
func NewLocalOutputStore(dir string) (*BlobOutputStore, error) {
	// Metadata sidecar files would litter the output folder next to the
	// recordings, so they are disabled.
	bucket, err := fileblob.OpenBucket(dir, &fileblob.Options{
		CreateDir: true,
		Metadata:  fileblob.MetadataDontWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("open output folder %s: %w", dir, err)
	}

	return &BlobOutputStore{bucket: bucket}, nil
}

// NewBlobOutputStore wraps an already-open bucket.
func NewBlobOutputStore(bucket *blob.Bucket) *BlobOutputStore {
	return &BlobOutputStore{bucket: bucket}
}

// Put implements OutputStore.
func (s *BlobOutputStore) Put(ctx context.Context, key string, r io.Reader) error {
	w, err := s.bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("open writer for %s: %w", key, err)
	}

	if _, err := io.Copy(w, r); err != nil {
		// Abort the write so no partial object is committed.
		_ = w.Close()
		return fmt.Errorf("copy %s: %w", key, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("commit %s: %w", key, err)
	}

	return nil
}

// Close implements OutputStore.
func (s *BlobOutputStore) Close() error {
	return s.bucket.Close()
}
