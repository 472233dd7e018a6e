package domain

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/sync/singleflight"

	"subsample.dev/pkg/subsample/internal/adapter"
	m "subsample.dev/pkg/subsample/internal/model"
)

// manifestMarker must exist in a valid working copy. BIDS datasets carry it
// at the repository root.
const manifestMarker = "dataset_description.json"

// RepositoryBinding binds a local working copy to the remote dataset's
// metadata. Binding never transfers bulk content; annexed files stay
// placeholders until resolved one by one.
type RepositoryBinding interface {
	Bind(ctx context.Context, ref m.DatasetReference, localPath m.Path) (*BoundRepo, error)
}

type repositoryBinding struct {
	git              adapter.GitAdapter
	fs               adapter.DatasetFSAdapter
	pointerThreshold int64
	logger           *slog.Logger
}

// NewRepositoryBinding constructs a RepositoryBinding. Entries smaller than
// pointerThreshold bytes are treated as unresolved placeholders.
func NewRepositoryBinding(git adapter.GitAdapter, fsAdapter adapter.DatasetFSAdapter, pointerThreshold int64, logger *slog.Logger) RepositoryBinding {
	return &repositoryBinding{
		git:              git,
		fs:               fsAdapter,
		pointerThreshold: pointerThreshold,
		logger:           logger,
	}
}

// Bind clones the remote into localPath, or refreshes an existing binding
// instead of re-cloning. Re-entry on the same path is idempotent.
func (b *repositoryBinding) Bind(ctx context.Context, ref m.DatasetReference, localPath m.Path) (*BoundRepo, error) {
	gitDir := m.Path(filepath.Join(string(localPath), ".git"))
	marker := m.Path(filepath.Join(string(localPath), manifestMarker))

	if b.fs.Exists(gitDir) && b.fs.Exists(marker) {
		b.logger.Info("refreshing existing working copy", "path", localPath)

		if out, err := b.git.Pull(ctx, string(localPath)); err != nil {
			return nil, &RefreshError{Path: string(localPath), Cause: fmt.Errorf("%w: %s", err, strings.TrimSpace(out))}
		}

		return b.newBoundRepo(ref, localPath), nil
	}

	b.logger.Info("cloning dataset", "url", ref.RemoteURL, "path", localPath)

	if out, err := b.git.Clone(ctx, ref.RemoteURL, string(localPath)); err != nil {
		return nil, &CloneError{RemoteURL: ref.RemoteURL, Path: string(localPath), Cause: fmt.Errorf("%w: %s", err, strings.TrimSpace(out))}
	}

	if !b.fs.Exists(marker) {
		return nil, &CloneError{
			RemoteURL: ref.RemoteURL,
			Path:      string(localPath),
			Cause:     fmt.Errorf("dataset manifest %s missing after clone", manifestMarker),
		}
	}

	return b.newBoundRepo(ref, localPath), nil
}

func (b *repositoryBinding) newBoundRepo(ref m.DatasetReference, localPath m.Path) *BoundRepo {
	return &BoundRepo{
		ref:              ref,
		path:             localPath,
		git:              b.git,
		fs:               b.fs,
		pointerThreshold: b.pointerThreshold,
		logger:           b.logger,
	}
}

// BoundRepo owns the local working copy for the duration of one run. It must
// not be shared across concurrent runs on the same path.
type BoundRepo struct {
	ref              m.DatasetReference
	path             m.Path
	git              adapter.GitAdapter
	fs               adapter.DatasetFSAdapter
	pointerThreshold int64
	logger           *slog.Logger

	// flight collapses concurrent resolutions of the same path into a
	// single in-flight annex fetch.
	flight singleflight.Group
}

// Ref returns the dataset reference the repo is bound to.
func (r *BoundRepo) Ref() m.DatasetReference {
	return r.ref
}

// Path returns the working copy root.
func (r *BoundRepo) Path() m.Path {
	return r.path
}

// List walks the working copy and returns one entry per file, sized from
// lstat metadata so placeholders report their pointer size. VCS and annex
// internals (dot-directories) are skipped. When pattern is non-empty only
// base names matching it (filepath.Match syntax) are returned. No content is
// fetched.
func (r *BoundRepo) List(pattern string) ([]m.FileEntry, error) {
	var entries []m.FileEntry

	root := string(r.path)

	err := r.fs.Walk(r.path, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		name := entry.Name()

		if entry.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}

			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		if pattern != "" {
			matched, matchErr := filepath.Match(pattern, name)
			if matchErr != nil {
				return fmt.Errorf("bad list pattern %q: %w", pattern, matchErr)
			}

			if !matched {
				return nil
			}
		}

		info, infoErr := entry.Info()
		if infoErr != nil {
			return infoErr
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}

		entries = append(entries, m.FileEntry{
			RelativePath: m.Path(rel),
			Name:         name,
			SizeBytes:    info.Size(),
			Resolved:     info.Size() >= r.pointerThreshold && info.Mode()&fs.ModeSymlink == 0,
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list working copy %s: %w", r.path, err)
	}

	return entries, nil
}

// ResolveContent fetches the real bytes for one annexed path and returns the
// resulting content size. The call blocks until the fetch finishes; there is
// no implicit retry. Concurrent calls for the same path share one fetch,
// calls for different paths proceed independently.
func (r *BoundRepo) ResolveContent(ctx context.Context, relativePath m.Path) (int64, error) {
	size, err, _ := r.flight.Do(string(relativePath), func() (any, error) {
		out, err := r.git.AnnexGet(ctx, string(r.path), string(relativePath))
		if err != nil {
			r.logger.Warn("content resolution failed", "path", relativePath, "error", err)
			return int64(0), fmt.Errorf("annex get %s: %w: %s", relativePath, err, strings.TrimSpace(out))
		}

		info, statErr := r.fs.Stat(m.Path(filepath.Join(string(r.path), string(relativePath))))
		if statErr != nil {
			return int64(0), fmt.Errorf("stat resolved content %s: %w", relativePath, statErr)
		}

		r.logger.Debug("content resolved", "path", relativePath, "bytes", info.Size())

		return info.Size(), nil
	})
	if err != nil {
		return 0, err
	}

	return size.(int64), nil
}
