package domain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"subsample.dev/pkg/subsample/internal/adapter"
	m "subsample.dev/pkg/subsample/internal/model"
)

const testPointerThreshold = 1024

func writeFixtureFile(t *testing.T, root string, rel string, size int) {
	t.Helper()

	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o600))
}

func newTestBinding(git adapter.GitAdapter) RepositoryBinding {
	return NewRepositoryBinding(git, adapter.NewLocalDatasetFSAdapter(), testPointerThreshold, discardLogger())
}

func TestBindClonesFreshWorkingCopy(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ds000001")
	pulled := false

	git := &fakeGitAdapter{
		clone: func(_ context.Context, _, cloneDir string) (string, error) {
			writeFixtureFile(t, cloneDir, ".git/HEAD", 10)
			writeFixtureFile(t, cloneDir, "dataset_description.json", 64)
			return "", nil
		},
		pull: func(_ context.Context, _ string) (string, error) {
			pulled = true
			return "", nil
		},
	}

	repo, err := newTestBinding(git).Bind(context.Background(), m.DatasetReference{ID: "ds000001", RemoteURL: "url"}, m.Path(dir))
	require.NoError(t, err)
	require.Equal(t, m.Path(dir), repo.Path())
	require.False(t, pulled)
}

func TestBindRefreshesExistingWorkingCopy(t *testing.T) {
	dir := t.TempDir()
	writeFixtureFile(t, dir, ".git/HEAD", 10)
	writeFixtureFile(t, dir, "dataset_description.json", 64)

	cloned := false
	pulled := false

	git := &fakeGitAdapter{
		clone: func(_ context.Context, _, _ string) (string, error) {
			cloned = true
			return "", nil
		},
		pull: func(_ context.Context, _ string) (string, error) {
			pulled = true
			return "", nil
		},
	}

	_, err := newTestBinding(git).Bind(context.Background(), m.DatasetReference{ID: "ds000001"}, m.Path(dir))
	require.NoError(t, err)
	require.True(t, pulled)
	require.False(t, cloned)
}

func TestBindFailsWithCloneError(t *testing.T) {
	git := &fakeGitAdapter{
		clone: func(_ context.Context, _, _ string) (string, error) {
			return "fatal: repository not found", errors.New("exit status 128")
		},
	}

	_, err := newTestBinding(git).Bind(context.Background(), m.DatasetReference{ID: "ds000001", RemoteURL: "url"}, m.Path(filepath.Join(t.TempDir(), "ds000001")))

	var cloneErr *CloneError
	require.ErrorAs(t, err, &cloneErr)
	require.Contains(t, cloneErr.Error(), "repository not found")
}

func TestBindFailsWhenManifestMarkerMissing(t *testing.T) {
	git := &fakeGitAdapter{
		clone: func(_ context.Context, _, cloneDir string) (string, error) {
			writeFixtureFile(t, cloneDir, ".git/HEAD", 10)
			return "", nil
		},
	}

	_, err := newTestBinding(git).Bind(context.Background(), m.DatasetReference{ID: "ds000001"}, m.Path(filepath.Join(t.TempDir(), "ds000001")))

	var cloneErr *CloneError
	require.ErrorAs(t, err, &cloneErr)
	require.Contains(t, cloneErr.Error(), "dataset_description.json")
}

func TestBindFailsWithRefreshError(t *testing.T) {
	dir := t.TempDir()
	writeFixtureFile(t, dir, ".git/HEAD", 10)
	writeFixtureFile(t, dir, "dataset_description.json", 64)

	git := &fakeGitAdapter{
		pull: func(_ context.Context, _ string) (string, error) {
			return "", errors.New("exit status 1")
		},
	}

	_, err := newTestBinding(git).Bind(context.Background(), m.DatasetReference{ID: "ds000001"}, m.Path(dir))

	var refreshErr *RefreshError
	require.ErrorAs(t, err, &refreshErr)
}

func bindFixtureRepo(t *testing.T, git adapter.GitAdapter) *BoundRepo {
	t.Helper()

	dir := t.TempDir()
	writeFixtureFile(t, dir, ".git/HEAD", 10)
	writeFixtureFile(t, dir, ".datalad/config", 10)
	writeFixtureFile(t, dir, "dataset_description.json", 64)
	writeFixtureFile(t, dir, "sub-01/eeg/sub-01_task-rest_eeg.set", 200)
	writeFixtureFile(t, dir, "sub-01/eeg/.hidden", 10)
	writeFixtureFile(t, dir, "sub-02/eeg/sub-02_task-rest_eeg.set", 4096)

	repo, err := newTestBinding(git).Bind(context.Background(), m.DatasetReference{ID: "ds000001"}, m.Path(dir))
	require.NoError(t, err)

	return repo
}

func TestListReturnsPlaceholderSizedEntries(t *testing.T) {
	repo := bindFixtureRepo(t, &fakeGitAdapter{})

	entries, err := repo.List("")
	require.NoError(t, err)

	byName := map[string]m.FileEntry{}
	for _, entry := range entries {
		byName[entry.Name] = entry
	}

	// VCS internals and dotfiles stay invisible.
	require.NotContains(t, byName, "HEAD")
	require.NotContains(t, byName, "config")
	require.NotContains(t, byName, ".hidden")

	small := byName["sub-01_task-rest_eeg.set"]
	require.False(t, small.Resolved)
	require.Equal(t, int64(200), small.SizeBytes)
	require.Equal(t, m.Path(filepath.Join("sub-01", "eeg", "sub-01_task-rest_eeg.set")), small.RelativePath)

	big := byName["sub-02_task-rest_eeg.set"]
	require.True(t, big.Resolved)
}

func TestListAppliesPattern(t *testing.T) {
	repo := bindFixtureRepo(t, &fakeGitAdapter{})

	entries, err := repo.List("sub-02*")
	require.NoError(t, err)

	require.Len(t, entries, 1)
	require.Equal(t, "sub-02_task-rest_eeg.set", entries[0].Name)
}

func TestResolveContentReturnsResultingSize(t *testing.T) {
	var repoDir string

	git := &fakeGitAdapter{
		annexGet: func(_ context.Context, dir, relPath string) (string, error) {
			// Simulate the annex replacing the placeholder with content.
			writeFixtureFile(t, dir, relPath, 5000)
			repoDir = dir
			return "", nil
		},
	}

	repo := bindFixtureRepo(t, git)

	size, err := repo.ResolveContent(context.Background(), m.Path("sub-01/eeg/sub-01_task-rest_eeg.set"))
	require.NoError(t, err)
	require.Equal(t, int64(5000), size)
	require.Equal(t, string(repo.Path()), repoDir)
}

func TestResolveContentPropagatesFetchErrors(t *testing.T) {
	git := &fakeGitAdapter{
		annexGet: func(_ context.Context, _, _ string) (string, error) {
			return "transfer failed", errors.New("exit status 1")
		},
	}

	repo := bindFixtureRepo(t, git)

	_, err := repo.ResolveContent(context.Background(), m.Path("sub-01/eeg/sub-01_task-rest_eeg.set"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "transfer failed")
}

func TestResolveContentCollapsesConcurrentCallsForSamePath(t *testing.T) {
	var (
		calls atomic.Int32
		once  sync.Once
	)

	started := make(chan struct{})
	release := make(chan struct{})

	git := &fakeGitAdapter{
		annexGet: func(_ context.Context, dir, relPath string) (string, error) {
			calls.Add(1)
			once.Do(func() { close(started) })
			<-release
			writeFixtureFile(t, dir, relPath, 5000)
			return "", nil
		},
	}

	repo := bindFixtureRepo(t, git)

	var wg sync.WaitGroup

	sizes := make([]int64, 2)
	errs := make([]error, 2)

	for i := range sizes {
		wg.Add(1)

		go func() {
			defer wg.Done()

			sizes[i], errs[i] = repo.ResolveContent(context.Background(), m.Path("sub-01/eeg/sub-01_task-rest_eeg.set"))
		}()
	}

	// Give both goroutines a chance to join the same flight, then let the
	// single fetch finish.
	<-started
	time.Sleep(100 * time.Millisecond)

	close(release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, sizes[0], sizes[1])
}
