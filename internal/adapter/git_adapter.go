// Package adapter contains infrastructure adapters for the subsample CLI.
package adapter

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

// GitAdapter abstracts the version-control and content-resolution clients so
// the domain layer can be tested without git or git-annex installed.
type GitAdapter interface {
	// LsRemote probes the remote for existence. No content is transferred.
	LsRemote(ctx context.Context, remoteURL string) error

	// Clone clones the remote into dir. Returns the combined command output.
	Clone(ctx context.Context, remoteURL, dir string) (string, error)

	// Pull refreshes an existing working copy in dir.
	Pull(ctx context.Context, dir string) (string, error)

	// AnnexGet fetches the real content for one annexed path inside dir.
	AnnexGet(ctx context.Context, dir, relPath string) (string, error)
}

// LocalGitAdapter is the concrete implementation using os/exec.
type LocalGitAdapter struct {
	probeTimeout time.Duration
}

// NewLocalGitAdapter constructs a LocalGitAdapter with a default 30s probe
// timeout. Clone, pull and annex-get run under the caller's context.
func NewLocalGitAdapter() *LocalGitAdapter {
	return &LocalGitAdapter{
		probeTimeout: 30 * time.Second,
	}
}

// LsRemote runs 'git ls-remote <url> HEAD' to check the remote exists.
func (a *LocalGitAdapter) LsRemote(ctx context.Context, remoteURL string) error {
	ctx, cancel := context.WithTimeout(ctx, a.probeTimeout)
	defer cancel()

	_, err := a.run(ctx, "", "git", "ls-remote", "--exit-code", remoteURL, "HEAD")

	return err
}

// Clone runs 'git clone <url> <dir>'.
func (a *LocalGitAdapter) Clone(ctx context.Context, remoteURL, dir string) (string, error) {
	return a.run(ctx, "", "git", "clone", remoteURL, dir)
}

// Pull runs 'git pull' inside dir.
func (a *LocalGitAdapter) Pull(ctx context.Context, dir string) (string, error) {
	return a.run(ctx, dir, "git", "pull")
}

// AnnexGet runs 'git annex get <path>' inside dir. Getting an already-present
// file is a no-op for git-annex.
func (a *LocalGitAdapter) AnnexGet(ctx context.Context, dir, relPath string) (string, error) {
	return a.run(ctx, dir, "git", "annex", "get", relPath)
}

func (a *LocalGitAdapter) run(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	// Never block a run on a credential prompt.
	cmd.Env = append(cmd.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	output := stdout.String() + stderr.String()

	return output, err
}
