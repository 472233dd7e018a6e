package adapter

import (
	"fmt"
	"os/exec"
)

// ToolchainAdapter verifies the external clients a run depends on. It never
// installs anything; provisioning is a separate concern.
type ToolchainAdapter interface {
	// CheckClients returns an error naming the first missing client.
	CheckClients() error
}

// requiredClients are the executables a run shells out to.
var requiredClients = []string{"git", "git-annex"}

// LocalToolchainAdapter checks the local PATH.
type LocalToolchainAdapter struct{}

// NewLocalToolchainAdapter constructs a LocalToolchainAdapter.
func NewLocalToolchainAdapter() *LocalToolchainAdapter {
	return &LocalToolchainAdapter{}
}

// CheckClients implements ToolchainAdapter.
func (a *LocalToolchainAdapter) CheckClients() error {
	for _, client := range requiredClients {
		if _, err := exec.LookPath(client); err != nil {
			return fmt.Errorf("required client %q not found on PATH: %w", client, err)
		}
	}

	return nil
}
