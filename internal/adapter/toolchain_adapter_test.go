package adapter

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckClientsReportsFirstMissingClient(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	err := NewLocalToolchainAdapter().CheckClients()
	require.Error(t, err)
	require.Contains(t, err.Error(), `required client "git" not found`)
}

func TestCheckClientsPassesWhenClientsPresent(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake executables are built for unix shells")
	}

	bin := t.TempDir()
	for _, client := range requiredClients {
		require.NoError(t, os.WriteFile(filepath.Join(bin, client), []byte("#!/bin/sh\n"), 0o700))
	}

	t.Setenv("PATH", bin)

	require.NoError(t, NewLocalToolchainAdapter().CheckClients())
}

func TestCheckClientsReportsMissingAnnex(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake executables are built for unix shells")
	}

	bin := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bin, "git"), []byte("#!/bin/sh\n"), 0o700))

	t.Setenv("PATH", bin)

	err := NewLocalToolchainAdapter().CheckClients()
	require.Error(t, err)
	require.Contains(t, err.Error(), `"git-annex"`)
}
