package domain

import "fmt"

// UnreachableDatasetError aborts a run before any clone attempt.
type UnreachableDatasetError struct {
	ID        string
	RemoteURL string
}

func (e *UnreachableDatasetError) Error() string {
	return fmt.Sprintf("dataset %s is not reachable at %s", e.ID, e.RemoteURL)
}

// CloneError indicates the initial clone failed, or produced a working copy
// without the dataset manifest marker.
type CloneError struct {
	RemoteURL string
	Path      string
	Cause     error
}

func (e *CloneError) Error() string {
	return fmt.Sprintf("clone of %s into %s failed: %v", e.RemoteURL, e.Path, e.Cause)
}

func (e *CloneError) Unwrap() error {
	return e.Cause
}

// RefreshError indicates a pull-style refresh of an existing binding failed.
type RefreshError struct {
	Path  string
	Cause error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh of working copy %s failed: %v", e.Path, e.Cause)
}

func (e *RefreshError) Unwrap() error {
	return e.Cause
}

// EmptyPoolError indicates no subjects survived filtering, so there is
// nothing to sample from.
type EmptyPoolError struct {
	Filter string
}

func (e *EmptyPoolError) Error() string {
	if e.Filter == "" {
		return "no subjects available to sample from"
	}

	return fmt.Sprintf("no subjects match task filter %q", e.Filter)
}
