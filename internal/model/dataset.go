// Package model defines the data structures for dataset sampling and sparse fetching.
package model

// Path represents a file system path.
type Path string

// DatasetReference identifies a remote versioned dataset. It is produced once
// by the locator and never mutated afterwards.
type DatasetReference struct {
	ID        string
	RemoteURL string
	Reachable bool
}

// FileEntry describes one file inside the bound working copy.
//
// Resolved is false while the entry is still an annex placeholder (its
// on-disk size sits below the pointer threshold). It flips to true at most
// once per run, after a successful content resolution.
type FileEntry struct {
	RelativePath Path
	Name         string
	SizeBytes    int64
	Resolved     bool
}

// SubjectEntry groups all recordings of one research participant.
type SubjectEntry struct {
	Name  string
	Files []FileEntry
}

// SampleSet is the randomly chosen subset of subjects materialized in a run.
//
// Invariant: len(Selected) == min(RequestedCount, size of the filtered pool),
// with no duplicates, drawn from the filtered pool only.
type SampleSet struct {
	RequestedCount int
	Selected       []SubjectEntry
}
