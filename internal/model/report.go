package model

import (
	"math"
	"time"
)

// DownloadStatus is the terminal state of one file after the fetch engine
// processed it.
type DownloadStatus int

const (
	// Downloaded indicates the content was resolved, passed the size check
	// and was copied to the output location.
	Downloaded DownloadStatus = iota
	// SizeTooSmall indicates the resolved content was at or below the
	// success threshold.
	SizeTooSmall
	// FetchFailed indicates content resolution or the output copy failed.
	FetchFailed
)

// String returns the report label for the status.
func (s DownloadStatus) String() string {
	switch s {
	case Downloaded:
		return "downloaded"
	case SizeTooSmall:
		return "size-too-small"
	case FetchFailed:
		return "fetch-failed"
	}

	return "unknown"
}

// DownloadOutcome records the terminal state of one file.
type DownloadOutcome struct {
	File   FileEntry
	Status DownloadStatus
	SizeMB float64
}

// SubjectResult holds the outcomes for a single subject, in stable file order.
// Err is set when the subject failed as a whole before any file-level
// classification could happen.
type SubjectResult struct {
	Subject  string
	Outcomes []DownloadOutcome
	Err      string `yaml:",omitempty"`
}

// DownloadedCount returns the number of Downloaded outcomes for the subject.
func (r SubjectResult) DownloadedCount() int {
	count := 0

	for _, outcome := range r.Outcomes {
		if outcome.Status == Downloaded {
			count++
		}
	}

	return count
}

// RunReport is the aggregate result of a sampling run. It is built
// incrementally by the aggregator and immutable once finalized.
//
// Invariants: a subject appears in FailedSubjects iff it has zero Downloaded
// outcomes; TotalFilesDownloaded equals the sum of Downloaded counts across
// SubjectResults.
type RunReport struct {
	DatasetID            string
	TotalSubjects        int
	SuccessfulSubjects   int
	TotalFilesDownloaded int
	TotalSizeMB          float64
	FailedSubjects       []string
	SubjectResults       []SubjectResult
	StartedAt            time.Time
	FinishedAt           time.Time
}

// RoundMB rounds a megabyte value to two decimal places, the precision used
// everywhere in the report.
func RoundMB(mb float64) float64 {
	return math.Round(mb*100) / 100
}

// BytesToMB converts a byte count to megabytes.
func BytesToMB(bytes int64) float64 {
	return float64(bytes) / (1024 * 1024)
}
