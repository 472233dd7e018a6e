package domain

import (
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	m "subsample.dev/pkg/subsample/internal/model"
)

// subjectPrefix marks per-participant directories at the dataset root.
const subjectPrefix = "sub-"

// TaskFilter restricts subjects to those with recordings tagged for an
// experimental condition. Matching uses filenames only; placeholders carry
// the real filename, so no content resolution is needed to filter.
type TaskFilter struct {
	Token      string
	Extensions []string
}

// Empty reports whether the filter matches everything.
func (f TaskFilter) Empty() bool {
	return strings.TrimSpace(f.Token) == ""
}

// Match reports whether a file name encodes the filter's condition token with
// one of the recording extensions.
func (f TaskFilter) Match(name string) bool {
	if f.Empty() {
		return true
	}

	lower := strings.ToLower(name)
	if !strings.Contains(lower, "task-"+strings.ToLower(f.Token)) {
		return false
	}

	for _, ext := range f.Extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}

	return false
}

// EntryLister is the slice of a bound repo the index needs.
type EntryLister interface {
	Ref() m.DatasetReference
	List(pattern string) ([]m.FileEntry, error)
}

// SubjectIndex enumerates subject entries from a bound repo and applies the
// task filter.
type SubjectIndex interface {
	Build(repo EntryLister, filter TaskFilter) ([]m.SubjectEntry, error)
}

type subjectIndex struct {
	logger *slog.Logger
}

// NewSubjectIndex constructs a SubjectIndex.
func NewSubjectIndex(logger *slog.Logger) SubjectIndex {
	return &subjectIndex{logger: logger}
}

// Build groups the repo's entries by subject directory and keeps subjects
// with at least one matching recording. The result is sorted by subject name
// so enumeration order never depends on the filesystem. An empty result is
// not an error here; the sampler signals the empty pool.
func (ix *subjectIndex) Build(repo EntryLister, filter TaskFilter) ([]m.SubjectEntry, error) {
	entries, err := repo.List("")
	if err != nil {
		return nil, err
	}

	bySubject := make(map[string][]m.FileEntry)

	for _, entry := range entries {
		subject := subjectOf(entry.RelativePath)
		if subject == "" {
			continue
		}

		bySubject[subject] = append(bySubject[subject], entry)
	}

	subjects := make([]m.SubjectEntry, 0, len(bySubject))

	for name, files := range bySubject {
		if !filter.Empty() && !anyMatch(files, filter) {
			continue
		}

		subjects = append(subjects, m.SubjectEntry{Name: name, Files: files})
	}

	sort.Slice(subjects, func(i, j int) bool {
		return subjects[i].Name < subjects[j].Name
	})

	ix.logger.Info("subject index built",
		"dataset", repo.Ref().ID,
		"enumerated", len(bySubject),
		"matching", len(subjects),
		"filter", filter.Token,
	)

	return subjects, nil
}

// subjectOf returns the subject directory a path belongs to, or "" for
// top-level and non-subject files.
func subjectOf(path m.Path) string {
	parts := strings.Split(filepath.ToSlash(string(path)), "/")
	if len(parts) < 2 {
		return ""
	}

	if !strings.HasPrefix(parts[0], subjectPrefix) {
		return ""
	}

	return parts[0]
}

func anyMatch(files []m.FileEntry, filter TaskFilter) bool {
	for _, file := range files {
		if filter.Match(file.Name) {
			return true
		}
	}

	return false
}
