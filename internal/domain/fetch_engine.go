package domain

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"subsample.dev/pkg/subsample/internal/adapter"
	"subsample.dev/pkg/subsample/internal/controller"
	m "subsample.dev/pkg/subsample/internal/model"
)

// ContentResolver is the slice of a bound repo the fetch engine needs:
// where the working copy lives and how to resolve one placeholder.
type ContentResolver interface {
	Path() m.Path
	ResolveContent(ctx context.Context, relativePath m.Path) (int64, error)
}

// FetchEngine resolves and verifies each selected file and copies it to the
// output location. Files are handled independently: one failure never
// prevents processing of sibling files or other subjects.
type FetchEngine interface {
	Run(ctx context.Context, repo ContentResolver, sample m.SampleSet, filter TaskFilter, aggregator ReportAggregator) error
}

type fetchEngine struct {
	fs               adapter.DatasetFSAdapter
	output           adapter.OutputStore
	ui               controller.UI
	successThreshold int64
	workers          int
	logger           *slog.Logger
}

// NewFetchEngine constructs a FetchEngine. Resolved content at or below
// successThreshold bytes is classified SizeTooSmall. workers bounds the
// number of simultaneous resolution calls.
func NewFetchEngine(
	fsAdapter adapter.DatasetFSAdapter,
	output adapter.OutputStore,
	ui controller.UI,
	successThreshold int64,
	workers int,
	logger *slog.Logger,
) FetchEngine {
	if workers < 1 {
		workers = 1
	}

	return &fetchEngine{
		fs:               fsAdapter,
		output:           output,
		ui:               ui,
		successThreshold: successThreshold,
		workers:          workers,
		logger:           logger,
	}
}

// Run processes the sampled subjects in order, handing each completed subject
// to the aggregator. Cancellation is cooperative: once ctx is done no new
// file or subject is scheduled, and files already copied stay in place.
func (e *fetchEngine) Run(ctx context.Context, repo ContentResolver, sample m.SampleSet, filter TaskFilter, aggregator ReportAggregator) error {
	for _, subject := range sample.Selected {
		if err := ctx.Err(); err != nil {
			e.logger.Info("fetch cancelled between subjects", "error", err)
			return err
		}

		result := e.processSubject(ctx, repo, subject, filter)

		if err := aggregator.Accumulate(result); err != nil {
			return err
		}
	}

	return nil
}

// processSubject classifies every matching file of one subject. Anything
// unexpected, including a panic in a worker, is caught here and recorded as a
// subject failure so the run continues.
func (e *fetchEngine) processSubject(ctx context.Context, repo ContentResolver, subject m.SubjectEntry, filter TaskFilter) (result m.SubjectResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("subject processing panicked", "subject", subject.Name, "panic", r)
			result = m.SubjectResult{
				Subject: subject.Name,
				Err:     fmt.Sprintf("unexpected failure: %v", r),
			}
		}
	}()

	files := make([]m.FileEntry, 0, len(subject.Files))

	for _, file := range subject.Files {
		if filter.Match(file.Name) {
			files = append(files, file)
		}
	}

	e.ui.DisplaySubjectStart(subject.Name, len(files))

	outcomes := make([]m.DownloadOutcome, len(files))
	processed := make([]bool, len(files))

	var group errgroup.Group
	group.SetLimit(e.workers)

	for i, file := range files {
		if ctx.Err() != nil {
			break
		}

		group.Go(func() error {
			outcomes[i] = e.processFile(ctx, repo, subject.Name, file)
			processed[i] = true

			e.ui.DisplayFileOutcome(subject.Name, outcomes[i])

			return nil
		})
	}

	// Workers never return errors; failures are outcome data.
	_ = group.Wait()

	kept := make([]m.DownloadOutcome, 0, len(outcomes))

	for i, outcome := range outcomes {
		if processed[i] {
			kept = append(kept, outcome)
		}
	}

	return m.SubjectResult{Subject: subject.Name, Outcomes: kept}
}

// processFile drives one file through its state machine:
// PointerUnresolved -> Resolved | FetchFailed, then
// Resolved -> Downloaded | SizeTooSmall. An entry that is already resolved
// never triggers another fetch.
func (e *fetchEngine) processFile(ctx context.Context, repo ContentResolver, subject string, file m.FileEntry) m.DownloadOutcome {
	size := file.SizeBytes

	if !file.Resolved {
		resolved, err := repo.ResolveContent(ctx, file.RelativePath)
		if err != nil {
			return m.DownloadOutcome{File: file, Status: m.FetchFailed}
		}

		size = resolved
		file.SizeBytes = resolved
		file.Resolved = true
	}

	sizeMB := m.RoundMB(m.BytesToMB(size))

	if size <= e.successThreshold {
		e.logger.Warn("resolved content below success threshold",
			"subject", subject, "file", file.Name, "bytes", size)

		return m.DownloadOutcome{File: file, Status: m.SizeTooSmall, SizeMB: sizeMB}
	}

	if err := e.copyToOutput(ctx, repo, subject, file); err != nil {
		e.logger.Warn("copy to output failed", "subject", subject, "file", file.Name, "error", err)
		return m.DownloadOutcome{File: file, Status: m.FetchFailed, SizeMB: sizeMB}
	}

	return m.DownloadOutcome{File: file, Status: m.Downloaded, SizeMB: sizeMB}
}

func (e *fetchEngine) copyToOutput(ctx context.Context, repo ContentResolver, subject string, file m.FileEntry) error {
	src, err := e.fs.Open(m.Path(filepath.Join(string(repo.Path()), string(file.RelativePath))))
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			e.logger.Warn("failed to close source file", "file", file.Name, "error", closeErr)
		}
	}()

	return e.output.Put(ctx, subject+"/"+file.Name, src)
}
