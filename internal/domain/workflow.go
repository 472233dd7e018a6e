package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"subsample.dev/pkg/subsample/internal/adapter"
	"subsample.dev/pkg/subsample/internal/controller"
	m "subsample.dev/pkg/subsample/internal/model"
)

// FetchArgs carries everything one sampling run needs.
type FetchArgs struct {
	DatasetID     string
	SubjectCount  int
	TaskFilter    string
	OutputFolder  string
	WorkingCopy   m.Path
	Workers       int
	SkipToolCheck bool
}

// Workflow wires the pipeline stages together: locator, binding, index,
// sampler, fetch engine, aggregator, report writer. Stages run strictly in
// sequence; each consumes the prior stage's complete output.
type Workflow interface {
	Fetch(ctx context.Context, args FetchArgs) (m.RunReport, error)
}

// WorkflowDeps bundles the collaborators a Workflow needs.
type WorkflowDeps struct {
	Toolchain   adapter.ToolchainAdapter
	Locator     DatasetLocator
	Binding     RepositoryBinding
	Index       SubjectIndex
	Sampler     Sampler
	FS          adapter.DatasetFSAdapter
	ReportStore adapter.ReportStore
	UI          controller.UI
	RunLog      *m.RunLog
	Logger      *slog.Logger

	// OpenOutput opens the output store for a run. Injected so tests can
	// substitute an in-memory store.
	OpenOutput func(dir string) (adapter.OutputStore, error)

	// SuccessThreshold is the minimum byte count for a Downloaded outcome.
	SuccessThreshold int64

	// Extensions are the recording file extensions the task filter accepts.
	Extensions []string
}

type workflow struct {
	deps WorkflowDeps
}

// NewWorkflow creates a Workflow with the provided dependencies.
func NewWorkflow(deps WorkflowDeps) Workflow {
	return &workflow{deps: deps}
}

// Fetch runs one sampling run end to end and returns the finalized report.
// Per-file and per-subject failures fold into the report; only toolchain,
// locate, bind and empty-pool failures surface as errors.
func (w *workflow) Fetch(ctx context.Context, args FetchArgs) (m.RunReport, error) {
	d := w.deps

	if !args.SkipToolCheck {
		if err := d.Toolchain.CheckClients(); err != nil {
			return m.RunReport{}, err
		}
	}

	ref, err := d.Locator.Resolve(ctx, args.DatasetID)
	if err != nil {
		return m.RunReport{}, err
	}

	if !ref.Reachable {
		return m.RunReport{}, &UnreachableDatasetError{ID: ref.ID, RemoteURL: ref.RemoteURL}
	}

	d.UI.DisplayDataset(ref)

	repo, err := d.Binding.Bind(ctx, ref, args.WorkingCopy)
	if err != nil {
		return m.RunReport{}, err
	}

	d.UI.DisplayBinding(repo.Path())

	filter := TaskFilter{Token: args.TaskFilter, Extensions: d.Extensions}

	subjects, err := d.Index.Build(repo, filter)
	if err != nil {
		return m.RunReport{}, err
	}

	sample, err := d.Sampler.Select(subjects, args.SubjectCount)
	if err != nil {
		var empty *EmptyPoolError
		if errors.As(err, &empty) && empty.Filter == "" {
			return m.RunReport{}, &EmptyPoolError{Filter: args.TaskFilter}
		}

		return m.RunReport{}, err
	}

	d.UI.DisplaySample(sample.RequestedCount, len(subjects), len(sample.Selected))

	aggregator, err := NewReportAggregator(ref.ID, d.Logger)
	if err != nil {
		return m.RunReport{}, err
	}

	output, err := d.OpenOutput(args.OutputFolder)
	if err != nil {
		return m.RunReport{}, err
	}

	defer func() {
		if closeErr := output.Close(); closeErr != nil {
			d.Logger.Warn("failed to close output store", "error", closeErr)
		}
	}()

	engine := NewFetchEngine(d.FS, output, d.UI, d.SuccessThreshold, args.Workers, d.Logger)

	runErr := engine.Run(ctx, repo, sample, filter, aggregator)

	// A cancelled run still gets its report: everything fetched so far
	// stays on disk and is accounted for.
	report, finErr := aggregator.Finalize()
	if finErr != nil {
		return m.RunReport{}, finErr
	}

	reportPath, writeErr := d.ReportStore.Write(report, d.RunLog.Snapshot())
	if writeErr != nil {
		d.Logger.Error("failed to write report", "error", writeErr)
	}

	d.UI.DisplaySummary(report, reportPath)

	if runErr != nil {
		return report, fmt.Errorf("fetch interrupted: %w", runErr)
	}

	return report, nil
}
