package domain

import (
	"log/slog"
	"sync"
	"time"

	m "subsample.dev/pkg/subsample/internal/model"
	"subsample.dev/pkg/subsample/pkg"
)

// ReportAggregator accumulates per-subject outcomes into the final run
// report. Accumulate is safe for concurrent callers, though the fetch engine
// invokes it once per completed subject.
type ReportAggregator interface {
	Accumulate(result m.SubjectResult) error
	Finalize() (m.RunReport, error)
}

type reportAggregator struct {
	mu sync.Mutex

	datasetID string
	startedAt time.Time
	now       func() time.Time
	logger    *slog.Logger

	spill pkg.FileSpill[m.SubjectResult]

	totalSubjects      int
	successfulSubjects int
	filesDownloaded    int
	totalSizeMB        float64
	failedSubjects     []string

	finalized bool
	report    m.RunReport
}

// NewReportAggregator constructs a ReportAggregator for one run.
func NewReportAggregator(datasetID string, logger *slog.Logger) (ReportAggregator, error) {
	spill, err := pkg.NewFileSpill[m.SubjectResult]()
	if err != nil {
		return nil, err
	}

	return &reportAggregator{
		datasetID: datasetID,
		startedAt: time.Now(),
		now:       time.Now,
		logger:    logger,
		spill:     spill,
	}, nil
}

// Accumulate folds one subject result into the running totals. A subject with
// zero Downloaded outcomes counts as failed.
func (a *reportAggregator) Accumulate(result m.SubjectResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalSubjects++

	downloaded := result.DownloadedCount()
	if downloaded > 0 {
		a.successfulSubjects++
	} else {
		a.failedSubjects = append(a.failedSubjects, result.Subject)
	}

	a.filesDownloaded += downloaded

	for _, outcome := range result.Outcomes {
		if outcome.Status == m.Downloaded {
			a.totalSizeMB += outcome.SizeMB
		}
	}

	return a.spill.Append(result)
}

// Finalize produces the immutable report. Calling it again returns the same
// report.
func (a *reportAggregator) Finalize() (m.RunReport, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized {
		return a.report, nil
	}

	results := make([]m.SubjectResult, 0, a.totalSubjects)

	err := a.spill.Range(func(_ uint64, result m.SubjectResult) error {
		results = append(results, result)
		return nil
	})
	if err != nil {
		return m.RunReport{}, err
	}

	if closeErr := a.spill.Close(); closeErr != nil {
		a.logger.Warn("failed to close result spill", "error", closeErr)
	}

	a.report = m.RunReport{
		DatasetID:            a.datasetID,
		TotalSubjects:        a.totalSubjects,
		SuccessfulSubjects:   a.successfulSubjects,
		TotalFilesDownloaded: a.filesDownloaded,
		TotalSizeMB:          m.RoundMB(a.totalSizeMB),
		FailedSubjects:       a.failedSubjects,
		SubjectResults:       results,
		StartedAt:            a.startedAt,
		FinishedAt:           a.now(),
	}
	a.finalized = true

	a.logger.Info("report finalized",
		"dataset", a.datasetID,
		"subjects", a.report.TotalSubjects,
		"successful", a.report.SuccessfulSubjects,
		"files", a.report.TotalFilesDownloaded,
		"size_mb", a.report.TotalSizeMB,
	)

	return a.report, nil
}
