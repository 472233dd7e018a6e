package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	m "subsample.dev/pkg/subsample/internal/model"
)

// ReportStore persists a finalized run report. The text file is the
// human-readable artifact; a YAML sidecar carries the same data for tooling.
type ReportStore interface {
	Write(report m.RunReport, events []m.LogEvent) (m.Path, error)
}

// FileReportStore writes reports into a directory, one pair of files per run.
type FileReportStore struct {
	dir m.Path
	now func() time.Time
}

// NewFileReportStore constructs a FileReportStore writing into dir.
func NewFileReportStore(dir m.Path) *FileReportStore {
	return &FileReportStore{dir: dir, now: time.Now}
}

// Write implements ReportStore. It returns the path of the text report.
func (s *FileReportStore) Write(report m.RunReport, events []m.LogEvent) (m.Path, error) {
	if err := os.MkdirAll(string(s.dir), 0o750); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	stamp := s.now().Format("20060102_150405")
	base := fmt.Sprintf("Download_Report_%s_%s", report.DatasetID, stamp)
	textPath := filepath.Join(string(s.dir), base+".txt")

	if err := os.WriteFile(textPath, []byte(renderText(report, events)), 0o600); err != nil {
		return "", fmt.Errorf("write report %s: %w", textPath, err)
	}

	sidecar, err := yaml.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	yamlPath := filepath.Join(string(s.dir), base+".yaml")
	if err := os.WriteFile(yamlPath, sidecar, 0o600); err != nil {
		return "", fmt.Errorf("write report %s: %w", yamlPath, err)
	}

	return m.Path(textPath), nil
}

func renderText(report m.RunReport, events []m.LogEvent) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Download report for dataset %s\n", report.DatasetID)
	fmt.Fprintf(&b, "Started:  %s\n", report.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Finished: %s\n\n", report.FinishedAt.Format(time.RFC3339))

	fmt.Fprintf(&b, "Subjects sampled:     %d\n", report.TotalSubjects)
	fmt.Fprintf(&b, "Subjects successful:  %d\n", report.SuccessfulSubjects)
	fmt.Fprintf(&b, "Files downloaded:     %d\n", report.TotalFilesDownloaded)
	fmt.Fprintf(&b, "Total size:           %.2f MB\n\n", report.TotalSizeMB)

	for _, result := range report.SubjectResults {
		fmt.Fprintf(&b, "%s:\n", result.Subject)

		if result.Err != "" {
			fmt.Fprintf(&b, "  subject failed: %s\n", result.Err)
		}

		for _, outcome := range result.Outcomes {
			fmt.Fprintf(&b, "  %-16s %s (%.2f MB)\n", outcome.Status, outcome.File.Name, outcome.SizeMB)
		}
	}

	if len(report.FailedSubjects) > 0 {
		fmt.Fprintf(&b, "\nFailed subjects (no files downloaded):\n")

		for _, subject := range report.FailedSubjects {
			fmt.Fprintf(&b, "  %s\n", subject)
		}
	}

	if len(events) > 0 {
		fmt.Fprintf(&b, "\nRun log:\n")

		for _, event := range events {
			fmt.Fprintf(&b, "  %s %-5s %s", event.Time.Format(time.RFC3339), event.Level, event.Message)

			keys := make([]string, 0, len(event.Attrs))
			for key := range event.Attrs {
				keys = append(keys, key)
			}

			sort.Strings(keys)

			for _, key := range keys {
				fmt.Fprintf(&b, " %s=%s", key, event.Attrs[key])
			}

			b.WriteString("\n")
		}
	}

	return b.String()
}
