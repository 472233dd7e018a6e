package controller

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "subsample.dev/pkg/subsample/internal/model"
)

var (
	downloadedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	tooSmallStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// ConsoleUI renders plain line-oriented output through the cobra command.
type ConsoleUI struct {
	cmd *cobra.Command
}

// NewConsoleUI creates a ConsoleUI.
func NewConsoleUI(cmd *cobra.Command) *ConsoleUI {
	return &ConsoleUI{cmd: cmd}
}

// Start implements UI.
func (u *ConsoleUI) Start() error { return nil }

// Close implements UI.
func (u *ConsoleUI) Close() {}

// DisplayDataset implements UI.
func (u *ConsoleUI) DisplayDataset(ref m.DatasetReference) {
	u.cmd.Printf("Dataset %s at %s\n", ref.ID, ref.RemoteURL)
}

// DisplayBinding implements UI.
func (u *ConsoleUI) DisplayBinding(path m.Path) {
	u.cmd.Printf("Working copy bound at %s\n", path)
}

// DisplaySample implements UI.
func (u *ConsoleUI) DisplaySample(requested, pool, selected int) {
	u.cmd.Printf("Sampled %d of %d matching subjects (requested %d)\n", selected, pool, requested)
}

// DisplaySubjectStart implements UI.
func (u *ConsoleUI) DisplaySubjectStart(subject string, files int) {
	u.cmd.Printf("%s: fetching %d file(s)\n", subject, files)
}

// DisplayFileOutcome implements UI.
func (u *ConsoleUI) DisplayFileOutcome(subject string, outcome m.DownloadOutcome) {
	u.cmd.Printf("  %s %s %s\n", subject, styleStatus(outcome.Status), outcome.File.Name)
}

// DisplaySummary implements UI. The per-subject table is sorted the way the
// report carries it (sampler order).
func (u *ConsoleUI) DisplaySummary(report m.RunReport, reportPath m.Path) {
	u.cmd.Println()

	table := tablewriter.NewWriter(u.cmd.OutOrStdout())
	table.SetHeader([]string{"Subject", "Files", "Downloaded", "Status"})

	for _, result := range report.SubjectResults {
		status := downloadedStyle.Render("ok")
		if result.DownloadedCount() == 0 {
			status = failedStyle.Render("failed")
		}

		table.Append([]string{
			result.Subject,
			fmt.Sprintf("%d", len(result.Outcomes)),
			fmt.Sprintf("%d", result.DownloadedCount()),
			status,
		})
	}

	table.Render()

	u.cmd.Printf("\nSubjects: %d total, %d successful\n", report.TotalSubjects, report.SuccessfulSubjects)
	u.cmd.Printf("Files downloaded: %d (%.2f MB)\n", report.TotalFilesDownloaded, report.TotalSizeMB)

	if reportPath != "" {
		u.cmd.Printf("Report written to %s\n", reportPath)
	}
}

func styleStatus(status m.DownloadStatus) string {
	switch status {
	case m.Downloaded:
		return downloadedStyle.Render(status.String())
	case m.SizeTooSmall:
		return tooSmallStyle.Render(status.String())
	case m.FetchFailed:
		return failedStyle.Render(status.String())
	}

	return status.String()
}
