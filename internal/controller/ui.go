// Package controller provides output renderers for sampling runs.
package controller

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	m "subsample.dev/pkg/subsample/internal/model"
)

// UI is the presentation surface the workflow reports progress through.
// Implementations can render plain text or an interactive terminal view; the
// domain never formats console output itself.
type UI interface {
	// Start prepares the renderer. For interactive renderers this launches
	// the terminal program.
	Start() error

	// Close tears the renderer down. Safe to call after a failed Start.
	Close()

	// DisplayDataset announces the resolved dataset reference.
	DisplayDataset(ref m.DatasetReference)

	// DisplayBinding announces the bound working copy.
	DisplayBinding(path m.Path)

	// DisplaySample announces the drawn sample.
	DisplaySample(requested, pool, selected int)

	// DisplaySubjectStart announces that a subject's files are being fetched.
	DisplaySubjectStart(subject string, files int)

	// DisplayFileOutcome reports one terminal file state.
	DisplayFileOutcome(subject string, outcome m.DownloadOutcome)

	// DisplaySummary renders the finalized report.
	DisplaySummary(report m.RunReport, reportPath m.Path)
}

// IsTTY reports whether f is an interactive terminal.
func IsTTY(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NewUI picks the renderer: the interactive TUI on a terminal, plain console
// output otherwise (and always when verbose logging is on, so log lines and
// progress do not fight over the screen). cancel is invoked when the user
// interrupts the interactive view.
func NewUI(cmd *cobra.Command, tty, verbose bool, cancel func()) UI {
	if tty && !verbose {
		return NewTUI(os.Stdout, cancel)
	}

	return NewConsoleUI(cmd)
}
