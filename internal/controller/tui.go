package controller

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	m "subsample.dev/pkg/subsample/internal/model"
)

// TUI renders run progress as an interactive terminal view backed by
// Bubble Tea. Workflow events arrive as messages; the final summary stays on
// screen after the program exits.
type TUI struct {
	program *tea.Program

	mu      sync.Mutex
	started bool
	done    chan struct{}
}

// NewTUI creates a TUI writing to output. cancel is called when the user
// interrupts the view (ctrl+c / q).
func NewTUI(output io.Writer, cancel func()) *TUI {
	model := newFetchModel(cancel)
	program := tea.NewProgram(model, tea.WithOutput(output))

	return &TUI{
		program: program,
		done:    make(chan struct{}),
	}
}

// Start implements UI. The program runs on its own goroutine so workflow
// stages keep the calling goroutine.
func (t *TUI) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return nil
	}

	t.started = true

	go func() {
		defer close(t.done)

		_, _ = t.program.Run()
	}()

	return nil
}

// Close implements UI. It asks the program to quit and waits for the final
// frame to be flushed.
func (t *TUI) Close() {
	t.mu.Lock()
	started := t.started
	t.mu.Unlock()

	if !started {
		return
	}

	t.program.Quit()
	<-t.done
}

// DisplayDataset implements UI.
func (t *TUI) DisplayDataset(ref m.DatasetReference) {
	t.program.Send(datasetMsg{ref: ref})
}

// DisplayBinding implements UI.
func (t *TUI) DisplayBinding(path m.Path) {
	t.program.Send(bindingMsg{path: path})
}

// DisplaySample implements UI.
func (t *TUI) DisplaySample(requested, pool, selected int) {
	t.program.Send(sampleMsg{requested: requested, pool: pool, selected: selected})
}

// DisplaySubjectStart implements UI.
func (t *TUI) DisplaySubjectStart(subject string, files int) {
	t.program.Send(subjectStartMsg{subject: subject, files: files})
}

// DisplayFileOutcome implements UI.
func (t *TUI) DisplayFileOutcome(subject string, outcome m.DownloadOutcome) {
	t.program.Send(fileOutcomeMsg{subject: subject, outcome: outcome})
}

// DisplaySummary implements UI.
func (t *TUI) DisplaySummary(report m.RunReport, reportPath m.Path) {
	t.program.Send(summaryMsg{report: report, path: reportPath})
}

type datasetMsg struct{ ref m.DatasetReference }

type bindingMsg struct{ path m.Path }

type sampleMsg struct{ requested, pool, selected int }

type subjectStartMsg struct {
	subject string
	files   int
}

type fileOutcomeMsg struct {
	subject string
	outcome m.DownloadOutcome
}

type summaryMsg struct {
	report m.RunReport
	path   m.Path
}

// fetchModel is the Bubble Tea model for a sampling run.
type fetchModel struct {
	spinner  spinner.Model
	progress progress.Model

	dataset        string
	binding        string
	totalSubjects  int
	doneSubjects   int
	currentSubject string

	downloaded int
	tooSmall   int
	failed     int
	sizeMB     float64

	summary     *summaryMsg
	interrupted bool
	cancel      func()
}

func newFetchModel(cancel func()) *fetchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &fetchModel{
		spinner:  sp,
		progress: progress.New(progress.WithDefaultGradient()),
		cancel:   cancel,
	}
}

// Init implements tea.Model.
func (fm *fetchModel) Init() tea.Cmd {
	return fm.spinner.Tick
}

// Update implements tea.Model.
func (fm *fetchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			fm.interrupted = true

			if fm.cancel != nil {
				fm.cancel()
			}

			return fm, nil
		}

		return fm, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		fm.spinner, cmd = fm.spinner.Update(msg)

		return fm, cmd

	case progress.FrameMsg:
		model, cmd := fm.progress.Update(msg)
		fm.progress = model.(progress.Model)

		return fm, cmd

	case datasetMsg:
		fm.dataset = msg.ref.ID
		return fm, nil

	case bindingMsg:
		fm.binding = string(msg.path)
		return fm, nil

	case sampleMsg:
		fm.totalSubjects = msg.selected
		return fm, nil

	case subjectStartMsg:
		fm.currentSubject = msg.subject
		fm.doneSubjects++

		return fm, nil

	case fileOutcomeMsg:
		switch msg.outcome.Status {
		case m.Downloaded:
			fm.downloaded++
			fm.sizeMB += msg.outcome.SizeMB
		case m.SizeTooSmall:
			fm.tooSmall++
		case m.FetchFailed:
			fm.failed++
		}

		return fm, nil

	case summaryMsg:
		fm.summary = &msg
		fm.doneSubjects = msg.report.TotalSubjects

		return fm, tea.Quit
	}

	return fm, nil
}

// View implements tea.Model.
func (fm *fetchModel) View() string {
	var b strings.Builder

	if fm.summary != nil {
		return fm.summaryView()
	}

	if fm.dataset != "" {
		fmt.Fprintf(&b, "Dataset: %s\n", fm.dataset)
	}

	if fm.binding != "" {
		fmt.Fprintf(&b, "Working copy: %s\n", fm.binding)
	}

	if fm.currentSubject != "" {
		fmt.Fprintf(&b, "%s fetching %s\n", fm.spinner.View(), fm.currentSubject)
	} else {
		fmt.Fprintf(&b, "%s preparing...\n", fm.spinner.View())
	}

	if fm.totalSubjects > 0 {
		fmt.Fprintf(&b, "%s\n", fm.progress.ViewAs(float64(fm.doneSubjects)/float64(fm.totalSubjects)))
	}

	fmt.Fprintf(&b, "%s %d  %s %d  %s %d  (%.2f MB)\n",
		downloadedStyle.Render("downloaded"), fm.downloaded,
		tooSmallStyle.Render("too small"), fm.tooSmall,
		failedStyle.Render("failed"), fm.failed,
		fm.sizeMB,
	)

	if fm.interrupted {
		b.WriteString("cancelling, waiting for in-flight fetches...\n")
	} else {
		b.WriteString("press q to cancel\n")
	}

	return b.String()
}

func (fm *fetchModel) summaryView() string {
	report := fm.summary.report

	var b strings.Builder

	fmt.Fprintf(&b, "Dataset %s: %d/%d subjects successful, %d files, %.2f MB\n",
		report.DatasetID, report.SuccessfulSubjects, report.TotalSubjects,
		report.TotalFilesDownloaded, report.TotalSizeMB,
	)

	if len(report.FailedSubjects) > 0 {
		fmt.Fprintf(&b, "Failed subjects: %s\n", strings.Join(report.FailedSubjects, ", "))
	}

	if fm.summary.path != "" {
		fmt.Fprintf(&b, "Report written to %s\n", fm.summary.path)
	}

	return b.String()
}
