package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tradecraft/storefront-cli/internal/worker"
)

// Model represents the export UI state
type Model struct {
	// Progress tracking
	totalJobs     int
	completedJobs int
	failedJobs    int
	totalItems    int

	// Worker tracking
	workers       []worker.WorkerStatus
	numWorkers    int
	workerUpdates <-chan worker.WorkerStatus

	// Backoff state
	isBackingOff     bool
	backoffRemaining time.Duration

	// Progress bars
	overallProgress progress.Model
	workerProgress  []progress.Model

	// Results channel
	resultsCh <-chan worker.JobResult

	// Recent results for display
	recentResults []resultInfo
	maxRecent     int

	// Errors
	errors []string

	// Fatal error (stops processing but keeps UI visible)
	fatalError string

	// Dimensions
	width  int
	height int

	// State
	quitting   bool
	done       bool
	startTime  time.Time
	finishTime time.Time

	// Quit callback
	onQuit func()
}

type resultInfo struct {
	label      string
	itemCount  int
	success    bool
	errorMsg   string
	isMerge    bool
	chunkLabel string
}

// Message types
type ResultMsg worker.JobResult
type WorkerStatusMsg worker.WorkerStatus
type BackoffMsg struct {
	Active   bool
	Duration time.Duration
}
type TickMsg time.Time
type DoneMsg struct{}

// NewModel creates a new UI model
func NewModel(
	totalJobs int,
	numWorkers int,
	resultsCh <-chan worker.JobResult,
	workerUpdates <-chan worker.WorkerStatus,
	onQuit func(),
) Model {
	prog := progress.New(
		progress.WithGradient(ProgressGradientStart, ProgressGradientEnd),
		progress.WithWidth(40),
	)

	workers := make([]worker.WorkerStatus, numWorkers)
	workerProgs := make([]progress.Model, numWorkers)
	for i := range workers {
		workers[i] = worker.WorkerStatus{ID: i, State: worker.WorkerStateIdle}
		workerProgs[i] = progress.New(
			progress.WithGradient(ProgressGradientStart, ProgressGradientEnd),
			progress.WithWidth(15),
			progress.WithoutPercentage(),
		)
	}

	return Model{
		totalJobs:       totalJobs,
		numWorkers:      numWorkers,
		workers:         workers,
		workerUpdates:   workerUpdates,
		overallProgress: prog,
		workerProgress:  workerProgs,
		resultsCh:       resultsCh,
		recentResults:   make([]resultInfo, 0, 10),
		maxRecent:       5,
		errors:          make([]string, 0),
		startTime:       time.Now(),
		onQuit:          onQuit,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		waitForResult(m.resultsCh),
		waitForWorkerStatus(m.workerUpdates),
	)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			if m.onQuit != nil {
				m.onQuit()
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.overallProgress.Width = max(msg.Width-30, 20)
		return m, nil

	case ResultMsg:
		result := worker.JobResult(msg)

		// Fatal errors stay on screen; the user quits explicitly
		if result.Fatal {
			m.fatalError = fmt.Sprintf("%s: %v", result.Job.Label, result.Error)
			m.finishTime = time.Now()
			m.errors = append(m.errors, fmt.Sprintf("FATAL: %s", m.fatalError))

			// Status updates may be dropped after cancel; show workers idle
			for i := range m.workers {
				m.workers[i] = worker.WorkerStatus{ID: i, State: worker.WorkerStateIdle}
			}
			return m, waitForResult(m.resultsCh)
		}

		chunkLabel := ""
		if result.Job != nil && result.Job.ChunkInfo != nil {
			chunkLabel = result.Job.ChunkInfo.ChunkLabel()
		}

		if result.Error != nil {
			m.failedJobs++
			m.addRecentResult(resultInfo{
				label:      result.Job.Label,
				success:    false,
				errorMsg:   result.Error.Error(),
				isMerge:    result.IsMerge(),
				chunkLabel: chunkLabel,
			})
			m.errors = append(m.errors, fmt.Sprintf("%s: %v", result.Job.Label, result.Error))
		} else {
			m.completedJobs++
			m.totalItems += result.ItemCount
			m.addRecentResult(resultInfo{
				label:      result.Job.Label,
				itemCount:  result.ItemCount,
				success:    true,
				isMerge:    result.IsMerge(),
				chunkLabel: chunkLabel,
			})
		}
		if m.completedJobs+m.failedJobs >= m.totalJobs && m.finishTime.IsZero() {
			m.finishTime = time.Now()
		}
		return m, waitForResult(m.resultsCh)

	case WorkerStatusMsg:
		if m.fatalError != "" {
			return m, nil
		}
		status := worker.WorkerStatus(msg)
		if status.ID >= 0 && status.ID < len(m.workers) {
			m.workers[status.ID] = status
		}
		return m, waitForWorkerStatus(m.workerUpdates)

	case BackoffMsg:
		m.isBackingOff = msg.Active
		m.backoffRemaining = msg.Duration
		return m, nil

	case TickMsg:
		return m, tickCmd()

	case DoneMsg:
		m.done = true
		if m.finishTime.IsZero() {
			m.finishTime = time.Now()
		}
		return m, nil

	case progress.FrameMsg:
		progressModel, cmd := m.overallProgress.Update(msg)
		m.overallProgress = progressModel.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m *Model) addRecentResult(r resultInfo) {
	m.recentResults = append(m.recentResults, r)
	if len(m.recentResults) > m.maxRecent {
		m.recentResults = m.recentResults[1:]
	}
}

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return m.renderFinalSummary()
	}

	var b strings.Builder

	header := TitleStyle.Render(" TradeCraft Export ")
	b.WriteString(header + "\n\n")

	if m.fatalError != "" {
		bannerWidth := m.width - 6
		if bannerWidth < 40 {
			bannerWidth = 80
		}
		fatalBanner := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("1")).
			Padding(0, 1).
			Width(bannerWidth).
			Render(fmt.Sprintf("FATAL ERROR: %s", m.fatalError))
		b.WriteString(fatalBanner + "\n\n")
	}

	// Overall progress
	completed := m.completedJobs + m.failedJobs
	pct := float64(completed) / float64(m.totalJobs)
	progressLine := fmt.Sprintf("Progress: %s %d/%d jobs",
		m.overallProgress.ViewAs(pct), completed, m.totalJobs)
	b.WriteString(progressLine + "\n\n")

	// Stats
	var elapsed time.Duration
	if m.finishTime.IsZero() {
		elapsed = time.Since(m.startTime).Round(time.Second)
	} else {
		elapsed = m.finishTime.Sub(m.startTime).Round(time.Second)
	}
	stats := fmt.Sprintf("Completed: %s  Failed: %s  Records: %s  Elapsed: %s",
		SuccessStyle.Render(fmt.Sprintf("%d", m.completedJobs)),
		ErrorStyle.Render(fmt.Sprintf("%d", m.failedJobs)),
		HighlightStyle.Render(fmt.Sprintf("%d", m.totalItems)),
		elapsed)
	b.WriteString(stats + "\n\n")

	// Workers status
	b.WriteString(MutedStyle.Render("Workers:") + "\n")
	for i, w := range m.workers {
		b.WriteString(m.renderWorker(i, w) + "\n")
	}

	// Backoff indicator
	if m.isBackingOff {
		b.WriteString("\n")
		backoffMsg := WarningStyle.Render(
			fmt.Sprintf("⚠ Rate limited - backing off for %s", m.backoffRemaining.Round(time.Second)))
		b.WriteString(backoffMsg + "\n")
	}

	// Recent results
	if len(m.recentResults) > 0 {
		b.WriteString("\n" + MutedStyle.Render("Recent:") + "\n")
		for _, r := range m.recentResults {
			b.WriteString(renderResult(r) + "\n")
		}
	}

	footer := FooterStyle.Render("Press 'q' to quit")
	b.WriteString("\n" + footer)

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func (m Model) renderWorker(i int, w worker.WorkerStatus) string {
	target := w.CurrentTarget
	if len(target) > 30 {
		target = target[:27] + "..."
	}

	switch w.State {
	case worker.WorkerStateWorking:
		// Page-based progress; totalPages is unknown until the first
		// page of a target comes back
		pct := 0.0
		if w.TotalPages > 0 {
			pct = float64(w.Page) / float64(w.TotalPages)
			if pct > 1 {
				pct = 1
			}
		}
		progressBar := m.workerProgress[i].ViewAs(pct)
		if w.ChunkLabel != "" {
			return WorkerWorkingStyle.Render(fmt.Sprintf("  [%2d] %-30s [%5s] %s %3.0f%% (%d)",
				w.ID, target, w.ChunkLabel, progressBar, pct*100, w.ItemCount))
		}
		return WorkerWorkingStyle.Render(fmt.Sprintf("  [%2d] %-30s         %s %3.0f%% (%d)",
			w.ID, target, progressBar, pct*100, w.ItemCount))

	case worker.WorkerStateBackingOff:
		progressBar := m.workerProgress[i].ViewAs(0)
		return WorkerBackoffStyle.Render(fmt.Sprintf("  [%2d] %-30s         %s backing off...",
			w.ID, target, progressBar))

	case worker.WorkerStateMerging:
		pct := 0.0
		if w.TotalBytes > 0 {
			pct = min(float64(w.BytesCopied)/float64(w.TotalBytes), 1)
		}
		progressBar := m.workerProgress[i].ViewAs(pct)
		mbCopied := float64(w.BytesCopied) / (1024 * 1024)
		mbTotal := float64(w.TotalBytes) / (1024 * 1024)
		return WorkerMergingStyle.Render(fmt.Sprintf("  [%2d] %-30s [merge] %s %6.1f/%6.1f MB",
			w.ID, target, progressBar, mbCopied, mbTotal))

	default:
		return WorkerIdleStyle.Render(fmt.Sprintf("  [%2d] idle", w.ID))
	}
}

func renderResult(r resultInfo) string {
	if r.success {
		if r.isMerge {
			return SuccessStyle.Render(fmt.Sprintf("  ✓ %s (merged)", r.label))
		}
		if r.chunkLabel != "" {
			return SuccessStyle.Render(fmt.Sprintf("  ✓ %s [%s] (%d records)", r.label, r.chunkLabel, r.itemCount))
		}
		return SuccessStyle.Render(fmt.Sprintf("  ✓ %s (%d records)", r.label, r.itemCount))
	}

	errMsg := r.errorMsg
	if len(errMsg) > 50 {
		errMsg = errMsg[:47] + "..."
	}
	if r.isMerge {
		return ErrorStyle.Render(fmt.Sprintf("  ✗ %s (merge): %s", r.label, errMsg))
	}
	if r.chunkLabel != "" {
		return ErrorStyle.Render(fmt.Sprintf("  ✗ %s [%s]: %s", r.label, r.chunkLabel, errMsg))
	}
	return ErrorStyle.Render(fmt.Sprintf("  ✗ %s: %s", r.label, errMsg))
}

func (m Model) renderFinalSummary() string {
	var b strings.Builder

	elapsed := time.Since(m.startTime).Round(time.Second)

	b.WriteString("\n")
	b.WriteString(TitleStyle.Render(" Export Complete ") + "\n\n")

	b.WriteString(fmt.Sprintf("Total jobs:     %d\n", m.totalJobs))
	b.WriteString(fmt.Sprintf("Completed:      %s\n", SuccessStyle.Render(fmt.Sprintf("%d", m.completedJobs))))
	b.WriteString(fmt.Sprintf("Failed:         %s\n", ErrorStyle.Render(fmt.Sprintf("%d", m.failedJobs))))
	b.WriteString(fmt.Sprintf("Total records:  %s\n", HighlightStyle.Render(fmt.Sprintf("%d", m.totalItems))))
	b.WriteString(fmt.Sprintf("Duration:       %s\n", elapsed))

	if len(m.errors) > 0 {
		shown := m.errors
		if len(shown) > 10 {
			b.WriteString("\n" + ErrorStyle.Render(fmt.Sprintf("Errors: %d (showing first 10)", len(m.errors))) + "\n")
			shown = shown[:10]
		} else {
			b.WriteString("\n" + ErrorStyle.Render("Errors:") + "\n")
		}
		for _, err := range shown {
			b.WriteString(fmt.Sprintf("  • %s\n", err))
		}
	}

	b.WriteString("\n")
	return b.String()
}

// Helper commands
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func waitForResult(ch <-chan worker.JobResult) tea.Cmd {
	return func() tea.Msg {
		result, ok := <-ch
		if !ok {
			return DoneMsg{}
		}
		return ResultMsg(result)
	}
}

func waitForWorkerStatus(ch <-chan worker.WorkerStatus) tea.Cmd {
	return func() tea.Msg {
		status, ok := <-ch
		if !ok {
			return nil
		}
		return WorkerStatusMsg(status)
	}
}
