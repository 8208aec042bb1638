package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tradecraft/storefront-cli/internal/backoff"
	"github.com/tradecraft/storefront-cli/internal/worker"
)

// App wraps the Bubble Tea program
type App struct {
	program *tea.Program
	model   Model
	onQuit  func()
}

// NewApp creates a new export UI application
func NewApp(
	totalJobs int,
	numWorkers int,
	resultsCh <-chan worker.JobResult,
	workerUpdates <-chan worker.WorkerStatus,
	bo *backoff.GlobalBackoff,
	onQuit func(),
) *App {
	model := NewModel(totalJobs, numWorkers, resultsCh, workerUpdates, onQuit)

	app := &App{
		model:  model,
		onQuit: onQuit,
	}

	// Backoff state changes surface as a banner in the UI
	if bo != nil {
		bo.SetCallbacks(
			func(duration time.Duration) {
				if app.program != nil {
					app.program.Send(BackoffMsg{Active: true, Duration: duration})
				}
			},
			func() {
				if app.program != nil {
					app.program.Send(BackoffMsg{Active: false})
				}
			},
		)
	}

	return app
}

// Run starts the UI and blocks until it exits
func (a *App) Run() error {
	a.program = tea.NewProgram(a.model, tea.WithAltScreen())

	if _, err := a.program.Run(); err != nil {
		return fmt.Errorf("UI error: %w", err)
	}
	return nil
}

// RunSimple consumes results without the fancy UI (for non-interactive
// mode and non-TTY output).
func RunSimple(totalJobs int, resultsCh <-chan worker.JobResult, done <-chan struct{}) {
	completed := 0
	failed := 0
	totalItems := 0

	fmt.Printf("Processing %d export jobs...\n\n", totalJobs)

	for {
		select {
		case result, ok := <-resultsCh:
			if !ok {
				fmt.Printf("\nComplete: %d succeeded, %d failed, %d total records\n",
					completed, failed, totalItems)
				return
			}

			label := result.Job.Label
			switch {
			case result.Error != nil:
				failed++
				if result.IsMerge() {
					fmt.Printf("✗ %s (merge): %v\n", label, result.Error)
				} else {
					fmt.Printf("✗ %s: %v\n", label, result.Error)
				}
				if result.Fatal {
					fmt.Println("  cancelling remaining jobs")
				}
			case result.IsMerge():
				completed++
				fmt.Printf("✓ %s (merged) (%s)\n", label, result.Duration.Round(time.Millisecond))
			case result.Job.ChunkInfo != nil:
				completed++
				totalItems += result.ItemCount
				fmt.Printf("✓ %s [%s]: %d records (%s)\n",
					label, result.Job.ChunkInfo.ChunkLabel(), result.ItemCount,
					result.Duration.Round(time.Millisecond))
			default:
				completed++
				totalItems += result.ItemCount
				fmt.Printf("✓ %s: %d records (%s)\n",
					label, result.ItemCount, result.Duration.Round(time.Millisecond))
			}

			if completed+failed >= totalJobs {
				fmt.Printf("\nComplete: %d succeeded, %d failed, %d total records\n",
					completed, failed, totalItems)
				return
			}

		case <-done:
			fmt.Printf("\nCancelled: %d succeeded, %d failed, %d total records\n",
				completed, failed, totalItems)
			return
		}
	}
}
