package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tradecraft/storefront-cli/internal/logging"
	"github.com/tradecraft/storefront-cli/internal/output"
	"github.com/tradecraft/storefront-cli/internal/ui"
	"github.com/tradecraft/storefront-cli/internal/worker"
)

func newProductsExportCmd() *cobra.Command {
	var (
		simple  bool
		noSplit bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the product catalog to JSONL files",
		Long: `Export the full product catalog to JSONL files.

By default the export is split into one chunk per active category so it
can run in parallel; the chunks are merged into a single products file
when the last one completes. Use --no-split to export everything as a
single sequential job.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			jobs := worker.ProductJobs(nil, 0)
			if !noSplit {
				categories, err := app.client.ActiveCategories(app.ctx)
				if err != nil {
					return fmt.Errorf("failed to list categories: %w", err)
				}
				if len(categories) > 0 {
					jobs = worker.ProductJobs(categories, 0)
				}
			}

			return runExport(app, jobs, simple)
		},
	}

	cmd.Flags().BoolVar(&simple, "simple", false, "Use simple output mode (no fancy UI)")
	cmd.Flags().BoolVar(&noSplit, "no-split", false, "Export as a single job instead of one chunk per category")
	return cmd
}

func newOrdersExportCmd() *cobra.Command {
	var simple bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export your order history to a JSONL file",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			return runExport(app, []*worker.Job{worker.OrdersJob(0)}, simple)
		},
	}

	cmd.Flags().BoolVar(&simple, "simple", false, "Use simple output mode (no fancy UI)")
	return cmd
}

// runExport runs a set of export jobs on the worker pool and renders
// progress, either with the full-screen UI or in plain text.
func runExport(app *appContext, jobs []*worker.Job, simple bool) error {
	fileManager, err := output.NewFileManager(app.cfg.OutputDir, app.cfg.Gzip)
	if err != nil {
		return fmt.Errorf("failed to setup output directory: %w", err)
	}

	totalExpectedResults := worker.ExpectedResults(jobs)
	logging.Info("starting export: %d jobs, %d expected results, %d workers",
		len(jobs), totalExpectedResults, app.cfg.Workers)

	pool := worker.NewPool(worker.PoolConfig{
		NumWorkers:           app.cfg.Workers,
		Client:               app.client,
		Backoff:              app.backoff,
		FileManager:          fileManager,
		PageSize:             app.cfg.PageSize,
		MaxRetries:           app.cfg.MaxRetries,
		Context:              app.ctx,
		TotalExpectedResults: totalExpectedResults,
	})

	pool.SubmitAll(jobs)

	if simple || !isTerminal() {
		go func() {
			for range pool.StatusUpdates() {
			}
		}()
		ui.RunSimple(totalExpectedResults, pool.Results(), app.ctx.Done())
		pool.StopAndWait()
		return pool.ExportError()
	}

	// onQuit triggers context cancellation when the user quits the UI
	onQuit := func() {
		app.cancel()
		pool.Stop()
	}

	uiApp := ui.NewApp(
		totalExpectedResults,
		app.cfg.Workers,
		pool.Results(),
		pool.StatusUpdates(),
		app.backoff,
		onQuit,
	)

	if err := uiApp.Run(); err != nil {
		return err
	}

	pool.StopAndWait()
	return pool.ExportError()
}
