package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alitto/pond/v2"

	"github.com/tradecraft/storefront-cli/internal/api"
	"github.com/tradecraft/storefront-cli/internal/backoff"
	"github.com/tradecraft/storefront-cli/internal/logging"
	"github.com/tradecraft/storefront-cli/internal/output"
)

// PoolConfig configures the export worker pool.
type PoolConfig struct {
	NumWorkers  int
	Client      *api.Client
	Backoff     *backoff.GlobalBackoff
	FileManager *output.FileManager
	PageSize    int
	MaxRetries  int
	Context     context.Context

	// TotalExpectedResults sizes the results buffer so every job and
	// merge can deliver its result without blocking, even after a
	// fatal cancellation stops the consumer mid-stream. Use
	// ExpectedResults(jobs).
	TotalExpectedResults int
}

// chunkTracker tracks chunk completion for one chunked export.
type chunkTracker struct {
	chunkFiles  []string // indexed by chunk index, empty string if failed
	totalChunks int
	completed   int
}

// Pool runs export jobs on a pond worker pool. The worker completing
// the last chunk of a chunked export performs the merge itself, so no
// separate coordinator is needed.
type Pool struct {
	pond       pond.Pool
	numWorkers int

	client      *api.Client
	backoff     *backoff.GlobalBackoff
	fileManager *output.FileManager
	pageSize    int
	maxRetries  int

	results chan JobResult

	chunkTrackersMu sync.Mutex
	chunkTrackers   map[string]*chunkTracker // keyed by ChunkInfo.ExportKey

	statusMu      sync.RWMutex
	workerStatus  map[int]*WorkerStatus
	statusUpdates chan WorkerStatus
	workerIDPool  chan int // Pool of reusable worker IDs

	outcomeMu   sync.Mutex
	failedCount int
	fatalErr    error

	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool creates a new export pool.
func NewPool(cfg PoolConfig) *Pool {
	parent := cfg.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	workerIDPool := make(chan int, cfg.NumWorkers)
	for i := range cfg.NumWorkers {
		workerIDPool <- i
	}

	return &Pool{
		pond:          pond.NewPool(cfg.NumWorkers),
		numWorkers:    cfg.NumWorkers,
		client:        cfg.Client,
		backoff:       cfg.Backoff,
		fileManager:   cfg.FileManager,
		pageSize:      cfg.PageSize,
		maxRetries:    cfg.MaxRetries,
		results:       make(chan JobResult, resultsBuffer(cfg)),
		chunkTrackers: make(map[string]*chunkTracker),
		workerStatus:  make(map[int]*WorkerStatus),
		statusUpdates: make(chan WorkerStatus, cfg.NumWorkers*10),
		workerIDPool:  workerIDPool,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// resultsBuffer returns the results channel capacity. The buffer must
// hold one slot per expected result so emit never blocks after the
// consumer has stopped.
func resultsBuffer(cfg PoolConfig) int {
	if cfg.TotalExpectedResults > cfg.NumWorkers*2 {
		return cfg.TotalExpectedResults
	}
	return cfg.NumWorkers * 2
}

// Submit adds a job to the pool.
func (p *Pool) Submit(job *Job) {
	p.pond.Submit(func() {
		p.executeJob(job)
	})
}

// SubmitAll submits multiple jobs
func (p *Pool) SubmitAll(jobs []*Job) {
	for _, job := range jobs {
		p.Submit(job)
	}
}

// Results returns channel of completed results
func (p *Pool) Results() <-chan JobResult {
	return p.results
}

// StatusUpdates returns channel of worker status updates
func (p *Pool) StatusUpdates() <-chan WorkerStatus {
	return p.statusUpdates
}

// StopAndWait gracefully shuts down the pool
func (p *Pool) StopAndWait() {
	p.cancel()
	p.pond.StopAndWait()
	close(p.results)
	close(p.statusUpdates)
}

// Stop immediately stops the pool
func (p *Pool) Stop() {
	p.cancel()
	p.pond.Stop()
}

func (p *Pool) executeJob(job *Job) {
	// Acquire a worker ID from the pool (blocks until one is available)
	workerID := <-p.workerIDPool
	defer func() {
		p.workerIDPool <- workerID
	}()

	p.updateStatus(workerID, WorkerStatus{
		ID: workerID, State: WorkerStateWorking,
		CurrentTarget: job.Label, JobID: job.ID, ChunkLabel: job.ChunkInfo.ChunkLabel(),
	})
	defer p.updateStatus(workerID, WorkerStatus{ID: workerID, State: WorkerStateIdle})

	result := p.processJob(workerID, job)

	if result.Fatal {
		logging.Error("fatal error encountered, stopping export")
		p.cancel()
	}

	p.emit(result)

	// Chunk accounting continues even after a fatal cancellation so the
	// merge slot of every chunked export still produces a result.
	if job.ChunkInfo != nil {
		if mergeResult := p.trackChunkAndMaybeMerge(workerID, job, &result); mergeResult != nil {
			p.emit(*mergeResult)
		}
	}
}

// emit delivers a result and records the job outcome. The results
// buffer holds one slot per expected result, so the send never blocks
// regardless of whether the consumer is still reading.
func (p *Pool) emit(result JobResult) {
	p.outcomeMu.Lock()
	if result.Error != nil {
		p.failedCount++
		if result.Fatal && p.fatalErr == nil {
			p.fatalErr = result.Error
		}
	}
	p.outcomeMu.Unlock()
	p.results <- result
}

// ExportError reports the overall outcome once the pool has drained.
// It returns the fatal error if one stopped the export, a summary
// error if any jobs failed, and nil on full success.
func (p *Pool) ExportError() error {
	p.outcomeMu.Lock()
	defer p.outcomeMu.Unlock()
	if p.fatalErr != nil {
		return fmt.Errorf("export aborted: %w", p.fatalErr)
	}
	if p.failedCount > 0 {
		return fmt.Errorf("export finished with %d failed job(s)", p.failedCount)
	}
	return nil
}

func (p *Pool) processJob(workerID int, job *Job) JobResult {
	start := time.Now()
	result := JobResult{Job: job}

	if p.ctx.Err() != nil {
		result.Error = p.ctx.Err()
		result.Duration = time.Since(start)
		return result
	}

	if p.backoff.IsBackingOff() {
		p.updateStatus(workerID, WorkerStatus{
			ID: workerID, State: WorkerStateBackingOff,
			CurrentTarget: job.Label, JobID: job.ID, ChunkLabel: job.ChunkInfo.ChunkLabel(),
		})
		if err := p.backoff.WaitIfNeeded(p.ctx); err != nil {
			result.Error = err
			result.Duration = time.Since(start)
			return result
		}
	}

	var writer *output.JSONLWriter
	var outputPath string
	var err error
	if job.ChunkInfo != nil {
		writer, outputPath, err = p.fileManager.GetChunkWriter(string(job.Kind), job.Label, job.ChunkInfo.ChunkIndex)
	} else {
		// An unchunked job covers the whole resource, so it writes to
		// the same final name a chunked export merges into.
		writer, outputPath, err = p.fileManager.GetWriter(string(job.Kind), "")
	}
	if err != nil {
		result.Error = fmt.Errorf("failed to create output file: %w", err)
		result.Duration = time.Since(start)
		return result
	}
	result.OutputFile = outputPath

	defer func() {
		if err := writer.Close(); err != nil {
			logging.Error("failed to close writer for %s: %v", job.Label, err)
		}
	}()

	logging.Info("exporting %s (%s) -> %s", job.Kind, job.Label, outputPath)
	count, err := p.exportPages(workerID, job, writer)
	result.ItemCount = count
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = fmt.Errorf("export failed: %w", err)
		logging.Error("export failed for %s (%s): %v", job.Kind, job.Label, err)

		var apiErr *api.APIError
		if errors.As(err, &apiErr) && apiErr.AuthFailure {
			result.Fatal = true
		}
		return result
	}

	logging.Info("exported %d %s records for %s", count, job.Kind, job.Label)
	return result
}

// exportPages walks an endpoint page by page, writing every record.
// Retryable failures (429/5xx) are re-dispatched up to maxRetries with
// the global backoff coordinating the waits; everything else fails the
// job immediately.
func (p *Pool) exportPages(workerID int, job *Job, writer *output.JSONLWriter) (int, error) {
	count := 0
	page := 0

	for {
		if err := p.ctx.Err(); err != nil {
			return count, err
		}

		items, pagination, err := p.fetchPageWithRetry(job, page)
		if err != nil {
			return count, err
		}

		for _, item := range items {
			if err := writer.WriteAny(item); err != nil {
				return count, fmt.Errorf("failed to write record: %w", err)
			}
			count++
		}

		totalPages := 0
		if pagination != nil {
			totalPages = pagination.TotalPages
		}
		p.updateStatus(workerID, WorkerStatus{
			ID: workerID, State: WorkerStateWorking,
			CurrentTarget: job.Label, JobID: job.ID, ChunkLabel: job.ChunkInfo.ChunkLabel(),
			ItemCount: count, Page: page + 1, TotalPages: totalPages,
		})

		if pagination == nil || !pagination.HasNext {
			return count, nil
		}
		page++
	}
}

// fetchPageWithRetry fetches one page, retrying transient errors.
func (p *Pool) fetchPageWithRetry(job *Job, page int) ([]any, *api.Pagination, error) {
	var lastErr error

	for attempt := range p.maxRetries {
		if attempt > 0 {
			// Rate-limit waits are handled by the global backoff inside
			// the client; other transient errors get a local wait.
			var apiErr *api.APIError
			rateLimited := errors.As(lastErr, &apiErr) && p.backoff.IsBackingOff()
			if !rateLimited {
				waitTime := time.Duration(1<<attempt) * time.Second
				logging.Debug("retry attempt %d/%d for %s page %d, waiting %v",
					attempt+1, p.maxRetries, job.Label, page, waitTime)
				select {
				case <-p.ctx.Done():
					return nil, nil, p.ctx.Err()
				case <-time.After(waitTime):
				}
			}
		}

		items, pagination, err := p.fetchPage(job, page)
		if err == nil {
			return items, pagination, nil
		}
		lastErr = err

		var apiErr *api.APIError
		if errors.As(err, &apiErr) && apiErr.Retryable {
			continue
		}
		return nil, nil, err
	}

	return nil, nil, fmt.Errorf("page fetch failed after %d attempts: %w", p.maxRetries, lastErr)
}

func (p *Pool) fetchPage(job *Job, page int) ([]any, *api.Pagination, error) {
	pageReq := api.PageRequest{Page: page, Size: p.pageSize}

	switch job.Kind {
	case KindProducts:
		var (
			products   []api.Product
			pagination *api.Pagination
			err        error
		)
		if job.CategoryID > 0 {
			products, pagination, err = p.client.ProductsByCategory(p.ctx, job.CategoryID, pageReq)
		} else {
			products, pagination, err = p.client.Products(p.ctx, pageReq, api.ProductFilters{})
		}
		if err != nil {
			return nil, nil, err
		}
		items := make([]any, len(products))
		for i := range products {
			items[i] = products[i]
		}
		return items, pagination, nil

	case KindOrders:
		orders, pagination, err := p.client.Orders(p.ctx, pageReq)
		if err != nil {
			return nil, nil, err
		}
		items := make([]any, len(orders))
		for i := range orders {
			items[i] = orders[i]
		}
		return items, pagination, nil

	default:
		return nil, nil, fmt.Errorf("unknown export kind: %s", job.Kind)
	}
}

// trackChunkAndMaybeMerge records chunk completion and performs the
// merge when this was the last chunk. Returns a merge result if a merge
// was performed, nil otherwise.
func (p *Pool) trackChunkAndMaybeMerge(workerID int, job *Job, result *JobResult) *JobResult {
	key := job.ChunkInfo.ExportKey

	p.chunkTrackersMu.Lock()

	tracker, exists := p.chunkTrackers[key]
	if !exists {
		tracker = &chunkTracker{
			chunkFiles:  make([]string, job.ChunkInfo.TotalChunks),
			totalChunks: job.ChunkInfo.TotalChunks,
		}
		p.chunkTrackers[key] = tracker
	}

	if result.Error == nil {
		tracker.chunkFiles[job.ChunkInfo.ChunkIndex] = result.OutputFile
	}
	tracker.completed++

	if tracker.completed != tracker.totalChunks {
		p.chunkTrackersMu.Unlock()
		return nil
	}

	// Last chunk: copy state and release the lock before merging
	chunkFiles := make([]string, len(tracker.chunkFiles))
	copy(chunkFiles, tracker.chunkFiles)
	delete(p.chunkTrackers, key)
	p.chunkTrackersMu.Unlock()

	var validFiles []string
	for _, f := range chunkFiles {
		if f != "" {
			validFiles = append(validFiles, f)
		}
	}
	if len(validFiles) == 0 {
		logging.Error("merge skipped for %s: all %d chunks failed", key, len(chunkFiles))
		return &JobResult{
			Job:   &Job{ID: -1, Kind: job.Kind, Label: key},
			Error: fmt.Errorf("merge skipped: all %d chunks failed", len(chunkFiles)),
		}
	}

	// Abort the merge when some chunks failed rather than producing a
	// silently incomplete export file.
	if len(validFiles) != len(chunkFiles) {
		failedCount := len(chunkFiles) - len(validFiles)
		logging.Error("merge aborted for %s: %d/%d chunks failed", key, failedCount, len(chunkFiles))
		return &JobResult{
			Job:   &Job{ID: -1, Kind: job.Kind, Label: key},
			Error: fmt.Errorf("merge aborted: %d/%d chunks failed", failedCount, len(chunkFiles)),
		}
	}

	return p.performMerge(workerID, job.Kind, key, validFiles)
}

// performMerge merges chunk files into the final output file.
func (p *Pool) performMerge(workerID int, kind ExportKind, key string, chunkFiles []string) *JobResult {
	start := time.Now()

	outputPath := p.fileManager.GetFinalPath(string(kind), "")
	totalBytes, _ := output.CalculateTotalBytes(chunkFiles)

	logging.Info("merging %d chunk files -> %s", len(chunkFiles), outputPath)
	p.updateMergeStatus(workerID, key, 0, totalBytes)

	bytesCopied, err := output.MergeChunkFiles(
		chunkFiles,
		outputPath,
		p.fileManager.Gzip(),
		true, // deleteChunks
		func(copied, total int64) {
			p.updateMergeStatus(workerID, key, copied, total)
		},
	)

	result := JobResult{
		Job: &Job{ID: -1, Kind: kind, Label: key},
		MergeInfo: &MergeInfo{
			ChunkFiles: chunkFiles,
			OutputPath: outputPath,
			TotalBytes: totalBytes,
		},
		OutputFile: outputPath,
		Duration:   time.Since(start),
	}

	if err != nil {
		result.Error = fmt.Errorf("merge failed: %w", err)
		logging.Error("merge failed for %s: %v", key, err)
	} else {
		logging.Info("merged %s: %d bytes -> %s", key, bytesCopied, outputPath)
	}

	return &result
}

func (p *Pool) updateStatus(id int, status WorkerStatus) {
	p.statusMu.Lock()
	p.workerStatus[id] = &status
	p.statusMu.Unlock()

	// Non-blocking send to status updates channel
	select {
	case p.statusUpdates <- status:
	default:
	}
}

func (p *Pool) updateMergeStatus(id int, target string, bytesCopied, totalBytes int64) {
	p.updateStatus(id, WorkerStatus{
		ID:            id,
		State:         WorkerStateMerging,
		CurrentTarget: target,
		BytesCopied:   bytesCopied,
		TotalBytes:    totalBytes,
	})
}
