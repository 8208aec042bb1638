package worker

import "github.com/tradecraft/storefront-cli/internal/api"

// ProductJobs builds one chunk job per category so the catalog export
// can run in parallel; the chunks are merged into a single products
// file by the worker that finishes last. A single unchunked job
// covering the whole catalog is returned when no categories are given.
func ProductJobs(categories []api.Category, startJobID int) []*Job {
	if len(categories) == 0 {
		return []*Job{{ID: startJobID, Kind: KindProducts, Label: "all"}}
	}

	jobs := make([]*Job, 0, len(categories))
	for i, cat := range categories {
		jobs = append(jobs, &Job{
			ID:         startJobID + i,
			Kind:       KindProducts,
			Label:      cat.Name,
			CategoryID: cat.ID,
			ChunkInfo: &ChunkInfo{
				ChunkIndex:  i,
				TotalChunks: len(categories),
				ExportKey:   string(KindProducts),
			},
		})
	}
	return jobs
}

// OrdersJob builds the single job that exports the user's orders.
func OrdersJob(jobID int) *Job {
	return &Job{ID: jobID, Kind: KindOrders, Label: "all"}
}

// ExpectedResults returns the number of results the pool will emit for
// jobs: one per job plus one merge result per chunked export.
func ExpectedResults(jobs []*Job) int {
	chunked := make(map[string]bool)
	for _, job := range jobs {
		if job.ChunkInfo != nil {
			chunked[job.ChunkInfo.ExportKey] = true
		}
	}
	return len(jobs) + len(chunked)
}
