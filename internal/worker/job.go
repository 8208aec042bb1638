package worker

import (
	"fmt"
	"time"
)

// ExportKind identifies what an export job downloads.
type ExportKind string

const (
	KindProducts ExportKind = "products"
	KindOrders   ExportKind = "orders"
)

// ChunkInfo marks a job as one chunk of a larger export. The worker
// that completes the last chunk merges all chunk files into the final
// output file.
type ChunkInfo struct {
	ChunkIndex  int    // 0-based index
	TotalChunks int    // Total chunks for this export
	ExportKey   string // Grouping key, e.g. "products"
}

// ChunkLabel returns a display label like "3/7".
func (c *ChunkInfo) ChunkLabel() string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("%d/%d", c.ChunkIndex+1, c.TotalChunks)
}

// Job describes one export unit: either a whole resource (orders) or
// one category's worth of products when the export is chunked.
type Job struct {
	ID         int
	Kind       ExportKind
	Label      string // display label, e.g. category name or "all"
	CategoryID int64  // set for per-category product chunks
	ChunkInfo  *ChunkInfo
}

// MergeInfo describes a completed chunk merge.
type MergeInfo struct {
	ChunkFiles []string
	OutputPath string
	TotalBytes int64
}

// JobResult represents the outcome of a job or a merge.
type JobResult struct {
	Job        *Job
	MergeInfo  *MergeInfo // set for merge results
	ItemCount  int
	OutputFile string
	Error      error
	Duration   time.Duration
	Fatal      bool // authentication failed; abort the whole export
}

// IsMerge reports whether this result describes a chunk merge.
func (r *JobResult) IsMerge() bool {
	return r.MergeInfo != nil
}

// WorkerState represents the state of a worker
type WorkerState int

const (
	WorkerStateIdle WorkerState = iota
	WorkerStateWorking
	WorkerStateBackingOff
	WorkerStateMerging
)

func (s WorkerState) String() string {
	switch s {
	case WorkerStateIdle:
		return "idle"
	case WorkerStateWorking:
		return "working"
	case WorkerStateBackingOff:
		return "backing off"
	case WorkerStateMerging:
		return "merging"
	default:
		return "unknown"
	}
}

// WorkerStatus represents the status of a worker
type WorkerStatus struct {
	ID            int
	State         WorkerState
	CurrentTarget string
	JobID         int
	ChunkLabel    string
	ItemCount     int
	Page          int
	TotalPages    int
	BytesCopied   int64 // merge progress
	TotalBytes    int64 // merge progress
}
