package worker

import (
	"testing"

	"github.com/tradecraft/storefront-cli/internal/api"
)

func TestProductJobs_OneChunkPerCategory(t *testing.T) {
	categories := []api.Category{
		{ID: 10, Name: "Electronics"},
		{ID: 20, Name: "Books"},
	}

	jobs := ProductJobs(categories, 5)
	if len(jobs) != 2 {
		t.Fatalf("Expected 2 jobs, got %d", len(jobs))
	}

	for i, job := range jobs {
		if job.ID != 5+i {
			t.Errorf("Job %d: ID got %d, want %d", i, job.ID, 5+i)
		}
		if job.Kind != KindProducts {
			t.Errorf("Job %d: kind got %s, want %s", i, job.Kind, KindProducts)
		}
		if job.CategoryID != categories[i].ID {
			t.Errorf("Job %d: category got %d, want %d", i, job.CategoryID, categories[i].ID)
		}
		if job.ChunkInfo == nil {
			t.Fatalf("Job %d: expected chunk info", i)
		}
		if job.ChunkInfo.ChunkIndex != i || job.ChunkInfo.TotalChunks != 2 {
			t.Errorf("Job %d: chunk %d/%d, want %d/2", i, job.ChunkInfo.ChunkIndex, job.ChunkInfo.TotalChunks, i)
		}
		if job.ChunkInfo.ExportKey != string(KindProducts) {
			t.Errorf("Job %d: export key got %q", i, job.ChunkInfo.ExportKey)
		}
	}
}

func TestProductJobs_NoCategoriesGivesSingleJob(t *testing.T) {
	jobs := ProductJobs(nil, 0)
	if len(jobs) != 1 {
		t.Fatalf("Expected 1 job, got %d", len(jobs))
	}
	if jobs[0].ChunkInfo != nil {
		t.Error("Catalog-wide job must not be chunked")
	}
	if jobs[0].CategoryID != 0 {
		t.Errorf("Expected no category filter, got %d", jobs[0].CategoryID)
	}
}

func TestExpectedResults(t *testing.T) {
	categories := []api.Category{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}, {ID: 3, Name: "C"}}

	jobs := ProductJobs(categories, 0)
	jobs = append(jobs, OrdersJob(len(jobs)))

	// 3 chunks + 1 orders job + 1 merge for the chunked products export
	if got := ExpectedResults(jobs); got != 5 {
		t.Errorf("Expected 5 results, got %d", got)
	}

	unchunked := []*Job{OrdersJob(0)}
	if got := ExpectedResults(unchunked); got != 1 {
		t.Errorf("Expected 1 result for unchunked job, got %d", got)
	}
}

func TestChunkLabel(t *testing.T) {
	c := &ChunkInfo{ChunkIndex: 2, TotalChunks: 7}
	if got := c.ChunkLabel(); got != "3/7" {
		t.Errorf("ChunkLabel: got %q, want 3/7", got)
	}

	var nilChunk *ChunkInfo
	if got := nilChunk.ChunkLabel(); got != "" {
		t.Errorf("Nil chunk label: got %q, want empty", got)
	}
}
