package gscheck

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkPoolReturnsExactlyOneResultPerJob(t *testing.T) {
	var processed int32
	pool := newChunkPool(context.Background(), 3, func(ctx context.Context, job chunkJob) chunkResult {
		atomic.AddInt32(&processed, 1)
		return chunkResult{chunk: job.chunk}
	})

	jobs := make([]chunkJob, 10)
	for i := range jobs {
		jobs[i] = chunkJob{chunk: Chunk{Kuerzel: "SRV-01", StartPage: i, EndPage: i}}
	}

	results := pool.run(jobs)
	require.Len(t, results, 10)
	require.Equal(t, int32(10), atomic.LoadInt32(&processed))
}

func TestChunkPoolHealthReflectsCompletedWork(t *testing.T) {
	pool := newChunkPool(context.Background(), 2, func(ctx context.Context, job chunkJob) chunkResult {
		return chunkResult{chunk: job.chunk}
	})

	jobs := []chunkJob{{chunk: Chunk{Kuerzel: "SRV-01", StartPage: 1, EndPage: 1}}}
	pool.run(jobs)

	total := 0
	for _, h := range pool.health() {
		total += h.ChunksHandled
	}
	require.Equal(t, 1, total)
}
